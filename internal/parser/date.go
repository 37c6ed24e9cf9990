package parser

import (
	"regexp"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"golang.org/x/text/width"
)

const (
	// MaxPickupLen bounds the pickup text that is worth attempting to parse.
	MaxPickupLen = 100

	DayKeyLayout = "060102"
	pickupHour   = 9
)

var (
	cjkDateRx   = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	isoDateRx   = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	dmyDateRx   = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	shortDateRx = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
)

// DateParser turns pickup-date text into a local 09:00 timestamp and a day-key.
type DateParser struct {
	loc   *time.Location
	clock clockwork.Clock
}

// NewDateParser returns a parser anchored in loc. A nil clock means wall time.
func NewDateParser(loc *time.Location, clock clockwork.Clock) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DateParser{loc: loc, clock: clock}
}

// Location is the zone pickup timestamps are fixed in.
func (p *DateParser) Location() *time.Location { return p.loc }

// ParsePickupDate tries the known date shapes in priority order:
//
//	2025年12月19日, 2025-12-19, 19/12/2025, 12/19 (current year)
//
// For the year-less form the first number is the month unless it is greater
// than 12, in which case it is the day. ok is false when nothing matched.
func (p *DateParser) ParsePickupDate(text string) (t time.Time, dayKey string, ok bool) {
	if text == "" || utf8.RuneCountInString(text) > MaxPickupLen {
		return time.Time{}, "", false
	}
	text = width.Narrow.String(text)

	if m := cjkDateRx.FindStringSubmatch(text); m != nil {
		if t, ok := p.build(atoi(m[1]), atoi(m[2]), atoi(m[3])); ok {
			return t, DayKey(t), true
		}
	}
	if m := isoDateRx.FindStringSubmatch(text); m != nil {
		if t, ok := p.build(atoi(m[1]), atoi(m[2]), atoi(m[3])); ok {
			return t, DayKey(t), true
		}
	}
	if m := dmyDateRx.FindStringSubmatch(text); m != nil {
		if t, ok := p.build(atoi(m[3]), atoi(m[2]), atoi(m[1])); ok {
			return t, DayKey(t), true
		}
	}
	if m := shortDateRx.FindStringSubmatch(text); m != nil {
		first, second := atoi(m[1]), atoi(m[2])
		month, day := first, second
		if first > 12 {
			month, day = second, first
		}
		year := p.clock.Now().In(p.loc).Year()
		if t, ok := p.build(year, month, day); ok {
			return t, DayKey(t), true
		}
	}
	return time.Time{}, "", false
}

// build validates the components and rejects dates time.Date would normalise
// (31 February becoming 3 March).
func (p *DateParser) build(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, pickupHour, 0, 0, 0, p.loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// DayKey formats t as YYMMDD in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// MonthKey returns the YYMM prefix of a day-key.
func MonthKey(dayKey string) string {
	if len(dayKey) < 4 {
		return dayKey
	}
	return dayKey[:4]
}

// ParseDayKey is the inverse of DayKey at midnight in loc.
func ParseDayKey(dayKey string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, dayKey, loc)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
