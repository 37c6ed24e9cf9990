// Package report renders cached orders as per-day and per-month summaries.
// A missing day or month is reported through ok=false, never an error.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"telegram-order-bot/internal/models"
	"telegram-order-bot/internal/parser"
)

// Source is the read side of the order cache.
type Source interface {
	Get(dayKey string) []models.Order
	Prefix(prefix string) map[string][]models.Order
}

type Formatter struct {
	src Source
}

func New(src Source) *Formatter {
	return &Formatter{src: src}
}

var rule = strings.Repeat("=", 30)

// ---------- content (items × quantities) ------------------------------------

// MonthTotals returns per-day totals and the month-wide totals, accumulated
// side by side from the same parsed items.
func (f *Formatter) MonthTotals(monthKey string) (perDay map[string]map[string]int, all map[string]int) {
	perDay = make(map[string]map[string]int)
	all = make(map[string]int)
	for day, orders := range f.src.Prefix(monthKey) {
		daily := make(map[string]int)
		for _, o := range orders {
			items := parser.Consolidate(parser.ParseOrderContent(o.FullMessage))
			parser.Merge(daily, items)
			parser.Merge(all, items)
		}
		perDay[day] = daily
	}
	return perDay, all
}

// ForDay lists consolidated products for dayKey with a trailing total.
func (f *Formatter) ForDay(dayKey string) (string, bool) {
	orders := f.src.Get(dayKey)
	if len(orders) == 0 {
		return "", false
	}
	items := totals(orders)

	lines := []string{fmt.Sprintf("📋 Orders for %s", dateLabel(dayKey))}
	lines = append(lines, itemLines(items, "- ")...)
	lines = append(lines, rule, fmt.Sprintf("總數： %d件", parser.Total(items)))
	return strings.Join(lines, "\n"), true
}

// ForMonth lists each day of monthKey in ascending order with its subtotal,
// then the month total and the month-wide product list.
func (f *Formatter) ForMonth(monthKey string) (string, bool) {
	perDay, all := f.MonthTotals(monthKey)
	if len(perDay) == 0 {
		return "", false
	}

	lines := []string{fmt.Sprintf("📋 Orders for %s", monthLabel(monthKey)), rule}
	for _, day := range sortedKeys(perDay) {
		daily := perDay[day]
		lines = append(lines, "", fmt.Sprintf("%s (Total: %d 件)", dateLabel(day), parser.Total(daily)))
		lines = append(lines, itemLines(daily, "  - ")...)
	}
	lines = append(lines, "", rule, fmt.Sprintf("Month Total: %d 件", parser.Total(all)))
	lines = append(lines, itemLines(all, "  - ")...)
	return strings.Join(lines, "\n"), true
}

// ---------- details (who / phone / delivery) --------------------------------

// DetailDay lists author, phone, delivery method, remark and link per order.
func (f *Formatter) DetailDay(dayKey string) (string, bool) {
	orders := f.src.Get(dayKey)
	if len(orders) == 0 {
		return "", false
	}
	lines := []string{fmt.Sprintf("📋 Orders for %s - Total: %d", dateLabel(dayKey), len(orders)), rule}
	for i, o := range orders {
		lines = append(lines,
			"",
			fmt.Sprintf("Order #%d", i+1),
			"👤 Author: "+o.Author,
			"📞 Phone: "+orNA(o.Phone),
			"📍 Delivery: "+orNA(o.DealMethod),
			"📝 Remark: "+orNA(o.Remark),
		)
		if o.Permalink != "" {
			lines = append(lines, "🔗 "+o.Permalink)
		}
	}
	return strings.Join(lines, "\n"), true
}

// DetailMonth lists every order of monthKey grouped by day.
func (f *Formatter) DetailMonth(monthKey string) (string, bool) {
	byDay := f.src.Prefix(monthKey)
	if len(byDay) == 0 {
		return "", false
	}
	lines := []string{fmt.Sprintf("📋 Orders for %s", monthLabel(monthKey)), rule}
	for _, day := range sortedKeys(byDay) {
		orders := byDay[day]
		lines = append(lines, "", fmt.Sprintf("📅 %s (%d orders)", dateLabel(day), len(orders)))
		for i, o := range orders {
			lines = append(lines, fmt.Sprintf(" #%d 📞 %s | 📍 %s", i+1, orNA(o.Phone), orNA(o.DealMethod)))
			if o.Remark != "" {
				lines = append(lines, "    📝 "+o.Remark)
			}
		}
	}
	return strings.Join(lines, "\n"), true
}

// ---------- helpers ---------------------------------------------------------

func totals(orders []models.Order) map[string]int {
	all := make(map[string]int)
	for _, o := range orders {
		parser.Merge(all, parser.Consolidate(parser.ParseOrderContent(o.FullMessage)))
	}
	return all
}

func itemLines(items map[string]int, prefix string) []string {
	out := make([]string, 0, len(items))
	for _, product := range sortedKeys(items) {
		out = append(out, prefix+parser.FormatItem(product, items[product]))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dateLabel renders 251219 as 2025年12月19日, falling back to the raw key.
func dateLabel(dayKey string) string {
	t, err := parser.ParseDayKey(dayKey, time.UTC)
	if err != nil {
		return dayKey
	}
	return t.Format("2006年01月02日")
}

// monthLabel renders 2512 as 2025年12月.
func monthLabel(monthKey string) string {
	t, err := parser.ParseDayKey(monthKey+"01", time.UTC)
	if err != nil {
		return monthKey
	}
	return t.Format("2006年01月")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
