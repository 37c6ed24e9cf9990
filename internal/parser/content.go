package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinQuantity = 1
	MaxQuantity = 1000

	// maxProductLen guards against a whole paragraph being captured as a name.
	maxProductLen = 100
)

var (
	// 6" / 6″ / 6“ → 6 "  so the size is not read as part of a quantity.
	inchRx = regexp.MustCompile(`(\d+\.?\d*)\s*["″“”]`)
	itemRx = regexp.MustCompile(`([^×\n]+?)\s*(?:×|x)\s*(\d+)`)

	stopLabels = []string{LabelTotal, LabelPickup, LabelDealMethod}
)

// ReasonableQuantity reports whether q lies in the accepted per-line range.
func ReasonableQuantity(q int) bool {
	return q >= MinQuantity && q <= MaxQuantity
}

// FormatItem renders the canonical "product × qty" item string.
func FormatItem(product string, qty int) string {
	return fmt.Sprintf("%s × %d", product, qty)
}

// ParseOrderContent returns "product × qty" entries from the 訂單內容 section.
//
// Lines of the form "name × N" (or "name x N") are read first. Only when none
// are present is every remaining line taken as a single unit of its product.
func ParseOrderContent(text string) []string {
	_, section, ok := strings.Cut(text, LabelContent)
	if !ok {
		return nil
	}
	for _, stop := range stopLabels {
		if i := strings.Index(section, stop); i >= 0 {
			section = section[:i]
		}
	}
	section = strings.TrimSpace(strings.TrimLeft(section, ":： "))
	section = NormalizeSizes(section)

	var items []string
	if matches := itemRx.FindAllStringSubmatch(section, -1); len(matches) > 0 {
		for _, m := range matches {
			product := strings.TrimSpace(m[1])
			if product == "" || utf8.RuneCountInString(product) >= maxProductLen {
				continue
			}
			qty, err := strconv.Atoi(m[2])
			if err != nil || !ReasonableQuantity(qty) {
				qty = 1
			}
			items = append(items, FormatItem(product, qty))
		}
		return items
	}

	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || utf8.RuneCountInString(line) >= maxProductLen || isStopLabel(line) {
			continue
		}
		items = append(items, FormatItem(line, 1))
	}
	return items
}

// NormalizeSizes rewrites an inch mark attached to a number as `N "`.
func NormalizeSizes(text string) string {
	return inchRx.ReplaceAllString(text, `${1} "`)
}

func isStopLabel(line string) bool {
	for _, l := range stopLabels {
		if line == l {
			return true
		}
	}
	return false
}
