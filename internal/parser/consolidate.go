package parser

import (
	"strconv"
	"strings"
)

// Consolidate sums quantities per product across "product × qty" entries.
// Entries without a readable quantity count as one unit; entries whose
// quantity falls outside the reasonable range are ignored.
func Consolidate(items []string) map[string]int {
	out := make(map[string]int)
	for _, item := range items {
		product, qty := splitItem(item)
		if product == "" || !ReasonableQuantity(qty) {
			continue
		}
		out[product] += qty
	}
	return out
}

// Merge adds src totals into dst.
func Merge(dst, src map[string]int) {
	for product, qty := range src {
		dst[product] += qty
	}
}

// Total is the sum of all quantities.
func Total(m map[string]int) int {
	n := 0
	for _, qty := range m {
		n += qty
	}
	return n
}

// splitItem splits on the last "×". An ASCII "x" only counts as the marker when
// digits follow it, so names such as "Apple Box" stay whole.
func splitItem(item string) (string, int) {
	if i := strings.LastIndex(item, "×"); i >= 0 {
		qty, err := strconv.Atoi(strings.TrimSpace(item[i+len("×"):]))
		if err != nil {
			qty = 1
		}
		return strings.TrimSpace(item[:i]), qty
	}
	if i := strings.LastIndex(item, "x"); i >= 0 {
		if qty, err := strconv.Atoi(strings.TrimSpace(item[i+1:])); err == nil {
			return strings.TrimSpace(item[:i]), qty
		}
	}
	return strings.TrimSpace(item), 1
}
