// Package parser recovers structured order data from free-form order messages.
//
// Every function here is tolerant: a missing label, an unrecognised date or an
// item line without a quantity is reported as an empty result, never an error.
package parser

import (
	"strings"

	"telegram-order-bot/internal/models"
)

const (
	LabelOrder      = "【訂單資料】"
	LabelContent    = "訂單內容"
	LabelTotal      = "總數"
	LabelPickup     = "取貨日期"
	LabelDealMethod = "交收方式"
	LabelPhone      = "聯絡人電話"
	LabelRemark     = "Remark"
)

// IsOrderMessage reports whether text carries the order header.
func IsOrderMessage(text string) bool {
	return strings.Contains(text, LabelOrder)
}

// ExtractFields pulls the pickup date, delivery method, phone and remark out of text.
func ExtractFields(text string) models.Fields {
	return models.Fields{
		Pickup:     afterLabel(text, LabelPickup),
		DealMethod: afterLabel(text, LabelDealMethod),
		Phone:      afterLabel(text, LabelPhone),
		Remark:     afterLabel(text, LabelRemark),
	}
}

// afterLabel returns the first line following the first occurrence of label,
// with leading colons (half or full width) and spaces removed.
func afterLabel(text, label string) string {
	_, rest, ok := strings.Cut(text, label)
	if !ok {
		return ""
	}
	rest = strings.TrimLeft(rest, ":： ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(line)
}
