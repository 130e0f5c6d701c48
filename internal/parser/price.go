package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// CleanPriceText keeps only the digits of a visible price ("12,900원" -> 12900).
func CleanPriceText(text string) *int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, text)
	if digits == "" {
		return nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

// ParsePriceAttr parses a structured price attribute such as "12900.00" and rounds it
// half-to-even to an integer.
func ParsePriceAttr(raw string) *int {
	raw = strings.TrimFunc(raw, unicode.IsSpace)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	n := int(d.RoundBank(0).IntPart())
	return &n
}

// UnitCost is bundlePrice / bundleQty rounded half-to-even, or nil when either is missing.
func UnitCost(bundlePrice, bundleQty *int) *int {
	if bundlePrice == nil || bundleQty == nil || *bundleQty <= 0 {
		return nil
	}
	cost := decimal.NewFromInt(int64(*bundlePrice)).
		Div(decimal.NewFromInt(int64(*bundleQty))).
		RoundBank(0).
		IntPart()
	n := int(cost)
	return &n
}
