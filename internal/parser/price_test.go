package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPriceText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"Won suffix", "12,900원", intPtr(12900)},
		{"Spaces", " 3 000 ", intPtr(3000)},
		{"No digits", "품절", nil},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanPriceText(tt.input))
		})
	}
}

func TestParsePriceAttr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *int
	}{
		{"Integer", "9600", intPtr(9600)},
		{"Decimal", "9600.00", intPtr(9600)},
		{"Rounds up", "9600.7", intPtr(9601)},
		{"Half to even down", "12900.5", intPtr(12900)},
		{"Half to even up", "12901.5", intPtr(12902)},
		{"Garbage", "abc", nil},
		{"Blank", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePriceAttr(tt.input))
		})
	}
}

func TestUnitCost(t *testing.T) {
	tests := []struct {
		name     string
		price    *int
		qty      *int
		expected *int
	}{
		{"Exact", intPtr(9600), intPtr(12), intPtr(800)},
		{"Rounded", intPtr(1000), intPtr(3), intPtr(333)},
		{"Half to even", intPtr(25), intPtr(10), intPtr(2)},
		{"Missing price", nil, intPtr(12), nil},
		{"Missing qty", intPtr(9600), nil, nil},
		{"Zero qty", intPtr(9600), intPtr(0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, UnitCost(tt.price, tt.qty))
		})
	}
}
