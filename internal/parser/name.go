package parser

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	lineBreakPattern   = regexp.MustCompile(`\r\n|[\n\r\v\f\x{1c}\x{1d}\x{1e}\x{85}\x{2028}\x{2029}]`)
	brandPrefixPattern = regexp.MustCompile(`^\s*([^()\[\]]{1,30})\)\s*(.+)$`)
	parenGroupPattern  = regexp.MustCompile(`\(([^)]*)\)`)
	packUnitPattern    = regexp.MustCompile(`(타|박|개)`)
	packQtyPattern     = regexp.MustCompile(`(\p{Nd}+)\s*개입`)
	expiryPattern      = regexp.MustCompile(`(\p{Nd}{2}\.\p{Nd}{2}\.\p{Nd}{2})`)
)

// NameParts is what can be recovered from a raw card name block.
// Empty strings and nil pointers mean the value was not found.
type NameParts struct {
	Name   string
	Unit   string
	Qty    *int
	Expiry *string
}

// ParseNamePackExpiry splits a raw multi-line name into product name, bundle unit,
// units per bundle and expiry date (YY.MM.DD).
//
// The first non-empty line is the name; the remaining lines form the tail that is
// searched for "(박 12개입)" style groups and the expiry token.
func ParseNamePackExpiry(raw string) NameParts {
	var parts NameParts
	if strings.TrimSpace(raw) == "" {
		return parts
	}

	var lines []string
	for _, l := range lineBreakPattern.Split(raw, -1) {
		if fields := strings.Fields(l); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}

	parts.Name = StripBrandPrefix(lines[0])
	tail := strings.Join(lines[1:], " ")

	for _, m := range parenGroupPattern.FindAllStringSubmatch(tail, -1) {
		inside := m[1]
		if u := packUnitPattern.FindStringSubmatch(inside); u != nil {
			parts.Unit = u[1]
		}
		if q := packQtyPattern.FindStringSubmatch(inside); q != nil {
			if n, err := strconv.Atoi(asciiDigits(q[1])); err == nil {
				parts.Qty = &n
			}
		}
		if parts.Unit != "" || parts.Qty != nil {
			break
		}
	}

	if e := expiryPattern.FindStringSubmatch(tail); e != nil {
		expiry := e[1]
		parts.Expiry = &expiry
	}

	return parts
}

// StripBrandPrefix removes a leading "Brand)" token, e.g. "오성) 레몬맛 샌드" -> "레몬맛 샌드".
// Parentheses elsewhere in the name are left alone.
func StripBrandPrefix(name string) string {
	m := brandPrefixPattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return strings.TrimSpace(m[2])
}

// asciiDigits rewrites decimal digits of any script, such as full-width "１２", as ASCII.
func asciiDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 || !unicode.IsDigit(r) {
			return r
		}
		if v, ok := digitValue(r); ok {
			return '0' + rune(v)
		}
		return r
	}, s)
}

// digitValue relies on every Nd range being made of whole 0-9 runs.
func digitValue(r rune) (int, bool) {
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return int(r-lo) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return int(r-lo) % 10, true
		}
	}
	return 0, false
}
