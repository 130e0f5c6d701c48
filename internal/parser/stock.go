package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StockAttr is the attribute carrying per-option stock on detail pages.
const StockAttr = "data-stock"

var stockValuePattern = regexp.MustCompile(`^[\d,]+$`)

// ExtractStock returns the largest data-stock value found in the document.
// A product exposes one value per purchase option; the best-stocked option is reported.
func ExtractStock(html string) (int, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse HTML: %w", err)
	}

	best, found := 0, false
	doc.Find("[" + StockAttr + "]").Each(func(i int, s *goquery.Selection) {
		v, ok := ParseStockValue(s.AttrOr(StockAttr, ""))
		if !ok {
			return
		}
		if !found || v > best {
			best, found = v, true
		}
	})

	return best, found, nil
}

// ParseStockValue parses a comma-grouped stock number such as "1,200".
func ParseStockValue(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if !stockValuePattern.MatchString(raw) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, false
	}
	return n, true
}
