package models

import (
	"strconv"
	"strings"
)

// Listing is one output row. Optional values are nil when absent.
type Listing struct {
	Category     string   `json:"category"`
	Name         string   `json:"name"`
	Expiry       *string  `json:"expiry,omitempty"`
	BundleQty    *int     `json:"bundle_qty,omitempty"`
	BundlePrice  *int     `json:"bundle_price,omitempty"`
	UnitCost     *int     `json:"unit_cost,omitempty"`
	StockQty     *int     `json:"stock_qty,omitempty"`
	SaleQty      *int     `json:"sale_qty,omitempty"`
	SalePrice    *int     `json:"sale_price,omitempty"`
	Margin       *float64 `json:"margin,omitempty"`
	URL          *string  `json:"url,omitempty"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty"`

	// GoodsNo is the site's product code. It is not part of the exported row.
	GoodsNo *string `json:"goods_no,omitempty"`
}

// Column is one exported column: a stable key and the header label written by sinks.
type Column struct {
	Key   string
	Label string
}

// Columns is the fixed export order.
var Columns = []Column{
	{Key: "category", Label: "카테고리"},
	{Key: "name", Label: "상품명"},
	{Key: "expiry", Label: "유통기한"},
	{Key: "bundle_qty", Label: "묶음당수량"},
	{Key: "bundle_price", Label: "묶음단가"},
	{Key: "unit_cost", Label: "개당단가"},
	{Key: "stock_qty", Label: "재고수량"},
	{Key: "sale_qty", Label: "판매수량"},
	{Key: "sale_price", Label: "판매가"},
	{Key: "margin", Label: "마진율"},
	{Key: "url", Label: "URL"},
	{Key: "thumbnail_url", Label: "이미지URL"},
}

// Header returns the header labels in export order.
func Header() []string {
	h := make([]string, len(Columns))
	for i, c := range Columns {
		h[i] = c.Label
	}
	return h
}

// Cells serializes the listing in export order. Absent values become empty cells.
func (l Listing) Cells() []string {
	return []string{
		l.Category,
		l.Name,
		str(l.Expiry),
		itoa(l.BundleQty),
		itoa(l.BundlePrice),
		itoa(l.UnitCost),
		itoa(l.StockQty),
		itoa(l.SaleQty),
		itoa(l.SalePrice),
		ftoa(l.Margin),
		str(l.URL),
		str(l.ThumbnailURL),
	}
}

// Values is like Cells but keeps numbers typed, for sinks that store typed cells.
func (l Listing) Values() []any {
	return []any{
		l.Category,
		l.Name,
		orEmpty(l.Expiry),
		orEmpty(l.BundleQty),
		orEmpty(l.BundlePrice),
		orEmpty(l.UnitCost),
		orEmpty(l.StockQty),
		orEmpty(l.SaleQty),
		orEmpty(l.SalePrice),
		orEmpty(l.Margin),
		orEmpty(l.URL),
		orEmpty(l.ThumbnailURL),
	}
}

// Key identifies a row by its exported cells.
func (l Listing) Key() string {
	return strings.Join(l.Cells(), "\x1f")
}

// Dedup drops rows whose exported cells equal an earlier row, keeping first-seen order.
func Dedup(listings []Listing) []Listing {
	seen := make(map[string]struct{}, len(listings))
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		k := l.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, l)
	}
	return out
}

// Category is one entry of the static category mapping.
type Category struct {
	Name string
	Code string
}

// DefaultCategories returns the crawl categories in processing order.
func DefaultCategories() []Category {
	return []Category{
		{Name: "과자/쿠키/스낵", Code: "021013"},
		{Name: "초콜릿류", Code: "021005"},
		{Name: "캔디(사탕)/카라멜", Code: "021002"},
		{Name: "젤리/껌/가루쿡", Code: "021015"},
		{Name: "건견과/어포/육포", Code: "021004"},
		{Name: "중국간식", Code: "021012"},
		{Name: "음료/푸딩", Code: "021003"},
	}
}

// StockTarget is a unit of enrichment work: Index points into the listing slice being enriched.
type StockTarget struct {
	Index int
	URL   string
}

func Int(v int) *int { return &v }

func String(v string) *string { return &v }

func Float(v float64) *float64 { return &v }

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func itoa(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func ftoa(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func orEmpty[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
