package catalog

import (
	"github.com/maltedev/snack-catalog-crawler/internal/models"
	"github.com/maltedev/snack-catalog-crawler/internal/parser"
	"github.com/maltedev/snack-catalog-crawler/internal/pricing"
)

// Assembler turns product cards into listings.
type Assembler struct {
	siteBase  string
	optimizer *pricing.Optimizer
}

func NewAssembler(siteBase string, optimizer *pricing.Optimizer) *Assembler {
	if optimizer == nil {
		optimizer = pricing.NewOptimizer()
	}
	return &Assembler{siteBase: siteBase, optimizer: optimizer}
}

// Assemble builds a listing from a card found on pageURL. It reports false for
// sold-out cards and cards without a usable name. StockQty is always left nil.
func (a *Assembler) Assemble(card Card, category, pageURL string) (models.Listing, bool) {
	if card.SoldOut() {
		return models.Listing{}, false
	}

	raw, _ := card.Text(NameSelector)
	parts := parser.ParseNamePackExpiry(raw)
	if parts.Name == "" {
		return models.Listing{}, false
	}

	listing := models.Listing{
		Category:    category,
		Name:        parts.Name,
		Expiry:      parts.Expiry,
		BundleQty:   parts.Qty,
		BundlePrice: a.bundlePrice(card),
	}

	if href, ok := card.Attr(DetailLinkSelector, "href"); ok {
		if full, ok := Absolutize(a.siteBase, pageURL, href); ok {
			listing.URL = &full
		}
	}
	listing.GoodsNo = a.goodsNo(card, listing.URL)
	listing.ThumbnailURL = a.thumbnail(card, pageURL)

	listing.UnitCost = parser.UnitCost(listing.BundlePrice, listing.BundleQty)
	if listing.UnitCost != nil {
		if combo, ok := a.optimizer.Choose(float64(*listing.UnitCost)); ok {
			listing.SalePrice = models.Int(combo.SalePrice)
			listing.SaleQty = models.Int(combo.SaleQty)
			listing.Margin = models.Float(pricing.RoundMargin(combo.Margin))
		}
	}

	return listing, true
}

func (a *Assembler) bundlePrice(card Card) *int {
	if raw, ok := card.Attr(PriceAttrSelector, PriceAttr); ok {
		if p := parser.ParsePriceAttr(raw); p != nil {
			return p
		}
	}
	if text, ok := card.Text(PriceFallbackSelector); ok {
		return parser.CleanPriceText(text)
	}
	return nil
}

func (a *Assembler) goodsNo(card Card, detailURL *string) *string {
	if detailURL != nil {
		if code, ok := QueryParam(*detailURL, GoodsNoParam); ok {
			return &code
		}
	}
	if code, ok := card.Attr(GoodsNoSelector, GoodsNoAttr); ok && code != "" {
		return &code
	}
	return nil
}

func (a *Assembler) thumbnail(card Card, pageURL string) *string {
	if card.Has(PhotoBoxSelector) {
		for _, attr := range photoBoxAttrs {
			if v, ok := card.Attr(PhotoBoxSelector, attr); ok && v != "" {
				return a.absolute(pageURL, v)
			}
		}
		return a.imageURL(card, PhotoBoxSelector+" img[data-original], "+PhotoBoxSelector+" img[src]", pageURL)
	}
	return a.imageURL(card, ImageSelector, pageURL)
}

func (a *Assembler) imageURL(card Card, selector, pageURL string) *string {
	for _, attr := range imageAttrs {
		if v, ok := card.Attr(selector, attr); ok && v != "" {
			return a.absolute(pageURL, v)
		}
	}
	return nil
}

func (a *Assembler) absolute(pageURL, link string) *string {
	if full, ok := Absolutize(a.siteBase, pageURL, link); ok {
		return &full
	}
	return nil
}
