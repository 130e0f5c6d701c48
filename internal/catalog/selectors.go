package catalog

// Selectors for the catalog and detail pages of the shop.
const (
	CardSelector          = "div.item_cont"
	NameSelector          = ".item_name"
	PriceFallbackSelector = ".item_price span"
	PriceAttrSelector     = "[data-goods-price]"
	PriceAttr             = "data-goods-price"
	DetailLinkSelector    = "a[href*='goods_view']"
	GoodsNoSelector       = "[data-goods-no]"
	GoodsNoAttr           = "data-goods-no"
	PhotoBoxSelector      = ".item_photo_box"
	ImageSelector         = "img[data-original], img[src]"
	SoldOutBadgeSelector  = "strong.item_soldout_bg"
	SoldOutItemClass      = "item_soldout"

	LastPageSelector = `a[aria-label="Last"], a.last`
	PageLinkSelector = `a[href*="page="]`
	LastPageText     = "끝"
	GoodsNoParam     = "goodsNo"
)

// photoBoxAttrs are tried in order on the photo box before falling back to its <img>.
var photoBoxAttrs = []string{"data-image-list", "data-image-main", "data-image-detail"}

// imageAttrs are tried in order on a thumbnail <img>.
var imageAttrs = []string{"data-original", "src"}

// maxScannedPageLinks bounds the pagination anchors inspected when no last-page link exists.
const maxScannedPageLinks = 25
