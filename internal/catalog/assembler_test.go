package catalog

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
	"github.com/maltedev/snack-catalog-crawler/internal/pricing"
)

func firstCard(t *testing.T, body string) Card {
	t.Helper()
	page, err := NewPage(listURL("021005", 1), body)
	require.NoError(t, err)
	cards := page.Cards()
	require.NotEmpty(t, cards)
	return cards[0]
}

func TestAssembleFullCard(t *testing.T) {
	card := firstCard(t, listingPage("", cardFixture{
		goodsNo:  "1001",
		name:     "오리온) 초코바<br>(박 12개입) (유통기한 25.03.10)",
		price:    "12000.00",
		priceTxt: "12,000원",
		image:    "/data/goods/1001.jpg",
	}))

	a := NewAssembler(testSiteBase, pricing.NewOptimizer())
	listing, ok := a.Assemble(card, "초콜릿류", listURL("021005", 1))
	require.True(t, ok)

	assert.Equal(t, "초콜릿류", listing.Category)
	assert.Equal(t, "초코바", listing.Name)
	assert.Equal(t, models.String("25.03.10"), listing.Expiry)
	assert.Equal(t, models.Int(12), listing.BundleQty)
	assert.Equal(t, models.Int(12000), listing.BundlePrice)
	assert.Equal(t, models.Int(1000), listing.UnitCost)
	assert.Equal(t, models.Int(2900), listing.SalePrice)
	assert.Equal(t, models.Int(2), listing.SaleQty)
	assert.Equal(t, models.Float(0.1158), listing.Margin)
	assert.Equal(t, models.String(testSiteBase+"/goods/goods_view.php?goodsNo=1001"), listing.URL)
	assert.Equal(t, models.String(testSiteBase+"/data/goods/1001.jpg"), listing.ThumbnailURL)
	assert.Equal(t, models.String("1001"), listing.GoodsNo)
	assert.Nil(t, listing.StockQty)
}

func TestAssemblePriceFallbackWithoutQuantity(t *testing.T) {
	card := firstCard(t, listingPage("", cardFixture{
		goodsNo:  "2002",
		name:     "새우깡 90g",
		priceTxt: "1,350원",
	}))

	listing, ok := NewAssembler(testSiteBase, nil).Assemble(card, "과자/쿠키/스낵", listURL("021013", 1))
	require.True(t, ok)

	assert.Equal(t, "새우깡 90g", listing.Name)
	assert.Equal(t, models.Int(1350), listing.BundlePrice)
	assert.Nil(t, listing.BundleQty)
	assert.Nil(t, listing.UnitCost)
	assert.Nil(t, listing.SalePrice)
	assert.Nil(t, listing.SaleQty)
	assert.Nil(t, listing.Margin)
	assert.Nil(t, listing.ThumbnailURL)
}

func TestAssembleRoundsPriceAttribute(t *testing.T) {
	card := firstCard(t, listingPage("", cardFixture{
		goodsNo: "3003",
		name:    "젤리",
		price:   "2500.5",
	}))

	listing, ok := NewAssembler(testSiteBase, nil).Assemble(card, "젤리/껌/가루쿡", listURL("021015", 1))
	require.True(t, ok)
	assert.Equal(t, models.Int(2500), listing.BundlePrice)
}

func TestAssembleSkipsSoldOut(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "Sold-out list item",
			body: listingPage("", cardFixture{goodsNo: "1", name: "품절상품", price: "1000", soldOut: true}),
		},
		{
			name: "Sold-out badge",
			body: `<ul><li><div class="item_cont"><strong class="item_soldout_bg">SOLD OUT</strong>` +
				`<strong class="item_name">품절상품</strong></div></li></ul>`,
		},
	}

	a := NewAssembler(testSiteBase, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := a.Assemble(firstCard(t, tt.body), "과자", listURL("021013", 1))
			assert.False(t, ok)
		})
	}
}

func TestAssembleSkipsCardWithoutName(t *testing.T) {
	card := firstCard(t, `<div class="item_cont"><strong class="item_name">  </strong></div>`)
	_, ok := NewAssembler(testSiteBase, nil).Assemble(card, "과자", listURL("021013", 1))
	assert.False(t, ok)

	card = firstCard(t, `<div class="item_cont"><span>no name block</span></div>`)
	_, ok = NewAssembler(testSiteBase, nil).Assemble(card, "과자", listURL("021013", 1))
	assert.False(t, ok)
}

func TestAssembleIsIdempotent(t *testing.T) {
	card := firstCard(t, listingPage("", cardFixture{
		goodsNo: "1001",
		name:    "초코바<br>(박 12개입)",
		price:   "12000",
		image:   "//cdn.example.com/1001.jpg",
	}))

	a := NewAssembler(testSiteBase, nil)
	first, ok := a.Assemble(card, "초콜릿류", listURL("021005", 1))
	require.True(t, ok)
	second, ok := a.Assemble(card, "초콜릿류", listURL("021005", 1))
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, models.String("https://cdn.example.com/1001.jpg"), first.ThumbnailURL)
}

func TestAssembleThumbnailFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *string
	}{
		{
			name: "Main image when list image missing",
			body: `<div class="item_cont"><div class="item_photo_box" data-image-main="/main.jpg" data-image-detail="/detail.jpg"></div>` +
				`<strong class="item_name">A</strong></div>`,
			want: models.String(testSiteBase + "/main.jpg"),
		},
		{
			name: "Photo box image lazy source",
			body: `<div class="item_cont"><div class="item_photo_box"><img data-original="/lazy.jpg" src="/blank.gif"></div>` +
				`<strong class="item_name">A</strong></div>`,
			want: models.String(testSiteBase + "/lazy.jpg"),
		},
		{
			name: "Plain image without photo box",
			body: `<div class="item_cont"><img src="https://img.example.com/x.png"><strong class="item_name">A</strong></div>`,
			want: models.String("https://img.example.com/x.png"),
		},
	}

	a := NewAssembler(testSiteBase, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, ok := a.Assemble(firstCard(t, tt.body), "과자", listURL("021013", 1))
			require.True(t, ok)
			assert.Equal(t, tt.want, listing.ThumbnailURL)
		})
	}
}

func TestAssembleGoodsNoFromAttribute(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="item_cont"><span data-goods-no="778"></span><strong class="item_name">B</strong></div>`))
	require.NoError(t, err)

	listing, ok := NewAssembler(testSiteBase, nil).Assemble(NewDocumentCard(doc.Find(CardSelector)), "과자", listURL("021013", 1))
	require.True(t, ok)
	assert.Nil(t, listing.URL)
	assert.Equal(t, models.String("778"), listing.GoodsNo)
}
