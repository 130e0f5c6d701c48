package catalog

import (
	"fmt"
	"strings"
)

const testSiteBase = "https://shop.example.com"

type cardFixture struct {
	goodsNo  string
	name     string
	price    string
	priceTxt string
	image    string
	soldOut  bool
}

func (c cardFixture) html() string {
	var b strings.Builder

	liClass := "item"
	if c.soldOut {
		liClass += " item_soldout"
	}
	fmt.Fprintf(&b, `<li class="%s"><div class="item_cont">`, liClass)

	if c.image != "" {
		fmt.Fprintf(&b, `<div class="item_photo_box" data-image-list="%s">`, c.image)
		fmt.Fprintf(&b, `<a href="../goods/goods_view.php?goodsNo=%s"><img src="/img/fallback.jpg"></a></div>`, c.goodsNo)
	}

	b.WriteString(`<div class="item_info_cont"><div class="item_tit_box">`)
	fmt.Fprintf(&b, `<a href="../goods/goods_view.php?goodsNo=%s"><strong class="item_name">%s</strong></a>`, c.goodsNo, c.name)
	b.WriteString(`</div><div class="item_money_box">`)
	if c.price != "" {
		fmt.Fprintf(&b, `<strong class="item_price" data-goods-price="%s">`, c.price)
	} else {
		b.WriteString(`<strong class="item_price">`)
	}
	fmt.Fprintf(&b, `<span>%s</span></strong></div></div>`, c.priceTxt)

	b.WriteString(`</div></li>`)
	return b.String()
}

func listingPage(pagination string, cards ...cardFixture) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="goods_list"><ul>`)
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString(`</ul></div><div class="pagination">`)
	b.WriteString(pagination)
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func listURL(code string, page int) string {
	return BuildListURL(testSiteBase, code, page)
}
