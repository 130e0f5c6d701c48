package catalog

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Card is a product card on a listing page.
// An empty selector addresses the card element itself.
type Card interface {
	Has(selector string) bool
	Text(selector string) (string, bool)
	Attr(selector, name string) (string, bool)
	SoldOut() bool
}

// Page is a rendered listing page.
type Page struct {
	URL string
	doc *goquery.Document
}

// NewPage parses rendered HTML for the page at pageURL.
func NewPage(pageURL, body string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{URL: pageURL, doc: doc}, nil
}

// Cards enumerates product cards in document order.
func (p *Page) Cards() []Card {
	var cards []Card
	p.doc.Find(CardSelector).Each(func(i int, s *goquery.Selection) {
		cards = append(cards, &DocumentCard{sel: s})
	})
	return cards
}

// DocumentCard is a Card backed by a parsed HTML selection.
type DocumentCard struct {
	sel *goquery.Selection
}

func NewDocumentCard(sel *goquery.Selection) *DocumentCard {
	return &DocumentCard{sel: sel}
}

func (c *DocumentCard) find(selector string) *goquery.Selection {
	if selector == "" {
		return c.sel
	}
	return c.sel.Find(selector).First()
}

func (c *DocumentCard) Has(selector string) bool {
	return c.find(selector).Length() > 0
}

func (c *DocumentCard) Text(selector string) (string, bool) {
	s := c.find(selector)
	if s.Length() == 0 {
		return "", false
	}
	return innerText(s), true
}

func (c *DocumentCard) Attr(selector, name string) (string, bool) {
	return c.find(selector).Attr(name)
}

func (c *DocumentCard) SoldOut() bool {
	if c.sel.Closest("li").HasClass(SoldOutItemClass) {
		return true
	}
	return c.sel.Find(SoldOutBadgeSelector).Length() > 0
}

var blockElements = map[string]bool{
	"div": true, "p": true, "li": true, "ul": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// innerText approximates rendered text: <br> and block boundaries become line breaks.
func innerText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "br":
				b.WriteByte('\n')
				return
			case "script", "style":
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	for _, n := range s.Nodes {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	return b.String()
}
