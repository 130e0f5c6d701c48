package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
	"github.com/maltedev/snack-catalog-crawler/internal/ratelimit"
)

var (
	ErrFetchFailed = errors.New("catalog page fetch failed")
)

// Renderer returns the rendered HTML of a listing page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type WalkerConfig struct {
	SiteBase string
	MaxPages int
	Limiter  ratelimit.Limiter
}

// Walker crawls the listing pages of a category in order.
type Walker struct {
	renderer  Renderer
	assembler *Assembler
	siteBase  string
	maxPages  int
	limiter   ratelimit.Limiter
	logger    *slog.Logger
}

func NewWalker(renderer Renderer, assembler *Assembler, cfg WalkerConfig, logger *slog.Logger) *Walker {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &Walker{
		renderer:  renderer,
		assembler: assembler,
		siteBase:  cfg.SiteBase,
		maxPages:  cfg.MaxPages,
		limiter:   limiter,
		logger:    logger.With("component", "catalog_walker"),
	}
}

// Walk returns every in-stock listing of the category in discovery order.
// A page without cards ends the walk; a render failure aborts it.
func (w *Walker) Walk(ctx context.Context, category models.Category) ([]models.Listing, error) {
	first, err := w.load(ctx, category.Code, 1)
	if err != nil {
		return nil, err
	}

	lastPage := EstimateLastPage(first.doc)
	if w.maxPages > 0 && lastPage > w.maxPages {
		lastPage = w.maxPages
	}

	w.logger.Info("walking category",
		"category", category.Name,
		"code", category.Code,
		"pages", lastPage)

	var listings []models.Listing
	for page := 1; page <= lastPage; page++ {
		current := first
		if page > 1 {
			if current, err = w.load(ctx, category.Code, page); err != nil {
				return nil, err
			}
		}

		cards := current.Cards()
		if len(cards) == 0 {
			w.logger.Debug("empty page, stopping", "category", category.Name, "page", page)
			break
		}

		before := len(listings)
		for _, card := range cards {
			if listing, ok := w.assembler.Assemble(card, category.Name, current.URL); ok {
				listings = append(listings, listing)
			}
		}

		w.logger.Debug("page collected",
			"category", category.Name,
			"page", page,
			"cards", len(cards),
			"listings", len(listings)-before)
	}

	return listings, nil
}

func (w *Walker) load(ctx context.Context, code string, page int) (*Page, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	pageURL := BuildListURL(w.siteBase, code, page)
	body, err := w.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, pageURL, err)
	}

	p, err := NewPage(pageURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, pageURL, err)
	}
	return p, nil
}

// EstimateLastPage reads the pagination block of a listing page. It prefers an
// explicit last-page link, then the largest page number among the first page
// links, and defaults to 1. The result is never below 1.
func EstimateLastPage(doc *goquery.Document) int {
	if n, ok := lastPageLink(doc); ok {
		if n < 1 {
			return 1
		}
		return n
	}

	maxPage := 1
	doc.Find(PageLinkSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxScannedPageLinks {
			return false
		}
		href, _ := s.Attr("href")
		if n, ok := pageNumber(href); ok && n > maxPage {
			maxPage = n
		}
		return true
	})
	return maxPage
}

func lastPageLink(doc *goquery.Document) (int, bool) {
	if href, ok := doc.Find(LastPageSelector).First().Attr("href"); ok {
		if n, ok := pageNumber(href); ok {
			return n, true
		}
	}

	found, page := false, 0
	doc.Find(PageLinkSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), LastPageText) {
			return true
		}
		href, _ := s.Attr("href")
		page, found = pageNumber(href)
		return !found
	})
	return page, found
}
