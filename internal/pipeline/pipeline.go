package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
	"github.com/maltedev/snack-catalog-crawler/internal/sink"
)

// CategoryWalker lists the in-stock products of one category in page order.
type CategoryWalker interface {
	Walk(ctx context.Context, category models.Category) ([]models.Listing, error)
}

// StockEnricher fills StockQty without changing order or length.
type StockEnricher interface {
	Enrich(ctx context.Context, listings []models.Listing) ([]models.Listing, error)
}

type Config struct {
	Categories    []models.Category
	DestinationID string
	Tab           string
}

// Result summarizes one pipeline run.
type Result struct {
	Rows        int            `json:"rows"`
	PerCategory map[string]int `json:"per_category"`
	Enriched    int            `json:"enriched"`
}

// Pipeline walks every category, enriches stock once over the whole set,
// drops duplicate rows and hands the result to the sink.
type Pipeline struct {
	walker   CategoryWalker
	enricher StockEnricher
	sink     sink.Sink
	cfg      Config
	logger   *slog.Logger
}

func New(walker CategoryWalker, enricher StockEnricher, out sink.Sink, cfg Config, logger *slog.Logger) *Pipeline {
	if len(cfg.Categories) == 0 {
		cfg.Categories = models.DefaultCategories()
	}
	return &Pipeline{
		walker:   walker,
		enricher: enricher,
		sink:     out,
		cfg:      cfg,
		logger:   logger.With("component", "pipeline"),
	}
}

func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{PerCategory: make(map[string]int, len(p.cfg.Categories))}

	var all []models.Listing
	for _, category := range p.cfg.Categories {
		listings, err := p.walker.Walk(ctx, category)
		if err != nil {
			return result, fmt.Errorf("category %s: %w", category.Name, err)
		}
		result.PerCategory[category.Name] = len(listings)
		all = append(all, listings...)

		p.logger.Info("category done", "category", category.Name, "listings", len(listings))
	}

	if p.enricher != nil {
		enriched, err := p.enricher.Enrich(ctx, all)
		if err != nil {
			return result, fmt.Errorf("failed to enrich stock: %w", err)
		}
		all = enriched
	}

	rows := models.Dedup(all)
	result.Rows = len(rows)
	for _, r := range rows {
		if r.StockQty != nil {
			result.Enriched++
		}
	}

	if err := p.sink.Write(ctx, rows, p.cfg.DestinationID, p.cfg.Tab); err != nil {
		return result, fmt.Errorf("failed to write rows: %w", err)
	}

	p.logger.Info("pipeline completed",
		"rows", result.Rows,
		"duplicates", len(all)-len(rows),
		"enriched", result.Enriched,
		"duration", time.Since(start))

	return result, nil
}
