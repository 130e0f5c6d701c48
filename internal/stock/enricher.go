package stock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

const (
	DefaultConcurrency = 8
	// MaxDialogConcurrency caps interactive probes regardless of configuration.
	MaxDialogConcurrency = 6
)

type EnricherConfig struct {
	Enabled     bool
	Mode        Mode
	Concurrency int
}

// Enricher fills StockQty on listings using a bounded worker pool.
type Enricher struct {
	strategy Strategy
	enabled  bool
	workers  int
	logger   *slog.Logger
}

func NewEnricher(strategy Strategy, cfg EnricherConfig, logger *slog.Logger) *Enricher {
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	if cfg.Mode == ModeDialog && workers > MaxDialogConcurrency {
		workers = MaxDialogConcurrency
	}

	return &Enricher{
		strategy: strategy,
		enabled:  cfg.Enabled,
		workers:  workers,
		logger:   logger.With("component", "stock_enricher"),
	}
}

// Targets returns one target per listing that has a detail URL.
func Targets(listings []models.Listing) []models.StockTarget {
	var targets []models.StockTarget
	for i, l := range listings {
		if l.URL == nil || *l.URL == "" {
			continue
		}
		targets = append(targets, models.StockTarget{Index: i, URL: *l.URL})
	}
	return targets
}

// Enrich sets StockQty in place and returns the same slice. Each worker writes
// only the index of its own target, so order and length never change. A failed
// probe leaves that listing's StockQty nil.
func (e *Enricher) Enrich(ctx context.Context, listings []models.Listing) ([]models.Listing, error) {
	if !e.enabled || e.strategy == nil {
		return listings, nil
	}

	targets := Targets(listings)
	if len(targets) == 0 {
		return listings, nil
	}

	start := time.Now()
	e.logger.Info("enriching stock", "targets", len(targets), "workers", e.workers)

	var found, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.workers)

	for _, target := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			qty, err := e.strategy.Probe(ctx, target.URL)
			if err != nil {
				failed.Add(1)
				e.logger.Debug("stock probe failed", "url", target.URL, "error", err)
				return nil
			}
			if qty != nil {
				found.Add(1)
			}
			listings[target.Index].StockQty = qty
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Info("stock enrichment completed",
		"targets", len(targets),
		"found", found.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start))

	return listings, ctx.Err()
}
