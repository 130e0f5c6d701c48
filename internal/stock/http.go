package stock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/snack-catalog-crawler/internal/parser"
)

const DefaultTimeout = 8 * time.Second

// DocumentFetcher downloads a page without rendering it.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPStrategy reads data-stock attributes from the raw detail page.
type HTTPStrategy struct {
	fetcher DocumentFetcher
	timeout time.Duration
	logger  *slog.Logger
}

func NewHTTPStrategy(fetcher DocumentFetcher, timeout time.Duration, logger *slog.Logger) *HTTPStrategy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPStrategy{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger.With("component", "stock_http"),
	}
}

// Probe fetches the page, retrying once on failure, and reports the largest stock value on it.
func (s *HTTPStrategy) Probe(ctx context.Context, url string) (*int, error) {
	body, err := s.fetch(ctx, url)
	if err != nil {
		s.logger.Debug("fetch failed, retrying", "url", url, "error", err)
		if body, err = s.fetch(ctx, url); err != nil {
			return nil, fmt.Errorf("failed to fetch detail page after retry: %w", err)
		}
	}

	n, ok, err := parser.ExtractStock(body)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (s *HTTPStrategy) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.fetcher.Fetch(ctx, url)
}
