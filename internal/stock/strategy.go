package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var (
	ErrUnknownMode       = errors.New("unknown stock mode")
	ErrNoQuantityControl = errors.New("no quantity control found")
	ErrMissingCapability = errors.New("stock strategy capability not configured")
)

// Mode selects how stock is probed. It is fixed for a run.
type Mode string

const (
	ModeHTTP   Mode = "http"
	ModeDialog Mode = "dialog"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHTTP, ModeDialog:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Strategy looks up the stock quantity of one product detail page.
// A nil quantity with a nil error means the page gave no answer.
type Strategy interface {
	Probe(ctx context.Context, url string) (*int, error)
}

// Capabilities are the browser-side collaborators a strategy may need.
type Capabilities struct {
	Fetcher DocumentFetcher
	Views   ViewOpener
}

type Options struct {
	Timeout           time.Duration
	TreatSilentAsZero bool
}

// NewStrategy builds the strategy for mode from the available capabilities.
func NewStrategy(mode Mode, caps Capabilities, opts Options, logger *slog.Logger) (Strategy, error) {
	switch mode {
	case ModeHTTP:
		if caps.Fetcher == nil {
			return nil, fmt.Errorf("%w: document fetcher", ErrMissingCapability)
		}
		return NewHTTPStrategy(caps.Fetcher, opts.Timeout, logger), nil
	case ModeDialog:
		if caps.Views == nil {
			return nil, fmt.Errorf("%w: view opener", ErrMissingCapability)
		}
		return NewDialogStrategy(caps.Views, opts, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
