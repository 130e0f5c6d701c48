package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

var (
	ErrNoSinks     = errors.New("no sinks configured")
	ErrUnknownSink = errors.New("unknown sink")
)

// Sink replaces the content at a destination with the given rows, header first.
type Sink interface {
	Write(ctx context.Context, rows []models.Listing, destinationID, tab string) error
}

// Named pairs a sink with the name used in configuration and logs.
type Named struct {
	Name string
	Sink Sink
}

// Multi writes to every sink in order and stops at the first failure.
type Multi struct {
	sinks  []Named
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Named) *Multi {
	return &Multi{
		sinks:  sinks,
		logger: logger.With("component", "sink"),
	}
}

func (m *Multi) Write(ctx context.Context, rows []models.Listing, destinationID, tab string) error {
	if len(m.sinks) == 0 {
		return ErrNoSinks
	}

	for _, s := range m.sinks {
		start := time.Now()
		if err := s.Sink.Write(ctx, rows, destinationID, tab); err != nil {
			return fmt.Errorf("%s sink: %w", s.Name, err)
		}
		m.logger.Info("rows written",
			"sink", s.Name,
			"rows", len(rows),
			"destination", destinationID,
			"tab", tab,
			"duration", time.Since(start))
	}
	return nil
}

// Names lists the configured sinks in write order.
func (m *Multi) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name
	}
	return names
}

// writeFileAtomic writes through a temp file in the target directory and renames it into place.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
