package sink

import (
	"context"

	"github.com/maltedev/snack-catalog-crawler/internal/models"
)

// SnapshotWriter stores the latest row set per destination and tab.
type SnapshotWriter interface {
	ReplaceSnapshot(ctx context.Context, destinationID, tab string, rows []models.Listing) error
}

// PostgresSink keeps the run output queryable next to the spreadsheet.
type PostgresSink struct {
	repo SnapshotWriter
}

func NewPostgresSink(repo SnapshotWriter) *PostgresSink {
	return &PostgresSink{repo: repo}
}

func (s *PostgresSink) Write(ctx context.Context, rows []models.Listing, destinationID, tab string) error {
	return s.repo.ReplaceSnapshot(ctx, destinationID, tab, rows)
}
