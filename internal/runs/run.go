package runs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunInProgress = errors.New("a run is already in progress")
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one crawl execution as seen by the API.
type Run struct {
	ID          string         `json:"id"`
	Status      Status         `json:"status"`
	MaxPages    int            `json:"max_pages"`
	Rows        int            `json:"rows"`
	Enriched    int            `json:"enriched"`
	PerCategory map[string]int `json:"per_category,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Outcome is what a finished run reports back.
type Outcome struct {
	Rows        int
	Enriched    int
	PerCategory map[string]int
	Err         error
}

// Store keeps run records. Only one run may be running at a time.
type Store interface {
	Create(ctx context.Context, maxPages int) (*Run, error)
	Get(ctx context.Context, id string) (*Run, error)
	Finish(ctx context.Context, id string, outcome Outcome) (*Run, error)
	List(ctx context.Context) ([]*Run, error)
}

func newRun(maxPages int) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		MaxPages:  maxPages,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Run) apply(outcome Outcome) {
	now := time.Now().UTC()
	r.CompletedAt = &now
	r.Rows = outcome.Rows
	r.Enriched = outcome.Enriched
	r.PerCategory = outcome.PerCategory
	if outcome.Err != nil {
		r.Status = StatusFailed
		r.Error = outcome.Err.Error()
		return
	}
	r.Status = StatusCompleted
}
