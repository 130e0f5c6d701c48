package runs

import (
	"context"
	"log/slog"
	"sync"
)

// RunFunc executes one crawl. maxPages of 0 means no page limit.
type RunFunc func(ctx context.Context, maxPages int) (Outcome, error)

// Manager starts crawls in the background and records their outcome.
type Manager struct {
	store  Store
	run    RunFunc
	base   context.Context
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewManager ties background runs to base: cancelling it aborts every
// in-flight crawl.
func NewManager(base context.Context, store Store, run RunFunc, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		run:    run,
		base:   base,
		logger: logger.With("component", "run_manager"),
	}
}

// Start records a new run and returns it while the crawl continues in the
// background. It fails with ErrRunInProgress when another run is active.
func (m *Manager) Start(ctx context.Context, maxPages int) (*Run, error) {
	run, err := m.store.Create(ctx, maxPages)
	if err != nil {
		return nil, err
	}

	m.logger.Info("run started", "run_id", run.ID, "max_pages", maxPages)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.execute(run.ID, maxPages)
	}()

	return run, nil
}

func (m *Manager) execute(id string, maxPages int) {
	outcome, err := m.run(m.base, maxPages)
	if err != nil {
		outcome.Err = err
	}

	// The base context may already be cancelled; the record still needs writing.
	finished, ferr := m.store.Finish(context.WithoutCancel(m.base), id, outcome)
	if ferr != nil {
		m.logger.Error("failed to record run outcome", "run_id", id, "error", ferr)
		return
	}

	if finished.Status == StatusFailed {
		m.logger.Error("run failed", "run_id", id, "error", finished.Error)
		return
	}
	m.logger.Info("run completed", "run_id", id, "rows", finished.Rows, "enriched", finished.Enriched)
}

func (m *Manager) Get(ctx context.Context, id string) (*Run, error) {
	return m.store.Get(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]*Run, error) {
	return m.store.List(ctx)
}

// Wait blocks until every started run has been recorded.
func (m *Manager) Wait() {
	m.wg.Wait()
}
