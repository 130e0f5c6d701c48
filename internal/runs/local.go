package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

const interruptedError = "interrupted: process exited before the run finished"

// LocalStore keeps runs in memory and, when a filename is given, mirrors them
// to a JSON file.
type LocalStore struct {
	mu       sync.RWMutex
	runs     map[string]*Run
	filename string
}

// NewLocalStore loads existing runs from filename. Runs still marked running
// were cut short by a previous process and are marked failed.
func NewLocalStore(filename string) (*LocalStore, error) {
	ls := &LocalStore{
		runs:     make(map[string]*Run),
		filename: filename,
	}

	if filename == "" {
		return ls, nil
	}

	if err := ls.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	interrupted := false
	for _, r := range ls.runs {
		if r.Status == StatusRunning {
			now := time.Now().UTC()
			r.Status = StatusFailed
			r.Error = interruptedError
			r.CompletedAt = &now
			interrupted = true
		}
	}
	if interrupted {
		if err := ls.save(); err != nil {
			return nil, err
		}
	}

	return ls, nil
}

func (ls *LocalStore) Create(_ context.Context, maxPages int) (*Run, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	for _, r := range ls.runs {
		if r.Status == StatusRunning {
			return nil, ErrRunInProgress
		}
	}

	run := newRun(maxPages)
	ls.runs[run.ID] = run
	if err := ls.save(); err != nil {
		delete(ls.runs, run.ID)
		return nil, err
	}

	cp := *run
	return &cp, nil
}

func (ls *LocalStore) Get(_ context.Context, id string) (*Run, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	run, ok := ls.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

func (ls *LocalStore) Finish(_ context.Context, id string, outcome Outcome) (*Run, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	run, ok := ls.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	run.apply(outcome)

	if err := ls.save(); err != nil {
		return nil, err
	}
	cp := *run
	return &cp, nil
}

// List returns runs newest first.
func (ls *LocalStore) List(_ context.Context) ([]*Run, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	out := make([]*Run, 0, len(ls.runs))
	for _, r := range ls.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (ls *LocalStore) save() error {
	if ls.filename == "" {
		return nil
	}

	data, err := json.MarshalIndent(ls.runs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode runs: %w", err)
	}

	tmpFile := ls.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}

	return os.Rename(tmpFile, ls.filename)
}

func (ls *LocalStore) load() error {
	data, err := os.ReadFile(ls.filename)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &ls.runs); err != nil {
		return fmt.Errorf("failed to decode runs: %w", err)
	}
	return nil
}
