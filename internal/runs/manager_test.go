package runs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StartRecordsOutcome(t *testing.T) {
	store, err := NewLocalStore("")
	require.NoError(t, err)

	var gotPages int
	mgr := NewManager(context.Background(), store, func(ctx context.Context, maxPages int) (Outcome, error) {
		gotPages = maxPages
		return Outcome{Rows: 4, Enriched: 3, PerCategory: map[string]int{"초콜릿류": 2, "과자류": 2}}, nil
	}, testLogger())

	run, err := mgr.Start(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)

	mgr.Wait()

	got, err := mgr.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, gotPages)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, 3, got.Enriched)
}

func TestManager_FailedRun(t *testing.T) {
	store, err := NewLocalStore("")
	require.NoError(t, err)

	mgr := NewManager(context.Background(), store, func(ctx context.Context, maxPages int) (Outcome, error) {
		return Outcome{Rows: 0}, errors.New("fetch failed: page 2")
	}, testLogger())

	run, err := mgr.Start(context.Background(), 0)
	require.NoError(t, err)
	mgr.Wait()

	got, err := mgr.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "fetch failed: page 2", got.Error)
}

func TestManager_RejectsConcurrentRun(t *testing.T) {
	store, err := NewLocalStore("")
	require.NoError(t, err)

	release := make(chan struct{})
	mgr := NewManager(context.Background(), store, func(ctx context.Context, maxPages int) (Outcome, error) {
		<-release
		return Outcome{}, nil
	}, testLogger())

	_, err = mgr.Start(context.Background(), 0)
	require.NoError(t, err)

	_, err = mgr.Start(context.Background(), 0)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	mgr.Wait()

	list, err := mgr.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusCompleted, list[0].Status)
}

func TestManager_CancelledBaseStillRecords(t *testing.T) {
	store, err := NewLocalStore("")
	require.NoError(t, err)

	base, cancel := context.WithCancel(context.Background())
	mgr := NewManager(base, store, func(ctx context.Context, maxPages int) (Outcome, error) {
		cancel()
		<-ctx.Done()
		return Outcome{}, ctx.Err()
	}, testLogger())

	run, err := mgr.Start(context.Background(), 0)
	require.NoError(t, err)
	mgr.Wait()

	got, err := store.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, context.Canceled.Error(), got.Error)
}
