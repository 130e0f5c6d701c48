package runs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis is an in-memory RedisClient covering the commands RedisStore uses.
type fakeRedis struct {
	mu      sync.Mutex
	values  map[string]string
	zsets   map[string][]redis.Z
	streams []*redis.XAddArgs
	xaddErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		zsets:  make(map[string][]redis.Z),
	}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = stringify(value)
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewBoolCmd(ctx)
	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.values[key] = stringify(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zsets[key] = append(f.zsets[key], members...)
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (f *fakeRedis) ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := append([]redis.Z(nil), f.zsets[key]...)
	sort.Slice(set, func(i, j int) bool { return set[i].Score > set[j].Score })

	var out []string
	for i := start; i <= stop && int(i) < len(set); i++ {
		out = append(out, set[i].Member.(string))
	}
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(out)
	return cmd
}

func (f *fakeRedis) XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx)
	if f.xaddErr != nil {
		cmd.SetErr(f.xaddErr)
		return cmd
	}
	f.streams = append(f.streams, a)
	cmd.SetVal("1234567890-0")
	return cmd
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisStore(client, RedisStoreConfig{}, testLogger())

	run, err := store.Create(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, run.Status)
	assert.Equal(t, run.ID, client.values["catalog:run:active"])

	_, err = store.Create(ctx, 3)
	assert.ErrorIs(t, err, ErrRunInProgress)

	finished, err := store.Finish(ctx, run.ID, Outcome{Rows: 12, Enriched: 9, PerCategory: map[string]int{"초콜릿류": 12}})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, finished.Status)
	assert.Equal(t, 12, finished.Rows)
	assert.NotNil(t, finished.CompletedAt)
	assert.NotContains(t, client.values, "catalog:run:active")

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Enriched)
	assert.Equal(t, map[string]int{"초콜릿류": 12}, got.PerCategory)

	require.Len(t, client.streams, 1)
	event := client.streams[0]
	assert.Equal(t, DefaultStream, event.Stream)
	values := event.Values.(map[string]interface{})
	assert.Equal(t, "CATALOG_RUN_COMPLETED", values["type"])
	assert.Equal(t, run.ID, values["run_id"])
	assert.Equal(t, "12", values["rows"])

	// lock released, so a new run may start
	_, err = store.Create(ctx, 0)
	require.NoError(t, err)
}

func TestRedisStore_FinishFailedRun(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	store := NewRedisStore(client, RedisStoreConfig{KeyPrefix: "test", Stream: "stream:test"}, testLogger())

	run, err := store.Create(ctx, 0)
	require.NoError(t, err)

	finished, err := store.Finish(ctx, run.ID, Outcome{Err: errors.New("login failed")})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, finished.Status)
	assert.Equal(t, "login failed", finished.Error)

	require.Len(t, client.streams, 1)
	assert.Equal(t, "stream:test", client.streams[0].Stream)
	assert.Equal(t, "CATALOG_RUN_FAILED", client.streams[0].Values.(map[string]interface{})["type"])
}

func TestRedisStore_PublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	client.xaddErr = errors.New("connection refused")
	store := NewRedisStore(client, RedisStoreConfig{}, testLogger())

	run, err := store.Create(ctx, 0)
	require.NoError(t, err)

	finished, err := store.Finish(ctx, run.ID, Outcome{Rows: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, finished.Status)
}

func TestRedisStore_GetUnknown(t *testing.T) {
	store := NewRedisStore(newFakeRedis(), RedisStoreConfig{}, testLogger())

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = store.Finish(context.Background(), "missing", Outcome{})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRedisStore_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(newFakeRedis(), RedisStoreConfig{}, testLogger())

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.Create(ctx, i)
		require.NoError(t, err)
		_, err = store.Finish(ctx, run.ID, Outcome{})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		time.Sleep(time.Millisecond)
	}

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[0], list[2].ID)
}
