package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "catalog"
	DefaultStream    = "stream:catalog_runs"

	// activeTTL releases the in-progress lock if a process dies mid-run.
	activeTTL = 6 * time.Hour
	listLimit = 100
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStore shares run state between API replicas and publishes a stream
// event when a run finishes.
type RedisStore struct {
	client RedisClient
	prefix string
	stream string
	logger *slog.Logger
}

type RedisStoreConfig struct {
	KeyPrefix string
	Stream    string
}

func NewRedisStore(client RedisClient, cfg RedisStoreConfig, logger *slog.Logger) *RedisStore {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		stream: cfg.Stream,
		logger: logger.With("component", "run_store"),
	}
}

func (s *RedisStore) runKey(id string) string { return s.prefix + ":run:" + id }
func (s *RedisStore) indexKey() string { return s.prefix + ":runs" }
func (s *RedisStore) activeKey() string { return s.prefix + ":run:active" }

func (s *RedisStore) Create(ctx context.Context, maxPages int) (*Run, error) {
	run := newRun(maxPages)

	ok, err := s.client.SetNX(ctx, s.activeKey(), run.ID, activeTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	if err := s.put(ctx, run); err != nil {
		s.client.Del(ctx, s.activeKey())
		return nil, err
	}

	score := float64(run.CreatedAt.UnixNano())
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: run.ID}).Err(); err != nil {
		return nil, fmt.Errorf("failed to index run: %w", err)
	}

	return run, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Run, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

func (s *RedisStore) Finish(ctx context.Context, id string, outcome Outcome) (*Run, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	run.apply(outcome)

	if err := s.put(ctx, run); err != nil {
		return nil, err
	}

	active, err := s.client.Get(ctx, s.activeKey()).Result()
	if err == nil && active == id {
		if err := s.client.Del(ctx, s.activeKey()).Err(); err != nil {
			s.logger.Error("failed to release run lock", "run_id", id, "error", err)
		}
	}

	if err := s.publish(ctx, run); err != nil {
		s.logger.Error("failed to publish run event", "run_id", id, "error", err)
	}

	return run, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Run, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, listLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]*Run, 0, len(ids))
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if errors.Is(err, ErrRunNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *RedisStore) put(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	if err := s.client.Set(ctx, s.runKey(run.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

func (s *RedisStore) publish(ctx context.Context, run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      "CATALOG_RUN_" + strings.ToUpper(string(run.Status)),
			"run_id":    run.ID,
			"status":    string(run.Status),
			"rows":      strconv.Itoa(run.Rows),
			"timestamp": strconv.FormatInt(time.Now().UnixNano(), 10),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}
