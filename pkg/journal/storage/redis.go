package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mercator-hq/iptvrelay/pkg/journal"
)

// RedisConfig contains configuration for the Redis storage backend.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Key prefixes the record list ("<key>:records") and the counters hash
	// ("<key>:counters").
	Key string

	// MaxEntries caps the record list. Older records are trimmed on write.
	MaxEntries int64
}

// RedisStorage implements journal.Storage as a capped Redis list of JSON
// records, newest first, plus a hash of aggregate counters that survives
// trimming.
type RedisStorage struct {
	client      *redis.Client
	recordsKey  string
	countersKey string
	maxEntries  int64
	logger      *slog.Logger
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(ctx context.Context, cfg *RedisConfig) (*RedisStorage, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, journal.NewStorageError("redis", "open", errors.New("redis address is required"))
	}
	key := cfg.Key
	if key == "" {
		key = "iptvrelay:sessions"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, journal.NewStorageError("redis", "ping", err)
	}

	s := NewRedisStorageFromClient(client, key, cfg.MaxEntries)
	s.logger.Info("Redis journal initialized", "addr", cfg.Addr, "key", key, "max_entries", cfg.MaxEntries)
	return s, nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, key string, maxEntries int64) *RedisStorage {
	return &RedisStorage{
		client:      client,
		recordsKey:  key + ":records",
		countersKey: key + ":counters",
		maxEntries:  maxEntries,
		logger:      slog.Default().With("component", "journal.storage.redis"),
	}
}

// Store pushes the record and updates the counters in one transaction.
func (s *RedisStorage) Store(ctx context.Context, r *journal.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return journal.NewStorageError("redis", "marshal", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.recordsKey, data)
		if s.maxEntries > 0 {
			pipe.LTrim(ctx, s.recordsKey, 0, s.maxEntries-1)
		}
		pipe.HIncrBy(ctx, s.countersKey, "sessions", 1)
		pipe.HIncrBy(ctx, s.countersKey, "bytes", r.Bytes)
		pipe.HIncrBy(ctx, s.countersKey, "outcome:"+r.Outcome, 1)
		return nil
	})
	if err != nil {
		return journal.NewStorageError("redis", "store", err)
	}
	return nil
}

// Query filters the record list client side.
func (s *RedisStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.Record, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var results []*journal.Record
	for _, r := range all {
		if journal.Matches(r, q) {
			results = append(results, r)
		}
	}
	return journal.SortAndPage(results, q), nil
}

// Count returns the number of matching records in the list.
func (s *RedisStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	if q == nil || (q.Identity == "" && q.Outcome == "" && q.Since == nil && q.Until == nil) {
		n, err := s.client.LLen(ctx, s.recordsKey).Result()
		if err != nil {
			return 0, journal.NewStorageError("redis", "count", err)
		}
		return n, nil
	}
	all, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range all {
		if journal.Matches(r, q) {
			n++
		}
	}
	return n, nil
}

// Delete rewrites the list without records that started before the given
// time. The rewrite is a single MULTI/EXEC and is guarded by WATCH so a
// concurrent Store aborts and retries it.
func (s *RedisStorage) Delete(ctx context.Context, before time.Time) (int64, error) {
	const maxRetries = 3
	for attempt := 0; attempt < maxRetries; attempt++ {
		var deleted int64
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.LRange(ctx, s.recordsKey, 0, -1).Result()
			if err != nil {
				return err
			}
			kept := make([]any, 0, len(raw))
			deleted = 0
			for _, item := range raw {
				var r journal.Record
				if err := json.Unmarshal([]byte(item), &r); err == nil && r.StartTime.Before(before) {
					deleted++
					continue
				}
				kept = append(kept, item)
			}
			if deleted == 0 {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, s.recordsKey)
				if len(kept) > 0 {
					pipe.RPush(ctx, s.recordsKey, kept...)
				}
				return nil
			})
			return err
		}, s.recordsKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, journal.NewStorageError("redis", "delete", err)
		}
		return deleted, nil
	}
	return 0, journal.NewStorageError("redis", "delete", fmt.Errorf("list changed during %d attempts", maxRetries))
}

// Prune trims the list to the newest keep records.
func (s *RedisStorage) Prune(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		return 0, nil
	}
	var before *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		before = pipe.LLen(ctx, s.recordsKey)
		if keep == 0 {
			pipe.Del(ctx, s.recordsKey)
		} else {
			pipe.LTrim(ctx, s.recordsKey, 0, keep-1)
		}
		return nil
	})
	if err != nil {
		return 0, journal.NewStorageError("redis", "prune", err)
	}
	if n := before.Val() - keep; n > 0 {
		return n, nil
	}
	return 0, nil
}

// Counters returns the aggregate counters hash.
func (s *RedisStorage) Counters(ctx context.Context) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, s.countersKey).Result()
	if err != nil {
		return nil, journal.NewStorageError("redis", "counters", err)
	}
	return m, nil
}

// Ping checks the Redis connection.
func (s *RedisStorage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return journal.NewStorageError("redis", "ping", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStorage) Close() error {
	if err := s.client.Close(); err != nil {
		return journal.NewStorageError("redis", "close", err)
	}
	return nil
}

func (s *RedisStorage) load(ctx context.Context) ([]*journal.Record, error) {
	raw, err := s.client.LRange(ctx, s.recordsKey, 0, -1).Result()
	if err != nil {
		return nil, journal.NewStorageError("redis", "query", err)
	}
	records := make([]*journal.Record, 0, len(raw))
	for _, item := range raw {
		var r journal.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			s.logger.Warn("skipping undecodable journal entry", "error", err)
			continue
		}
		records = append(records, &r)
	}
	return records, nil
}
