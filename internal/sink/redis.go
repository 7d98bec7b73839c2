package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/redis"
)

// zaddChunk caps the members carried by one ZADD command.
const zaddChunk = 1000

// SortedSetStore is the subset of the redis client the sink needs.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, members []pkgredis.Member, chunk int) error
	Replace(ctx context.Context, from, to string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]pkgredis.Member, error)
}

// Redis publishes the ranked list as a sorted set scored by count, so
// ZREVRANGE key 0 N-1 returns the top N words. The set is built under a
// staging key and renamed over the live key once complete.
type Redis struct {
	store     SortedSetStore
	key       string
	batchSize int
	ttl       time.Duration
	logger    *slog.Logger
}

func NewRedis(store SortedSetStore, key string, batchSize int, ttl time.Duration) *Redis {
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Redis{
		store:     store,
		key:       key,
		batchSize: batchSize,
		ttl:       ttl,
		logger:    slog.Default().With("component", "redis-sink", "key", key),
	}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Write(ctx context.Context, runID string, entries []histogram.Entry) error {
	if len(entries) == 0 {
		return r.store.Del(ctx, r.key)
	}
	staging := r.stagingKey(runID)
	if err := r.store.Del(ctx, staging); err != nil {
		return fmt.Errorf("clearing %s: %w", staging, err)
	}

	batch := make([]pkgredis.Member, 0, min(r.batchSize, len(entries)))
	batches := 0
	for i, e := range entries {
		batch = append(batch, pkgredis.Member{Name: e.Word, Score: float64(e.Count)})
		if len(batch) == r.batchSize || i == len(entries)-1 {
			if err := r.store.ZAdd(ctx, staging, batch, zaddChunk); err != nil {
				return err
			}
			batches++
			batch = batch[:0]
		}
	}
	if err := r.store.Replace(ctx, staging, r.key, r.ttl); err != nil {
		return err
	}
	if err := r.verify(ctx, entries[0]); err != nil {
		return err
	}
	r.logger.Debug("sorted set replaced", "run_id", runID, "members", len(entries), "batches", batches)
	return nil
}

// verify reads back the highest ranked member of the live key. Equal scores
// are ordered differently by redis, so only the score is compared.
func (r *Redis) verify(ctx context.Context, top histogram.Entry) error {
	members, err := r.store.ZRevRange(ctx, r.key, 0, 0)
	if err != nil {
		return fmt.Errorf("reading back %s: %w", r.key, err)
	}
	if len(members) != 1 || members[0].Score != float64(top.Count) {
		return fmt.Errorf("%s top score is %v after swap, want %d", r.key, members, top.Count)
	}
	return nil
}

func (r *Redis) stagingKey(runID string) string {
	return r.key + ":staging:" + runID
}
