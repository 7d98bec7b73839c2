// Package redis provides a thin wrapper around go-redis/v9 with connection
// pooling and the sorted-set operations used to publish a ranked list.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
)

// Member is one scored sorted-set element.
type Member struct {
	Name  string
	Score float64
}

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// ZAdd adds members to the sorted set at key in one pipelined round trip,
// split into commands of at most chunk members.
func (c *Client) ZAdd(ctx context.Context, key string, members []Member, chunk int) error {
	if len(members) == 0 {
		return nil
	}
	if chunk <= 0 {
		chunk = len(members)
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for start := 0; start < len(members); start += chunk {
			end := min(start+chunk, len(members))
			zs := make([]redis.Z, 0, end-start)
			for _, m := range members[start:end] {
				zs = append(zs, redis.Z{Score: m.Score, Member: m.Name})
			}
			p.ZAdd(ctx, key, zs...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("zadd %d members to %s: %w", len(members), key, err)
	}
	return nil
}

// Replace atomically renames from onto to and sets its TTL (0 keeps it
// persistent).
func (c *Client) Replace(ctx context.Context, from, to string, ttl time.Duration) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Rename(ctx, from, to)
		if ttl > 0 {
			p.Expire(ctx, to, ttl)
		} else {
			p.Persist(ctx, to)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replacing %s with %s: %w", to, from, err)
	}
	return nil
}

// ZRevRange returns the members of key ranked by descending score.
func (c *Client) ZRevRange(ctx context.Context, key string, start, stop int64) ([]Member, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", key, err)
	}
	members := make([]Member, 0, len(zs))
	for _, z := range zs {
		name, _ := z.Member.(string)
		members = append(members, Member{Name: name, Score: z.Score})
	}
	return members, nil
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping sends a PING to Redis and returns any error.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
