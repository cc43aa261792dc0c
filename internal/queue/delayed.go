// Package queue implements a Redis-backed delayed task queue. Tasks
// are JSON payloads in a sorted set scored by their due unix time.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKey is the sorted set holding pending evaluation tasks.
const DefaultKey = "futurecoin:eval:delayed"

// Delayed is a delayed-delivery queue over a Redis ZSET. Claiming
// removes the member before returning it, so each task is delivered
// at most once even with multiple workers.
type Delayed struct {
	client *redis.Client
	key    string
	log    zerolog.Logger
}

// New connects to Redis using a redis:// URL and verifies the
// connection.
func New(ctx context.Context, redisURL, key string, log zerolog.Logger) (*Delayed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if key == "" {
		key = DefaultKey
	}
	return &Delayed{
		client: client,
		key:    key,
		log:    log.With().Str("component", "queue").Logger(),
	}, nil
}

// NewWithClient wraps an existing client, for tests.
func NewWithClient(client *redis.Client, key string, log zerolog.Logger) *Delayed {
	if key == "" {
		key = DefaultKey
	}
	return &Delayed{
		client: client,
		key:    key,
		log:    log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue stores the payload for delivery at the due time.
func (d *Delayed) Enqueue(ctx context.Context, payload any, due time.Time) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	err = d.client.ZAdd(ctx, d.key, redis.Z{
		Score:  float64(due.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	d.log.Debug().Time("due", due).Msg("Task enqueued")
	return nil
}

// ClaimDue removes and returns every task due at or before now. A
// member is returned only if this caller's ZRem removed it, so
// concurrent workers never claim the same task twice.
func (d *Delayed) ClaimDue(ctx context.Context, now time.Time) ([][]byte, error) {
	members, err := d.client.ZRangeByScore(ctx, d.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read due tasks: %w", err)
	}

	var claimed [][]byte
	for _, member := range members {
		removed, err := d.client.ZRem(ctx, d.key, member).Result()
		if err != nil {
			return claimed, fmt.Errorf("failed to claim task: %w", err)
		}
		if removed == 1 {
			claimed = append(claimed, []byte(member))
		}
	}
	return claimed, nil
}

// Pending returns the number of tasks waiting in the queue.
func (d *Delayed) Pending(ctx context.Context) (int64, error) {
	n, err := d.client.ZCard(ctx, d.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	return n, nil
}

// Close releases the Redis connection.
func (d *Delayed) Close() error {
	return d.client.Close()
}
