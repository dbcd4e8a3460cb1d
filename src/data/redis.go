package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opspulse/background-agents/src/types"
)

const (
	healthKey    = "bgagents:health"
	healthTTL    = 90 * time.Second
	streamEvents = "bgagents.events"
)

// OpenRedis parses and pings the cache. Callers treat a nil client as
// "no cache configured" and keep going.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// CacheHealthSnapshot stores the latest aggregated health with a short TTL
// so dashboards can poll without hitting the database.
func CacheHealthSnapshot(ctx context.Context, rdb *redis.Client, h types.Health) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, healthKey, raw, healthTTL).Err()
}

// PublishEvent mirrors a system event onto the event stream.
func PublishEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: payload,
	}).Result()
	return err
}
