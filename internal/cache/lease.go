package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Only the holder's token may release or extend a lease.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// LeaseLocker provides mutual exclusion across processes with a Redis key
// per lock. A held lease is extended in the background until released, so
// the TTL only matters when the holder dies.
type LeaseLocker struct {
	cache  *Cache
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

func NewLeaseLocker(c *Cache, prefix string, ttl time.Duration) *LeaseLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LeaseLocker{cache: c, prefix: prefix, ttl: ttl, poll: 100 * time.Millisecond}
}

// Lock blocks until the lease on key is acquired or ctx is done.
func (l *LeaseLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()
	// SetNX stores the JSON encoding; the scripts compare against the same.
	encoded, _ := json.Marshal(token)

	for {
		ok, err := l.cache.SetNX(ctx, redisKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lease %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lease %s: %w", key, ctx.Err())
		case <-time.After(l.poll):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				err := extendScript.Run(context.Background(), l.cache.client, []string{redisKey}, string(encoded), l.ttl.Milliseconds()).Err()
				if err != nil {
					slog.Warn("extend lease failed", "key", key, "error", err)
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := releaseScript.Run(context.Background(), l.cache.client, []string{redisKey}, string(encoded)).Err(); err != nil {
				slog.Warn("release lease failed", "key", key, "error", err)
			}
		})
	}, nil
}
