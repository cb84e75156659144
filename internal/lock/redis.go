// Package lock provides a Redis-backed core.Locker so that only one replica
// executes a given import session at a time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/finimport/internal/core"
)

// DefaultTTL bounds how long a crashed holder can block a session. A live
// holder refreshes its lock every TTL/2, so long imports keep it.
const DefaultTTL = 10 * time.Minute

// RedisLocker obtains per-session locks with redislock.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
}

var _ core.Locker = (*RedisLocker)(nil)

// NewRedisLocker wraps an existing redis client.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl}
}

// Connect parses a redis:// URL, pings the server and returns the client
// together with a locker. The caller owns the client and must close it.
func Connect(ctx context.Context, url string, ttl time.Duration) (*redis.Client, *RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, NewRedisLocker(rdb, ttl), nil
}

// Obtain acquires key without retrying. A held lock is reported as
// core.ErrImportLocked.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, core.ErrImportLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := keepAlive(lk, l.ttl, l.ttl/2, func(err error) {
		slog.Warn("import lock lost", "key", key, "error", err)
	})

	return func(ctx context.Context) error {
		stop()
		err := lk.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// Expired while executing; nothing left to release.
			return nil
		}
		return err
	}, nil
}

type refresher interface {
	Refresh(ctx context.Context, ttl time.Duration, opt *redislock.Options) error
}

// keepAlive refreshes lk every interval until the returned stop func is
// called. It gives up after the first failed refresh and reports it to lost.
// stop waits for the refresher to exit and may be called more than once.
func keepAlive(lk refresher, ttl, interval time.Duration, lost func(error)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lk.Refresh(ctx, ttl, nil); err != nil {
					if ctx.Err() == nil {
						lost(err)
					}
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
