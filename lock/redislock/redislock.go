// Package redislock implements lock.Locker on Redis so several engine
// processes sharing one store serialize on the same keys.
//
// Each key is taken with SET NX PX and a random token; release deletes the
// key only while it still holds that token. Leases expire after the
// configured TTL, which must exceed the longest engine operation.
package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/settlement/lock"
)

// Compile-time interface check.
var _ lock.Locker = (*Locker)(nil)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker takes keys in Redis.
type Locker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *slog.Logger
}

// Option configures a Locker.
type Option func(*Locker)

// WithPrefix namespaces every key. Defaults to "settlement:lock:".
func WithPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

// WithTTL sets the lease duration. Defaults to 30s.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) { l.ttl = ttl }
}

// WithRetryInterval sets how long to wait between attempts on a held key.
// Defaults to 25ms.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) { l.retry = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) { l.logger = logger }
}

// New returns a Locker backed by rdb.
func New(rdb redis.UniversalClient, opts ...Option) *Locker {
	l := &Locker{
		rdb:    rdb,
		prefix: "settlement:lock:",
		ttl:    30 * time.Second,
		retry:  25 * time.Millisecond,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locker) Lock(ctx context.Context, keys ...string) (lock.Unlock, error) {
	token := uuid.NewString()
	keys = lock.Normalize(keys)
	held := make([]string, 0, len(keys))

	for _, k := range keys {
		if err := l.acquire(ctx, l.prefix+k, token); err != nil {
			l.release(held, token)
			return nil, err
		}
		held = append(held, l.prefix+k)
	}

	return func() { l.release(held, token) }, nil
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("redislock: acquire %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(keys []string, token string) {
	// Release on a fresh context so a canceled operation still frees its keys.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := len(keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.rdb, []string{keys[i]}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("redislock: release failed", "key", keys[i], "error", err)
		}
	}
}
