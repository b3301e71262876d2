package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lockDomain "faucet-backend/internal/domain/lock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ lockDomain.Locker = (*Redis)(nil)

const (
	defaultPollInterval = 50 * time.Millisecond
	releaseTimeout      = 2 * time.Second
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out only while the key still carries our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease lock shared by every replica pointing at the same redis.
// The lease is renewed every ttl/3 while held, so a holder stuck on a slow
// ledger keeps it; a crashed holder loses it after one ttl.
type Redis struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
	renew  time.Duration
	log    *slog.Logger
}

type RedisOption func(*Redis)

func WithPollInterval(d time.Duration) RedisOption { return func(r *Redis) { r.poll = d } }
func WithPrefix(p string) RedisOption              { return func(r *Redis) { r.prefix = p } }
func WithLogger(l *slog.Logger) RedisOption        { return func(r *Redis) { r.log = l } }
func WithRenewInterval(d time.Duration) RedisOption { return func(r *Redis) { r.renew = d } }

func NewRedis(rdb *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{rdb: rdb, prefix: "faucet:lock:", ttl: ttl, poll: defaultPollInterval, log: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	if r.renew <= 0 {
		r.renew = r.ttl / 3
	}
	if r.renew <= 0 {
		r.renew = time.Second
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", lockDomain.ErrNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", lockDomain.ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(full, key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// the caller's ctx may already be gone
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(rctx, r.rdb, []string{full}, token).Err(); err != nil {
				r.log.Warn("lock release failed", "key", key, "err", err)
			}
		})
	}, nil
}

func (r *Redis) keepAlive(full, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.renew)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		n, err := renewScript.Run(rctx, r.rdb, []string{full}, token, r.ttl.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			r.log.Warn("lock renew failed", "key", key, "err", err)
		case n == 0:
			r.log.Error("lock lease lost", "key", key)
			return
		}
	}
}
