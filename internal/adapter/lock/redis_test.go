package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	lockDomain "faucet-backend/internal/domain/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedis_AcquireRelease(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Minute, WithPollInterval(5*time.Millisecond))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "borrow:1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !mr.Exists("faucet:lock:borrow:1") {
		t.Fatalf("lock key not set")
	}
	if ttl := mr.TTL("faucet:lock:borrow:1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	release()
	if mr.Exists("faucet:lock:borrow:1") {
		t.Fatalf("lock key not removed on release")
	}
}

func TestRedis_SecondAcquireWaitsForContext(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Minute, WithPollInterval(5*time.Millisecond))

	release, err := l.Acquire(context.Background(), "borrow:2")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "borrow:2"); !errors.Is(err, lockDomain.ErrNotAcquired) {
		t.Fatalf("want ErrNotAcquired, got %v", err)
	}
}

func TestRedis_WaiterAcquiresAfterRelease(t *testing.T) {
	_, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Minute, WithPollInterval(5*time.Millisecond))

	release, err := l.Acquire(context.Background(), "whitelist:4")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Acquire(ctx, "whitelist:4")
	if err != nil {
		t.Fatalf("waiter Acquire: %v", err)
	}
	r2()
}

func TestRedis_ReleaseKeepsForeignToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Second, WithPollInterval(5*time.Millisecond))
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "lend:5")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// lease expires, another holder takes over
	mr.FastForward(2 * time.Second)
	fresh, err := l.Acquire(ctx, "lend:5")
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}

	stale()
	if !mr.Exists("faucet:lock:lend:5") {
		t.Fatalf("stale release deleted the new holder's lock")
	}
	fresh()
	if mr.Exists("faucet:lock:lend:5") {
		t.Fatalf("fresh release did not delete its lock")
	}
}

func TestRedis_LeaseRenewedWhileHeld(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Second, WithPollInterval(5*time.Millisecond), WithRenewInterval(10*time.Millisecond))
	const key = "faucet:lock:borrow:renew"

	release, err := l.Acquire(context.Background(), "borrow:renew")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// hold the lock for longer than one ttl
	for i := 0; i < 3; i++ {
		mr.FastForward(900 * time.Millisecond)
		time.Sleep(60 * time.Millisecond)
		if !mr.Exists(key) {
			t.Fatalf("lease expired while held (round %d)", i)
		}
	}

	release()
	if mr.Exists(key) {
		t.Fatalf("lock key not removed on release")
	}
}

func TestRedis_RenewStopsAfterLeaseLost(t *testing.T) {
	mr, rdb := newTestRedis(t)
	l := NewRedis(rdb, time.Second, WithPollInterval(5*time.Millisecond), WithRenewInterval(10*time.Millisecond))
	const key = "faucet:lock:borrow:lost"

	release, err := l.Acquire(context.Background(), "borrow:lost")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	// another holder took over after an expiry
	if err := mr.Set(key, "someone-else"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if ttl := mr.TTL(key); ttl != 0 {
		t.Fatalf("foreign key must not get our expiry, ttl=%v", ttl)
	}

	release()
	if got, _ := mr.Get(key); got != "someone-else" {
		t.Fatalf("release deleted a foreign lease: %q", got)
	}
}
