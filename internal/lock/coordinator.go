package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// prefix namespaces lock keys so they never collide with other Redis
// usage (rate limiter buckets share the same server).
const prefix = "lock:seat:"

// Coordinator hands out short-lived advisory locks backed by Redis
// SET NX PX.  Locks serialize writers around a seat but carry no
// correctness burden: the store transaction is the source of truth,
// so a lock lost to TTL expiry degrades throughput, never safety.
type Coordinator struct {
	client *redis.Client
	ttl    time.Duration
	tries  int
	wait   time.Duration
}

// NewCoordinator configures a Coordinator.  ttl bounds how long an
// orphaned lock can linger after a crash, tries and wait bound the
// acquisition loop so Acquire never blocks indefinitely.
func NewCoordinator(client *redis.Client, ttl time.Duration, tries int, wait time.Duration) *Coordinator {
	if tries < 1 {
		tries = 1
	}
	return &Coordinator{client: client, ttl: ttl, tries: tries, wait: wait}
}

// Key builds the canonical lock key for a seat of a session.
func Key(sessionID, seatID uint64) string {
	return fmt.Sprintf("%d:%d", sessionID, seatID)
}

// Acquire attempts to take the lock for key, retrying up to the
// configured number of attempts with a fixed pause in between.  It
// returns (false, nil) when the key stayed held for every attempt,
// and the context error if ctx ends while waiting between attempts.
func (c *Coordinator) Acquire(ctx context.Context, key string) (bool, error) {
	lockKey := prefix + key
	token := uuid.New().String()
	for i := 0; i < c.tries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(c.wait):
			}
		}
		ok, err := c.client.SetNX(ctx, lockKey, token, c.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("lock acquire %s: %w", lockKey, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Release drops the lock with a plain DEL, regardless of holder.  The
// sweeper must be able to clear locks left behind by crashed holders
// it never owned, and because the lock is advisory an over-eager DEL
// cannot corrupt state.  Releasing an already-gone key is a no-op.
func (c *Coordinator) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, prefix+key).Err(); err != nil {
		return fmt.Errorf("lock release %s%s: %w", prefix, key, err)
	}
	return nil
}

// Exists reports whether the lock key is currently held.
func (c *Coordinator) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("lock exists %s%s: %w", prefix, key, err)
	}
	return n > 0, nil
}
