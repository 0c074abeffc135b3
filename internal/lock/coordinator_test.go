package lock

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient connects to a local Redis or skips the test.  These are
// integration tests; the lock semantics depend on real SET NX PX
// behavior and are not worth faking.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// testKey returns a key unique to this test run so parallel or
// repeated runs never contend with leftovers.
func testKey() string {
	return fmt.Sprintf("test:%s", uuid.New().String())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2:34", Key(2, 34))
}

func TestAcquireReleaseCycle(t *testing.T) {
	client := testClient(t)
	coord := NewCoordinator(client, 5*time.Second, 1, 0)
	ctx := context.Background()
	key := testKey()

	ok, err := coord.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	held, err := coord.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	// A contender with no retry budget loses immediately.
	ok, err = coord.Acquire(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, coord.Release(ctx, key))

	held, err = coord.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, held)

	ok, err = coord.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, coord.Release(ctx, key))
}

func TestAcquireRetriesUntilFree(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := testKey()

	// Holder's lock evaporates via TTL while the contender retries.
	holder := NewCoordinator(client, 150*time.Millisecond, 1, 0)
	ok, err := holder.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	contender := NewCoordinator(client, 5*time.Second, 10, 50*time.Millisecond)
	ok, err = contender.Acquire(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, contender.Release(ctx, key))
}

func TestReleaseMissingKey(t *testing.T) {
	client := testClient(t)
	coord := NewCoordinator(client, 5*time.Second, 1, 0)

	assert.NoError(t, coord.Release(context.Background(), testKey()))
}

func TestAcquireContextCancelled(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()
	key := testKey()

	holder := NewCoordinator(client, 5*time.Second, 1, 0)
	ok, err := holder.Acquire(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Release(ctx, key)

	contender := NewCoordinator(client, 5*time.Second, 3, time.Second)
	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	ok, err = contender.Acquire(cancelCtx, key)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockIsExclusive(t *testing.T) {
	client := testClient(t)
	coord := NewCoordinator(client, 5*time.Second, 1, 0)
	ctx := context.Background()
	key := testKey()

	const contenders = 10
	results := make(chan bool, contenders)
	for i := 0; i < contenders; i++ {
		go func() {
			ok, err := coord.Acquire(ctx, key)
			results <- err == nil && ok
		}()
	}

	winners := 0
	for i := 0; i < contenders; i++ {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	require.NoError(t, coord.Release(ctx, key))
}
