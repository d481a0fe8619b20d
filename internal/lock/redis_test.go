package lock

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedisLocker connects to REDIS_ADDR (localhost:6379 by default) and
// skips the test when no server answers.
func newTestRedisLocker(t *testing.T, ttl, wait time.Duration) *RedisLocker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	l, err := NewRedisLocker(config.RedisConfig{Address: addr, Prefix: "test-" + uuid.NewString()}, ttl, wait)
	if err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRedisLockerSerializes(t *testing.T) {
	l := newTestRedisLocker(t, time.Second, 2*time.Second)
	key := MatchKey(uuid.New())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)

	n, err := l.client.Exists(context.Background(), l.formatKey(key)).Result()
	require.NoError(t, err)
	assert.Zero(t, n, "released keys are deleted")
}

func TestRedisLockerWaitBudget(t *testing.T) {
	l := newTestRedisLocker(t, time.Second, 50*time.Millisecond)
	a, b := MatchKey(uuid.New()), StageKey(uuid.New())

	unlock, err := l.Lock(context.Background(), b)
	require.NoError(t, err)

	_, err = l.Lock(context.Background(), a, b)
	assert.ErrorIs(t, err, bracket.ErrConcurrentModification)

	// a was handed back when b could not be taken
	n, err := l.client.Exists(context.Background(), l.formatKey(a)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)

	unlock()
	unlock()
	unlockAB, err := l.Lock(context.Background(), a, b)
	require.NoError(t, err)
	unlockAB()
}

func TestRedisLockerReleaseOnlyOwnToken(t *testing.T) {
	l := newTestRedisLocker(t, time.Second, 50*time.Millisecond)
	ctx := context.Background()
	key := MatchKey(uuid.New())

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)

	// another instance took the key over after our lease ran out
	require.NoError(t, l.client.Set(ctx, l.formatKey(key), "someone-else", time.Second).Err())
	unlock()

	v, err := l.client.Get(ctx, l.formatKey(key)).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestRedisLockerKeepsSlowHolder(t *testing.T) {
	l := newTestRedisLocker(t, 90*time.Millisecond, 20*time.Millisecond)
	ctx := context.Background()
	key := MatchKey(uuid.New())

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	time.Sleep(300 * time.Millisecond)

	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, bracket.ErrConcurrentModification, "the lease outlived its ttl while held")

	unlock()
	again, err := l.Lock(ctx, key)
	require.NoError(t, err)
	again()
}

func TestNewRedisLockerRejectsShortTTL(t *testing.T) {
	_, err := NewRedisLocker(config.RedisConfig{Address: "localhost:0"}, time.Millisecond, time.Second)
	assert.Error(t, err)
}
