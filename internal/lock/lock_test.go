package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageKeySortsLast(t *testing.T) {
	stage := StageKey(uuid.New())
	keys := normalize([]string{stage, MatchKey(uuid.New()), MatchKey(uuid.New()), stage})
	require.Len(t, keys, 3)
	assert.Equal(t, stage, keys[2])
}

func TestKeyedMutexSerializes(t *testing.T) {
	km := NewKeyedMutex(time.Second)
	key := MatchKey(uuid.New())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, km.slots, "idle keys are dropped")
}

func TestKeyedMutexWaitBudget(t *testing.T) {
	km := NewKeyedMutex(20 * time.Millisecond)
	a, b := MatchKey(uuid.New()), MatchKey(uuid.New())

	unlock, err := km.Lock(context.Background(), b)
	require.NoError(t, err)

	_, err = km.Lock(context.Background(), a, b)
	assert.ErrorIs(t, err, bracket.ErrConcurrentModification)

	// a was released when b timed out
	unlockA, err := km.Lock(context.Background(), a)
	require.NoError(t, err)
	unlockA()

	unlock()
	unlock()
	unlockAB, err := km.Lock(context.Background(), a, b)
	require.NoError(t, err)
	unlockAB()
}

func TestKeyedMutexContextCancel(t *testing.T) {
	km := NewKeyedMutex(time.Minute)
	key := StageKey(uuid.New())
	unlock, err := km.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = km.Lock(ctx, key)
	assert.ErrorIs(t, err, context.Canceled)
}
