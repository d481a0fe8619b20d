package lock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Locker grants exclusive critical sections over a set of keys. Lock returns
// a release func, or a ConcurrentModification error once the wait budget runs out.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (func(), error)
}

func MatchKey(id uuid.UUID) string {
	return "match:" + id.String()
}

// StageKey sorts after every MatchKey, so a stage is always locked last.
func StageKey(id uuid.UUID) string {
	return "stage:" + id.String()
}

// normalize dedupes and sorts keys into the global acquisition order.
func normalize(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

type slot struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is the in-process Locker. Each key is a one-token channel so a
// waiter can give up on its context or the wait budget.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot), wait: wait}
}

func (k *KeyedMutex) acquireSlot(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[key] = s
	}
	s.refs++
	return s
}

func (k *KeyedMutex) releaseSlot(key string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, key)
	}
}

func (k *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	timer := time.NewTimer(k.wait)
	defer timer.Stop()

	held := make([]string, 0, len(keys))
	slots := make([]*slot, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-slots[i].ch
			k.releaseSlot(held[i], slots[i])
		}
	}

	for _, key := range keys {
		s := k.acquireSlot(key)
		select {
		case s.ch <- struct{}{}:
			held = append(held, key)
			slots = append(slots, s)
		case <-timer.C:
			k.releaseSlot(key, s)
			release()
			log.Warn().Str("key", key).Dur("wait", k.wait).Msg("lock wait budget exceeded")
			return nil, bracket.Errorf(bracket.KindConcurrentModification, "%s is busy, try again", key)
		case <-ctx.Done():
			k.releaseSlot(key, s)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}
