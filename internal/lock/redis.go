package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Only the holder's token may delete the key; an expired lock taken over by
// another instance is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry of a key out only while the token still owns it.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

const retryInterval = 25 * time.Millisecond

// RedisLocker serializes match mutations across several engine instances.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(cfg config.RedisConfig, ttl, wait time.Duration) (*RedisLocker, error) {
	if ttl < 30*time.Millisecond {
		return nil, fmt.Errorf("lock ttl %s is too short", ttl)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to connect to Redis")
		return nil, err
	}

	log.Info().
		Str("address", cfg.Address).
		Str("prefix", cfg.Prefix).
		Int("db", cfg.DB).
		Msg("Redis locker initialized")

	return &RedisLocker{client: client, prefix: cfg.Prefix, ttl: ttl, wait: wait}, nil
}

func (l *RedisLocker) formatKey(key string) string {
	return l.prefix + ":lock:" + key
}

// Lock takes every key in the global order. While the keys are held their TTL
// is refreshed, so a slow command keeps the lock until release is called.
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	var held []string
	unlock := func() {
		// the caller's context may already be cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			n, err := unlockScript.Run(rctx, l.client, []string{held[i]}, token).Int()
			if err != nil {
				log.Error().Err(err).Str("key", held[i]).Msg("Error releasing Redis lock")
				continue
			}
			if n == 0 {
				log.Warn().Str("key", held[i]).Dur("ttl", l.ttl).Msg("Redis lock expired before release")
			}
		}
	}

	for _, key := range keys {
		k := l.formatKey(key)
		for {
			ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
			if err != nil {
				unlock()
				return nil, fmt.Errorf("acquire %s: %w", key, err)
			}
			if ok {
				held = append(held, k)
				break
			}
			if time.Now().After(deadline) {
				unlock()
				log.Warn().Str("key", key).Dur("wait", l.wait).Msg("lock wait budget exceeded")
				return nil, bracket.Errorf(bracket.KindConcurrentModification, "%s is busy, try again", key)
			}
			select {
			case <-time.After(retryInterval):
			case <-ctx.Done():
				unlock()
				return nil, ctx.Err()
			}
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(held, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			unlock()
		})
	}, nil
}

func (l *RedisLocker) keepAlive(keys []string, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			for _, k := range keys {
				n, err := extendScript.Run(ctx, l.client, []string{k}, token, l.ttl.Milliseconds()).Int()
				if err != nil {
					log.Error().Err(err).Str("key", k).Msg("Error extending Redis lock")
				} else if n == 0 {
					log.Warn().Str("key", k).Msg("Redis lock lost while held")
				}
			}
			cancel()
		}
	}
}

func (l *RedisLocker) Close() error {
	log.Info().Msg("Closing Redis locker connection")
	return l.client.Close()
}
