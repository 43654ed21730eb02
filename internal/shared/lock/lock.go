// Package lock serialises simulation ticks and mutating API calls per game.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"galactic-server/internal/shared/errors"
	sharedredis "galactic-server/internal/shared/redis"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive access to one game's state. TryAcquire never blocks:
// it returns a Conflict error when the game is already held.
type Locker interface {
	TryAcquire(ctx context.Context, gameID string) (release func(), err error)
}

// New picks the Redis locker when a client is available.
func New(client *sharedredis.Client, ttl time.Duration) Locker {
	if client == nil {
		return NewMemory()
	}
	return NewRedis(client.Client, ttl)
}

type Memory struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]bool)}
}

func (m *Memory) TryAcquire(_ context.Context, gameID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.held[gameID] {
		return nil, errors.Conflictf("game %s is busy", gameID)
	}
	m.held[gameID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, gameID)
			m.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: slog.With("component", "redis_lock"),
	}
}

func (r *Redis) TryAcquire(ctx context.Context, gameID string) (func(), error) {
	key := "galactic:lock:game:" + gameID
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, errors.WrapExternal("failed to acquire game lock", err)
	}
	if !ok {
		return nil, errors.Conflictf("game %s is busy", gameID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
				r.logger.Warn("Failed to release game lock", "game_id", gameID, "error", fmt.Errorf("release: %w", err))
			}
		})
	}, nil
}
