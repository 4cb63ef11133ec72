package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("doctor calendar lock not acquired")
)

// Locker serializes booking writes per doctor so two requests validated
// against the same snapshot cannot both reach the insert. The DB
// exclusion constraint remains the backstop when the lock expires early.
type Locker interface {
	WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisDoctorLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDoctorLocker creates a locker that uses a per doctor Redis key
func NewRedisDoctorLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisDoctorLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisDoctorLocker) WithDoctorLock(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:doctor:%s", doctorID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire doctor lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDoctorLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor lock: %w", err)
	}
	return nil
}
