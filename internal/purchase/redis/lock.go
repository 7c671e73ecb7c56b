package redis

import (
	"context"
	"fmt"
	"time"

	"dholratri-tickets/internal/logger"

	"github.com/go-redis/redis/v8"
)

const DefaultLockTTL = 2 * time.Minute

// Lock keeps two requests from working on the same purchase at once.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewLock(client *redis.Client, ttl time.Duration, log *logger.Logger) *Lock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Lock{Client: client, TTL: ttl, Logger: log}
}

func lockKey(purchaseID string) string {
	return "purchase_lock:" + purchaseID
}

// IsLocked reports whether someone holds the lock without taking it.
func (l *Lock) IsLocked(ctx context.Context, purchaseID string) (bool, error) {
	_, err := l.Client.Get(ctx, lockKey(purchaseID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Acquire takes the lock for owner. False means another owner holds it.
func (l *Lock) Acquire(ctx context.Context, purchaseID, owner string) (bool, error) {
	ok, err := l.Client.SetNX(ctx, lockKey(purchaseID), owner, l.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("lock purchase %s: %w", purchaseID, err)
	}
	if !ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Purchase %s is locked by another request", purchaseID))
	}
	return ok, nil
}

// Release drops the lock only if owner still holds it.
func (l *Lock) Release(ctx context.Context, purchaseID, owner string) error {
	key := lockKey(purchaseID)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if val != owner {
		return nil
	}
	return l.Client.Del(ctx, key).Err()
}
