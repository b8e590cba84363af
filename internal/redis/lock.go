package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

func slotLockKey(slotID string) string {
	return fmt.Sprintf("lock:slot:%s", slotID)
}

// AcquireSlotLock attempts to acquire a lock for the given slot.
// Returns the token to release it with, or "" if the lock is already held.
func (s *LockStore) AcquireSlotLock(ctx context.Context, slotID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, slotLockKey(slotID), token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	return token, nil
}

// ReleaseSlotLock releases the lock for the given slot if token still owns it.
func (s *LockStore) ReleaseSlotLock(ctx context.Context, slotID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{slotLockKey(slotID)}, token).Err()
}
