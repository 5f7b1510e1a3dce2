package locker

import (
	"context"
	"sync"
	"time"

	"workorder-autopilot/pkg/security"

	"github.com/redis/go-redis/v9"
)

// Locker provides advisory single-flight locks keyed by string. Acquire
// returns ok=false when the key is already held; callers are expected to
// skip the guarded work in that case rather than wait.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// unlockScript releases the key only if the stored token still matches,
// so an expired lock re-acquired by another holder is never released here.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *redis.Client
}

// NewRedis returns a Locker backed by redis SET NX PX, safe across
// processes.
func NewRedis(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token, err := security.GenerateBase64Secret(16)
	if err != nil {
		return nil, false, err
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		_, _ = unlockScript.Run(context.Background(), l.client, []string{key}, token).Result()
	}
	return release, true, nil
}

type memoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemory returns an in-process Locker. Used in tests and single-node
// deployments without redis.
func NewMemory() Locker {
	return &memoryLocker{held: make(map[string]struct{})}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.held[key]; exists {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, true, nil
}
