package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// Locker hands out exclusive, expiring locks by key. A refresh of a source
// holds its lock so that two refreshes never race to replace one snapshot.
type Locker interface {
	// TryLock acquires key or returns ErrLocked. The returned unlock func
	// must be called (typically via defer).
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	// IsLocked reports whether key is currently held.
	IsLocked(ctx context.Context, key string) bool
}

// RefreshLockKey names the lock guarding a source's refresh.
func RefreshLockKey(sourceID int64) string {
	return fmt.Sprintf("lock:refresh:%d", sourceID)
}

// unlockScript deletes the key only if the token still matches.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`

// TryLock implements Locker with SET NX EX, so the lock holds across
// replicas sharing one Redis.
func (r *Redis) TryLock(ctx context.Context, k string, ttl time.Duration) (func(), error) {
	token := randomToken()
	ok, err := r.client.SetNX(ctx, key(k), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", k, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		// Background context: unlock must run even if the request was cancelled.
		_ = r.client.Eval(context.Background(), unlockScript, []string{key(k)}, token).Err()
	}, nil
}

// IsLocked returns true if the lock key exists.
func (r *Redis) IsLocked(ctx context.Context, k string) bool {
	n, _ := r.client.Exists(ctx, key(k)).Result()
	return n > 0
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LocalLocker implements Locker in process memory.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localLock
	now   func() time.Time
	token uint64
}

type localLock struct {
	token   uint64
	expires time.Time
}

// NewLocalLocker returns an empty in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]localLock{}, now: time.Now}
}

// TryLock acquires key unless a live lock holds it. Expired locks are taken over.
func (l *LocalLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrLocked
	}
	l.token++
	tok := l.token
	l.held[key] = localLock{token: tok, expires: now.Add(ttl)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, ok := l.held[key]; ok && cur.token == tok {
			delete(l.held, key)
		}
	}, nil
}

// IsLocked reports whether key is held by an unexpired lock.
func (l *LocalLocker) IsLocked(ctx context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur, ok := l.held[key]
	return ok && l.now().Before(cur.expires)
}
