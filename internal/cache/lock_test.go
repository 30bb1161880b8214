package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	key := RefreshLockKey(7)
	if key != "lock:refresh:7" {
		t.Errorf("key = %q", key)
	}

	unlock, err := l.TryLock(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("first TryLock: %v", err)
	}
	if !l.IsLocked(ctx, key) {
		t.Error("IsLocked = false while held")
	}
	if _, err := l.TryLock(ctx, key, time.Minute); !errors.Is(err, ErrLocked) {
		t.Errorf("second TryLock err = %v, want ErrLocked", err)
	}
	unlock()
	if l.IsLocked(ctx, key) {
		t.Error("IsLocked = true after unlock")
	}
	if _, err := l.TryLock(ctx, key, time.Minute); err != nil {
		t.Errorf("TryLock after unlock: %v", err)
	}
}

func TestLocalLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	staleUnlock, err := l.TryLock(ctx, "k", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Second)
	if l.IsLocked(ctx, "k") {
		t.Error("expired lock still reported held")
	}
	if _, err := l.TryLock(ctx, "k", time.Minute); err != nil {
		t.Fatalf("takeover of expired lock: %v", err)
	}
	// The stale holder must not release the new holder's lock.
	staleUnlock()
	if !l.IsLocked(ctx, "k") {
		t.Error("stale unlock released the new lock")
	}
}
