package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"manion_server/internal/common"
)

func newTestLock(t *testing.T, ttl time.Duration) (*KeyLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewKeyLock(rdb, ttl), mr
}

func TestAcquireAndRelease(t *testing.T) {
	lock, mr := newTestLock(t, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "post_general_1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !mr.Exists("lock:post_general_1") {
		t.Error("lock key not set in redis")
	}

	release()
	if mr.Exists("lock:post_general_1") {
		t.Error("lock key still set after release")
	}

	// Reacquirable after release.
	release2, err := lock.Acquire(ctx, "post_general_1")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release2()
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	lock, _ := newTestLock(t, 200*time.Millisecond)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "user_history_u1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	if _, err := lock.Acquire(ctx, "user_history_u1"); !errors.Is(err, common.ErrLockFailed) {
		t.Errorf("second acquire: err = %v, want ErrLockFailed", err)
	}
}

func TestAcquireDifferentKeysIndependent(t *testing.T) {
	lock, _ := newTestLock(t, time.Second)
	ctx := context.Background()

	r1, err := lock.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer r1()
	r2, err := lock.Acquire(ctx, "b")
	if err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	defer r2()
}

func TestAcquireWaitsForRelease(t *testing.T) {
	lock, _ := newTestLock(t, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "contended")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		r, err := lock.Acquire(ctx, "contended")
		if err == nil {
			r()
		}
		acquired <- err
	}()

	time.Sleep(50 * time.Millisecond)
	release()

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("waiter failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lock")
	}
}

func TestReleaseIsOwnerScoped(t *testing.T) {
	lock, mr := newTestLock(t, time.Second)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// Simulate TTL expiry and takeover by another holder.
	mr.Set("lock:k", "other-holder")
	release()

	if v, _ := mr.Get("lock:k"); v != "other-holder" {
		t.Errorf("release removed a lock it no longer owns: %q", v)
	}
}
