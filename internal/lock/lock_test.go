package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func exerciseLocker(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	t.Run("ExcludesSameKey", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			inside  int32
			maxSeen int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := l.Acquire(ctx, "user-1")
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				if err := release(ctx); err != nil {
					t.Errorf("release failed: %v", err)
				}
			}()
		}
		wg.Wait()
		if maxSeen != 1 {
			t.Errorf("Expected at most one holder, saw %d", maxSeen)
		}
	})

	t.Run("IndependentKeys", func(t *testing.T) {
		release, err := l.Acquire(ctx, "user-a")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer release(ctx)

		other, err := l.Acquire(ctx, "user-b")
		if err != nil {
			t.Fatalf("Acquire of another key failed: %v", err)
		}
		other(ctx)
	})

	t.Run("TimesOut", func(t *testing.T) {
		release, err := l.Acquire(ctx, "user-busy")
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer release(ctx)

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		if _, err := l.Acquire(short, "user-busy"); !errors.Is(err, ErrLockTimeout) {
			t.Errorf("Expected ErrLockTimeout, got %v", err)
		}
	})
}

func TestMemoryLocker(t *testing.T) {
	exerciseLocker(t, NewMemoryLocker())

	t.Run("DoubleReleaseIsSafe", func(t *testing.T) {
		l := NewMemoryLocker()
		release, _ := l.Acquire(context.Background(), "k")
		release(context.Background())
		release(context.Background())
		again, err := l.Acquire(context.Background(), "k")
		if err != nil {
			t.Fatalf("Acquire after release failed: %v", err)
		}
		again(context.Background())
	})
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping Redis integration test")
	}
	ctx := context.Background()
	l, err := NewRedisLocker(ctx, RedisConfig{
		Addr:          addr,
		TTL:           5 * time.Second,
		RetryInterval: 5 * time.Millisecond,
		KeyPrefix:     "meal-planner-test:" + time.Now().Format("150405.000") + ":",
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRedisLocker failed: %v", err)
	}
	defer l.Close()

	exerciseLocker(t, l)
}
