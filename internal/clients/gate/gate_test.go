package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryGateWindow(t *testing.T) {
	now := time.Now()
	g := &memoryGate{
		expires: make(map[string]time.Time),
		now:     func() time.Time { return now },
	}
	ctx := context.Background()

	ok, err := g.TryAcquire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first TryAcquire = %v, %v, want true", ok, err)
	}
	ok, err = g.TryAcquire(ctx, "k", time.Minute)
	if err != nil || ok {
		t.Fatalf("second TryAcquire inside window = %v, %v, want false", ok, err)
	}

	// A different key is an independent window.
	ok, _ = g.TryAcquire(ctx, "other", time.Minute)
	if !ok {
		t.Fatal("independent key blocked")
	}

	// After the window expires the key is acquirable again.
	now = now.Add(time.Minute + time.Second)
	ok, err = g.TryAcquire(ctx, "k", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryAcquire after expiry = %v, %v, want true", ok, err)
	}
}

func TestMemoryGateRelease(t *testing.T) {
	g := NewMemoryGate()
	ctx := context.Background()

	if ok, _ := g.TryAcquire(ctx, "k", time.Hour); !ok {
		t.Fatal("first TryAcquire refused")
	}
	if ok, _ := g.TryAcquire(ctx, "k", time.Hour); ok {
		t.Fatal("acquired twice inside the window")
	}
	if err := g.Release(ctx, "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := g.TryAcquire(ctx, "k", time.Hour); !ok {
		t.Fatal("key not acquirable after release")
	}

	// Releasing a key that was never acquired is a no-op.
	if err := g.Release(ctx, "never"); err != nil {
		t.Fatalf("Release unknown key: %v", err)
	}
}

func TestMemoryGateCancelledContext(t *testing.T) {
	g := NewMemoryGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.TryAcquire(ctx, "k", time.Minute); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestMemoryGateSingleWinnerUnderRace(t *testing.T) {
	g := NewMemoryGate()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := g.TryAcquire(ctx, "contended", time.Minute)
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestLearningGateSeparatesWindows(t *testing.T) {
	g := NewMemoryGate()
	lg := NewLearningGate(g, 5*time.Minute, 2*time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	// Rate limit and batch window are independent keys for the same user.
	ok, err := lg.AllowProfileUpdate(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("AllowProfileUpdate = %v, %v", ok, err)
	}
	ok, err = lg.OpenBatch(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("OpenBatch = %v, %v", ok, err)
	}

	// Second update attempt inside the window is refused.
	ok, err = lg.AllowProfileUpdate(ctx, userID)
	if err != nil || ok {
		t.Fatalf("second AllowProfileUpdate = %v, %v, want false", ok, err)
	}

	// A different user is unaffected.
	ok, err = lg.AllowProfileUpdate(ctx, uuid.New())
	if err != nil || !ok {
		t.Fatalf("other user AllowProfileUpdate = %v, %v", ok, err)
	}
}

func TestLearningGateReleaseProfileUpdate(t *testing.T) {
	lg := NewLearningGate(NewMemoryGate(), 5*time.Minute, 2*time.Minute)
	ctx := context.Background()
	userID := uuid.New()

	if ok, _ := lg.AllowProfileUpdate(ctx, userID); !ok {
		t.Fatal("first AllowProfileUpdate refused")
	}
	if err := lg.ReleaseProfileUpdate(ctx, userID); err != nil {
		t.Fatalf("ReleaseProfileUpdate: %v", err)
	}
	if ok, _ := lg.AllowProfileUpdate(ctx, userID); !ok {
		t.Fatal("rate window not handed back after release")
	}

	// Releasing the rate window leaves the batch window alone.
	if ok, _ := lg.OpenBatch(ctx, userID); !ok {
		t.Fatal("OpenBatch refused")
	}
	if err := lg.ReleaseProfileUpdate(ctx, userID); err != nil {
		t.Fatalf("ReleaseProfileUpdate: %v", err)
	}
	if ok, _ := lg.OpenBatch(ctx, userID); ok {
		t.Fatal("batch window released by the rate key")
	}
}

func TestLearningGateNilUser(t *testing.T) {
	lg := NewLearningGate(NewMemoryGate(), time.Minute, time.Minute)
	ok, err := lg.AllowProfileUpdate(context.Background(), uuid.Nil)
	if err != nil || ok {
		t.Fatalf("nil user = %v, %v, want false, nil", ok, err)
	}
}
