package worker

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_ThrottlesPerDomain(t *testing.T) {
	// 1 rps, burst 1: the second request to the same domain must wait
	l := NewLimiter(1, 1)
	ctx := context.Background()

	start := time.Now()
	if err := l.Wait(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if err := l.Wait(ctx, "https://example.com/b"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("second request not throttled, elapsed %v", elapsed)
	}
}

func TestLimiter_DomainsAreIndependent(t *testing.T) {
	l := NewLimiter(1, 1)
	ctx := context.Background()

	start := time.Now()
	if err := l.Wait(ctx, "https://one.example.com/"); err != nil {
		t.Fatal(err)
	}
	if err := l.Wait(ctx, "https://two.example.com/"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("different domains throttled each other, elapsed %v", elapsed)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	l := NewLimiter(100, 10)
	start := time.Now()
	if err := l.WaitWithDelay(context.Background(), "https://example.com/", 50*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("crawl delay not honored, elapsed %v", elapsed)
	}
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewLimiter(0.1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_ = l.Wait(ctx, "https://example.com/")
	if err := l.Wait(ctx, "https://example.com/"); err == nil {
		t.Error("wait beyond budget did not observe cancellation")
	}
}

func TestLimiter_ConcurrentFirstUse(t *testing.T) {
	l := NewLimiter(1000, 100)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Wait(context.Background(), "https://example.com/")
		}()
	}
	wg.Wait()
}
