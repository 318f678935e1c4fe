package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFirstWaitDoesNotBlock(t *testing.T) {
	l, err := New(1, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first Wait blocked for %s", elapsed)
	}
}

func TestWaitSpacesCalls(t *testing.T) {
	// 20 calls/s so the test stays fast: 4 waits should take >= 3 intervals.
	l, err := New(20, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	if min := 3 * 50 * time.Millisecond; elapsed < min {
		t.Errorf("4 waits took %s, want at least %s", elapsed, min)
	}
}

func TestPaddingWidensInterval(t *testing.T) {
	l, err := New(20, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)
	if min := 80 * time.Millisecond; elapsed < min {
		t.Errorf("padded interval was %s, want at least %s", elapsed, min)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	l, err := New(0.1, 0) // 10s interval
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx); err == nil {
		t.Fatal("expected error from cancelled Wait")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled Wait took %s", elapsed)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	if _, err := New(0, 0); err == nil {
		t.Error("expected error for zero rate")
	}
	if _, err := New(-1, 0); err == nil {
		t.Error("expected error for negative rate")
	}
	if _, err := New(1, -time.Millisecond); err == nil {
		t.Error("expected error for negative padding")
	}
}
