package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different key should also work
	if err := limiter.Wait(ctx, "wikipedia"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "ollama"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 means the token is consumed
	if limiter.Allow("ollama") {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("jina") {
		t.Errorf("expected allow for other key")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.Allow("slow")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, "slow"); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("duckduckgo", 0.1, 1)

	if !limiter.Allow("duckduckgo") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("duckduckgo") {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("wikipedia") {
		t.Errorf("other key should pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("anthropic") {
			t.Fatalf("request %d rejected by an unlimited limiter", i)
		}
	}
}

func TestLimiter_Nil(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "any"); err != nil {
		t.Errorf("nil limiter should not block: %v", err)
	}
	if !limiter.Allow("any") {
		t.Error("nil limiter should allow")
	}
}
