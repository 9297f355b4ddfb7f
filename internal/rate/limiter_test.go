package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, cfg), mr
}

func TestCommandWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		CommandLimit:  3,
		CommandWindow: 10 * time.Second,
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.CheckCommand(ctx, "sid"); err != nil {
			t.Fatalf("command %d should pass: %v", i, err)
		}
	}
	if err := limiter.CheckCommand(ctx, "sid"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Sessions are limited independently.
	if err := limiter.CheckCommand(ctx, "other"); err != nil {
		t.Fatalf("other session should pass: %v", err)
	}

	mr.FastForward(11 * time.Second)
	if err := limiter.CheckCommand(ctx, "sid"); err != nil {
		t.Fatalf("window elapsed, should pass: %v", err)
	}
}

func TestCommandLimitDisabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{})

	for i := 0; i < 100; i++ {
		if err := limiter.CheckCommand(context.Background(), "sid"); err != nil {
			t.Fatalf("disabled limiter must not limit: %v", err)
		}
	}
}

func TestClearCommandRestoresBudget(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		CommandLimit:  1,
		CommandWindow: time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckCommand(ctx, "sid"); err != nil {
		t.Fatalf("first command should pass: %v", err)
	}
	if err := limiter.CheckCommand(ctx, "sid"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if err := limiter.ClearCommand(ctx, "sid"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if err := limiter.CheckCommand(ctx, "sid"); err != nil {
		t.Fatalf("budget should be fresh after clear: %v", err)
	}
}

func TestLoginThrottlePerUserAndIP(t *testing.T) {
	limiter, mr := newTestLimiter(t, Config{
		EnableLoginThrottle: true,
		EnableIPThrottle:    true,
		MaxLoginAttempts:    2,
		LoginCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := limiter.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("fresh user should pass: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := limiter.IncrementLogin(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
	}

	if err := limiter.CheckLogin(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited for user, got %v", err)
	}
	// Same IP, different username: the IP counter still blocks.
	if err := limiter.CheckLogin(ctx, "mallory", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited for IP, got %v", err)
	}
	if err := limiter.CheckLogin(ctx, "mallory", "10.0.0.2"); err != nil {
		t.Fatalf("different user and IP should pass: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if err := limiter.CheckLogin(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("cooldown elapsed, should pass: %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{
		EnableLoginThrottle: true,
		MaxLoginAttempts:    1,
		LoginCooldown:       time.Minute,
	})
	ctx := context.Background()

	if err := limiter.IncrementLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	if err := limiter.ResetLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if err := limiter.CheckLogin(ctx, "alice", ""); err != nil {
		t.Fatalf("counters cleared, should pass: %v", err)
	}
}
