package cshauth

import (
	"context"
	"testing"
	"time"

	"github.com/cubeflix/cshauth/permission"
)

func TestLoginScenarioReadOnlyUser(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")

	perms, err := engine.Authenticate(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if !perms.Has(permission.Read) {
		t.Error("expected read permission")
	}

	_, err = engine.Authenticate(ctx, "alice", "wrong")
	assertCode(t, err, CodeInvalidPassword)

	sid := mustLogin(t, engine, "alice", "hunter2")

	if err := engine.Authorize(ctx, sid, "alice", permission.Write); err == nil {
		t.Fatal("expected write to be denied")
	} else {
		assertCode(t, err, CodePermissionDenied)
	}

	if err := engine.Authorize(ctx, sid, "alice", permission.Read); err != nil {
		t.Fatalf("read should be allowed: %v", err)
	}
}

func TestLoginMissingFields(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := engine.Login(ctx, "", "hunter2")
	assertCode(t, err, CodeLoginMissingFields)

	_, err = engine.Login(ctx, "alice", "")
	assertCode(t, err, CodeLoginMissingFields)
}

func TestLoginUnknownUser(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	_, err := engine.Login(context.Background(), "nobody", "hunter2")
	assertCode(t, err, CodeUserNotFound)
}

func TestLoginSessionLimitAndReissueAfterLogout(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Session.MaxSessionsPerUser = 2
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "rw")

	first := mustLogin(t, engine, "alice", "hunter2")
	mustLogin(t, engine, "alice", "hunter2")

	_, err := engine.Login(ctx, "alice", "hunter2")
	assertCode(t, err, CodeTooManySessions)

	if err := engine.Logout(ctx, first); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	mustLogin(t, engine, "alice", "hunter2")
}

func TestLoginThrottle(t *testing.T) {
	engine, mr := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.EnableLoginThrottle = true
		cfg.RateLimit.MaxLoginAttempts = 2
		cfg.RateLimit.LoginCooldown = time.Minute
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); err == nil {
			t.Fatalf("attempt %d: expected failure", i)
		}
	}

	// Budget exhausted; even the correct password is throttled now.
	_, err := engine.Login(ctx, "alice", "hunter2")
	assertCode(t, err, CodeRateLimited)

	mr.FastForward(2 * time.Minute)

	mustLogin(t, engine, "alice", "hunter2")
}

func TestLoginThrottleResetOnSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.EnableLoginThrottle = true
		cfg.RateLimit.MaxLoginAttempts = 3
		cfg.RateLimit.LoginCooldown = time.Minute
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")

	if _, err := engine.Login(ctx, "alice", "wrong"); err == nil {
		t.Fatal("expected failure")
	}
	mustLogin(t, engine, "alice", "hunter2")

	// The successful login cleared the counters, so the budget is full
	// again.
	for i := 0; i < 2; i++ {
		_, err := engine.Login(ctx, "alice", "wrong")
		assertCode(t, err, CodeInvalidPassword)
	}
}

func TestLoginWithIdleTimeoutOverride(t *testing.T) {
	engine, mr := newTestEngine(t, func(cfg *Config) {
		cfg.Session.AllowCustomIdleTimeout = true
		cfg.Session.IdleTimeout = time.Hour
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")

	sid, err := engine.LoginWithIdleTimeout(ctx, "alice", "hunter2", 10*time.Second)
	if err != nil {
		t.Fatalf("login with idle override failed: %v", err)
	}

	if _, err := engine.Validate(ctx, sid, "alice"); err != nil {
		t.Fatalf("validate failed: %v", err)
	}

	mr.FastForward(11 * time.Second)

	_, err = engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestLoginWithIdleTimeoutRequiresPolicy(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")

	if _, err := engine.LoginWithIdleTimeout(ctx, "alice", "hunter2", time.Minute); err == nil {
		t.Fatal("expected override to be rejected by configuration")
	}
}
