package cshauth

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestValidateSuccessRefreshes(t *testing.T) {
	engine, mr := newTestEngine(t, func(cfg *Config) {
		cfg.Session.IdleTimeout = 10 * time.Second
		cfg.Session.MaxLifetime = 0
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	// Keep validating inside the idle window; each call renews it.
	for i := 0; i < 3; i++ {
		mr.FastForward(8 * time.Second)
		info, err := engine.Validate(ctx, sid, "alice")
		if err != nil {
			t.Fatalf("validate %d failed: %v", i, err)
		}
		if info.Username != "alice" {
			t.Fatalf("validate returned username %q", info.Username)
		}
	}

	mr.FastForward(11 * time.Second)
	_, err := engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestValidateMissingFields(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := engine.Validate(ctx, "", "alice")
	assertCode(t, err, CodeMissingFields)

	_, err = engine.Validate(ctx, strings.Repeat("ab", 32), "")
	assertCode(t, err, CodeMissingFields)
}

func TestValidateMalformedAndUnknownIDs(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	_, err := engine.Validate(ctx, "not-a-session-id", "alice")
	assertCode(t, err, CodeInvalidSessionID)

	// Well-formed but never issued.
	_, err = engine.Validate(ctx, strings.Repeat("ab", 32), "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestValidateUsernameMismatch(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	mustCreateUser(t, engine, "bob", "swordfish", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	_, err := engine.Validate(ctx, sid, "bob")
	assertCode(t, err, CodeSessionInvalid)
}

func TestValidateMismatchDoesNotRenewIdle(t *testing.T) {
	engine, mr := newTestEngine(t, func(cfg *Config) {
		cfg.Session.IdleTimeout = 60 * time.Second
		cfg.Session.MaxLifetime = 0
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	mustCreateUser(t, engine, "bob", "swordfish", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	// A wrong-username validate fails without touching the idle window,
	// so it cannot be used to keep someone else's session alive.
	mr.FastForward(40 * time.Second)
	_, err := engine.Validate(ctx, sid, "bob")
	assertCode(t, err, CodeSessionInvalid)

	mr.FastForward(40 * time.Second)
	_, err = engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestValidateAbsoluteLifetime(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Session.IdleTimeout = time.Second
		cfg.Session.MaxLifetime = time.Second
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	// Real clock; the absolute bound is checked against wall time while
	// the miniredis TTL clock stands still.
	time.Sleep(1100 * time.Millisecond)

	_, err := engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeSessionInvalid)

	// The expired session was removed, so the id is now simply unknown.
	_, err = engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestLogoutUnknownSession(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	err := engine.Logout(ctx, strings.Repeat("ab", 32))
	assertCode(t, err, CodeLogoutFailed)

	err = engine.Logout(ctx, "garbage")
	assertCode(t, err, CodeLogoutFailed)
}

func TestLogoutIsNotRepeatable(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	if err := engine.Logout(ctx, sid); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	err := engine.Logout(ctx, sid)
	assertCode(t, err, CodeLogoutFailed)

	_, err = engine.Validate(ctx, sid, "alice")
	assertCode(t, err, CodeInvalidSessionID)
}

func TestInvalidateUserSessions(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	mustCreateUser(t, engine, "bob", "swordfish", "r")

	sids := []string{
		mustLogin(t, engine, "alice", "hunter2"),
		mustLogin(t, engine, "alice", "hunter2"),
	}
	bobSID := mustLogin(t, engine, "bob", "swordfish")

	if err := engine.InvalidateUserSessions(ctx, "alice"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	for _, sid := range sids {
		_, err := engine.Validate(ctx, sid, "alice")
		assertCode(t, err, CodeInvalidSessionID)
	}

	if _, err := engine.Validate(ctx, bobSID, "bob"); err != nil {
		t.Fatalf("bob's session should survive: %v", err)
	}
}

func TestCheckRateWindow(t *testing.T) {
	engine, mr := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.CommandLimit = 3
		cfg.RateLimit.CommandWindow = 10 * time.Second
	})
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	sid := mustLogin(t, engine, "alice", "hunter2")

	for i := 0; i < 3; i++ {
		if err := engine.CheckRate(ctx, sid); err != nil {
			t.Fatalf("command %d should be within budget: %v", i, err)
		}
	}

	err := engine.CheckRate(ctx, sid)
	assertCode(t, err, CodeRateLimited)

	// The window elapses and service restores.
	mr.FastForward(11 * time.Second)
	if err := engine.CheckRate(ctx, sid); err != nil {
		t.Fatalf("budget should be restored: %v", err)
	}
}

func TestSessionIntrospection(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	ctx := context.Background()

	mustCreateUser(t, engine, "alice", "hunter2", "r")
	first := mustLogin(t, engine, "alice", "hunter2")
	mustLogin(t, engine, "alice", "hunter2")

	sessions, err := engine.SessionsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("sessions for user failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	for _, info := range sessions {
		if info.Username != "alice" {
			t.Errorf("session %s owned by %q", info.SessionID, info.Username)
		}
	}

	total, err := engine.SessionCount(ctx)
	if err != nil {
		t.Fatalf("session count failed: %v", err)
	}
	if total != 2 {
		t.Errorf("global count = %d, want 2", total)
	}

	if err := engine.Logout(ctx, first); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	total, err = engine.SessionCount(ctx)
	if err != nil {
		t.Fatalf("session count failed: %v", err)
	}
	if total != 1 {
		t.Errorf("global count after logout = %d, want 1", total)
	}
}
