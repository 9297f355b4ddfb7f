package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrExpired reports a session whose absolute lifetime has elapsed. The
// session is removed as a side effect of the read that discovers it.
var ErrExpired = errors.New("session expired")

// ErrOwnerMismatch reports a session read with the wrong owning username.
// The read fails without renewing the idle window or rewriting
// last_active_at, so probing an id with wrong usernames cannot keep it
// alive.
var ErrOwnerMismatch = errors.New("session owner mismatch")

const minSlidingTTL = time.Second

// deleteSessionScript removes a session key, its user-index membership,
// and its contribution to the global counter atomically. Returns 1 when
// the session key existed.
const deleteSessionScript = `
local existed = redis.call("EXISTS", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
if existed == 1 then
  redis.call("DEL", KEYS[1])
  local count = tonumber(redis.call("GET", KEYS[3]) or "0")
  if count > 1 then
    redis.call("DECR", KEYS[3])
  elseif count == 1 then
    redis.call("DEL", KEYS[3])
  end
end
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Store is a Redis-backed session store that handles persistence, idle
// (TTL) and absolute expiration, last-active renewal, and the per-user
// session index.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the session key namespace; sliding controls whether reads
// renew the idle TTL.
func NewStore(redisClient redis.UniversalClient, prefix string, sliding bool) *Store {
	return &Store{
		redis:   redisClient,
		prefix:  prefix,
		sliding: sliding,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKey(username string) string {
	return "cu:" + username
}

func (s *Store) countKey() string {
	return "cst:count"
}

// Save persists a session and registers it in the owner's index set.
// The idle TTL comes from the session's IdleSeconds field.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if sess.IdleSeconds <= 0 {
		return errors.New("session idle timeout not set")
	}

	data, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, time.Duration(sess.IdleSeconds)*time.Second)
		pipe.SAdd(ctx, s.userKey(sess.Username), sess.SessionID)
		pipe.Incr(ctx, s.countKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session owned by username, enforces its absolute
// expiry, rewrites last_active_at, and renews the idle TTL when sliding
// expiration is on. Unknown ids return redis.Nil; absolute expiry returns
// [ErrExpired] and removes the session; a wrong owner returns
// [ErrOwnerMismatch]. last_active_at and the TTL change only when every
// check passes.
func (s *Store) Get(ctx context.Context, sessionID, username string) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	now := time.Now()
	if sess.ExpiresAt > 0 && now.Unix() >= sess.ExpiresAt {
		if _, err := s.deleteSessionAndIndex(ctx, sess.Username, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	if sess.Username != username {
		return nil, ErrOwnerMismatch
	}

	sess.LastActiveAt = now.Unix()
	updated, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	ttl, err := s.nextTTL(ctx, key, sess, now)
	if err != nil {
		return nil, err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, updated, ttl)
		pipe.SAdd(ctx, s.userKey(sess.Username), sessionID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// nextTTL picks the TTL for the rewritten session blob: a renewed idle
// window under sliding expiration (never past the absolute bound), or the
// remaining TTL otherwise.
func (s *Store) nextTTL(ctx context.Context, key string, sess *Session, now time.Time) (time.Duration, error) {
	if s.sliding {
		ttl := time.Duration(sess.IdleSeconds) * time.Second
		if sess.ExpiresAt > 0 {
			remaining := time.Unix(sess.ExpiresAt, 0).Sub(now)
			if remaining < ttl {
				ttl = remaining
			}
		}
		if ttl < minSlidingTTL {
			ttl = minSlidingTTL
		}
		return ttl, nil
	}

	remaining, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if remaining <= 0 {
		return 0, redis.Nil
	}
	return remaining, nil
}

// GetReadOnly fetches a session without renewing TTL or touching
// last_active_at. Used by introspection.
func (s *Store) GetReadOnly(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	if sess.ExpiresAt > 0 && time.Now().Unix() >= sess.ExpiresAt {
		return nil, redis.Nil
	}

	return sess, nil
}

// Delete removes a session. Returns whether the session existed, which the
// engine uses to distinguish a logout from a logout error.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return false, err
	}

	existed, err := s.deleteSessionAndIndex(ctx, sess.Username, sessionID)
	if err != nil {
		return false, err
	}
	return existed, nil
}

func (s *Store) deleteSessionAndIndex(ctx context.Context, username, sessionID string) (bool, error) {
	res, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.userKey(username), s.countKey()},
		sessionID,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return res == 1, nil
}

// DeleteAllForUser removes every live session owned by username.
//
// ATOMICITY NOTE: the index read and the deletes are separate phases; a
// session issued between them survives this call. The engine closes that
// window by checking user-record liveness on every validate, so a stray
// session for a removed user still fails its next validation.
func (s *Store) DeleteAllForUser(ctx context.Context, username string) error {
	userKey := s.userKey(username)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	for _, sessionID := range sessionIDs {
		if _, err := s.deleteSessionAndIndex(ctx, username, sessionID); err != nil {
			return err
		}
	}

	if err := s.redis.Del(ctx, userKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// ActiveSessionCount returns the number of live sessions for username.
// Index entries whose session key has idled out are pruned on the way.
func (s *Store) ActiveSessionCount(ctx context.Context, username string) (int, error) {
	ids, err := s.liveSessionIDs(ctx, username)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ActiveSessionIDs returns the live session ids for username.
func (s *Store) ActiveSessionIDs(ctx context.Context, username string) ([]string, error) {
	return s.liveSessionIDs(ctx, username)
}

func (s *Store) liveSessionIDs(ctx context.Context, username string) ([]string, error) {
	userKey := s.userKey(username)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(sessionIDs) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(sessionIDs))
	for i, sessionID := range sessionIDs {
		existsCmds[i] = pipe.Exists(ctx, s.key(sessionID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(sessionIDs))
	var stale []interface{}
	for i, cmd := range existsCmds {
		v, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if v == 1 {
			live = append(live, sessionIDs[i])
		} else {
			stale = append(stale, sessionIDs[i])
		}
	}

	// Prune entries for sessions that idled out; keeps the cap check honest.
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return live, nil
}

// SessionsForUser fetches the live sessions for username without touching
// their TTLs.
func (s *Store) SessionsForUser(ctx context.Context, username string) ([]*Session, error) {
	ids, err := s.liveSessionIDs(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Session{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, sessionID := range ids {
		cmds[i] = pipe.Get(ctx, s.key(sessionID))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	nowUnix := time.Now().Unix()
	sessions := make([]*Session, 0, len(ids))
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}

		sess, decErr := Decode(data)
		if decErr != nil {
			return nil, decErr
		}
		sess.SessionID = ids[i]
		if sess.ExpiresAt > 0 && nowUnix >= sess.ExpiresAt {
			continue
		}
		sessions = append(sessions, sess)
	}

	return sessions, nil
}

// Count returns the global session counter: issuance minus explicit
// revocation. Sessions that idle out of Redis are never subtracted, so
// the value is an upper bound on the number of live sessions.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.redis.Get(ctx, s.countKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}
