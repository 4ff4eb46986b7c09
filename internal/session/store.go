package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guild-dashboard/internal/redis"
)

// CookieName identifies the browser session cookie.
const CookieName = "dash_session"

const stateTTL = 10 * time.Minute

var ErrNotFound = errors.New("session not found")

// Store keeps session records and one-shot OAuth state nonces in
// redis, keyed by random 128-bit ids.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(r *redis.Client, ttl time.Duration) *Store {
	return &Store{redis: r, ttl: ttl}
}

// Create writes rec under a fresh session id and returns the id.
func (s *Store) Create(ctx context.Context, rec Record) (string, error) {
	id, err := newID()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, sessionKey(id), string(data), s.ttl); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, ErrNotFound
	}

	data, err := s.redis.Get(ctx, sessionKey(id))
	if err != nil || data == "" {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.redis.Del(ctx, sessionKey(id))
}

// NewState issues a one-shot CSRF nonce for the OAuth authorize
// redirect.
func (s *Store) NewState(ctx context.Context) (string, error) {
	state, err := newID()
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, stateKey(state), "1", stateTTL); err != nil {
		return "", err
	}
	return state, nil
}

// ConsumeState verifies and burns a state nonce in one round trip, so
// a replayed callback cannot reuse it.
func (s *Store) ConsumeState(ctx context.Context, state string) bool {
	if state == "" {
		return false
	}
	v, err := s.redis.GetDel(ctx, stateKey(state))
	return err == nil && v != ""
}

func sessionKey(id string) string { return fmt.Sprintf("session:%s", id) }
func stateKey(v string) string    { return fmt.Sprintf("oauth:state:%s", v) }

func newID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
