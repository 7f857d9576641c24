package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tutordex/internal/db"
	"github.com/kailas-cloud/tutordex/internal/domain"
)

// store is the consumer interface for session persistence (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	JSONArrAppend(ctx context.Context, key, path string, items ...[]byte) error
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Redis stores sessions as JSON documents with a native key TTL that slides
// on every append. Turn appends are a single server-side JSON.ARRAPPEND, so
// concurrent appends to one session never lose updates.
type Redis struct {
	store     store
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

// NewRedis creates a Redis-backed session store.
func NewRedis(s store, keyPrefix string, ttl time.Duration) *Redis {
	return &Redis{store: s, keyPrefix: keyPrefix, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source. Tests only.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

// Create starts a new session with a fresh identifier.
func (r *Redis) Create(ctx context.Context, metadata map[string]string) (domain.Session, error) {
	now := r.now()
	s := domain.Session{
		ID:        domain.NewSessionID(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(r.ttl),
		Metadata:  metadata,
	}

	data, err := json.Marshal(toSessionDoc(s))
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal session: %w", err)
	}

	key := r.key(s.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return domain.Session{}, fmt.Errorf("create session %s: %w", s.ID, err)
	}
	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return domain.Session{}, fmt.Errorf("set session ttl %s: %w", s.ID, err)
	}
	return s, nil
}

// Get returns a session by id. The key TTL normally reaps expired sessions;
// the expires_at check covers the window before Redis evicts the key.
func (r *Redis) Get(ctx context.Context, id string) (domain.Session, error) {
	raw, err := r.store.JSONGet(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}

	s := doc.toDomain()
	if s.Expired(r.now()) {
		_ = r.store.Del(ctx, r.key(id))
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, nil
}

// Touch slides a session's expiration forward by the full TTL without
// modifying its history. Called once per incoming message, so sessions stay
// alive even when an exchange records no turns.
func (r *Redis) Touch(ctx context.Context, id string) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	key := r.key(id)
	if err := r.touch(ctx, key, r.now()); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return fmt.Errorf("slide session ttl %s: %w", id, err)
	}
	return nil
}

// AppendTurns appends turns to a session and slides its expiration forward
// by the full TTL from the access time.
func (r *Redis) AppendTurns(ctx context.Context, id string, turns ...domain.Turn) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	key := r.key(id)
	items := make([][]byte, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(toTurnDoc(t))
		if err != nil {
			return fmt.Errorf("marshal turn %s: %w", t.ID, err)
		}
		items = append(items, data)
	}

	if err := r.store.JSONArrAppend(ctx, key, "$.turns", items...); err != nil {
		return fmt.Errorf("append turns to session %s: %w", id, err)
	}

	now := r.now()
	if err := r.touch(ctx, key, now); err != nil {
		return fmt.Errorf("touch session %s: %w", id, err)
	}
	if err := r.store.Expire(ctx, key, r.ttl); err != nil {
		return fmt.Errorf("slide session ttl %s: %w", id, err)
	}
	return nil
}

// touch rewrites the updated_at and expires_at fields in place.
func (r *Redis) touch(ctx context.Context, key string, now time.Time) error {
	updated, err := json.Marshal(now)
	if err != nil {
		return err
	}
	expires, err := json.Marshal(now.Add(r.ttl))
	if err != nil {
		return err
	}
	if err := r.store.JSONSet(ctx, key, "$.updated_at", updated); err != nil {
		return err
	}
	return r.store.JSONSet(ctx, key, "$.expires_at", expires)
}

func (r *Redis) key(id string) string {
	return r.keyPrefix + id
}
