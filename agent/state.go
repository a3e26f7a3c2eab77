package agent

import (
	"context"
	"maps"
	"time"

	"github.com/tbxark/intakebot/types"
)

// Session is the live state of one user's dialogue of one flow kind.
// For booking, CurrentField is the slot the dialogue is waiting for.
type Session struct {
	UserID       string            `json:"user_id"`
	Kind         types.FlowKind    `json:"kind"`
	Status       types.Status      `json:"status"`
	CurrentField string            `json:"current_field,omitempty"`
	Collected    map[string]string `json:"collected"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Collected = make(map[string]string, len(s.Collected))
	maps.Copy(out.Collected, s.Collected)
	return &out
}

// SessionStore keeps at most one session per user per flow kind.
// Load returns nil without error when no live session exists.
type SessionStore interface {
	Load(ctx context.Context, kind types.FlowKind, userID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, kind types.FlowKind, userID string) error
}

// CacheSessionStore is a SessionStore over any Cache. Sessions idle longer than ttl are
// dropped on load; a zero ttl disables expiry.
type CacheSessionStore struct {
	store Store[*Session]
	ttl   time.Duration
	now   func() time.Time
}

var _ SessionStore = (*CacheSessionStore)(nil)

func NewSessionStore(core Cache[*Session], ttl time.Duration) *CacheSessionStore {
	return &CacheSessionStore{
		store: NewStore(core, "intake:session"),
		ttl:   ttl,
		now:   time.Now,
	}
}

func NewMemorySessionStore(ttl time.Duration) *CacheSessionStore {
	return NewSessionStore(NewMemoryCache[*Session](), ttl)
}

func (s *CacheSessionStore) Load(ctx context.Context, kind types.FlowKind, userID string) (*Session, error) {
	session, ok, err := s.store.Get(ctx, string(kind), userID)
	if err != nil || !ok || session == nil {
		return nil, err
	}
	if s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl {
		return nil, s.store.Del(ctx, string(kind), userID)
	}
	return session.Clone(), nil
}

func (s *CacheSessionStore) Save(ctx context.Context, session *Session) error {
	return s.store.Set(ctx, session.Clone(), string(session.Kind), session.UserID)
}

func (s *CacheSessionStore) Delete(ctx context.Context, kind types.FlowKind, userID string) error {
	return s.store.Del(ctx, string(kind), userID)
}

type stateKeyContext struct{}

const defaultStateKey = "default"

// WithStateKey sets the user identity used to route dialogue state.
func WithStateKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, stateKeyContext{}, key)
}

// StateKeyFromContext gets the user identity from the context.
func StateKeyFromContext(ctx context.Context) (string, bool) {
	value := ctx.Value(stateKeyContext{})
	if value == nil {
		return "", false
	}
	key, ok := value.(string)
	return key, ok
}

// StateKeyOrDefault returns the context's user identity or "default".
func StateKeyOrDefault(ctx context.Context) string {
	key, ok := StateKeyFromContext(ctx)
	if ok && key != "" {
		return key
	}
	return defaultStateKey
}
