package statestore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jeff377/bee-oauth2/pkg/oauth"
)

// SessionConfig configures a Session storage.
type SessionConfig struct {
	// CookieName names the session id cookie. Default "oauth2_session".
	// Storages of different clients may share it.
	CookieName string

	// Namespace separates the keys of storages sharing a backend,
	// typically the client name.
	Namespace string

	// TTL bounds the life of a pending value. Default oauth.DefaultStateTTL.
	TTL time.Duration

	CookieAttributes
}

// Session stores the state and code verifier server side, under a random
// session id kept in a cookie. Only the id travels through the browser.
type Session struct {
	backend Backend
	cfg     SessionConfig
}

var _ oauth.StateStorage = (*Session)(nil)

// NewSession creates a Session storage on backend.
func NewSession(backend Backend, cfg SessionConfig) (*Session, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "oauth2_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = oauth.DefaultStateTTL
	}
	return &Session{backend: backend, cfg: cfg}, nil
}

func (s *Session) SaveState(ctx context.Context, state string) error {
	return s.save(ctx, "state", state)
}

func (s *Session) TakeState(ctx context.Context) (string, error) {
	return s.take(ctx, "state")
}

func (s *Session) SaveCodeVerifier(ctx context.Context, verifier string) error {
	return s.save(ctx, "code_verifier", verifier)
}

func (s *Session) TakeCodeVerifier(ctx context.Context) (string, error) {
	return s.take(ctx, "code_verifier")
}

func (s *Session) key(sid, slot string) string {
	if s.cfg.Namespace == "" {
		return sid + ":" + slot
	}
	return s.cfg.Namespace + ":" + sid + ":" + slot
}

func (s *Session) save(ctx context.Context, slot, value string) error {
	x, err := fromContext(ctx)
	if err != nil {
		return err
	}

	sid, ok := x.get(s.cfg.CookieName)
	if !ok {
		sid = uuid.NewString()
	}
	// Refresh the cookie so it outlives the newest pending value.
	x.set(s.cfg.CookieName, sid, s.cfg.TTL, s.cfg.CookieAttributes)

	return s.backend.Set(ctx, s.key(sid, slot), value, s.cfg.TTL)
}

func (s *Session) take(ctx context.Context, slot string) (string, error) {
	x, err := fromContext(ctx)
	if err != nil {
		return "", err
	}

	sid, ok := x.get(s.cfg.CookieName)
	if !ok {
		return "", nil
	}
	if _, err := uuid.Parse(sid); err != nil {
		return "", nil
	}
	return s.backend.Take(ctx, s.key(sid, slot))
}
