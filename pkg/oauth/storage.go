package oauth

import (
	"context"
	"sync"
	"time"
)

// StateStorage persists the pending state and PKCE code verifier of one
// in-flight authorization attempt. Take methods read and remove the value;
// an absent or expired value is returned as "" with a nil error.
type StateStorage interface {
	SaveState(ctx context.Context, state string) error
	TakeState(ctx context.Context) (string, error)
	SaveCodeVerifier(ctx context.Context, verifier string) error
	TakeCodeVerifier(ctx context.Context) (string, error)
}

// DefaultStateTTL is how long a pending state or code verifier stays valid.
const DefaultStateTTL = 10 * time.Minute

// memoryEntry is a stored value with its expiration time.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStateStorage keeps one pending state and one code verifier in
// process memory. It suits hosts where a single user drives the flow,
// such as desktop applications. It is safe for concurrent use.
type MemoryStateStorage struct {
	mu       sync.Mutex
	ttl      time.Duration
	state    *memoryEntry
	verifier *memoryEntry
	now      func() time.Time
}

// NewMemoryStateStorage creates an in-memory storage whose values expire
// after ttl (DefaultStateTTL when ttl <= 0).
func NewMemoryStateStorage(ttl time.Duration) *MemoryStateStorage {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &MemoryStateStorage{
		ttl: ttl,
		now: time.Now,
	}
}

func (s *MemoryStateStorage) SaveState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.entry(state)
	return nil
}

func (s *MemoryStateStorage) TakeState(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(&s.state), nil
}

func (s *MemoryStateStorage) SaveCodeVerifier(_ context.Context, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifier = s.entry(verifier)
	return nil
}

func (s *MemoryStateStorage) TakeCodeVerifier(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.take(&s.verifier), nil
}

func (s *MemoryStateStorage) entry(value string) *memoryEntry {
	return &memoryEntry{value: value, expiresAt: s.now().Add(s.ttl)}
}

// take clears the slot and returns its value unless it has expired.
func (s *MemoryStateStorage) take(slot **memoryEntry) string {
	e := *slot
	*slot = nil
	if e == nil || s.now().After(e.expiresAt) {
		return ""
	}
	return e.value
}
