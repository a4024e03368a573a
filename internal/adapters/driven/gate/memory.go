package gate

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

const tokenBytes = 32

// InMemoryGateTokenStore keeps random opaque tokens in process memory.
// Tokens do not survive a restart. Thread-safe.
type InMemoryGateTokenStore struct {
	mu       sync.Mutex
	sessions map[string]domain.GateSession
	duration time.Duration
	clock    Clock
}

// NewInMemoryGateTokenStore creates an in-memory token store.
func NewInMemoryGateTokenStore(duration time.Duration, opts ...StoreOption) *InMemoryGateTokenStore {
	o := newStoreOptions(opts)
	return &InMemoryGateTokenStore{
		sessions: make(map[string]domain.GateSession),
		duration: duration,
		clock:    o.clock,
	}
}

// Issue stores session under a fresh random token.
func (s *InMemoryGateTokenStore) Issue(session *domain.GateSession) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate gate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	now := s.clock.Now()
	session.IssuedAt = now
	session.ExpiresAt = now.Add(s.duration)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked(now)
	s.sessions[token] = *session
	return token, nil
}

// Verify returns the session stored under token.
func (s *InMemoryGateTokenStore) Verify(token string) (*domain.GateSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, ports.ErrGateTokenInvalid
	}
	if session.Expired(s.clock.Now()) {
		delete(s.sessions, token)
		return nil, ports.ErrGateTokenInvalid
	}
	return &session, nil
}

// Revoke forgets token. Unknown tokens are ignored.
func (s *InMemoryGateTokenStore) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Len returns the number of stored tokens, expired or not.
func (s *InMemoryGateTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *InMemoryGateTokenStore) evictExpiredLocked(now time.Time) {
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
		}
	}
}

// MemoryGateState is a process-wide gate flag for the CLI and tests.
type MemoryGateState struct {
	mu       sync.RWMutex
	unlocked bool
}

// NewMemoryGateState creates a locked gate.
func NewMemoryGateState() *MemoryGateState {
	return &MemoryGateState{}
}

// IsUnlocked reports the current state.
func (g *MemoryGateState) IsUnlocked() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.unlocked
}

// Unlock opens the gate.
func (g *MemoryGateState) Unlock() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = true
	return nil
}

// Lock closes the gate.
func (g *MemoryGateState) Lock() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = false
	return nil
}

// Ensure InMemoryGateTokenStore implements ports.GateTokenStore
var _ ports.GateTokenStore = (*InMemoryGateTokenStore)(nil)

// Ensure MemoryGateState implements ports.GateState
var _ ports.GateState = (*MemoryGateState)(nil)
