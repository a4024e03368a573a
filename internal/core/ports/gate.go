package ports

import (
	"errors"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// GateState is the capability handed to code that needs to know or change
// whether the visitor has passed the gate. The backing storage (cookie,
// process memory, anything else) is invisible to callers.
type GateState interface {
	IsUnlocked() bool
	Unlock() error
	Lock() error
}

// GateTokenStore issues and verifies the opaque tokens that persist an
// unlocked gate between requests.
type GateTokenStore interface {
	// Issue creates a token for the session.
	Issue(session *domain.GateSession) (string, error)

	// Verify returns the session for token or ErrGateTokenInvalid.
	Verify(token string) (*domain.GateSession, error)

	// Revoke invalidates token. Stateless stores may treat this as a no-op.
	Revoke(token string) error
}

// ErrGateTokenInvalid is returned when a token is malformed, expired or unknown.
var ErrGateTokenInvalid = errors.New("gate token invalid")
