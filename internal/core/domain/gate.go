package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GateSession records an unlocked gate.
type GateSession struct {
	// Subject is the username that unlocked the gate.
	Subject string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *GateSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// HashCredentials returns the lowercase hex SHA-256 of "username:password".
// The username is trimmed; the password is used verbatim.
func HashCredentials(username, password string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(username) + ":" + password))
	return hex.EncodeToString(sum[:])
}

// CredentialsMatch compares the credential hash against the expected hex digest
// in constant time. The expected digest is matched case-insensitively.
func CredentialsMatch(expectedHash, username, password string) bool {
	if expectedHash == "" {
		return false
	}
	got := HashCredentials(username, password)
	want := strings.ToLower(strings.TrimSpace(expectedHash))
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// ValidateGateHash checks that h is a 64-character hex SHA-256 digest.
func ValidateGateHash(h string) error {
	h = strings.TrimSpace(h)
	if len(h) != sha256.Size*2 {
		return fmt.Errorf("gate hash must be %d hex characters, got %d", sha256.Size*2, len(h))
	}
	if _, err := hex.DecodeString(h); err != nil {
		return fmt.Errorf("gate hash is not valid hex: %w", err)
	}
	return nil
}
