package gate

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// gateAudience scopes tokens so they cannot be replayed as other RS256 tokens
// signed with the same key.
const gateAudience = "avatar-proxy-gate"

// JWTGateTokenStore issues stateless RS256-signed gate tokens.
type JWTGateTokenStore struct {
	privateKey *rsa.PrivateKey
	duration   time.Duration
	clock      Clock
}

// NewJWTGateTokenStore creates a JWT-based gate token store.
func NewJWTGateTokenStore(privateKey *rsa.PrivateKey, duration time.Duration, opts ...StoreOption) *JWTGateTokenStore {
	o := newStoreOptions(opts)
	return &JWTGateTokenStore{
		privateKey: privateKey,
		duration:   duration,
		clock:      o.clock,
	}
}

// Issue signs a token for session. IssuedAt and ExpiresAt are filled in
// from the store's clock and duration.
func (s *JWTGateTokenStore) Issue(session *domain.GateSession) (string, error) {
	now := s.clock.Now()
	session.IssuedAt = now
	session.ExpiresAt = now.Add(s.duration)

	claims := jwt.RegisteredClaims{
		Subject:   session.Subject,
		Audience:  jwt.ClaimStrings{gateAudience},
		IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign gate token: %w", err)
	}
	return signed, nil
}

// Verify validates the signature, audience and expiry of token.
func (s *JWTGateTokenStore) Verify(token string) (*domain.GateSession, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &s.privateKey.PublicKey, nil
	},
		jwt.WithAudience(gateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, ports.ErrGateTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, ports.ErrGateTokenInvalid
	}

	session := &domain.GateSession{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Revoke is a no-op for stateless tokens.
// Actual cookie removal happens in the HTTP layer.
func (s *JWTGateTokenStore) Revoke(token string) error {
	return nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return ParsePrivateKey(data)
}

// ParsePrivateKey parses a PEM-encoded RSA key in PKCS8 or PKCS1 form.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS8 first, then PKCS1
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not RSA")
	}
	return rsaKey, nil
}

// Ensure JWTGateTokenStore implements ports.GateTokenStore
var _ ports.GateTokenStore = (*JWTGateTokenStore)(nil)
