package caddyavatarproxy

import (
	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/gate"
	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

type GateState = ports.GateState
type GateTokenStore = ports.GateTokenStore
type GateSession = domain.GateSession

type JWTGateTokenStore = gate.JWTGateTokenStore
type InMemoryGateTokenStore = gate.InMemoryGateTokenStore
type MemoryGateState = gate.MemoryGateState

var ErrGateTokenInvalid = ports.ErrGateTokenInvalid

var (
	HashCredentials           = domain.HashCredentials
	CredentialsMatch          = domain.CredentialsMatch
	NewJWTGateTokenStore      = gate.NewJWTGateTokenStore
	NewInMemoryGateTokenStore = gate.NewInMemoryGateTokenStore
	NewMemoryGateState        = gate.NewMemoryGateState
	LoadPrivateKey            = gate.LoadPrivateKey
)
