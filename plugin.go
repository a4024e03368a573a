// Package caddyavatarproxy provides a Caddy v2 plugin that resolves public
// profile avatars, streams them with a placeholder fallback, and serves the
// gate and coin catalog APIs of the trainer front-end.
package caddyavatarproxy

import (
	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"

	caddyadapter "github.com/philiph/caddy-avatar-proxy/internal/adapters/driving/caddy"
)

// Build information. GitCommit and BuildTime are set via ldflags:
//
//	-ldflags "-X github.com/philiph/caddy-avatar-proxy.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0"
	GitCommit = ""
	BuildTime = ""
)

func init() {
	caddy.RegisterModule(AvatarProxy{})
	httpcaddyfile.RegisterHandlerDirective("avatar_proxy", caddyadapter.ParseCaddyfile)
	caddyadapter.SetVersionGetters(
		func() string { return Version },
		func() string { return GitCommit },
		func() string { return BuildTime },
	)
}

// AvatarProxy is the Caddy HTTP handler module (http.handlers.avatar_proxy).
type AvatarProxy = caddyadapter.AvatarProxy

// HealthResponse is the JSON body of /api/health.
type HealthResponse = caddyadapter.HealthResponse

// AvatarResponse is the JSON body of /api/avatar/{username}.
type AvatarResponse = caddyadapter.AvatarResponse

// PacksResponse is the JSON body of /api/packs.
type PacksResponse = caddyadapter.PacksResponse

// GateSessionResponse is the JSON body of /api/gate/session.
type GateSessionResponse = caddyadapter.GateSessionResponse

var (
	ParseCaddyfile    = caddyadapter.ParseCaddyfile
	ValidateReturnURL = caddyadapter.ValidateReturnURL
)
