package caddyavatarproxy

import (
	caddyadapter "github.com/philiph/caddy-avatar-proxy/internal/adapters/driving/caddy"
)

// Config is the JSON and Caddyfile configuration of the handler.
type Config = caddyadapter.Config

const (
	DefaultFetchTimeout   = caddyadapter.DefaultFetchTimeout
	DefaultMaxPageSize    = caddyadapter.DefaultMaxPageSize
	DefaultMaxImageSize   = caddyadapter.DefaultMaxImageSize
	DefaultCacheMissTTL   = caddyadapter.DefaultCacheMissTTL
	DefaultCacheSize      = caddyadapter.DefaultCacheSize
	DefaultGateCookieName = caddyadapter.DefaultGateCookieName
	DefaultGateDuration   = caddyadapter.DefaultGateDuration
)

// ParseDuration parses Go durations plus a "d" suffix for days.
var ParseDuration = caddyadapter.ParseDuration
