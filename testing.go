package caddyavatarproxy

import (
	caddyadapter "github.com/philiph/caddy-avatar-proxy/internal/adapters/driving/caddy"
)

type TemplateRenderer = caddyadapter.TemplateRenderer
type GateData = caddyadapter.GateData
type ErrorData = caddyadapter.ErrorData

var (
	NewTemplateRenderer        = caddyadapter.NewTemplateRenderer
	NewTemplateRendererWithDir = caddyadapter.NewTemplateRendererWithDir

	// NewAvatarProxyForTest creates an AvatarProxy with injected dependencies.
	// This constructor is intended for testing purposes only.
	NewAvatarProxyForTest = caddyadapter.NewAvatarProxyForTest
)
