package caddy

import (
	"go.uber.org/zap"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// NewAvatarProxyForTest creates an AvatarProxy with injected dependencies.
// This constructor is intended for testing purposes only.
func NewAvatarProxyForTest(
	config Config,
	resolver ports.AvatarResolver,
	fetcher ports.ImageFetcher,
	gateTokens ports.GateTokenStore,
) *AvatarProxy {
	// Initialize template renderer with embedded templates
	renderer, err := NewTemplateRenderer()
	if err != nil {
		// This should never fail with embedded templates
		panic("failed to load embedded templates: " + err.Error())
	}

	config.SetDefaults()
	p := &AvatarProxy{
		Config: config,
		packs:  domain.DefaultPacks(),
		logger: zap.NewNop(),
	}
	p.SetResolver(resolver)
	p.SetImageFetcher(fetcher)
	p.SetGateTokenStore(gateTokens)
	p.SetTemplateRenderer(renderer)
	if d, err := ParseDuration(p.GateDuration); err == nil {
		p.SetGateDuration(d)
	}
	p.ruleNames = ruleNames(domain.DefaultExtractionRules())

	return p
}
