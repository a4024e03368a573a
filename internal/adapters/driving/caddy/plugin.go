package caddy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"

	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/avatar"
	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/gate"
	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/metrics"
)

// Route paths served by the handler.
const (
	apiPrefix        = "/api/"
	avatarPathPrefix = "/api/avatar/"
	healthPath       = "/api/health"
	packsPath        = "/api/packs"
	quotePath        = "/api/quote"
	gateSessionPath  = "/api/gate/session"
	gateUnlockPath   = "/api/gate/unlock"
	gateLockPath     = "/api/gate/lock"
	gatePagePath     = "/gate"
)

// HealthResponse is the JSON response for /api/health
type HealthResponse struct {
	Version      string   `json:"version"`
	GitCommit    string   `json:"git_commit,omitempty"`
	BuildTime    string   `json:"build_time,omitempty"`
	Status       string   `json:"status"`
	CacheEnabled bool     `json:"cache_enabled"`
	GateEnabled  bool     `json:"gate_enabled"`
	Rules        []string `json:"rules"`
}

// AvatarProxy is a Caddy HTTP handler module that resolves profile avatars
// and serves the catalog and gate endpoints of the storefront simulator.
type AvatarProxy struct {
	// Configuration embedded directly
	Config

	// Runtime state (not serialized)
	resolver         ports.AvatarResolver
	fetcher          ports.ImageFetcher
	cache            *avatar.CachingAvatarResolver
	gateTokens       ports.GateTokenStore
	gateDuration     time.Duration
	packs            []domain.Pack
	ruleNames        []string
	templateRenderer *TemplateRenderer
	logger           *zap.Logger
	metricsRecorder  ports.MetricsRecorder
}

// CaddyModule returns the Caddy module information.
func (AvatarProxy) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.avatar_proxy",
		New: func() caddy.Module { return new(AvatarProxy) },
	}
}

// Provision sets up the module.
func (p *AvatarProxy) Provision(ctx caddy.Context) error {
	p.logger = ctx.Logger()
	return p.provision()
}

// provision builds the adapters from Config. The logger must already be set,
// or the no-op logger is used.
func (p *AvatarProxy) provision() error {
	p.logger = p.getLogger()
	p.logger.Debug("provisioning avatar proxy")

	p.Config.SetDefaults()
	p.initMetricsRecorder()

	timeout, err := ParseDuration(p.FetchTimeout)
	if err != nil {
		return fmt.Errorf("parse fetch timeout: %w", err)
	}

	rules := domain.DefaultExtractionRules()
	if p.RulesFile != "" {
		extra, err := avatar.LoadRulesFile(p.RulesFile)
		if err != nil {
			return fmt.Errorf("load rules file: %w", err)
		}
		rules = avatar.MergeRules(extra, p.ReplaceDefaultRules)
		p.logger.Info("extraction rules loaded",
			zap.String("file", p.RulesFile),
			zap.Int("extra_rules", len(extra)),
			zap.Bool("replace_defaults", p.ReplaceDefaultRules))
	}
	p.ruleNames = ruleNames(rules)

	avatarOpts := []avatar.Option{
		avatar.WithHTTPClient(avatar.NewHTTPClient(timeout)),
		avatar.WithProfileBaseURL(p.ProfileBaseURL),
		avatar.WithUserAgent(p.UserAgent),
		avatar.WithAcceptLanguage(p.AcceptLanguage),
		avatar.WithRules(rules),
		avatar.WithMaxPageSize(p.MaxPageSize),
		avatar.WithMaxImageSize(p.MaxImageSize),
		avatar.WithLogger(p.logger),
		avatar.WithMetricsRecorder(p.getMetricsRecorder()),
	}

	p.resolver = avatar.NewHTTPAvatarResolver(avatarOpts...)
	p.fetcher = avatar.NewHTTPImageFetcher(avatarOpts...)

	if p.CacheEnabled() {
		ttl, _ := ParseDuration(p.CacheTTL)
		missTTL, err := ParseDuration(p.CacheMissTTL)
		if err != nil {
			return fmt.Errorf("parse cache miss ttl: %w", err)
		}
		p.cache = avatar.NewCachingAvatarResolver(p.resolver, ttl,
			avatar.WithCacheSize(p.CacheSize),
			avatar.WithMissTTL(missTTL),
			avatar.WithCacheLogger(p.logger),
			avatar.WithCacheMetricsRecorder(p.getMetricsRecorder()))
		p.resolver = p.cache
		p.logger.Info("resolution cache enabled",
			zap.Duration("ttl", ttl),
			zap.Duration("miss_ttl", missTTL),
			zap.Int("size", p.CacheSize))
	}

	if p.GateEnabled() {
		if err := p.provisionGate(); err != nil {
			return err
		}
	}

	p.packs = domain.DefaultPacks()

	// Initialize template renderer
	if p.TemplatesDir != "" {
		renderer, err := NewTemplateRendererWithDir(p.TemplatesDir)
		if err != nil {
			return fmt.Errorf("load templates from %s: %w", p.TemplatesDir, err)
		}
		p.templateRenderer = renderer
	} else {
		renderer, err := NewTemplateRenderer()
		if err != nil {
			return fmt.Errorf("load embedded templates: %w", err)
		}
		p.templateRenderer = renderer
	}

	logFields := []zap.Field{
		zap.String("profile_base_url", p.ProfileBaseURL),
		zap.Strings("rules", p.ruleNames),
		zap.Bool("cache_enabled", p.cache != nil),
		zap.Bool("gate_enabled", p.GateEnabled()),
		zap.String("version", getVersion()),
	}
	if gitCommit := getGitCommit(); gitCommit != "" {
		logFields = append(logFields, zap.String("git_commit", gitCommit))
	}
	if buildTime := getBuildTime(); buildTime != "" {
		logFields = append(logFields, zap.String("build_time", buildTime))
	}
	p.logger.Info("avatar proxy provisioned", logFields...)

	return nil
}

// provisionGate sets up the token store that persists unlocks.
func (p *AvatarProxy) provisionGate() error {
	duration, err := ParseDuration(p.GateDuration)
	if err != nil {
		return fmt.Errorf("parse gate duration: %w", err)
	}
	p.gateDuration = duration

	if p.GateKeyFile != "" {
		privateKey, err := gate.LoadPrivateKey(p.GateKeyFile)
		if err != nil {
			return fmt.Errorf("load gate private key: %w", err)
		}
		p.gateTokens = gate.NewJWTGateTokenStore(privateKey, duration)
		p.logger.Info("gate enabled with signed cookies",
			zap.String("key_file", p.GateKeyFile),
			zap.Duration("duration", duration))
		return nil
	}

	p.gateTokens = gate.NewInMemoryGateTokenStore(duration)
	p.logger.Info("gate enabled with in-memory tokens",
		zap.Duration("duration", duration))
	return nil
}

// Validate ensures the module's configuration is valid.
func (p *AvatarProxy) Validate() error {
	return p.Config.Validate()
}

// Cleanup releases cached resolutions.
func (p *AvatarProxy) Cleanup() error {
	if p.cache != nil {
		p.cache.Purge()
	}
	return nil
}

// ServeHTTP implements caddyhttp.MiddlewareHandler.
func (p *AvatarProxy) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	// Handle CORS for API endpoints
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		p.applyCORSHeaders(w, r)

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
	}

	// Handle avatar endpoint (path prefix pattern)
	if strings.HasPrefix(r.URL.Path, avatarPathPrefix) && isReadMethod(r.Method) {
		return p.handleAvatar(w, r)
	}

	switch r.URL.Path {
	case healthPath:
		if isReadMethod(r.Method) {
			return p.handleHealth(w, r)
		}
	case packsPath:
		if isReadMethod(r.Method) {
			return p.handlePacks(w, r)
		}
	case quotePath:
		if isReadMethod(r.Method) {
			return p.handleQuote(w, r)
		}
	case gateSessionPath:
		if isReadMethod(r.Method) {
			return p.handleGateSession(w, r)
		}
	case gateUnlockPath:
		if r.Method == http.MethodPost {
			return p.handleGateUnlock(w, r)
		}
	case gateLockPath:
		if r.Method == http.MethodPost {
			return p.handleGateLock(w, r)
		}
	case gatePagePath:
		if isReadMethod(r.Method) {
			return p.handleGatePage(w, r)
		}
	}

	// Everything outside the API sits behind the gate when protection is on
	if p.GateProtect && p.GateEnabled() && !strings.HasPrefix(r.URL.Path, apiPrefix) {
		if !p.gateFor(w, r).IsUnlocked() {
			p.redirectToGate(w, r)
			return nil
		}
	}

	return next.ServeHTTP(w, r)
}

// handleHealth reports version and feature switches.
func (p *AvatarProxy) handleHealth(w http.ResponseWriter, r *http.Request) error {
	resp := HealthResponse{
		Version:      getVersion(),
		GitCommit:    getGitCommit(),
		BuildTime:    getBuildTime(),
		Status:       "ok",
		CacheEnabled: p.cache != nil,
		GateEnabled:  p.GateEnabled(),
		Rules:        p.ruleNames,
	}
	if resp.Rules == nil {
		resp.Rules = ruleNames(domain.DefaultExtractionRules())
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	return json.NewEncoder(w).Encode(resp)
}

func (p *AvatarProxy) getLogger() *zap.Logger {
	if p.logger != nil {
		return p.logger
	}
	return zap.NewNop()
}

func (p *AvatarProxy) getMetricsRecorder() ports.MetricsRecorder {
	if p.metricsRecorder != nil {
		return p.metricsRecorder
	}
	return metrics.NewNoopMetricsRecorder()
}

var (
	prometheusRecorderMu sync.Mutex
	prometheusRecorder   *metrics.PrometheusMetricsRecorder
)

// sharedPrometheusRecorder registers the collectors once per process.
// Config reloads provision fresh handler instances that must reuse them.
func sharedPrometheusRecorder() *metrics.PrometheusMetricsRecorder {
	prometheusRecorderMu.Lock()
	defer prometheusRecorderMu.Unlock()
	if prometheusRecorder == nil {
		prometheusRecorder = metrics.NewPrometheusMetricsRecorder()
	}
	return prometheusRecorder
}

func (p *AvatarProxy) initMetricsRecorder() {
	if p.metricsRecorder != nil {
		return
	}
	if p.MetricsEnabled {
		p.metricsRecorder = sharedPrometheusRecorder()
	} else {
		p.metricsRecorder = metrics.NewNoopMetricsRecorder()
	}
}

// renderAppError writes err as JSON for API paths and as an HTML page otherwise.
func (p *AvatarProxy) renderAppError(w http.ResponseWriter, r *http.Request, err *domain.AppError) {
	statusCode := err.Code.HTTPStatus()

	// API endpoints get JSON responses
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(domain.NewJSONErrorResponse(err))
		return
	}

	// Non-API endpoints get HTML
	p.renderHTTPError(w, statusCode, err.Code.PageTitle(), err.Message)
}

func (p *AvatarProxy) renderHTTPError(w http.ResponseWriter, statusCode int, title, message string) {
	// Fall back to plain text if template renderer is not configured
	if p.templateRenderer == nil {
		http.Error(w, message, statusCode)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	// RenderError uses html/template which auto-escapes to prevent XSS
	p.templateRenderer.RenderError(w, ErrorData{
		Title:   title,
		Message: message,
	})
}

// applyCORSHeaders sets the CORS response headers for API routes.
// A wildcard origin is sent on every response; an explicit list is
// matched against the request Origin.
func (p *AvatarProxy) applyCORSHeaders(w http.ResponseWriter, r *http.Request) bool {
	if len(p.CORSAllowedOrigins) == 0 {
		return false
	}

	responseOrigin := ""
	if len(p.CORSAllowedOrigins) == 1 && p.CORSAllowedOrigins[0] == "*" {
		responseOrigin = "*"
	} else {
		w.Header().Add("Vary", "Origin")
		origin := r.Header.Get("Origin")
		for _, o := range p.CORSAllowedOrigins {
			if origin != "" && o == origin {
				responseOrigin = origin
				break
			}
		}
	}

	if responseOrigin == "" {
		return false
	}

	w.Header().Set("Access-Control-Allow-Origin", responseOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	return true
}

// SetResolver sets the avatar resolver. For testing purposes.
func (p *AvatarProxy) SetResolver(resolver ports.AvatarResolver) {
	p.resolver = resolver
}

// SetImageFetcher sets the image fetcher. For testing purposes.
func (p *AvatarProxy) SetImageFetcher(fetcher ports.ImageFetcher) {
	p.fetcher = fetcher
}

// SetGateTokenStore sets the gate token store. For testing purposes.
func (p *AvatarProxy) SetGateTokenStore(store ports.GateTokenStore) {
	p.gateTokens = store
}

// SetGateDuration sets the cookie lifetime. For testing purposes.
func (p *AvatarProxy) SetGateDuration(d time.Duration) {
	p.gateDuration = d
}

// SetTemplateRenderer sets the template renderer. For testing purposes.
func (p *AvatarProxy) SetTemplateRenderer(renderer *TemplateRenderer) {
	p.templateRenderer = renderer
}

// SetMetricsRecorder sets the metrics recorder. For testing purposes.
func (p *AvatarProxy) SetMetricsRecorder(recorder ports.MetricsRecorder) {
	p.metricsRecorder = recorder
}

// SetLogger sets the logger. For testing purposes.
func (p *AvatarProxy) SetLogger(logger *zap.Logger) {
	p.logger = logger
}

func ruleNames(rules []domain.ExtractionRule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Name
	}
	return names
}

func isReadMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// isTruthy accepts "1" and "true" (any case) as on.
func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

// Version getters - these are set via ldflags in the root package
// We access them via a function pointer to avoid import cycles
var (
	getVersion   = func() string { return "dev" }
	getGitCommit = func() string { return "" }
	getBuildTime = func() string { return "" }
)

// SetVersionGetters sets the version getter functions.
// Called from root package init to inject version info.
func SetVersionGetters(version, gitCommit, buildTime func() string) {
	getVersion = version
	getGitCommit = gitCommit
	getBuildTime = buildTime
}

// Interface guards
var (
	_ caddy.Provisioner           = (*AvatarProxy)(nil)
	_ caddy.Validator             = (*AvatarProxy)(nil)
	_ caddy.CleanerUpper          = (*AvatarProxy)(nil)
	_ caddyhttp.MiddlewareHandler = (*AvatarProxy)(nil)
)
