package caddy

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// Default configuration values.
const (
	DefaultFetchTimeout   = "10s"
	DefaultMaxPageSize    = 8 * 1024 * 1024
	DefaultMaxImageSize   = 5 * 1024 * 1024
	DefaultCacheMissTTL   = "1m"
	DefaultCacheSize      = 10000
	DefaultGateCookieName = "gate_v1_ok"
	DefaultGateDuration   = "720h"
)

// Config holds the configuration for the avatar proxy plugin.
type Config struct {
	// ProfileBaseURL is the scheme and host profile pages are fetched from.
	// Defaults to "https://www.tiktok.com".
	ProfileBaseURL string `json:"profile_base_url,omitempty"`

	// UserAgent overrides the browser User-Agent sent upstream.
	UserAgent string `json:"user_agent,omitempty"`

	// AcceptLanguage overrides the Accept-Language header sent upstream.
	AcceptLanguage string `json:"accept_language,omitempty"`

	// FetchTimeout bounds each upstream request (e.g., "10s").
	// Defaults to "10s". "0" disables the client-side timeout.
	FetchTimeout string `json:"fetch_timeout,omitempty"`

	// MaxPageSize is how many bytes of a profile page are scanned.
	MaxPageSize int64 `json:"max_page_size,omitempty"`

	// MaxImageSize is the largest avatar image passed through, in bytes.
	MaxImageSize int64 `json:"max_image_size,omitempty"`

	// RulesFile is a JSON or YAML file with extra extraction rules.
	RulesFile string `json:"rules_file,omitempty"`

	// ReplaceDefaultRules uses only the rules from RulesFile.
	ReplaceDefaultRules bool `json:"replace_default_rules,omitempty"`

	// CacheTTL enables the resolution cache when set to a positive duration.
	// Empty disables it.
	CacheTTL string `json:"cache_ttl,omitempty"`

	// CacheMissTTL is how long a miss is remembered. Defaults to "1m".
	CacheMissTTL string `json:"cache_miss_ttl,omitempty"`

	// CacheSize bounds the number of cached handles. Defaults to 10000.
	CacheSize int `json:"cache_size,omitempty"`

	// CORSAllowedOrigins specifies which origins can access the JSON API.
	// Defaults to ["*"].
	CORSAllowedOrigins []string `json:"cors_allowed_origins,omitempty"`

	// MetricsEnabled enables Prometheus metrics exposition.
	// Metrics are exposed via Caddy's admin API /metrics endpoint.
	// Defaults to false.
	MetricsEnabled bool `json:"metrics_enabled,omitempty"`

	// GateHash is the hex SHA-256 of "username:password" that unlocks the gate.
	// Empty disables the gate.
	GateHash string `json:"gate_hash,omitempty"`

	// GateKeyFile is an RSA private key (PEM) used to sign gate cookies.
	// Without it, unlock tokens live in process memory.
	GateKeyFile string `json:"gate_key_file,omitempty"`

	// GateCookieName is the name of the gate cookie. Defaults to "gate_v1_ok".
	GateCookieName string `json:"gate_cookie_name,omitempty"`

	// GateDuration is how long an unlock lasts (e.g., "720h", "30d").
	GateDuration string `json:"gate_duration,omitempty"`

	// GateProtect redirects locked visitors to the gate page for every
	// request this handler passes through.
	GateProtect bool `json:"gate_protect,omitempty"`

	// TemplatesDir is the path to custom gate.html and error.html files.
	// If not set, embedded templates are used.
	TemplatesDir string `json:"templates_dir,omitempty"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ProfileBaseURL != "" {
		u, err := url.Parse(c.ProfileBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("profile_base_url %q must be an absolute http(s) URL", c.ProfileBaseURL)
		}
	}

	if c.MaxPageSize < 0 {
		return fmt.Errorf("max_page_size must not be negative")
	}
	if c.MaxImageSize < 0 {
		return fmt.Errorf("max_image_size must not be negative")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"fetch_timeout", c.FetchTimeout},
		{"cache_ttl", c.CacheTTL},
		{"cache_miss_ttl", c.CacheMissTTL},
		{"gate_duration", c.GateDuration},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	if c.ReplaceDefaultRules && c.RulesFile == "" {
		return fmt.Errorf("rules_file is required when replace_default_rules is set")
	}

	// Validate CORS config: wildcard cannot be combined with other origins
	if len(c.CORSAllowedOrigins) > 1 {
		for _, o := range c.CORSAllowedOrigins {
			if o == "*" {
				return fmt.Errorf("cors_allowed_origins: wildcard '*' cannot be combined with other origins")
			}
		}
	}

	if c.GateHash != "" {
		if err := domain.ValidateGateHash(c.GateHash); err != nil {
			return fmt.Errorf("gate_hash: %w", err)
		}
	}
	if c.GateProtect && c.GateHash == "" {
		return fmt.Errorf("gate_hash is required when gate_protect is enabled")
	}
	if c.GateKeyFile != "" && c.GateHash == "" {
		return fmt.Errorf("gate_hash is required when gate_key_file is set")
	}

	return nil
}

// SetDefaults applies default values to unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ProfileBaseURL == "" {
		c.ProfileBaseURL = domain.DefaultProfileBaseURL
	}
	if c.FetchTimeout == "" {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxPageSize == 0 {
		c.MaxPageSize = DefaultMaxPageSize
	}
	if c.MaxImageSize == 0 {
		c.MaxImageSize = DefaultMaxImageSize
	}
	if c.CacheMissTTL == "" {
		c.CacheMissTTL = DefaultCacheMissTTL
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	if c.GateCookieName == "" {
		c.GateCookieName = DefaultGateCookieName
	}
	if c.GateDuration == "" {
		c.GateDuration = DefaultGateDuration
	}
	c.GateHash = strings.ToLower(strings.TrimSpace(c.GateHash))
}

// GateEnabled reports whether a gate hash is configured.
func (c *Config) GateEnabled() bool {
	return c.GateHash != ""
}

// CacheEnabled reports whether the resolution cache is switched on.
func (c *Config) CacheEnabled() bool {
	if c.CacheTTL == "" {
		return false
	}
	ttl, err := ParseDuration(c.CacheTTL)
	return err == nil && ttl > 0
}

// ParseDuration parses a duration string with support for day units.
// Supports all time.ParseDuration formats plus "d" suffix for days.
func ParseDuration(s string) (time.Duration, error) {
	// Handle day suffix (not supported by time.ParseDuration)
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		var d int64
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, fmt.Errorf("invalid day format: %s", s)
		}
		// time.Duration overflows past ~106751 days
		if d < 0 || d > 106751 {
			return 0, fmt.Errorf("day value out of range: %s (max 106751 days)", s)
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
