package caddy

import (
	"strconv"
	"strings"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

// ParseCaddyfile sets up the handler from Caddyfile tokens.
//
// Syntax:
//
//	avatar_proxy {
//	    profile_base_url <url>
//	    user_agent <string>
//	    accept_language <string>
//	    fetch_timeout <duration>
//	    max_page_size <bytes>
//	    max_image_size <bytes>
//	    rules_file <path>
//	    replace_default_rules
//	    cache_ttl <duration>
//	    cache_miss_ttl <duration>
//	    cache_size <n>
//	    cors_origins <origin...>
//	    metrics enabled|off
//	    templates_dir <path>
//	    gate {
//	        hash <sha256 hex>
//	        key_file <path>
//	        cookie_name <name>
//	        duration <duration>
//	        protect
//	    }
//	}
func ParseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var p AvatarProxy
	err := p.UnmarshalCaddyfile(h.Dispenser)
	return &p, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
func (p *AvatarProxy) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // consume directive name

	for d.NextBlock(0) {
		switch d.Val() {
		case "profile_base_url":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.ProfileBaseURL = d.Val()

		case "user_agent":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.UserAgent = d.Val()

		case "accept_language":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.AcceptLanguage = d.Val()

		case "fetch_timeout":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.FetchTimeout = d.Val()

		case "max_page_size":
			n, err := parseSizeArg(d, "max_page_size")
			if err != nil {
				return err
			}
			p.MaxPageSize = n

		case "max_image_size":
			n, err := parseSizeArg(d, "max_image_size")
			if err != nil {
				return err
			}
			p.MaxImageSize = n

		case "rules_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.RulesFile = d.Val()

		case "replace_default_rules":
			p.ReplaceDefaultRules = true

		case "cache_ttl":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.CacheTTL = d.Val()

		case "cache_miss_ttl":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.CacheMissTTL = d.Val()

		case "cache_size":
			if !d.NextArg() {
				return d.ArgErr()
			}
			n, err := strconv.Atoi(d.Val())
			if err != nil || n < 0 {
				return d.Errf("cache_size must be a non-negative integer, got %q", d.Val())
			}
			p.CacheSize = n

		case "cors_origins":
			p.CORSAllowedOrigins = d.RemainingArgs()
			if len(p.CORSAllowedOrigins) == 0 {
				return d.ArgErr()
			}

		case "metrics":
			if !d.NextArg() {
				return d.ArgErr()
			}
			switch d.Val() {
			case "enabled", "on":
				p.MetricsEnabled = true
			case "disabled", "off":
				p.MetricsEnabled = false
			default:
				return d.Errf("metrics must be 'enabled' or 'off', got %q", d.Val())
			}

		case "templates_dir":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.TemplatesDir = d.Val()

		case "gate":
			if err := p.parseGateBlock(d); err != nil {
				return err
			}

		default:
			return d.Errf("unrecognized subdirective: %s", d.Val())
		}
	}

	p.Config.SetDefaults()
	return nil
}

// parseGateBlock parses the nested gate { ... } block.
func (p *AvatarProxy) parseGateBlock(d *caddyfile.Dispenser) error {
	if d.NextArg() {
		return d.ArgErr()
	}
	for nesting := d.Nesting(); d.NextBlock(nesting); {
		switch d.Val() {
		case "hash":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.GateHash = d.Val()

		case "key_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.GateKeyFile = d.Val()

		case "cookie_name":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.GateCookieName = d.Val()

		case "duration":
			if !d.NextArg() {
				return d.ArgErr()
			}
			p.GateDuration = d.Val()

		case "protect":
			p.GateProtect = true

		default:
			return d.Errf("unrecognized gate subdirective: %s", d.Val())
		}
	}
	return nil
}

// parseSizeArg reads a byte count with an optional KB or MB suffix.
func parseSizeArg(d *caddyfile.Dispenser, name string) (int64, error) {
	if !d.NextArg() {
		return 0, d.ArgErr()
	}
	raw := strings.ToUpper(d.Val())
	mult := int64(1)
	switch {
	case strings.HasSuffix(raw, "MB"):
		mult = 1024 * 1024
		raw = strings.TrimSuffix(raw, "MB")
	case strings.HasSuffix(raw, "KB"):
		mult = 1024
		raw = strings.TrimSuffix(raw, "KB")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, d.Errf("%s must be a positive size, got %q", name, d.Val())
	}
	return n * mult, nil
}
