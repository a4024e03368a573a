package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// HTTPAvatarResolver scrapes the public profile page for an avatar URL.
// It keeps no state between calls and never retries.
type HTTPAvatarResolver struct {
	httpClient      *http.Client
	baseURL         string
	userAgent       string
	acceptLanguage  string
	rules           []domain.ExtractionRule
	maxPageSize     int64
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// NewHTTPAvatarResolver creates a resolver.
func NewHTTPAvatarResolver(opts ...Option) *HTTPAvatarResolver {
	o := newOptions(opts)
	return &HTTPAvatarResolver{
		httpClient:      o.httpClient,
		baseURL:         o.profileBaseURL,
		userAgent:       o.userAgent,
		acceptLanguage:  o.acceptLanguage,
		rules:           o.rules,
		maxPageSize:     o.maxPageSize,
		logger:          o.logger,
		metricsRecorder: o.metricsRecorder,
	}
}

// Resolve fetches the profile page for handle and applies the extraction rules.
// Transport failures are logged and reported as a miss.
func (r *HTTPAvatarResolver) Resolve(ctx context.Context, handle string) (string, bool) {
	page, err := r.fetchProfile(ctx, handle)
	if err != nil {
		r.logger.Warn("profile fetch failed",
			zap.String("handle", handle),
			zap.Error(err))
		r.record("", false)
		return "", false
	}

	avatarURL, rule, ok := domain.ExtractAvatarURL(page, r.rules)
	if !ok {
		r.logger.Debug("no avatar found in profile page",
			zap.String("handle", handle),
			zap.Int("page_bytes", len(page)))
		r.record("", false)
		return "", false
	}

	r.logger.Debug("avatar resolved",
		zap.String("handle", handle),
		zap.String("rule", rule))
	r.record(rule, true)
	return avatarURL, true
}

// Rules returns the extraction rules in priority order.
func (r *HTTPAvatarResolver) Rules() []domain.ExtractionRule {
	out := make([]domain.ExtractionRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// fetchProfile returns up to maxPageSize bytes of the profile page. The status
// code is not checked: error pages simply fail to match any rule.
func (r *HTTPAvatarResolver) fetchProfile(ctx context.Context, handle string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, domain.ProfileURL(r.baseURL, handle), nil)
	if err != nil {
		return "", fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", r.acceptLanguage)
	req.Header.Set("Referer", domain.ProfileReferer(r.baseURL))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get profile page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxPageSize))
	if err != nil {
		return "", fmt.Errorf("read profile page: %w", err)
	}
	return string(body), nil
}

func (r *HTTPAvatarResolver) record(rule string, found bool) {
	if r.metricsRecorder != nil {
		r.metricsRecorder.RecordResolution(rule, found)
	}
}

// Ensure HTTPAvatarResolver implements ports.AvatarResolver
var _ ports.AvatarResolver = (*HTTPAvatarResolver)(nil)
