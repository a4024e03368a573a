package avatar

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// Browser-like request headers. The upstream serves a reduced or blocked page
// to clients without a credible user agent.
const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	DefaultAcceptLanguage = "es-ES,es;q=0.9,en;q=0.8"

	acceptHTML  = "text/html,application/xhtml+xml"
	acceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
)

const (
	defaultMaxPageSize  = 8 * 1024 * 1024 // 8MB
	defaultMaxImageSize = 5 * 1024 * 1024 // 5MB
	defaultFetchTimeout = 10 * time.Second
)

// Option is a functional option for configuring the resolver and fetcher.
type Option func(*options)

type options struct {
	httpClient      *http.Client
	profileBaseURL  string
	userAgent       string
	acceptLanguage  string
	rules           []domain.ExtractionRule
	maxPageSize     int64
	maxImageSize    int64
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

func newOptions(opts []Option) *options {
	o := &options{
		profileBaseURL: domain.DefaultProfileBaseURL,
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		rules:          domain.DefaultExtractionRules(),
		maxPageSize:    defaultMaxPageSize,
		maxImageSize:   defaultMaxImageSize,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = NewHTTPClient(defaultFetchTimeout)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

// NewHTTPClient returns a client that follows redirects and gives up after timeout.
// A zero timeout means no client-side limit.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// WithHTTPClient sets the client used for upstream requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithProfileBaseURL sets the scheme and host profile pages are fetched from.
func WithProfileBaseURL(baseURL string) Option {
	return func(o *options) {
		if baseURL != "" {
			o.profileBaseURL = baseURL
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(v string) Option {
	return func(o *options) {
		if v != "" {
			o.acceptLanguage = v
		}
	}
}

// WithRules replaces the extraction rule chain. Order is priority order.
func WithRules(rules []domain.ExtractionRule) Option {
	return func(o *options) {
		if len(rules) > 0 {
			o.rules = rules
		}
	}
}

// WithMaxPageSize bounds how much of a profile page is scanned.
func WithMaxPageSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.maxPageSize = size
		}
	}
}

// WithMaxImageSize sets the maximum image size in bytes.
func WithMaxImageSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.maxImageSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(recorder ports.MetricsRecorder) Option {
	return func(o *options) {
		o.metricsRecorder = recorder
	}
}
