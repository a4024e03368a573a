package avatar

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

const (
	defaultCacheSize    = 10000
	defaultCacheMissTTL = time.Minute
)

// CachingAvatarResolver remembers resolutions for a bounded time.
// Concurrent lookups of the same handle share one upstream request.
type CachingAvatarResolver struct {
	next            ports.AvatarResolver
	hits            *expirable.LRU[string, string]
	misses          *expirable.LRU[string, struct{}]
	group           singleflight.Group
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// CacheOption configures a CachingAvatarResolver.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	size            int
	missTTL         time.Duration
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// WithCacheSize bounds the number of cached hits (and, separately, misses).
func WithCacheSize(size int) CacheOption {
	return func(o *cacheOptions) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithMissTTL sets how long a miss is remembered.
func WithMissTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		if ttl > 0 {
			o.missTTL = ttl
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = logger
	}
}

// WithCacheMetricsRecorder sets the metrics recorder.
func WithCacheMetricsRecorder(recorder ports.MetricsRecorder) CacheOption {
	return func(o *cacheOptions) {
		o.metricsRecorder = recorder
	}
}

// NewCachingAvatarResolver wraps next. Hits live for ttl.
func NewCachingAvatarResolver(next ports.AvatarResolver, ttl time.Duration, opts ...CacheOption) *CachingAvatarResolver {
	o := &cacheOptions{
		size:    defaultCacheSize,
		missTTL: defaultCacheMissTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	return &CachingAvatarResolver{
		next:            next,
		hits:            expirable.NewLRU[string, string](o.size, nil, ttl),
		misses:          expirable.NewLRU[string, struct{}](o.size, nil, o.missTTL),
		logger:          o.logger,
		metricsRecorder: o.metricsRecorder,
	}
}

type resolution struct {
	url   string
	found bool
}

// Resolve returns a cached result or asks the wrapped resolver.
func (c *CachingAvatarResolver) Resolve(ctx context.Context, handle string) (string, bool) {
	if u, ok := c.hits.Get(handle); ok {
		c.recordLookup(true)
		return u, true
	}
	if _, ok := c.misses.Get(handle); ok {
		c.recordLookup(true)
		return "", false
	}
	c.recordLookup(false)

	// The shared call must outlive any single caller's cancellation,
	// otherwise one disconnecting client turns into a cached miss for all.
	v, _, shared := c.group.Do(handle, func() (interface{}, error) {
		u, found := c.next.Resolve(context.WithoutCancel(ctx), handle)
		if found {
			c.hits.Add(handle, u)
		} else {
			c.misses.Add(handle, struct{}{})
		}
		return resolution{url: u, found: found}, nil
	})
	if shared {
		c.logger.Debug("coalesced avatar resolution", zap.String("handle", handle))
	}

	res := v.(resolution)
	return res.url, res.found
}

// Purge drops every cached entry.
func (c *CachingAvatarResolver) Purge() {
	c.hits.Purge()
	c.misses.Purge()
}

// Len returns the number of cached hits and misses.
func (c *CachingAvatarResolver) Len() int {
	return c.hits.Len() + c.misses.Len()
}

func (c *CachingAvatarResolver) recordLookup(hit bool) {
	if c.metricsRecorder != nil {
		c.metricsRecorder.RecordCacheLookup(hit)
	}
}

// Ensure CachingAvatarResolver implements ports.AvatarResolver
var _ ports.AvatarResolver = (*CachingAvatarResolver)(nil)
