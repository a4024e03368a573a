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

// ErrImageFetchFailed is returned when fetching an avatar image fails.
var ErrImageFetchFailed = fmt.Errorf("image fetch failed")

// ErrInvalidContentType is returned when the upstream declares a non-image type.
var ErrInvalidContentType = fmt.Errorf("invalid content type")

// HTTPImageFetcher downloads avatar images with browser-like headers.
type HTTPImageFetcher struct {
	httpClient      *http.Client
	userAgent       string
	acceptLanguage  string
	referer         string
	maxSize         int64
	logger          *zap.Logger
	metricsRecorder ports.MetricsRecorder
}

// NewHTTPImageFetcher creates an image fetcher.
func NewHTTPImageFetcher(opts ...Option) *HTTPImageFetcher {
	o := newOptions(opts)
	return &HTTPImageFetcher{
		httpClient:      o.httpClient,
		userAgent:       o.userAgent,
		acceptLanguage:  o.acceptLanguage,
		referer:         domain.ProfileReferer(o.profileBaseURL),
		maxSize:         o.maxImageSize,
		logger:          o.logger,
		metricsRecorder: o.metricsRecorder,
	}
}

// Fetch downloads imageURL following redirects.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (*domain.AvatarImage, error) {
	img, err := f.fetch(ctx, imageURL)
	if f.metricsRecorder != nil {
		f.metricsRecorder.RecordImageFetch(err == nil)
	}
	if err != nil {
		f.logger.Warn("avatar image fetch failed",
			zap.String("url", imageURL),
			zap.Error(err))
		return nil, err
	}
	return img, nil
}

func (f *HTTPImageFetcher) fetch(ctx context.Context, imageURL string) (*domain.AvatarImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrImageFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptImage)
	req.Header.Set("Accept-Language", f.acceptLanguage)
	req.Header.Set("Referer", f.referer)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrImageFetchFailed, resp.StatusCode)
	}

	contentType := domain.MediaType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = domain.DefaultImageContentType
	}
	if !domain.IsImageMediaType(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	// Limit read size
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrImageFetchFailed, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: image exceeds max size %d bytes", ErrImageFetchFailed, f.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrImageFetchFailed)
	}

	return &domain.AvatarImage{Data: data, ContentType: contentType}, nil
}

// Ensure HTTPImageFetcher implements ports.ImageFetcher
var _ ports.ImageFetcher = (*HTTPImageFetcher)(nil)
