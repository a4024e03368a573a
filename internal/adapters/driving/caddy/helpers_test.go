//go:build unit

package caddy

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/caddyserver/caddy/v2/modules/caddyhttp"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// stubResolver returns a fixed result and records the handles it saw.
type stubResolver struct {
	mu      sync.Mutex
	url     string
	found   bool
	handles []string
}

func (s *stubResolver) Resolve(ctx context.Context, handle string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles = append(s.handles, handle)
	return s.url, s.found
}

func (s *stubResolver) lastHandle() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.handles) == 0 {
		return ""
	}
	return s.handles[len(s.handles)-1]
}

// stubFetcher returns a fixed image or error.
type stubFetcher struct {
	img  *domain.AvatarImage
	err  error
	urls []string
}

func (s *stubFetcher) Fetch(ctx context.Context, imageURL string) (*domain.AvatarImage, error) {
	s.urls = append(s.urls, imageURL)
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

var errStubFetch = errors.New("stub fetch failed")

// countingMetrics records placeholder and unlock counts.
type countingMetrics struct {
	mu              sync.Mutex
	placeholders    int
	unlockSuccesses int
	unlockFailures  int
}

func (m *countingMetrics) RecordResolution(rule string, found bool) {}
func (m *countingMetrics) RecordImageFetch(success bool)            {}
func (m *countingMetrics) RecordCacheLookup(hit bool)               {}

func (m *countingMetrics) RecordPlaceholderServed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placeholders++
}

func (m *countingMetrics) RecordGateUnlock(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.unlockSuccesses++
	} else {
		m.unlockFailures++
	}
}

// nextHandler records whether the request was passed through.
type nextHandler struct {
	called bool
}

func (n *nextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	n.called = true
	w.WriteHeader(http.StatusTeapot)
	return nil
}

var _ caddyhttp.Handler = (*nextHandler)(nil)

// generateTestKey generates a test RSA key pair.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate test key: %v", err)
	}
	return key
}
