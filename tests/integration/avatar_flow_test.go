//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	caddyavatarproxy "github.com/philiph/caddy-avatar-proxy"
)

type notFoundNext struct{}

func (notFoundNext) ServeHTTP(w http.ResponseWriter, r *http.Request) error {
	http.NotFound(w, r)
	return nil
}

// fakeProfileHost serves profile pages and avatar images.
func fakeProfileHost(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/@large":
			fmt.Fprintf(w, `{"avatarThumb":"%[1]s/img/thumb.jpg","avatarLarger":"%[1]s/img/large.jpg?y=2%[2]sx=1"}`,
				srv.URL, caddyavatarproxy.EscapedAmpersand)
		case "/@broken":
			fmt.Fprintf(w, `{"avatarLarger":"%s/img/missing.jpg"}`, srv.URL)
		case "/@nobody":
			io.WriteString(w, "<html>private account</html>")
		case "/img/large.jpg":
			if q := r.URL.Query(); q.Get("y") != "2" || q.Get("x") != "1" {
				http.Error(w, "bad query", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte("jpeg-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newProxyServer serves the handler in front of the fake profile host.
func newProxyServer(t *testing.T, upstream string, config caddyavatarproxy.Config, gateTokens caddyavatarproxy.GateTokenStore) *httptest.Server {
	t.Helper()
	config.ProfileBaseURL = upstream
	proxy := caddyavatarproxy.NewAvatarProxyForTest(
		config,
		caddyavatarproxy.NewHTTPAvatarResolver(caddyavatarproxy.WithProfileBaseURL(upstream)),
		caddyavatarproxy.NewHTTPImageFetcher(),
		gateTokens,
	)
	return newHandlerServer(t, proxy)
}

func newHandlerServer(t *testing.T, proxy *caddyavatarproxy.AvatarProxy) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := proxy.ServeHTTP(w, r, notFoundNext{}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func getAvatar(t *testing.T, base, handle string) caddyavatarproxy.AvatarResponse {
	t.Helper()
	resp, err := http.Get(base + "/api/avatar/" + handle)
	if err != nil {
		t.Fatalf("GET avatar: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	var body caddyavatarproxy.AvatarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestAvatarFlow_JSON(t *testing.T) {
	upstream := fakeProfileHost(t)
	proxy := newProxyServer(t, upstream.URL, caddyavatarproxy.Config{}, nil)

	body := getAvatar(t, proxy.URL, "@large")
	want := upstream.URL + "/img/large.jpg?y=2&x=1"
	if body.Avatar == nil || *body.Avatar != want {
		t.Errorf("avatar = %v, want %q", body.Avatar, want)
	}

	if body := getAvatar(t, proxy.URL, "nobody"); body.Avatar != nil {
		t.Errorf("avatar = %q, want null", *body.Avatar)
	}
}

func TestAvatarFlow_RawRoundTrip(t *testing.T) {
	upstream := fakeProfileHost(t)
	proxy := newProxyServer(t, upstream.URL, caddyavatarproxy.Config{}, nil)

	resp, err := http.Get(proxy.URL + "/api/avatar/large?raw=1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") || len(data) == 0 {
		t.Errorf("got %q with %d bytes, want non-empty image", resp.Header.Get("Content-Type"), len(data))
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("body = %q", data)
	}
	if resp.Header.Get("Cache-Control") != caddyavatarproxy.CacheControlResolved {
		t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
	}
}

func TestAvatarFlow_PlaceholderFallbacks(t *testing.T) {
	upstream := fakeProfileHost(t)
	proxy := newProxyServer(t, upstream.URL, caddyavatarproxy.Config{}, nil)

	for _, handle := range []string{"nobody", "broken"} {
		t.Run(handle, func(t *testing.T) {
			resp, err := http.Get(proxy.URL + "/api/avatar/" + handle + "?raw=1")
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			data, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			if resp.Header.Get("Content-Type") != "image/png" {
				t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
			}
			if !bytes.Equal(data, caddyavatarproxy.TransparentPixelPNG()) {
				t.Error("expected the placeholder bytes")
			}
			if resp.Header.Get("Cache-Control") != caddyavatarproxy.CacheControlPlaceholder {
				t.Errorf("Cache-Control = %q", resp.Header.Get("Cache-Control"))
			}
		})
	}
}

func TestAvatarFlow_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	base := upstream.URL
	upstream.Close()

	proxy := newProxyServer(t, base, caddyavatarproxy.Config{}, nil)
	if body := getAvatar(t, proxy.URL, "example"); body.Avatar != nil {
		t.Errorf("avatar = %q, want null", *body.Avatar)
	}
}

func TestAvatarFlow_EmptyHandle(t *testing.T) {
	upstream := fakeProfileHost(t)
	proxy := newProxyServer(t, upstream.URL, caddyavatarproxy.Config{}, nil)

	resp, err := http.Get(proxy.URL + "/api/avatar/%40")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body caddyavatarproxy.JSONErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != caddyavatarproxy.ErrCodeBadRequest {
		t.Errorf("code = %q", body.Error.Code)
	}
}
