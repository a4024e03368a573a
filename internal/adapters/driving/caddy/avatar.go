package caddy

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// AvatarResponse is the JSON body of /api/avatar/{username}.
// Avatar is null when no avatar could be resolved.
type AvatarResponse struct {
	Avatar *string `json:"avatar"`
}

// handleAvatar resolves /api/avatar/{username}. With ?raw=1 it streams the
// image bytes, falling back to the transparent placeholder. Resolution and
// fetch failures never produce an error status.
func (p *AvatarProxy) handleAvatar(w http.ResponseWriter, r *http.Request) error {
	handle := domain.NormalizeHandle(strings.TrimPrefix(r.URL.Path, avatarPathPrefix))
	if handle == "" {
		p.renderAppError(w, r, domain.BadRequestError("username required"))
		return nil
	}

	avatarURL, found := p.resolver.Resolve(r.Context(), handle)

	if isTruthy(r.URL.Query().Get("raw")) {
		p.serveAvatarBytes(w, r, avatarURL, found)
		return nil
	}

	resp := AvatarResponse{}
	cacheControl := domain.CacheControlPlaceholder
	if found {
		resp.Avatar = &avatarURL
		cacheControl = domain.CacheControlResolved
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", cacheControl)
	return json.NewEncoder(w).Encode(resp)
}

// serveAvatarBytes writes the fetched image or the placeholder.
func (p *AvatarProxy) serveAvatarBytes(w http.ResponseWriter, r *http.Request, avatarURL string, found bool) {
	if found {
		// The fetcher logs and counts its own failures
		img, err := p.fetcher.Fetch(r.Context(), avatarURL)
		if err == nil {
			writeImage(w, img, domain.CacheControlResolved)
			return
		}
	}

	p.getMetricsRecorder().RecordPlaceholderServed()
	writeImage(w, domain.PlaceholderImage(), domain.CacheControlPlaceholder)
}

func writeImage(w http.ResponseWriter, img *domain.AvatarImage, cacheControl string) {
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}
