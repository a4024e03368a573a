package caddy

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// maxCredentialsBody bounds unlock request bodies.
const maxCredentialsBody = 64 * 1024

// GateSessionResponse is the JSON body of /api/gate/session.
type GateSessionResponse struct {
	Enabled  bool `json:"enabled"`
	Unlocked bool `json:"unlocked"`
}

// gateCredentials is the unlock request, as a form or as JSON.
type gateCredentials struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	ReturnURL string `json:"return_url"`
}

// cookieGateState is the GateState of one visitor, backed by the gate cookie.
type cookieGateState struct {
	proxy   *AvatarProxy
	w       http.ResponseWriter
	r       *http.Request
	subject string
}

// gateFor binds a GateState to the request and response.
func (p *AvatarProxy) gateFor(w http.ResponseWriter, r *http.Request) *cookieGateState {
	return &cookieGateState{proxy: p, w: w, r: r}
}

// IsUnlocked reports whether the request carries a valid gate cookie.
// A disabled gate is always open.
func (g *cookieGateState) IsUnlocked() bool {
	p := g.proxy
	if !p.GateEnabled() {
		return true
	}
	if p.gateTokens == nil {
		return false
	}
	cookie, err := g.r.Cookie(p.GateCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	_, err = p.gateTokens.Verify(cookie.Value)
	return err == nil
}

// Unlock issues a token and sets the gate cookie.
func (g *cookieGateState) Unlock() error {
	p := g.proxy
	if p.gateTokens == nil {
		return errors.New("gate token store not configured")
	}
	token, err := p.gateTokens.Issue(&domain.GateSession{Subject: g.subject})
	if err != nil {
		return err
	}
	http.SetCookie(g.w, &http.Cookie{
		Name:     p.GateCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(p.gateDuration.Seconds()),
	})
	return nil
}

// Lock revokes the current token, if any, and clears the cookie.
func (g *cookieGateState) Lock() error {
	p := g.proxy
	if cookie, err := g.r.Cookie(p.GateCookieName); err == nil && cookie.Value != "" && p.gateTokens != nil {
		if err := p.gateTokens.Revoke(cookie.Value); err != nil {
			return err
		}
	}
	http.SetCookie(g.w, &http.Cookie{
		Name:     p.GateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   g.r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	})
	return nil
}

// handleGateSession reports whether the visitor is past the gate.
func (p *AvatarProxy) handleGateSession(w http.ResponseWriter, r *http.Request) error {
	resp := GateSessionResponse{
		Enabled:  p.GateEnabled(),
		Unlocked: p.gateFor(w, r).IsUnlocked(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	return json.NewEncoder(w).Encode(resp)
}

// handleGateUnlock checks credentials and sets the gate cookie.
// JSON callers get 204 or a JSON error; form posts from the gate page are
// redirected to their return URL or shown the page again.
func (p *AvatarProxy) handleGateUnlock(w http.ResponseWriter, r *http.Request) error {
	if !p.GateEnabled() {
		p.renderAppError(w, r, domain.NotFoundError("gate"))
		return nil
	}

	isForm := !isJSONRequest(r)
	creds, err := readCredentials(w, r)
	if err != nil {
		p.renderAppError(w, r, domain.BadRequestError("invalid unlock request"))
		return nil
	}

	username := strings.TrimSpace(creds.Username)
	if !domain.CredentialsMatch(p.GateHash, creds.Username, creds.Password) {
		p.getMetricsRecorder().RecordGateUnlock(false)
		p.getLogger().Info("gate unlock rejected",
			zap.String("username", username),
			zap.String("remote_addr", r.RemoteAddr))
		if isForm && p.templateRenderer != nil {
			p.renderGatePage(w, http.StatusUnauthorized, GateData{
				ReturnURL: ValidateReturnURL(creds.ReturnURL),
				Error:     "Incorrect username or password.",
			})
			return nil
		}
		p.renderAppError(w, r, domain.GateLockedError("invalid credentials", nil))
		return nil
	}

	state := p.gateFor(w, r)
	state.subject = username
	if err := state.Unlock(); err != nil {
		p.getLogger().Error("gate unlock failed", zap.Error(err))
		p.renderAppError(w, r, domain.ServiceError("could not unlock gate"))
		return nil
	}
	p.getMetricsRecorder().RecordGateUnlock(true)
	p.getLogger().Info("gate unlocked", zap.String("username", username))

	if isForm && creds.ReturnURL != "" {
		http.Redirect(w, r, ValidateReturnURL(creds.ReturnURL), http.StatusSeeOther)
		return nil
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleGateLock clears the gate cookie.
func (p *AvatarProxy) handleGateLock(w http.ResponseWriter, r *http.Request) error {
	if err := p.gateFor(w, r).Lock(); err != nil {
		p.getLogger().Warn("gate lock failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// handleGatePage renders the gate form, or redirects visitors already past it.
func (p *AvatarProxy) handleGatePage(w http.ResponseWriter, r *http.Request) error {
	if !p.GateEnabled() {
		p.renderAppError(w, r, domain.NotFoundError("gate"))
		return nil
	}

	returnURL := ValidateReturnURL(r.URL.Query().Get("return_url"))
	if p.gateFor(w, r).IsUnlocked() {
		http.Redirect(w, r, returnURL, http.StatusFound)
		return nil
	}

	p.renderGatePage(w, http.StatusOK, GateData{ReturnURL: returnURL})
	return nil
}

func (p *AvatarProxy) renderGatePage(w http.ResponseWriter, status int, data GateData) {
	if p.templateRenderer == nil {
		http.Error(w, "gate page unavailable", http.StatusInternalServerError)
		return
	}
	data.UnlockURL = gateUnlockPath
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := p.templateRenderer.RenderGate(w, data); err != nil {
		p.getLogger().Error("render gate page", zap.Error(err))
	}
}

// redirectToGate sends a locked visitor to the gate page.
func (p *AvatarProxy) redirectToGate(w http.ResponseWriter, r *http.Request) {
	target := gatePagePath + "?return_url=" + url.QueryEscape(ValidateReturnURL(r.URL.RequestURI()))
	http.Redirect(w, r, target, http.StatusFound)
}

// readCredentials decodes a JSON or form body.
func readCredentials(w http.ResponseWriter, r *http.Request) (*gateCredentials, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCredentialsBody)

	var creds gateCredentials
	if isJSONRequest(r) {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			return nil, err
		}
		return &creds, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	creds.Username = r.PostForm.Get("username")
	creds.Password = r.PostForm.Get("password")
	creds.ReturnURL = r.PostForm.Get("return_url")
	return &creds, nil
}

func isJSONRequest(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// ValidateReturnURL validates a post-unlock redirect target.
// Only same-origin relative paths are allowed; anything else becomes "/".
func ValidateReturnURL(returnURL string) string {
	returnURL = strings.TrimSpace(returnURL)
	if returnURL == "" {
		return "/"
	}

	// Must start with single forward slash (relative path)
	// Reject protocol-relative URLs (//evil.com) and backslash tricks
	if !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") || strings.HasPrefix(returnURL, "/\\") {
		return "/"
	}

	// Reject paths with newlines (header injection)
	if strings.ContainsAny(returnURL, "\r\n") {
		return "/"
	}

	parsed, err := url.Parse(returnURL)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "/"
	}

	// Decode and re-check for protocol-relative URLs
	decoded, err := url.QueryUnescape(returnURL)
	if err != nil {
		return "/"
	}
	if strings.HasPrefix(decoded, "//") || strings.HasPrefix(decoded, "/\\") {
		return "/"
	}

	// Never bounce back to the gate itself
	if parsed.Path == gatePagePath {
		return "/"
	}

	return returnURL
}

// Ensure cookieGateState implements ports.GateState
var _ ports.GateState = (*cookieGateState)(nil)
