//go:build unit

package caddy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/gate"
	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

func newGatedProxy(t *testing.T, protect bool) *AvatarProxy {
	t.Helper()
	cfg := Config{
		GateHash:    domain.HashCredentials("admin", "secret"),
		GateProtect: protect,
	}
	return NewAvatarProxyForTest(cfg, &stubResolver{}, &stubFetcher{}, gate.NewInMemoryGateTokenStore(time.Hour))
}

func postJSON(t *testing.T, p *AvatarProxy, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	if err := p.ServeHTTP(rec, req, &nextHandler{}); err != nil {
		t.Fatalf("ServeHTTP() error: %v", err)
	}
	return rec
}

func gateCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func sessionState(t *testing.T, p *AvatarProxy, cookies ...*http.Cookie) GateSessionResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/gate/session", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req, &nextHandler{})

	var resp GateSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

// TestGate_Disabled verifies a proxy without a gate hash is always open.
func TestGate_Disabled(t *testing.T) {
	p := NewAvatarProxyForTest(Config{}, &stubResolver{}, &stubFetcher{}, nil)

	state := sessionState(t, p)
	if state.Enabled || !state.Unlocked {
		t.Errorf("session = %+v, want disabled and unlocked", state)
	}

	rec := postJSON(t, p, "/api/gate/unlock", `{"username":"admin","password":"secret"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unlock status = %d, want 404", rec.Code)
	}
}

// TestGate_UnlockLockCycle verifies unlock sets the cookie and lock clears it.
func TestGate_UnlockLockCycle(t *testing.T) {
	p := newGatedProxy(t, false)
	metrics := &countingMetrics{}
	p.SetMetricsRecorder(metrics)

	if state := sessionState(t, p); !state.Enabled || state.Unlocked {
		t.Fatalf("initial session = %+v, want enabled and locked", state)
	}

	rec := postJSON(t, p, "/api/gate/unlock", `{"username":"  admin ","password":"secret"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unlock status = %d, want 204; body %s", rec.Code, rec.Body.String())
	}
	cookie := gateCookie(t, rec, DefaultGateCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("unlock did not set the gate cookie")
	}
	if !cookie.HttpOnly {
		t.Error("gate cookie should be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.MaxAge != int((720 * time.Hour).Seconds()) {
		t.Errorf("MaxAge = %d, want %d", cookie.MaxAge, int((720 * time.Hour).Seconds()))
	}
	if metrics.unlockSuccesses != 1 {
		t.Errorf("unlock successes = %d, want 1", metrics.unlockSuccesses)
	}

	if state := sessionState(t, p, cookie); !state.Unlocked {
		t.Error("session with cookie should be unlocked")
	}

	rec = postJSON(t, p, "/api/gate/lock", "", cookie)
	if rec.Code != http.StatusNoContent {
		t.Errorf("lock status = %d, want 204", rec.Code)
	}
	cleared := gateCookie(t, rec, DefaultGateCookieName)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Errorf("lock should expire the cookie, got %+v", cleared)
	}

	// The in-memory token is revoked, so replaying the old cookie fails
	if state := sessionState(t, p, cookie); state.Unlocked {
		t.Error("revoked cookie should not unlock")
	}
}

// TestGate_WrongCredentials verifies rejected unlocks are 401 and logged.
func TestGate_WrongCredentials(t *testing.T) {
	p := newGatedProxy(t, false)
	core, logs := observer.New(zap.InfoLevel)
	p.SetLogger(zap.New(core))
	metrics := &countingMetrics{}
	p.SetMetricsRecorder(metrics)

	rec := postJSON(t, p, "/api/gate/unlock", `{"username":"admin","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if gateCookie(t, rec, DefaultGateCookieName) != nil {
		t.Error("rejected unlock should not set a cookie")
	}

	var body domain.JSONErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "gate_locked" {
		t.Errorf("code = %q, want gate_locked", body.Error.Code)
	}

	entries := logs.FilterMessage("gate unlock rejected").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 rejection log, got %d", len(entries))
	}
	if entries[0].ContextMap()["username"] != "admin" {
		t.Errorf("logged username = %v", entries[0].ContextMap()["username"])
	}
	for _, f := range entries[0].Context {
		if f.Key == "password" {
			t.Error("password must not be logged")
		}
	}
	if metrics.unlockFailures != 1 {
		t.Errorf("unlock failures = %d, want 1", metrics.unlockFailures)
	}
}

// TestGate_MalformedJSON verifies a broken body is a 400.
func TestGate_MalformedJSON(t *testing.T) {
	p := newGatedProxy(t, false)
	rec := postJSON(t, p, "/api/gate/unlock", `{"username":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestGate_FormUnlockRedirects verifies the gate page form flow.
func TestGate_FormUnlockRedirects(t *testing.T) {
	p := newGatedProxy(t, true)

	form := url.Values{
		"username":   {"admin"},
		"password":   {"secret"},
		"return_url": {"/trainer?step=2"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/gate/unlock", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req, &nextHandler{})

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/trainer?step=2" {
		t.Errorf("Location = %q, want /trainer?step=2", loc)
	}
	if gateCookie(t, rec, DefaultGateCookieName) == nil {
		t.Error("form unlock should set the gate cookie")
	}
}

// TestGate_FormUnlockFailureRendersPage verifies a wrong password re-renders the form.
func TestGate_FormUnlockFailureRendersPage(t *testing.T) {
	p := newGatedProxy(t, true)

	form := url.Values{"username": {"admin"}, "password": {"nope"}, "return_url": {"https://evil.example"}}
	req := httptest.NewRequest(http.MethodPost, "/api/gate/unlock", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req, &nextHandler{})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<form") {
		t.Error("expected the gate form in the response")
	}
	if strings.Contains(body, "evil.example") {
		t.Error("external return URL must not be echoed")
	}
}

// TestGate_ProtectRedirectsLockedVisitors verifies gate_protect.
func TestGate_ProtectRedirectsLockedVisitors(t *testing.T) {
	p := newGatedProxy(t, true)

	next := &nextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/trainer?step=2", nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req, next)

	if next.called {
		t.Error("locked visitor reached the next handler")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	want := "/gate?return_url=" + url.QueryEscape("/trainer?step=2")
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location = %q, want %q", loc, want)
	}

	// API routes stay reachable while locked
	rec = serveGET(t, p, "/api/packs")
	if rec.Code != http.StatusOK {
		t.Errorf("/api/packs status = %d, want 200", rec.Code)
	}
}

// TestGate_ProtectAllowsUnlockedVisitors verifies a valid cookie passes through.
func TestGate_ProtectAllowsUnlockedVisitors(t *testing.T) {
	p := newGatedProxy(t, true)

	rec := postJSON(t, p, "/api/gate/unlock", `{"username":"admin","password":"secret"}`)
	cookie := gateCookie(t, rec, DefaultGateCookieName)
	if cookie == nil {
		t.Fatal("no gate cookie")
	}

	next := &nextHandler{}
	req := httptest.NewRequest(http.MethodGet, "/trainer", nil)
	req.AddCookie(cookie)
	p.ServeHTTP(httptest.NewRecorder(), req, next)
	if !next.called {
		t.Error("unlocked visitor should reach the next handler")
	}
}

// TestGate_PageRendersAndRedirectsWhenUnlocked verifies GET /gate.
func TestGate_PageRendersAndRedirectsWhenUnlocked(t *testing.T) {
	p := newGatedProxy(t, true)

	rec := serveGET(t, p, "/gate?return_url=/trainer")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `action="/api/gate/unlock"`) || !strings.Contains(body, `value="/trainer"`) {
		t.Errorf("gate page missing form target or return URL:\n%s", body)
	}

	unlock := postJSON(t, p, "/api/gate/unlock", `{"username":"admin","password":"secret"}`)
	cookie := gateCookie(t, unlock, DefaultGateCookieName)

	req := httptest.NewRequest(http.MethodGet, "/gate?return_url=/trainer", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	p.ServeHTTP(rec, req, &nextHandler{})
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/trainer" {
		t.Errorf("unlocked /gate = %d %q, want 302 /trainer", rec.Code, rec.Header().Get("Location"))
	}
}

// TestGate_JWTStore verifies the signed-cookie backend through the handler.
func TestGate_JWTStore(t *testing.T) {
	p := newGatedProxy(t, false)
	p.SetGateTokenStore(gate.NewJWTGateTokenStore(generateTestKey(t), time.Hour))

	rec := postJSON(t, p, "/api/gate/unlock", `{"username":"admin","password":"secret"}`)
	cookie := gateCookie(t, rec, DefaultGateCookieName)
	if cookie == nil || strings.Count(cookie.Value, ".") != 2 {
		t.Fatalf("expected a JWT cookie, got %+v", cookie)
	}
	if state := sessionState(t, p, cookie); !state.Unlocked {
		t.Error("JWT cookie should unlock")
	}

	forged := &http.Cookie{Name: DefaultGateCookieName, Value: cookie.Value + "x"}
	if state := sessionState(t, p, forged); state.Unlocked {
		t.Error("tampered JWT should not unlock")
	}
}

// TestValidateReturnURL verifies redirect target validation.
func TestValidateReturnURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"relative path", "/trainer", "/trainer"},
		{"path with query", "/trainer?step=2", "/trainer?step=2"},
		{"empty", "", "/"},
		{"whitespace", "   ", "/"},
		{"protocol-relative", "//evil.com", "/"},
		{"backslash", "/\\evil.com", "/"},
		{"absolute", "https://evil.com", "/"},
		{"javascript scheme", "javascript:alert(1)", "/"},
		{"encoded slashes", "/%2fevil.com", "/"},
		{"newline", "/path\nX: y", "/"},
		{"gate loop", "/gate?return_url=/x", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateReturnURL(tt.input); got != tt.want {
				t.Errorf("ValidateReturnURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestValidateReturnURL_Property_NoOpenRedirect verifies results are always
// same-origin relative paths.
func TestValidateReturnURL_Property_NoOpenRedirect(t *testing.T) {
	f := func(input string) bool {
		got := ValidateReturnURL(input)
		if !strings.HasPrefix(got, "/") || strings.HasPrefix(got, "//") {
			return false
		}
		parsed, err := url.Parse(got)
		return err == nil && parsed.Host == "" && parsed.Scheme == ""
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}
