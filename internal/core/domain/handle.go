package domain

import (
	"net/url"
	"strings"
)

// DefaultProfileBaseURL is the public profile host avatars are scraped from.
const DefaultProfileBaseURL = "https://www.tiktok.com"

// NormalizeHandle trims surrounding whitespace and strips a single leading "@".
// The result may be empty; callers must reject empty handles before resolving.
func NormalizeHandle(raw string) string {
	h := strings.TrimSpace(raw)
	return strings.TrimPrefix(h, "@")
}

// ProfileURL builds the canonical profile page URL for a normalized handle,
// e.g. ProfileURL("https://www.tiktok.com", "example") = "https://www.tiktok.com/@example".
func ProfileURL(baseURL, handle string) string {
	return strings.TrimRight(baseURL, "/") + "/@" + url.PathEscape(handle)
}

// ProfileReferer returns the Referer value sent with upstream requests.
func ProfileReferer(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/"
}
