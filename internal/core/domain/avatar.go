package domain

import (
	"encoding/base64"
	"mime"
	"strings"
)

// AvatarImage is an avatar payload held for the duration of one request.
type AvatarImage struct {
	Data        []byte
	ContentType string
}

const (
	// DefaultImageContentType is used when the upstream omits Content-Type.
	DefaultImageContentType = "image/jpeg"

	// PlaceholderContentType is the content type of the transparent pixel.
	PlaceholderContentType = "image/png"
)

// Cache-Control values attached by the HTTP boundary.
const (
	CacheControlResolved    = "s-maxage=3600, stale-while-revalidate=86400"
	CacheControlPlaceholder = "s-maxage=600, stale-while-revalidate=86400"
)

const transparentPixelBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

var transparentPixel = mustDecodeBase64(transparentPixelBase64)

func mustDecodeBase64(s string) []byte {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		panic("decode placeholder image: " + err.Error())
	}
	return b
}

// TransparentPixelPNG returns a copy of the fixed 1x1 transparent PNG served
// whenever an avatar cannot be resolved or fetched.
func TransparentPixelPNG() []byte {
	out := make([]byte, len(transparentPixel))
	copy(out, transparentPixel)
	return out
}

// PlaceholderImage wraps the transparent pixel as an AvatarImage.
func PlaceholderImage() *AvatarImage {
	return &AvatarImage{Data: TransparentPixelPNG(), ContentType: PlaceholderContentType}
}

// MediaType strips parameters from a Content-Type header value and lowercases it.
// "image/png; charset=binary" becomes "image/png". An empty value stays empty.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// IsImageMediaType reports whether mt is an image/* media type.
func IsImageMediaType(mt string) bool {
	return strings.HasPrefix(mt, "image/")
}
