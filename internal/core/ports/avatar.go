package ports

import (
	"context"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// AvatarResolver maps a normalized handle to an avatar URL.
// Implementations must be safe for concurrent use.
type AvatarResolver interface {
	// Resolve returns the avatar URL for handle. found is false on a
	// resolution miss; transport failures are reported as misses too, so
	// callers never see an error from resolution.
	Resolve(ctx context.Context, handle string) (avatarURL string, found bool)
}

// ImageFetcher downloads avatar image bytes.
type ImageFetcher interface {
	// Fetch returns the image at imageURL. Any failure is returned as an
	// error; callers substitute the placeholder image.
	Fetch(ctx context.Context, imageURL string) (*domain.AvatarImage, error)
}
