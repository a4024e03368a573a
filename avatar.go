package caddyavatarproxy

import (
	"github.com/philiph/caddy-avatar-proxy/internal/adapters/driven/avatar"
	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// Port interfaces
type AvatarResolver = ports.AvatarResolver
type ImageFetcher = ports.ImageFetcher

// Domain types
type AvatarImage = domain.AvatarImage
type ExtractionRule = domain.ExtractionRule

// Adapters
type HTTPAvatarResolver = avatar.HTTPAvatarResolver
type HTTPImageFetcher = avatar.HTTPImageFetcher
type CachingAvatarResolver = avatar.CachingAvatarResolver
type AvatarOption = avatar.Option
type CacheOption = avatar.CacheOption

const (
	DefaultProfileBaseURL   = domain.DefaultProfileBaseURL
	EscapedAmpersand        = domain.EscapedAmpersand
	DefaultUserAgent        = avatar.DefaultUserAgent
	DefaultAcceptLanguage   = avatar.DefaultAcceptLanguage
	CacheControlResolved    = domain.CacheControlResolved
	CacheControlPlaceholder = domain.CacheControlPlaceholder

	RuleAvatarLarger = domain.RuleAvatarLarger
	RuleAvatarMedium = domain.RuleAvatarMedium
	RuleAvatarThumb  = domain.RuleAvatarThumb
	RuleOGImage      = domain.RuleOGImage
)

var (
	ErrImageFetchFailed   = avatar.ErrImageFetchFailed
	ErrInvalidContentType = avatar.ErrInvalidContentType
	ErrRulesFile          = avatar.ErrRulesFile
)

var (
	NormalizeHandle        = domain.NormalizeHandle
	ProfileURL             = domain.ProfileURL
	ExtractAvatarURL       = domain.ExtractAvatarURL
	DefaultExtractionRules = domain.DefaultExtractionRules
	NewExtractionRule      = domain.NewExtractionRule
	TransparentPixelPNG    = domain.TransparentPixelPNG
	PlaceholderImage       = domain.PlaceholderImage

	NewHTTPAvatarResolver    = avatar.NewHTTPAvatarResolver
	NewHTTPImageFetcher      = avatar.NewHTTPImageFetcher
	NewCachingAvatarResolver = avatar.NewCachingAvatarResolver
	LoadRulesFile            = avatar.LoadRulesFile
	MergeRules               = avatar.MergeRules

	NewHTTPClient      = avatar.NewHTTPClient
	WithHTTPClient     = avatar.WithHTTPClient
	WithProfileBaseURL = avatar.WithProfileBaseURL
	WithUserAgent      = avatar.WithUserAgent
	WithAcceptLanguage = avatar.WithAcceptLanguage
	WithRules          = avatar.WithRules
	WithMaxPageSize    = avatar.WithMaxPageSize
	WithMaxImageSize   = avatar.WithMaxImageSize
	WithLogger         = avatar.WithLogger
	WithCacheSize      = avatar.WithCacheSize
	WithMissTTL        = avatar.WithMissTTL
)
