package caddyavatarproxy

import (
	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

type Pack = domain.Pack
type Quote = domain.Quote

const (
	CatalogCurrency = domain.CatalogCurrency
	DiscountPercent = domain.DiscountPercent
	CustomPackID    = domain.CustomPackID
)

var (
	ErrUnknownPack       = domain.ErrUnknownPack
	ErrInvalidCoinAmount = domain.ErrInvalidCoinAmount

	DefaultPacks = domain.DefaultPacks
	QuotePack    = domain.QuotePack
)
