package domain

import (
	"errors"
	"fmt"
	"math/big"
)

// Catalog pricing constants.
const (
	CatalogCurrency = "MXN"

	// DiscountPercent is taken off every price when the discount toggle is on.
	DiscountPercent = 25

	// CustomPackID selects a caller-chosen coin amount.
	CustomPackID = "custom"

	// Custom amounts are priced at 22.95 per 100 coins.
	customReferencePrice = 22.95
	customReferenceCoins = 100

	MinCustomCoins = 1
	MaxCustomCoins = 2_500_000
)

var (
	// ErrUnknownPack is returned when a quote names a pack that does not exist.
	ErrUnknownPack = errors.New("unknown pack")

	// ErrInvalidCoinAmount is returned for custom amounts outside the allowed range.
	ErrInvalidCoinAmount = errors.New("invalid coin amount")
)

// Pack is a purchasable coin bundle. Custom packs carry no fixed coins or price.
type Pack struct {
	ID         string `json:"id"`
	Coins      int64  `json:"coins,omitempty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	Custom     bool   `json:"custom,omitempty"`
}

// Quote is the price of one pack or custom amount.
type Quote struct {
	PackID     string `json:"pack_id"`
	Coins      int64  `json:"coins"`
	PriceCents int64  `json:"price_cents"`
	Discounted bool   `json:"discounted"`
	Currency   string `json:"currency"`
}

var defaultPacks = []Pack{
	{ID: "c30", Coins: 30, PriceCents: 689},
	{ID: "c40", Coins: 40, PriceCents: 919},
	{ID: "c50", Coins: 50, PriceCents: 1149},
	{ID: "c80", Coins: 80, PriceCents: 1835},
	{ID: "c100", Coins: 100, PriceCents: 2295},
	{ID: "c150", Coins: 150, PriceCents: 3439},
	{ID: "c550", Coins: 550, PriceCents: 12609},
	{ID: CustomPackID, Custom: true},
}

// DefaultPacks returns a copy of the built-in catalog in display order.
func DefaultPacks() []Pack {
	out := make([]Pack, len(defaultPacks))
	copy(out, defaultPacks)
	return out
}

// EffectivePacks returns packs with the discount applied to fixed prices.
func EffectivePacks(packs []Pack, discount bool) []Pack {
	out := make([]Pack, len(packs))
	for i, p := range packs {
		if discount && !p.Custom {
			p.PriceCents = ApplyDiscount(p.PriceCents)
		}
		out[i] = p
	}
	return out
}

// ApplyDiscount takes DiscountPercent off cents.
func ApplyDiscount(cents int64) int64 {
	factor := float64(100-DiscountPercent) / 100
	return toCents(float64(cents) / 100 * factor)
}

// CustomPriceCents prices an arbitrary coin amount before any discount.
func CustomPriceCents(coins int64) int64 {
	price := customReferencePrice
	unit := price / customReferenceCoins
	return toCents(float64(coins) * unit)
}

// QuotePack prices packID. customCoins is only read for the custom pack.
func QuotePack(packs []Pack, packID string, customCoins int64, discount bool) (Quote, error) {
	for _, p := range packs {
		if p.ID != packID {
			continue
		}
		q := Quote{PackID: p.ID, Discounted: discount, Currency: CatalogCurrency}
		if p.Custom {
			if customCoins < MinCustomCoins || customCoins > MaxCustomCoins {
				return Quote{}, fmt.Errorf("%w: %d (allowed %d-%d)", ErrInvalidCoinAmount, customCoins, MinCustomCoins, MaxCustomCoins)
			}
			q.Coins = customCoins
			q.PriceCents = CustomPriceCents(customCoins)
		} else {
			q.Coins = p.Coins
			q.PriceCents = p.PriceCents
		}
		if discount {
			q.PriceCents = ApplyDiscount(q.PriceCents)
		}
		return q, nil
	}
	return Quote{}, fmt.Errorf("%w: %q", ErrUnknownPack, packID)
}

// toCents rounds a non-negative price to whole cents using the exact binary
// value of x, ties rounding up. Prices are computed in float64 and rounded
// after each step, which is how the storefront displays them.
func toCents(x float64) int64 {
	f := new(big.Float).SetPrec(256).SetFloat64(x)
	f.Mul(f, big.NewFloat(100))
	f.Add(f, big.NewFloat(0.5))
	n, _ := f.Int64()
	return n
}
