package caddy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/philiph/caddy-avatar-proxy/internal/core/domain"
)

// PacksResponse is the JSON body of /api/packs.
type PacksResponse struct {
	Currency        string        `json:"currency"`
	DiscountPercent int           `json:"discount_percent"`
	Discounted      bool          `json:"discounted"`
	MinCustomCoins  int64         `json:"min_custom_coins"`
	MaxCustomCoins  int64         `json:"max_custom_coins"`
	Packs           []domain.Pack `json:"packs"`
}

// handlePacks lists the catalog with effective prices.
func (p *AvatarProxy) handlePacks(w http.ResponseWriter, r *http.Request) error {
	discount := isTruthy(r.URL.Query().Get("discount"))

	resp := PacksResponse{
		Currency:        domain.CatalogCurrency,
		DiscountPercent: domain.DiscountPercent,
		Discounted:      discount,
		MinCustomCoins:  domain.MinCustomCoins,
		MaxCustomCoins:  domain.MaxCustomCoins,
		Packs:           domain.EffectivePacks(p.catalog(), discount),
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(resp)
}

// handleQuote prices a single pack: /api/quote?pack=<id>&coins=<n>&discount=1
func (p *AvatarProxy) handleQuote(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	packID := q.Get("pack")
	if packID == "" {
		p.renderAppError(w, r, domain.BadRequestError("pack required"))
		return nil
	}

	var coins int64
	if packID == domain.CustomPackID {
		raw := q.Get("coins")
		if raw == "" {
			p.renderAppError(w, r, domain.BadRequestError("coins required for custom pack"))
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			p.renderAppError(w, r, domain.BadRequestError("coins must be an integer"))
			return nil
		}
		coins = n
	}

	quote, err := domain.QuotePack(p.catalog(), packID, coins, isTruthy(q.Get("discount")))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownPack) || errors.Is(err, domain.ErrInvalidCoinAmount) {
			p.renderAppError(w, r, domain.BadRequestError(err.Error()))
			return nil
		}
		p.renderAppError(w, r, domain.ServiceError("quote failed"))
		return nil
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(quote)
}

func (p *AvatarProxy) catalog() []domain.Pack {
	if p.packs == nil {
		return domain.DefaultPacks()
	}
	return p.packs
}
