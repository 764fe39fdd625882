// Package card turns Google-Shopping-style product feeds into fixed-size
// promotional card images. It covers feed acquisition through fallback
// relays, tolerant normalization into canonical Product records, and a
// deterministic 1000x1000 layout engine.
package card

import (
	"errors"

	"github.com/shopspring/decimal"
)

// NoName is the display-title sentinel for feed items without a title.
const NoName = "Sin Nombre"

var (
	// ErrFetchExhausted reports that every transport strategy failed or
	// returned content rejected as invalid.
	ErrFetchExhausted = errors.New("all transport strategies exhausted")
	// ErrInvalidContent reports a relay response that is an HTML document
	// rather than the requested feed.
	ErrInvalidContent = errors.New("response is an HTML document")
	// ErrParse reports a malformed feed document.
	ErrParse = errors.New("malformed feed document")
	// ErrNoProducts reports a well-formed document with no recognizable
	// product elements.
	ErrNoProducts = errors.New("no product elements found")
	// ErrEmptyFeed reports that every mapped record lacked usable data.
	ErrEmptyFeed = errors.New("no usable products after filtering")
)

// Product is the canonical, feed-agnostic record consumed by the layout
// engine. It is never mutated after construction.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	ListPrice    decimal.Decimal `json:"list_price"`
	ImageURL     string          `json:"image_url"`
	Installments int             `json:"installments"`
	FreeShipping bool            `json:"free_shipping"`
	Pickup       bool            `json:"pickup"`
	SKU          string          `json:"sku"`
	BankPromo    string          `json:"bank_promo,omitempty"`
}

// HasInstallments reports whether the product carries an interest-free
// installment plan worth advertising.
func (p Product) HasInstallments() bool { return p.Installments > 1 }

// PromoText resolves the bank-promotion line for a render: the feed's own
// text wins over the caller-supplied default. Empty means no bank badge.
func (p Product) PromoText(fallback string) string {
	if p.BankPromo != "" {
		return p.BankPromo
	}
	return fallback
}

// RenderConfig carries per-render options. Callers build a fresh value
// before each render; it is never persisted.
type RenderConfig struct {
	FrameColor string // hex color for the branded frame, e.g. "#f26522"
	ShowPrice  bool
	ShowBadges bool
	BankText   string // default bank-promo line when the feed has none
}

// DefaultRenderConfig returns the render options used when the caller
// supplies nothing: orange frame, price and badges on.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		FrameColor: "#f26522",
		ShowPrice:  true,
		ShowBadges: true,
		BankText:   "con tarjetas Banco Nación",
	}
}
