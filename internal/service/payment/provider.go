package payment

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderStripe = "stripe"
	ProviderPolar  = "polar"
)

// ErrInvalidWebhook marks deliveries that failed verification or decoding.
var ErrInvalidWebhook = errors.New("invalid webhook")

// Payment is a settled payment reported by a provider webhook.
type Payment struct {
	Provider      string
	EventID       string
	Reference     string // provider object ID, used to skip re-deliveries
	UserID        string // from metadata.user_id, may be empty
	CustomerEmail string
	AmountMinor   int64
	Currency      string
	PaidAt        time.Time
}

// Amount converts the minor-unit amount into the currency's major unit.
func (p *Payment) Amount() float64 {
	if zeroDecimal[strings.ToLower(p.Currency)] {
		return float64(p.AmountMinor)
	}
	return float64(p.AmountMinor) / 100
}

// Provider defines the interface that all payment providers must implement
type Provider interface {
	// ParseWebhook verifies and decodes a webhook delivery. It returns a nil
	// Payment for events that do not represent settled revenue.
	ParseWebhook(payload []byte, headers http.Header) (*Payment, error)

	// Name returns the provider name (e.g., "polar", "stripe")
	Name() string
}

// Currencies without a minor unit, as documented by Stripe.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}
