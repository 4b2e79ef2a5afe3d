package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
)

type PolarProvider struct {
	verifier *standardwebhooks.Webhook
}

// NewPolarProvider verifies deliveries with the endpoint secret as raw
// bytes, which is how Polar signs them.
func NewPolarProvider(webhookSecret string) (*PolarProvider, error) {
	if webhookSecret == "" {
		return nil, errors.New("polar webhook secret is required")
	}

	wh, err := standardwebhooks.NewWebhookRaw([]byte(webhookSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook verifier: %w", err)
	}

	return &PolarProvider{verifier: wh}, nil
}

func (p *PolarProvider) Name() string {
	return ProviderPolar
}

func (p *PolarProvider) ParseWebhook(payload []byte, headers http.Header) (*Payment, error) {
	httpHeaders := http.Header{}
	httpHeaders.Set("webhook-id", headers.Get("webhook-id"))
	httpHeaders.Set("webhook-timestamp", headers.Get("webhook-timestamp"))
	httpHeaders.Set("webhook-signature", headers.Get("webhook-signature"))

	err := p.verifier.Verify(payload, httpHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	err = json.Unmarshal(payload, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to parse webhook: %w", err)
	}

	slog.Info("polar webhook received", "event_type", event.Type)

	if event.Type != "order.paid" {
		slog.Debug("polar webhook event ignored", "event_type", event.Type)
		return nil, nil
	}

	pay, err := p.parseOrderPaid(event.Data)
	if err != nil || pay == nil {
		return nil, err
	}

	pay.Provider = ProviderPolar
	pay.EventID = headers.Get("webhook-id")
	return pay, nil
}

func (p *PolarProvider) parseOrderPaid(data json.RawMessage) (*Payment, error) {
	var order struct {
		ID          string            `json:"id"`
		TotalAmount *int64            `json:"total_amount"`
		Amount      int64             `json:"amount"`
		Currency    string            `json:"currency"`
		CreatedAt   string            `json:"created_at"`
		Metadata    map[string]string `json:"metadata"`
		Customer    struct {
			Email string `json:"email"`
		} `json:"customer"`
	}

	err := json.Unmarshal(data, &order)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order data: %w", err)
	}

	amount := order.Amount
	if order.TotalAmount != nil {
		amount = *order.TotalAmount
	}
	if amount <= 0 {
		slog.Info("polar order paid without amount, skipping", "order_id", order.ID)
		return nil, nil
	}

	paidAt := time.Now().UTC()
	if order.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, order.CreatedAt); err == nil {
			paidAt = t.UTC()
		}
	}

	return &Payment{
		Reference:     order.ID,
		UserID:        order.Metadata["user_id"],
		CustomerEmail: order.Customer.Email,
		AmountMinor:   amount,
		Currency:      order.Currency,
		PaidAt:        paidAt,
	}, nil
}
