package payment

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(webhookSecret string) *StripeProvider {
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (s *StripeProvider) Name() string {
	return ProviderStripe
}

func (s *StripeProvider) ParseWebhook(payload []byte, headers http.Header) (*Payment, error) {
	signature := headers.Get("Stripe-Signature")

	// Use ConstructEventWithOptions to ignore API version mismatch
	// Stripe's API versions are backwards compatible, so this is safe
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type, "event_id", event.ID)

	var p *Payment
	switch event.Type {
	case stripe.EventTypeInvoicePaid:
		p, err = s.parseInvoicePaid(event.Data.Raw)
	case stripe.EventTypeChargeSucceeded:
		p, err = s.parseChargeSucceeded(event.Data.Raw)
	default:
		slog.Debug("stripe webhook event ignored", "event_type", event.Type)
		return nil, nil
	}
	if err != nil || p == nil {
		return nil, err
	}

	p.Provider = ProviderStripe
	p.EventID = event.ID
	return p, nil
}

func (s *StripeProvider) parseInvoicePaid(data json.RawMessage) (*Payment, error) {
	var invoice struct {
		ID                string            `json:"id"`
		AmountPaid        int64             `json:"amount_paid"`
		Currency          string            `json:"currency"`
		CustomerEmail     string            `json:"customer_email"`
		Created           int64             `json:"created"`
		Metadata          map[string]string `json:"metadata"`
		StatusTransitions struct {
			PaidAt int64 `json:"paid_at"`
		} `json:"status_transitions"`
	}

	err := json.Unmarshal(data, &invoice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice: %w", err)
	}

	if invoice.AmountPaid <= 0 {
		slog.Info("stripe invoice paid without amount, skipping", "invoice_id", invoice.ID)
		return nil, nil
	}

	paidAt := invoice.StatusTransitions.PaidAt
	if paidAt == 0 {
		paidAt = invoice.Created
	}

	return &Payment{
		Reference:     invoice.ID,
		UserID:        invoice.Metadata["user_id"],
		CustomerEmail: invoice.CustomerEmail,
		AmountMinor:   invoice.AmountPaid,
		Currency:      invoice.Currency,
		PaidAt:        time.Unix(paidAt, 0).UTC(),
	}, nil
}

func (s *StripeProvider) parseChargeSucceeded(data json.RawMessage) (*Payment, error) {
	var charge struct {
		ID             string            `json:"id"`
		Amount         int64             `json:"amount"`
		AmountCaptured int64             `json:"amount_captured"`
		Currency       string            `json:"currency"`
		Created        int64             `json:"created"`
		Invoice        json.RawMessage   `json:"invoice"`
		ReceiptEmail   string            `json:"receipt_email"`
		Metadata       map[string]string `json:"metadata"`
		BillingDetails struct {
			Email string `json:"email"`
		} `json:"billing_details"`
	}

	err := json.Unmarshal(data, &charge)
	if err != nil {
		return nil, fmt.Errorf("failed to parse charge: %w", err)
	}

	// Invoice charges are counted by invoice.paid.
	if inv := strings.TrimSpace(string(charge.Invoice)); inv != "" && inv != "null" && inv != `""` {
		slog.Debug("stripe charge belongs to an invoice, skipping", "charge_id", charge.ID)
		return nil, nil
	}

	amount := charge.AmountCaptured
	if amount == 0 {
		amount = charge.Amount
	}
	if amount <= 0 {
		return nil, nil
	}

	email := charge.BillingDetails.Email
	if email == "" {
		email = charge.ReceiptEmail
	}

	return &Payment{
		Reference:     charge.ID,
		UserID:        charge.Metadata["user_id"],
		CustomerEmail: email,
		AmountMinor:   amount,
		Currency:      charge.Currency,
		PaidAt:        time.Unix(charge.Created, 0).UTC(),
	}, nil
}
