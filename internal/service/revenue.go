package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/observability"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/service/payment"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrUnknownProvider = errors.New("unknown revenue provider")

// RevenueImport is the outcome of one webhook delivery.
type RevenueImport struct {
	Provider  string  `json:"provider"`
	Reference string  `json:"reference,omitempty"`
	UserID    string  `json:"-"`
	Date      string  `json:"date,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Imported  bool    `json:"imported"`
	Reason    string  `json:"reason,omitempty"`
}

// RevenueService books paid invoices and orders into daily actuals.
type RevenueService struct {
	providers       map[string]payment.Provider
	userRepo        repository.UserRepository
	trackingService *TrackingService
	ownerEmail      string
}

func NewRevenueService(
	providers map[string]payment.Provider,
	userRepo repository.UserRepository,
	trackingService *TrackingService,
	ownerEmail string,
) *RevenueService {
	return &RevenueService{
		providers:       providers,
		userRepo:        userRepo,
		trackingService: trackingService,
		ownerEmail:      strings.TrimSpace(strings.ToLower(ownerEmail)),
	}
}

// HandleWebhook verifies a delivery and adds the payment to its owner's
// gross revenue for the day it was paid. Events that carry no revenue, or
// whose owner cannot be resolved, are acknowledged without an import.
func (s *RevenueService) HandleWebhook(ctx context.Context, providerName string, payload []byte, headers http.Header) (*RevenueImport, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	p, err := provider.ParseWebhook(payload, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrInvalidWebhook, err)
	}

	result := &RevenueImport{Provider: providerName}
	if p == nil {
		result.Reason = "event ignored"
		return result, nil
	}
	result.Reference = p.Reference

	user, err := s.owner(ctx, p)
	if err != nil {
		slog.Warn("revenue webhook owner not found, skipping", "provider", providerName, "reference", p.Reference, "error", err)
		result.Reason = "owner not found"
		return result, nil
	}

	date := model.DateKey(p.PaidAt.UTC())
	amount := p.Amount()

	_, imported, err := s.trackingService.ImportRevenue(ctx, user.ID, RevenuePayment{
		Provider:  providerName,
		Reference: p.Reference,
		Date:      date,
		Amount:    amount,
		Note:      paymentNote(p),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import revenue: %w", err)
	}

	result.UserID = user.ID
	result.Date = date
	result.Amount = amount
	result.Imported = imported
	if !imported {
		result.Reason = "already imported"
		return result, nil
	}

	observability.RecordRevenueImport(providerName)
	slog.Info("revenue imported", "provider", providerName, "user_id", user.ID, "date", date, "amount", amount, "currency", p.Currency)
	return result, nil
}

func (s *RevenueService) owner(ctx context.Context, p *payment.Payment) (*model.User, error) {
	if p.UserID != "" {
		user, err := s.userRepo.ByID(ctx, p.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
	}

	if s.ownerEmail == "" {
		return nil, repository.ErrUserNotFound
	}
	return s.userRepo.ByEmail(ctx, s.ownerEmail)
}

// paymentNote renders e.g. "stripe in_123: 1,500.00 USD".
func paymentNote(p *payment.Payment) string {
	printer := message.NewPrinter(language.English)
	return printer.Sprintf("%s %s: %.2f %s", p.Provider, p.Reference, p.Amount(), strings.ToUpper(p.Currency))
}
