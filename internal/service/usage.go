package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
)

// UsageService records which features a user touches. Insight generation
// reads the counts back as behavior patterns.
type UsageService struct {
	usageRepo repository.UsageRepository
	now       func() time.Time
}

func NewUsageService(usageRepo repository.UsageRepository) *UsageService {
	return &UsageService{usageRepo: usageRepo, now: time.Now}
}

// Record never fails the caller's request. Errors are logged.
func (s *UsageService) Record(ctx context.Context, userID, feature string) {
	if s == nil || !model.IsValidFeature(feature) {
		return
	}
	err := s.usageRepo.Record(ctx, userID, feature, s.now().UTC())
	if err != nil {
		slog.Warn("failed to record feature usage", "error", err, "user_id", userID, "feature", feature)
	}
}

func (s *UsageService) List(ctx context.Context, userID string) ([]*model.FeatureUsage, error) {
	return s.usageRepo.List(ctx, userID)
}
