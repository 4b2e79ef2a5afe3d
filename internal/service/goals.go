package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

type GoalsService struct {
	goalsRepo    repository.MonthlyGoalsRepository
	usageService *UsageService
}

func NewGoalsService(goalsRepo repository.MonthlyGoalsRepository, usageService *UsageService) *GoalsService {
	return &GoalsService{
		goalsRepo:    goalsRepo,
		usageService: usageService,
	}
}

// ByMonth returns the goals for month. A month without saved goals yields
// zero targets rather than an error.
func (s *GoalsService) ByMonth(ctx context.Context, userID, month string) (*model.MonthlyGoals, error) {
	if err := validation.ValidateMonth(month); err != nil {
		return nil, err
	}

	goals, err := s.goalsRepo.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		return &model.MonthlyGoals{UserID: userID, Month: month}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}
	return goals, nil
}

func (s *GoalsService) List(ctx context.Context, userID string) ([]*model.MonthlyGoals, error) {
	return s.goalsRepo.List(ctx, userID)
}

func (s *GoalsService) Save(ctx context.Context, userID string, goals *model.MonthlyGoals) (*model.MonthlyGoals, error) {
	goals.ID = ""
	goals.UserID = userID
	goals.CreatedAt = time.Time{}

	if err := validation.ValidateGoals(goals); err != nil {
		return nil, err
	}

	err := s.goalsRepo.Upsert(ctx, goals)
	if err != nil {
		return nil, fmt.Errorf("failed to save goals: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeatureGoals)
	return goals, nil
}

func (s *GoalsService) Delete(ctx context.Context, userID, month string) error {
	if err := validation.ValidateMonth(month); err != nil {
		return err
	}
	return s.goalsRepo.Delete(ctx, userID, month)
}
