package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/achievement"
	"github.com/templui/fractional/internal/db"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/observability"
	"github.com/templui/fractional/internal/progress"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

// InsightTrigger is notified after a user's tracking data changed.
type InsightTrigger interface {
	Trigger(ctx context.Context, userID string)
}

// SaveResult is what a daily actuals write returns to the client.
type SaveResult struct {
	Actuals       *model.DailyActuals `json:"actuals"`
	Streak        model.StreakData    `json:"streak"`
	Achievements  []model.Achievement `json:"achievements"`
	NewlyUnlocked []model.Achievement `json:"newly_unlocked"`
}

// RevenuePayment is a paid invoice or order reported by a payment provider.
type RevenuePayment struct {
	Provider  string
	Reference string
	Date      string // YYYY-MM-DD
	Amount    float64
	Note      string
}

// MonthSummary is the dashboard view of one month.
type MonthSummary struct {
	Month       string                    `json:"month"`
	AsOf        string                    `json:"as_of"`
	Goals       *model.MonthlyGoals       `json:"goals"`
	Actuals     []*model.DailyActuals     `json:"actuals"`
	Progress    []progress.MetricProgress `json:"progress"`
	AllGoalsMet bool                      `json:"all_goals_met"`
	Streak      model.StreakData          `json:"streak"`
}

// TrackingService owns daily actuals. Every write recalculates the streak
// and achievements in the same transaction.
type TrackingService struct {
	db              *sqlx.DB
	goalsRepo       repository.MonthlyGoalsRepository
	actualsRepo     repository.DailyActualsRepository
	achievementRepo repository.AchievementRepository
	usageService    *UsageService
	insights        InsightTrigger
	now             func() time.Time
}

func NewTrackingService(
	conn *sqlx.DB,
	goalsRepo repository.MonthlyGoalsRepository,
	actualsRepo repository.DailyActualsRepository,
	achievementRepo repository.AchievementRepository,
	usageService *UsageService,
) *TrackingService {
	return &TrackingService{
		db:              conn,
		goalsRepo:       goalsRepo,
		actualsRepo:     actualsRepo,
		achievementRepo: achievementRepo,
		usageService:    usageService,
		now:             time.Now,
	}
}

// SetInsightTrigger wires the insight service in after construction, since
// insights read tracking data too.
func (s *TrackingService) SetInsightTrigger(trigger InsightTrigger) {
	s.insights = trigger
}

// SaveActuals upserts the day's actuals and re-evaluates the streak and
// achievements.
func (s *TrackingService) SaveActuals(ctx context.Context, userID string, actuals *model.DailyActuals) (*SaveResult, error) {
	// Server owned; the row is keyed by (user, date).
	actuals.ID = ""
	actuals.UserID = userID
	actuals.Month = ""
	actuals.CreatedAt = time.Time{}
	actuals.Notes = strings.TrimSpace(actuals.Notes)

	if err := validation.ValidateActuals(actuals); err != nil {
		return nil, err
	}
	if err := s.notInFuture(actuals.Date); err != nil {
		return nil, err
	}

	result, err := s.write(ctx, userID, func(_ *sqlx.Tx, repo repository.DailyActualsRepository) (*model.DailyActuals, error) {
		if err := repo.Upsert(ctx, actuals); err != nil {
			return nil, err
		}
		return actuals, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, userID)
	return result, nil
}

// ImportRevenue adds an externally reported payment to the day's gross
// revenue. A payment whose (provider, reference) was imported before is
// skipped and reported with imported=false.
func (s *TrackingService) ImportRevenue(ctx context.Context, userID string, payment RevenuePayment) (result *SaveResult, imported bool, err error) {
	if err := validation.ValidateDate(payment.Date); err != nil {
		return nil, false, err
	}
	if payment.Amount <= 0 {
		return nil, false, validation.Invalid("amount", "must be positive")
	}

	result, err = s.write(ctx, userID, func(tx *sqlx.Tx, repo repository.DailyActualsRepository) (*model.DailyActuals, error) {
		if payment.Reference != "" {
			fresh, err := repository.NewRevenueImportRepository(tx).Record(ctx, userID, payment.Provider, payment.Reference, payment.Date, payment.Amount)
			if err != nil {
				return nil, fmt.Errorf("failed to record payment: %w", err)
			}
			if !fresh {
				return nil, errDuplicateImport
			}
		}
		return repo.AddRevenue(ctx, userID, payment.Date, payment.Amount, payment.Note)
	})
	if errors.Is(err, errDuplicateImport) {
		slog.Info("revenue already imported, skipping", "user_id", userID, "provider", payment.Provider, "reference", payment.Reference)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.afterWrite(ctx, userID)
	return result, true, nil
}

var errDuplicateImport = errors.New("revenue already imported")

// write runs save and the achievement evaluation in one transaction.
func (s *TrackingService) write(ctx context.Context, userID string, save func(*sqlx.Tx, repository.DailyActualsRepository) (*model.DailyActuals, error)) (*SaveResult, error) {
	now := s.now().UTC()
	var result SaveResult

	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		actualsRepo := repository.NewDailyActualsRepository(tx)
		goalsRepo := repository.NewMonthlyGoalsRepository(tx)
		achievementRepo := repository.NewAchievementRepository(tx)

		saved, err := save(tx, actualsRepo)
		if err != nil {
			return err
		}

		goals, err := goalsRepo.ByMonth(ctx, userID, saved.Month)
		if errors.Is(err, repository.ErrGoalsNotFound) {
			goals = nil
		} else if err != nil {
			return fmt.Errorf("failed to load goals: %w", err)
		}

		monthActuals, err := actualsRepo.ByMonth(ctx, userID, saved.Month)
		if err != nil {
			return fmt.Errorf("failed to load month actuals: %w", err)
		}

		state, err := achievementRepo.Load(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load achievements: %w", err)
		}

		next, unlocked, err := achievement.Evaluate(state, achievement.Input{
			Actuals:     saved,
			Goals:       goals,
			MonthTotals: progress.Totals(saved.Month, monthActuals, now),
			Today:       now,
		})
		if err != nil {
			return err
		}

		err = achievementRepo.Save(ctx, userID, next)
		if err != nil {
			return fmt.Errorf("failed to save achievements: %w", err)
		}

		result = SaveResult{
			Actuals:       saved,
			Streak:        next.Streak,
			Achievements:  next.Achievements,
			NewlyUnlocked: unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range result.NewlyUnlocked {
		slog.Info("achievement unlocked", "user_id", userID, "achievement", a.ID)
	}
	if result.NewlyUnlocked == nil {
		result.NewlyUnlocked = []model.Achievement{}
	}

	observability.RecordActualsSaved(now)
	return &result, nil
}

func (s *TrackingService) afterWrite(ctx context.Context, userID string) {
	s.usageService.Record(ctx, userID, model.FeatureDailyTracking)
	if s.insights != nil {
		s.insights.Trigger(ctx, userID)
	}
}

func (s *TrackingService) notInFuture(date string) error {
	d, err := model.ParseDate(date)
	if err != nil {
		return validation.Invalid("date", "must be formatted YYYY-MM-DD")
	}
	if model.DateKey(d) > model.DateKey(s.now().UTC()) {
		return validation.Invalid("date", "must not be in the future")
	}
	return nil
}

func (s *TrackingService) ActualsByDate(ctx context.Context, userID, date string) (*model.DailyActuals, error) {
	if err := validation.ValidateDate(date); err != nil {
		return nil, err
	}
	return s.actualsRepo.ByDate(ctx, userID, date)
}

func (s *TrackingService) DeleteActuals(ctx context.Context, userID, date string) error {
	if err := validation.ValidateDate(date); err != nil {
		return err
	}
	return s.actualsRepo.Delete(ctx, userID, date)
}

// Summary computes month-to-date progress for month as of now. Past months
// are evaluated as of their last day.
func (s *TrackingService) Summary(ctx context.Context, userID, month string) (*MonthSummary, error) {
	if err := validation.ValidateMonth(month); err != nil {
		return nil, err
	}

	asOf, err := s.asOf(month)
	if err != nil {
		return nil, err
	}

	goals, err := s.goalsRepo.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		goals = &model.MonthlyGoals{UserID: userID, Month: month}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}

	actuals, err := s.actualsRepo.ByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get actuals: %w", err)
	}

	metrics, err := progress.MonthToDate(goals, actuals, asOf)
	if err != nil {
		return nil, err
	}

	state, err := s.achievementRepo.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	if actuals == nil {
		actuals = []*model.DailyActuals{}
	}

	return &MonthSummary{
		Month:       month,
		AsOf:        model.DateKey(asOf),
		Goals:       goals,
		Actuals:     actuals,
		Progress:    metrics,
		AllGoalsMet: progress.AllGoalsMet(goals, progress.Totals(month, actuals, asOf)),
		Streak:      state.Streak,
	}, nil
}

// Achievements returns the streak and the full catalog with unlock state.
func (s *TrackingService) Achievements(ctx context.Context, userID string) (achievement.State, error) {
	return s.achievementRepo.Load(ctx, userID)
}

func (s *TrackingService) asOf(month string) (time.Time, error) {
	start, err := model.ParseMonth(month)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now().UTC()
	end := start.AddDate(0, 1, -1)
	if model.MonthKey(now) == month {
		return now, nil
	}
	if now.Before(start) {
		return start, nil
	}
	return end, nil
}
