package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/fractional/internal/debounce"
	"github.com/templui/fractional/internal/insight"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/observability"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

// backgroundTimeout bounds an insight run started after a tracking write.
const backgroundTimeout = 2 * time.Minute

// InsightRun reports one generation run.
type InsightRun struct {
	Created        []*model.UserInsight `json:"created"`
	Source         string               `json:"source,omitempty"`
	FallbackReason string               `json:"fallback_reason,omitempty"`
	Debounced      bool                 `json:"debounced"`
}

type InsightRepos struct {
	Insights      repository.InsightRepository
	Goals         repository.MonthlyGoalsRepository
	Actuals       repository.DailyActualsRepository
	Opportunities repository.OpportunityRepository
	Achievements  repository.AchievementRepository
	Usage         repository.UsageRepository
	Users         repository.UserRepository
	Profiles      repository.ProfileRepository
}

type InsightService struct {
	repos        InsightRepos
	generator    *insight.Generator
	guard        debounce.Guard
	window       time.Duration
	emailService *EmailService
	usageService *UsageService
	now          func() time.Time
}

func NewInsightService(
	repos InsightRepos,
	generator *insight.Generator,
	guard debounce.Guard,
	window time.Duration,
	emailService *EmailService,
	usageService *UsageService,
) *InsightService {
	return &InsightService{
		repos:        repos,
		generator:    generator,
		guard:        guard,
		window:       window,
		emailService: emailService,
		usageService: usageService,
		now:          time.Now,
	}
}

// Trigger starts a debounced generation run in the background. The run
// outlives the request that caused it.
func (s *InsightService) Trigger(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
	go func() {
		defer cancel()
		if _, err := s.Generate(ctx, userID); err != nil {
			slog.Error("background insight generation failed", "error", err, "user_id", userID)
		}
	}()
}

// Generate runs the generator for userID unless a run happened within the
// debounce window. Stale insights are expired first and candidates that
// duplicate an active insight are skipped.
func (s *InsightService) Generate(ctx context.Context, userID string) (*InsightRun, error) {
	if s.guard != nil && s.window > 0 {
		ok, err := s.guard.Allow(ctx, userID, s.window)
		if err != nil {
			slog.Warn("insight debounce unavailable, generating anyway", "error", err, "user_id", userID)
		} else if !ok {
			return &InsightRun{Created: []*model.UserInsight{}, Debounced: true}, nil
		}
	}

	now := s.now().UTC()

	if _, err := s.repos.Insights.ExpireStale(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("failed to expire insights: %w", err)
	}

	c, err := s.buildContext(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("failed to generate insights: %w", err)
	}
	observability.RecordInsightRun(result.Source, result.FallbackReason != "")

	active, err := s.repos.Insights.Active(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active insights: %w", err)
	}
	seen := make(map[string]bool, len(active))
	for _, a := range active {
		seen[insight.Key(a.Category, a.Title)] = true
	}

	run := &InsightRun{
		Created:        []*model.UserInsight{},
		Source:         result.Source,
		FallbackReason: result.FallbackReason,
	}
	for _, cand := range result.Candidates {
		if seen[cand.Key()] {
			continue
		}
		seen[cand.Key()] = true

		ui := &model.UserInsight{
			UserID:           userID,
			Category:         cand.Category,
			Title:            cand.Title,
			Description:      cand.Description,
			Priority:         cand.Priority,
			SuggestedActions: cand.SuggestedActions,
			ConfidenceScore:  cand.ConfidenceScore,
			Source:           result.Source,
			ExpiresAt:        cand.ExpiresAt,
		}
		if err := s.repos.Insights.Create(ctx, ui); err != nil {
			return nil, fmt.Errorf("failed to store insight: %w", err)
		}
		run.Created = append(run.Created, ui)
	}

	slog.Info("insights generated", "user_id", userID, "source", result.Source, "created", len(run.Created))

	s.sendDigest(ctx, userID, run.Created)
	return run, nil
}

func (s *InsightService) buildContext(ctx context.Context, userID string, now time.Time) (insight.Context, error) {
	month := model.MonthKey(now)

	goals, err := s.repos.Goals.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		goals = nil
	} else if err != nil {
		return insight.Context{}, fmt.Errorf("failed to get goals: %w", err)
	}

	actuals, err := s.repos.Actuals.ByMonth(ctx, userID, month)
	if err != nil {
		return insight.Context{}, fmt.Errorf("failed to get actuals: %w", err)
	}

	opps, err := s.repos.Opportunities.ByMonth(ctx, userID, month)
	if err != nil {
		return insight.Context{}, fmt.Errorf("failed to get opportunities: %w", err)
	}

	usage, err := s.repos.Usage.List(ctx, userID)
	if err != nil {
		return insight.Context{}, fmt.Errorf("failed to get usage: %w", err)
	}

	state, err := s.repos.Achievements.Load(ctx, userID)
	if err != nil {
		return insight.Context{}, fmt.Errorf("failed to get streak: %w", err)
	}

	return insight.BuildContext(insight.Inputs{
		Now:           now,
		Goals:         goals,
		Actuals:       actuals,
		Opportunities: opps,
		Usage:         usage,
		Streak:        state.Streak,
	})
}

func (s *InsightService) sendDigest(ctx context.Context, userID string, created []*model.UserInsight) {
	if s.emailService == nil {
		return
	}

	var high []*model.UserInsight
	for _, ui := range created {
		if ui.Priority == model.InsightPriorityHigh {
			high = append(high, ui)
		}
	}
	if len(high) == 0 {
		return
	}

	user, err := s.repos.Users.ByID(ctx, userID)
	if err != nil {
		slog.Warn("insight digest skipped, user not loaded", "error", err, "user_id", userID)
		return
	}

	name := ""
	if profile, err := s.repos.Profiles.ByUserID(ctx, userID); err == nil {
		name = profile.Name
	}

	if err := s.emailService.SendInsightDigest(ctx, user.Email, name, high); err != nil {
		slog.Warn("failed to send insight digest", "error", err, "user_id", userID)
	}
}

// Active expires stale insights and returns the remaining active ones,
// highest priority first.
func (s *InsightService) Active(ctx context.Context, userID string) ([]*model.UserInsight, error) {
	if _, err := s.repos.Insights.ExpireStale(ctx, userID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to expire insights: %w", err)
	}

	active, err := s.repos.Insights.Active(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.usageService.Record(ctx, userID, model.FeatureInsights)
	if active == nil {
		active = []*model.UserInsight{}
	}
	return active, nil
}

func (s *InsightService) Dismiss(ctx context.Context, userID, id string) error {
	return s.transition(ctx, userID, id, model.InsightStatusDismissed)
}

func (s *InsightService) Action(ctx context.Context, userID, id string) error {
	return s.transition(ctx, userID, id, model.InsightStatusActioned)
}

func (s *InsightService) transition(ctx context.Context, userID, id, status string) error {
	ui, err := s.repos.Insights.ByID(ctx, userID, id)
	if err != nil {
		return err
	}
	if ui.Status != model.InsightStatusActive || ui.IsExpired(s.now().UTC()) {
		return validation.Invalid("status", "insight is no longer active")
	}

	err = s.repos.Insights.UpdateStatus(ctx, userID, id, status)
	if err != nil {
		return err
	}

	s.usageService.Record(ctx, userID, model.FeatureInsights)
	slog.Info("insight status changed", "user_id", userID, "insight_id", id, "status", status)
	return nil
}

// ExpireAll expires stale insights of every user.
func (s *InsightService) ExpireAll(ctx context.Context) (int, error) {
	n, err := s.repos.Insights.ExpireStale(ctx, "", s.now().UTC())
	if err != nil {
		return 0, err
	}
	slog.Info("expired stale insights", "count", n)
	return n, nil
}
