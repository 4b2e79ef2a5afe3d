package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/templui/fractional/internal/advisor"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/observability"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

const maxQuestionLength = 4000

type AdvisorRepos struct {
	Chat          repository.ChatRepository
	Profiles      repository.ProfileRepository
	Goals         repository.MonthlyGoalsRepository
	Actuals       repository.DailyActualsRepository
	Opportunities repository.OpportunityRepository
	Achievements  repository.AchievementRepository
}

type AdvisorService struct {
	repos        AdvisorRepos
	advisor      *advisor.Advisor
	usageService *UsageService
	now          func() time.Time
}

func NewAdvisorService(repos AdvisorRepos, adv *advisor.Advisor, usageService *UsageService) *AdvisorService {
	return &AdvisorService{
		repos:        repos,
		advisor:      adv,
		usageService: usageService,
		now:          time.Now,
	}
}

// LoadBusinessContext gathers the current month's data and the recent
// conversation for userID.
func (s *AdvisorService) LoadBusinessContext(ctx context.Context, userID string) (advisor.BusinessContext, error) {
	now := s.now().UTC()
	month := model.MonthKey(now)

	profile, err := s.repos.Profiles.ByUserID(ctx, userID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		profile = nil
	} else if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get profile: %w", err)
	}

	goals, err := s.repos.Goals.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		goals = nil
	} else if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get goals: %w", err)
	}

	actuals, err := s.repos.Actuals.ByMonth(ctx, userID, month)
	if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get actuals: %w", err)
	}

	opps, err := s.repos.Opportunities.ByMonth(ctx, userID, month)
	if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get opportunities: %w", err)
	}

	state, err := s.repos.Achievements.Load(ctx, userID)
	if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get streak: %w", err)
	}

	history, err := s.repos.Chat.Recent(ctx, userID, advisor.MaxHistory)
	if err != nil {
		return advisor.BusinessContext{}, fmt.Errorf("failed to get chat history: %w", err)
	}

	return advisor.NewBusinessContext(advisor.ContextInputs{
		Now:           now,
		Profile:       profile,
		Goals:         goals,
		Actuals:       actuals,
		Opportunities: opps,
		Streak:        state.Streak,
		History:       history,
	})
}

// Ask answers question and stores both sides of the exchange, including
// the apology when the provider is unavailable.
func (s *AdvisorService) Ask(ctx context.Context, userID, question, conversationType string) (advisor.Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return advisor.Response{}, validation.Invalid("question", "is required")
	}
	if len(question) > maxQuestionLength {
		return advisor.Response{}, validation.Invalid("question", "is too long (max 4000 characters)")
	}
	if conversationType == "" {
		conversationType = model.ConversationGeneral
	}
	if !model.IsValidConversationType(conversationType) {
		return advisor.Response{}, validation.Invalid("conversation_type", "must be one of general, strategy, pipeline, goals")
	}

	bc, err := s.LoadBusinessContext(ctx, userID)
	if err != nil {
		return advisor.Response{}, err
	}

	resp, err := s.advisor.Invoke(ctx, question, bc, conversationType)
	if err != nil {
		return advisor.Response{}, err
	}
	observability.RecordAdvisorCall(resp.ConversationType, resp.Degraded)

	askedAt := s.now().UTC()
	err = s.repos.Chat.Create(ctx, &model.ChatMessage{
		UserID:           userID,
		ConversationType: resp.ConversationType,
		Role:             model.ChatRoleUser,
		Content:          question,
		CreatedAt:        askedAt,
	})
	if err != nil {
		return advisor.Response{}, fmt.Errorf("failed to save question: %w", err)
	}

	err = s.repos.Chat.Create(ctx, &model.ChatMessage{
		UserID:           userID,
		ConversationType: resp.ConversationType,
		Role:             model.ChatRoleAssistant,
		Content:          resp.Response,
		CreatedAt:        askedAt.Add(time.Millisecond),
	})
	if err != nil {
		return advisor.Response{}, fmt.Errorf("failed to save answer: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeatureAdvisor)
	return resp, nil
}

func (s *AdvisorService) History(ctx context.Context, userID string, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	messages, err := s.repos.Chat.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}
	return messages, nil
}

func (s *AdvisorService) ClearHistory(ctx context.Context, userID string) error {
	return s.repos.Chat.DeleteAll(ctx, userID)
}
