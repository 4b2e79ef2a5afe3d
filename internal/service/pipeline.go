package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/pipeline"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

// PipelineView is the pipeline page: aggregated progress for a month plus
// the opportunities behind it.
type PipelineView struct {
	Month         string                `json:"month"`
	Summary       pipeline.Summary      `json:"summary"`
	Health        pipeline.HealthReport `json:"health"`
	Opportunities []*model.Opportunity  `json:"opportunities"`
}

type OpportunityService struct {
	opportunityRepo repository.OpportunityRepository
	contactRepo     repository.ContactRepository
	goalsRepo       repository.MonthlyGoalsRepository
	usageService    *UsageService
	now             func() time.Time
}

func NewOpportunityService(
	opportunityRepo repository.OpportunityRepository,
	contactRepo repository.ContactRepository,
	goalsRepo repository.MonthlyGoalsRepository,
	usageService *UsageService,
) *OpportunityService {
	return &OpportunityService{
		opportunityRepo: opportunityRepo,
		contactRepo:     contactRepo,
		goalsRepo:       goalsRepo,
		usageService:    usageService,
		now:             time.Now,
	}
}

func (s *OpportunityService) Create(ctx context.Context, userID string, opp *model.Opportunity) (*model.Opportunity, error) {
	opp.UserID = userID
	opp.ID = ""
	if opp.Month == "" {
		opp.Month = model.MonthKey(s.now().UTC())
	}
	if opp.Stage == "" {
		opp.Stage = model.StageLead
	}
	normalizeClosed(opp)

	if err := s.validate(ctx, userID, opp); err != nil {
		return nil, err
	}

	err := s.opportunityRepo.Create(ctx, opp)
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeaturePipeline)
	slog.Info("opportunity created", "user_id", userID, "opportunity_id", opp.ID, "type", opp.Type)
	return opp, nil
}

func (s *OpportunityService) ByID(ctx context.Context, userID, id string) (*model.Opportunity, error) {
	return s.opportunityRepo.ByID(ctx, userID, id)
}

func (s *OpportunityService) List(ctx context.Context, userID string) ([]*model.Opportunity, error) {
	return s.opportunityRepo.List(ctx, userID)
}

func (s *OpportunityService) Update(ctx context.Context, userID, id string, opp *model.Opportunity) (*model.Opportunity, error) {
	existing, err := s.opportunityRepo.ByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	opp.ID = existing.ID
	opp.UserID = userID
	opp.CreatedAt = existing.CreatedAt
	if opp.Month == "" {
		opp.Month = existing.Month
	}
	normalizeClosed(opp)

	if err := s.validate(ctx, userID, opp); err != nil {
		return nil, err
	}

	err = s.opportunityRepo.Update(ctx, opp)
	if err != nil {
		return nil, fmt.Errorf("failed to update opportunity: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeaturePipeline)
	return opp, nil
}

// UpdateStage moves an opportunity through the pipeline. Closing a deal
// pins its probability to 100 (won) or 0 (lost); a nil probability keeps
// the current one for open stages.
func (s *OpportunityService) UpdateStage(ctx context.Context, userID, id, stage string, probability *float64) (*model.Opportunity, error) {
	if !model.IsValidStage(stage) {
		return nil, validation.Invalid("stage", "must be one of lead, qualified, proposal, negotiation, won, lost")
	}

	opp, err := s.opportunityRepo.ByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	opp.Stage = stage
	if probability != nil {
		opp.Probability = *probability
	}
	normalizeClosed(opp)

	if err := validation.ValidateProbability(opp.Probability); err != nil {
		return nil, err
	}

	err = s.opportunityRepo.UpdateStage(ctx, userID, id, opp.Stage, opp.Probability)
	if err != nil {
		return nil, fmt.Errorf("failed to update stage: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeaturePipeline)
	slog.Info("opportunity stage changed", "user_id", userID, "opportunity_id", id, "stage", stage)
	return s.opportunityRepo.ByID(ctx, userID, id)
}

func (s *OpportunityService) Delete(ctx context.Context, userID, id string) error {
	return s.opportunityRepo.Delete(ctx, userID, id)
}

// View aggregates the month's opportunities against the month's goals.
func (s *OpportunityService) View(ctx context.Context, userID, month string) (*PipelineView, error) {
	if err := validation.ValidateMonth(month); err != nil {
		return nil, err
	}

	opps, err := s.opportunityRepo.ByMonth(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to get opportunities: %w", err)
	}

	goals, err := s.goalsRepo.ByMonth(ctx, userID, month)
	if errors.Is(err, repository.ErrGoalsNotFound) {
		goals = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get goals: %w", err)
	}

	if opps == nil {
		opps = []*model.Opportunity{}
	}

	return &PipelineView{
		Month:         month,
		Summary:       pipeline.Aggregate(opps, goals),
		Health:        pipeline.Health(opps, s.now().UTC()),
		Opportunities: opps,
	}, nil
}

func (s *OpportunityService) validate(ctx context.Context, userID string, opp *model.Opportunity) error {
	opp.Title = strings.TrimSpace(opp.Title)
	if err := validation.ValidateOpportunity(opp); err != nil {
		return err
	}

	if opp.ContactID != nil && *opp.ContactID != "" {
		_, err := s.contactRepo.ByID(ctx, userID, *opp.ContactID)
		if errors.Is(err, repository.ErrContactNotFound) {
			return validation.Invalid("contact_id", "contact does not exist")
		}
		if err != nil {
			return err
		}
	} else {
		opp.ContactID = nil
	}

	return nil
}

func normalizeClosed(opp *model.Opportunity) {
	switch opp.Stage {
	case model.StageWon:
		opp.Probability = 100
	case model.StageLost:
		opp.Probability = 0
	}
}

type ContactService struct {
	contactRepo  repository.ContactRepository
	usageService *UsageService
}

func NewContactService(contactRepo repository.ContactRepository, usageService *UsageService) *ContactService {
	return &ContactService{contactRepo: contactRepo, usageService: usageService}
}

func (s *ContactService) Create(ctx context.Context, userID string, contact *model.Contact) (*model.Contact, error) {
	contact.UserID = userID
	contact.ID = ""

	if err := s.validate(ctx, userID, contact); err != nil {
		return nil, err
	}

	err := s.contactRepo.Create(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeatureContacts)
	return contact, nil
}

func (s *ContactService) ByID(ctx context.Context, userID, id string) (*model.Contact, error) {
	return s.contactRepo.ByID(ctx, userID, id)
}

func (s *ContactService) List(ctx context.Context, userID string) ([]*model.Contact, error) {
	return s.contactRepo.List(ctx, userID)
}

func (s *ContactService) Update(ctx context.Context, userID, id string, contact *model.Contact) (*model.Contact, error) {
	existing, err := s.contactRepo.ByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	contact.ID = existing.ID
	contact.UserID = userID
	contact.CreatedAt = existing.CreatedAt

	if err := s.validate(ctx, userID, contact); err != nil {
		return nil, err
	}

	err = s.contactRepo.Update(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	s.usageService.Record(ctx, userID, model.FeatureContacts)
	return contact, nil
}

func (s *ContactService) Delete(ctx context.Context, userID, id string) error {
	return s.contactRepo.Delete(ctx, userID, id)
}

func (s *ContactService) ReferralStats(ctx context.Context, userID string) ([]*model.ReferralStats, error) {
	return s.contactRepo.ReferralStats(ctx, userID)
}

func (s *ContactService) validate(ctx context.Context, userID string, contact *model.Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(strings.ToLower(contact.Email))
	if contact.Relationship == "" {
		contact.Relationship = model.RelationshipProspect
	}

	if err := validation.ValidateContact(contact); err != nil {
		return err
	}

	if contact.ReferredByID != nil && *contact.ReferredByID != "" {
		_, err := s.contactRepo.ByID(ctx, userID, *contact.ReferredByID)
		if errors.Is(err, repository.ErrContactNotFound) {
			return validation.Invalid("referred_by_id", "referring contact does not exist")
		}
		if err != nil {
			return err
		}
	} else {
		contact.ReferredByID = nil
	}

	return nil
}
