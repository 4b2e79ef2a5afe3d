package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

func newPipelineServices(t *testing.T) (*testEnv, *OpportunityService, *ContactService) {
	env := newTestEnv(t)
	contactRepo := repository.NewContactRepository(env.conn)

	opps := NewOpportunityService(
		repository.NewOpportunityRepository(env.conn),
		contactRepo,
		repository.NewMonthlyGoalsRepository(env.conn),
		env.usage,
	)
	opps.now = fixedClock(september15)

	return env, opps, NewContactService(contactRepo, env.usage)
}

func TestOpportunityService_Lifecycle(t *testing.T) {
	env, s, _ := newPipelineServices(t)
	ctx := context.Background()

	opp, err := s.Create(ctx, env.userID, &model.Opportunity{
		Title:          " Board retreat ",
		Type:           model.OpportunityTypeWorkshop,
		EstimatedValue: 5000,
		Probability:    40,
	})
	require.NoError(t, err)
	assert.Equal(t, "Board retreat", opp.Title)
	assert.Equal(t, model.StageLead, opp.Stage)
	assert.Equal(t, "2026-09", opp.Month)

	won, err := s.UpdateStage(ctx, env.userID, opp.ID, model.StageWon, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, won.Probability)

	lost, err := s.UpdateStage(ctx, env.userID, opp.ID, model.StageLost, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, lost.Probability)

	p := 150.0
	_, err = s.UpdateStage(ctx, env.userID, opp.ID, model.StageProposal, &p)
	assert.True(t, validation.IsValidation(err))

	_, err = s.UpdateStage(ctx, env.userID, opp.ID, "closed", nil)
	assert.True(t, validation.IsValidation(err))

	require.NoError(t, s.Delete(ctx, env.userID, opp.ID))
	_, err = s.ByID(ctx, env.userID, opp.ID)
	assert.ErrorIs(t, err, repository.ErrOpportunityNotFound)
}

func TestOpportunityService_RejectsUnknownContact(t *testing.T) {
	env, s, _ := newPipelineServices(t)
	missing := "missing"

	_, err := s.Create(context.Background(), env.userID, &model.Opportunity{
		Title:     "Keynote",
		Type:      model.OpportunityTypeLecture,
		ContactID: &missing,
	})
	assert.True(t, validation.IsValidation(err))
}

func TestOpportunityService_View(t *testing.T) {
	env, s, _ := newPipelineServices(t)
	ctx := context.Background()

	_, err := env.goals.Save(ctx, env.userID, &model.MonthlyGoals{Month: "2026-09", AdvisoryCustomers: 2})
	require.NoError(t, err)

	for _, o := range []*model.Opportunity{
		{Title: "A", Type: model.OpportunityTypeAdvisory, Stage: model.StageProposal, EstimatedValue: 1000, Probability: 50},
		{Title: "B", Type: model.OpportunityTypeAdvisory, Stage: model.StageWon, EstimatedValue: 3000},
		{Title: "C", Type: model.OpportunityTypeWorkshop, Stage: model.StageLead, EstimatedValue: 2000, Probability: 10, Month: "2026-10"},
	} {
		_, err := s.Create(ctx, env.userID, o)
		require.NoError(t, err)
	}

	view, err := s.View(ctx, env.userID, "2026-09")
	require.NoError(t, err)
	assert.Len(t, view.Opportunities, 2)
	assert.InDelta(t, 500, view.Summary.WeightedPipelineValue, 1e-9)

	advisory := view.Summary.Type(model.OpportunityTypeAdvisory)
	assert.Equal(t, 1, advisory.Achieved)
	assert.Equal(t, 1, advisory.InPipeline)
	assert.Equal(t, 1, view.Health.Won)
}

func TestContactService(t *testing.T) {
	env, opps, s := newPipelineServices(t)
	ctx := context.Background()

	partner, err := s.Create(ctx, env.userID, &model.Contact{Name: "Priya", Relationship: model.RelationshipReferralPartner})
	require.NoError(t, err)

	client, err := s.Create(ctx, env.userID, &model.Contact{Name: "Sam", Email: "SAM@example.com", ReferredByID: &partner.ID})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", client.Email)
	assert.Equal(t, model.RelationshipProspect, client.Relationship)

	missing := "missing"
	_, err = s.Create(ctx, env.userID, &model.Contact{Name: "Lee", ReferredByID: &missing})
	assert.True(t, validation.IsValidation(err))

	_, err = s.Update(ctx, env.userID, partner.ID, &model.Contact{Name: "Priya", ReferredByID: &partner.ID})
	assert.True(t, validation.IsValidation(err), "self referral")

	_, err = opps.Create(ctx, env.userID, &model.Opportunity{
		Title: "Advisory retainer", Type: model.OpportunityTypeAdvisory, Stage: model.StageWon,
		EstimatedValue: 4000, ContactID: &client.ID,
	})
	require.NoError(t, err)

	stats, err := s.ReferralStats(ctx, env.userID)
	require.NoError(t, err)

	var partnerStats *model.ReferralStats
	for _, st := range stats {
		if st.ContactID == partner.ID {
			partnerStats = st
		}
	}
	require.NotNil(t, partnerStats)
	assert.Equal(t, 1, partnerStats.Referrals)
	assert.Equal(t, 1, partnerStats.WonOpportunities)
	assert.Equal(t, 4000.0, partnerStats.WonValue)

	require.NoError(t, s.Delete(ctx, env.userID, client.ID))
	list, err := s.List(ctx, env.userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
