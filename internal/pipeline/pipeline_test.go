package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/model"
)

func opp(typ, stage string, value, probability float64) *model.Opportunity {
	return &model.Opportunity{
		Type:           typ,
		Stage:          stage,
		EstimatedValue: value,
		Probability:    probability,
	}
}

func TestWeightedPipelineValue(t *testing.T) {
	opps := []*model.Opportunity{
		opp(model.OpportunityTypeWorkshop, model.StageProposal, 1000, 50),
		opp(model.OpportunityTypeWorkshop, model.StageLead, 2000, 25),
	}

	assert.InDelta(t, 1000, WeightedValue(opps), 1e-9)

	summary := Aggregate(opps, nil)
	assert.InDelta(t, 1000, summary.WeightedPipelineValue, 1e-9)
	assert.InDelta(t, 3000, summary.PipelineValue, 1e-9)

	workshop := summary.Type(model.OpportunityTypeWorkshop)
	assert.Equal(t, 2, workshop.InPipeline)
	assert.InDelta(t, 1000, workshop.WeightedPipelineValue, 1e-9)
}

func TestAggregate_ClosedDealsLeavePipeline(t *testing.T) {
	opps := []*model.Opportunity{
		opp(model.OpportunityTypeAdvisory, model.StageWon, 5000, 100),
		opp(model.OpportunityTypeAdvisory, model.StageLost, 7000, 0),
		opp(model.OpportunityTypeAdvisory, model.StageNegotiation, 4000, 80),
	}

	advisory := Aggregate(opps, nil).Type(model.OpportunityTypeAdvisory)

	assert.Equal(t, 1, advisory.Achieved)
	assert.Equal(t, 1, advisory.InPipeline)
	assert.InDelta(t, 4000, advisory.PipelineValue, 1e-9)
	assert.InDelta(t, 3200, advisory.WeightedPipelineValue, 1e-9)
}

func TestAggregate_TargetsAndStatus(t *testing.T) {
	goals := &model.MonthlyGoals{
		WorkshopCustomers: 4,
		AdvisoryCustomers: 2,
		Lectures:          2,
		PRArticles:        0,
	}
	var opps []*model.Opportunity
	for i := 0; i < 3; i++ {
		opps = append(opps, opp(model.OpportunityTypeWorkshop, model.StageWon, 100, 100))
	}
	opps = append(opps,
		opp(model.OpportunityTypeAdvisory, model.StageWon, 100, 100),
		opp(model.OpportunityTypeAdvisory, model.StageWon, 100, 100),
		opp(model.OpportunityTypeAdvisory, model.StageWon, 100, 100),
		opp(model.OpportunityTypePR, model.StageWon, 100, 100),
	)

	summary := Aggregate(opps, goals)
	require.Len(t, summary.Types, len(model.OpportunityTypes))

	workshop := summary.Type(model.OpportunityTypeWorkshop)
	assert.Equal(t, 4.0, workshop.Target)
	assert.InDelta(t, 75, workshop.Progress, 1e-9)
	assert.Equal(t, StatusOnTrack, workshop.Status)

	advisory := summary.Type(model.OpportunityTypeAdvisory)
	assert.Equal(t, 100.0, advisory.Progress, "progress is capped at 100")
	assert.Equal(t, StatusAchieved, advisory.Status)

	lecture := summary.Type(model.OpportunityTypeLecture)
	assert.Equal(t, 0.0, lecture.Progress)
	assert.Equal(t, StatusCritical, lecture.Status)

	pr := summary.Type(model.OpportunityTypePR)
	assert.Equal(t, 0.0, pr.Progress, "no target means zero progress")
	assert.Equal(t, 1, pr.Achieved)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusAchieved, Status(100))
	assert.Equal(t, StatusOnTrack, Status(99.9))
	assert.Equal(t, StatusOnTrack, Status(75))
	assert.Equal(t, StatusBehind, Status(74))
	assert.Equal(t, StatusBehind, Status(50))
	assert.Equal(t, StatusCritical, Status(49.9))
	assert.Equal(t, StatusCritical, Status(0))
}

func TestAggregate_RevenueAcrossTypes(t *testing.T) {
	goals := &model.MonthlyGoals{RevenueForecast: 20000}
	opps := []*model.Opportunity{
		opp(model.OpportunityTypeWorkshop, model.StageWon, 4000, 100),
		opp(model.OpportunityTypeLecture, model.StageWon, 1000, 100),
		opp(model.OpportunityTypeAdvisory, model.StageProposal, 9000, 50),
	}

	revenue := Aggregate(opps, goals).Revenue
	assert.Equal(t, 5000.0, revenue.Won)
	assert.Equal(t, 20000.0, revenue.Forecast)
	assert.InDelta(t, 25, revenue.Progress, 1e-9)

	assert.Equal(t, 0.0, Aggregate(opps, nil).Revenue.Progress)
}

func TestAggregate_UnknownTypeCountsOnlyTowardRevenue(t *testing.T) {
	opps := []*model.Opportunity{opp("podcast", model.StageWon, 800, 100)}
	summary := Aggregate(opps, &model.MonthlyGoals{RevenueForecast: 1600})

	assert.InDelta(t, 50, summary.Revenue.Progress, 1e-9)
	for _, tp := range summary.Types {
		assert.Zero(t, tp.Achieved, tp.Type)
	}
}

func TestHealth(t *testing.T) {
	now := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

	fresh := opp(model.OpportunityTypeWorkshop, model.StageLead, 1000, 20)
	fresh.UpdatedAt = now.AddDate(0, 0, -3)

	stale := opp(model.OpportunityTypeAdvisory, model.StageProposal, 5000, 60)
	stale.Title = "Board advisory"
	stale.UpdatedAt = now.AddDate(0, 0, -20)

	won := opp(model.OpportunityTypeWorkshop, model.StageWon, 2000, 100)
	lost := opp(model.OpportunityTypeWorkshop, model.StageLost, 2000, 0)
	lost2 := opp(model.OpportunityTypeLecture, model.StageLost, 500, 0)

	h := Health([]*model.Opportunity{fresh, stale, won, lost, lost2}, now)

	assert.Equal(t, 2, h.Open)
	assert.Equal(t, 1, h.Stale)
	assert.Equal(t, []string{"Board advisory"}, h.StaleTitles)
	assert.Equal(t, 1, h.Won)
	assert.Equal(t, 2, h.Lost)
	assert.InDelta(t, 33.333, h.WinRate, 0.001)
	assert.InDelta(t, 6000, h.OpenValue, 1e-9)
	assert.InDelta(t, 3200, h.WeightedOpen, 1e-9)

	assert.Equal(t, 0.0, Health(nil, now).WinRate)
}
