// Package pipeline aggregates sales opportunities into per-type progress
// against the monthly customer targets.
package pipeline

import (
	"math"
	"time"

	"github.com/templui/fractional/internal/model"
)

const (
	StatusAchieved = "achieved"
	StatusOnTrack  = "on-track"
	StatusBehind   = "behind"
	StatusCritical = "critical"
)

// StaleAfter is how long an open opportunity may go without an update
// before it counts as stale.
const StaleAfter = 14 * 24 * time.Hour

type TypeProgress struct {
	Type                  string  `json:"type"`
	Target                float64 `json:"target"`
	Achieved              int     `json:"achieved"`
	InPipeline            int     `json:"in_pipeline"`
	PipelineValue         float64 `json:"pipeline_value"`
	WeightedPipelineValue float64 `json:"weighted_pipeline_value"`
	Progress              float64 `json:"progress"`
	Status                string  `json:"status"`
}

type RevenueProgress struct {
	Won      float64 `json:"won"`
	Forecast float64 `json:"forecast"`
	Progress float64 `json:"progress"`
}

type Summary struct {
	Types                 []TypeProgress  `json:"types"`
	Revenue               RevenueProgress `json:"revenue"`
	PipelineValue         float64         `json:"pipeline_value"`
	WeightedPipelineValue float64         `json:"weighted_pipeline_value"`
}

// Type returns the progress entry for typ, or a zero entry when unknown.
func (s Summary) Type(typ string) TypeProgress {
	for _, t := range s.Types {
		if t.Type == typ {
			return t
		}
	}
	return TypeProgress{Type: typ}
}

// TargetFor maps an opportunity type to its monthly goal.
func TargetFor(goals *model.MonthlyGoals, typ string) float64 {
	if goals == nil {
		return 0
	}
	switch typ {
	case model.OpportunityTypeWorkshop:
		return goals.WorkshopCustomers
	case model.OpportunityTypeAdvisory:
		return goals.AdvisoryCustomers
	case model.OpportunityTypeLecture:
		return goals.Lectures
	case model.OpportunityTypePR:
		return goals.PRArticles
	}
	return 0
}

// Aggregate partitions opportunities by type and measures each type against
// its target. Revenue progress sums won value over all types against the
// revenue forecast.
func Aggregate(opportunities []*model.Opportunity, goals *model.MonthlyGoals) Summary {
	byType := make(map[string]*TypeProgress, len(model.OpportunityTypes))
	summary := Summary{Types: make([]TypeProgress, 0, len(model.OpportunityTypes))}

	for _, typ := range model.OpportunityTypes {
		byType[typ] = &TypeProgress{Type: typ, Target: TargetFor(goals, typ)}
	}

	for _, o := range opportunities {
		if o == nil {
			continue
		}

		if o.IsWon() {
			summary.Revenue.Won += o.EstimatedValue
		}

		tp, ok := byType[o.Type]
		if !ok {
			continue
		}

		switch {
		case o.IsWon():
			tp.Achieved++
		case o.InPipeline():
			tp.InPipeline++
			tp.PipelineValue += o.EstimatedValue
			tp.WeightedPipelineValue += weighted(o)
		}
	}

	for _, typ := range model.OpportunityTypes {
		tp := byType[typ]
		tp.Progress = typeProgress(tp.Achieved, tp.Target)
		tp.Status = Status(tp.Progress)

		summary.PipelineValue += tp.PipelineValue
		summary.WeightedPipelineValue += tp.WeightedPipelineValue
		summary.Types = append(summary.Types, *tp)
	}

	if goals != nil {
		summary.Revenue.Forecast = goals.RevenueForecast
	}
	if summary.Revenue.Forecast > 0 {
		summary.Revenue.Progress = summary.Revenue.Won / summary.Revenue.Forecast * 100
	}

	return summary
}

// WeightedValue returns the probability-weighted value of the open
// opportunities in opportunities.
func WeightedValue(opportunities []*model.Opportunity) float64 {
	var total float64
	for _, o := range opportunities {
		if o != nil && o.InPipeline() {
			total += weighted(o)
		}
	}
	return total
}

// Status bands a progress percentage.
func Status(progress float64) string {
	switch {
	case progress >= 100:
		return StatusAchieved
	case progress >= 75:
		return StatusOnTrack
	case progress >= 50:
		return StatusBehind
	default:
		return StatusCritical
	}
}

func typeProgress(achieved int, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(float64(achieved)/target*100, 100)
}

func weighted(o *model.Opportunity) float64 {
	return o.EstimatedValue * o.Probability / 100
}
