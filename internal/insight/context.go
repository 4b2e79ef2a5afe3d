// Package insight turns a user's tracking, pipeline and usage data into
// ranked, actionable recommendations.
package insight

import (
	"math"
	"sort"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/pipeline"
	"github.com/templui/fractional/internal/progress"
)

// SchemaVersion is bumped whenever the JSON shape of Context changes, since
// the LLM prompt is written against it.
const SchemaVersion = 1

// Context is everything a strategy may look at.
type Context struct {
	SchemaVersion int                       `json:"schema_version"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Month         string                    `json:"month"`
	Day           int                       `json:"day"`
	DaysInMonth   int                       `json:"days_in_month"`
	Elapsed       float64                   `json:"elapsed"` // share of the month that has passed, 0..1
	Behavior      []BehaviorPattern         `json:"behavior"`
	Goals         []progress.MetricProgress `json:"goals"`
	Pipeline      PipelineContext           `json:"pipeline"`
	Revenue       RevenueTrajectory         `json:"revenue"`
	Habits        Habits                    `json:"habits"`
}

type BehaviorPattern struct {
	Feature      string     `json:"feature"`
	UsageCount   int        `json:"usage_count"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	DaysSinceUse int        `json:"days_since_use"` // -1 when never used
}

type PipelineContext struct {
	Summary pipeline.Summary      `json:"summary"`
	Health  pipeline.HealthReport `json:"health"`
}

type RevenueTrajectory struct {
	MonthlyTarget  float64 `json:"monthly_target"`
	Forecast       float64 `json:"forecast"`
	MonthToDate    float64 `json:"month_to_date"`
	ProRatedTarget float64 `json:"pro_rated_target"`
	PaceRatio      float64 `json:"pace_ratio"` // MonthToDate / ProRatedTarget, 0 without a target
	Projected      float64 `json:"projected"`
	CostsMTD       float64 `json:"costs_month_to_date"`
	Budget         float64 `json:"budget"`
}

type Habits struct {
	CurrentStreak      int    `json:"current_streak"`
	BestStreak         int    `json:"best_streak"`
	TotalDaysTracked   int    `json:"total_days_tracked"`
	LastEntryDate      string `json:"last_entry_date,omitempty"`
	DaysSinceLastEntry int    `json:"days_since_last_entry"` // -1 when nothing was ever logged
	EntriesThisMonth   int    `json:"entries_this_month"`
}

// Inputs are the raw records BuildContext aggregates.
type Inputs struct {
	Now           time.Time
	Goals         *model.MonthlyGoals
	Actuals       []*model.DailyActuals
	Opportunities []*model.Opportunity
	Usage         []*model.FeatureUsage
	Streak        model.StreakData
}

// BuildContext aggregates in for the month containing in.Now.
func BuildContext(in Inputs) (Context, error) {
	now := in.Now
	month := model.MonthKey(now)

	goals := in.Goals
	if goals == nil {
		goals = &model.MonthlyGoals{Month: month}
	}

	c := Context{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   now,
		Month:         month,
		Day:           now.Day(),
		DaysInMonth:   model.DaysInMonth(now),
	}
	c.Elapsed = float64(c.Day) / float64(c.DaysInMonth)

	metrics, err := progress.MonthToDate(goals, in.Actuals, now)
	if err != nil {
		return Context{}, err
	}
	c.Goals = metrics

	totals := progress.Totals(month, in.Actuals, now)
	c.Revenue = RevenueTrajectory{
		MonthlyTarget:  goals.GrossRevenue,
		Forecast:       goals.RevenueForecast,
		MonthToDate:    totals[model.MetricGrossRevenue],
		ProRatedTarget: progress.ProRatedTarget(goals.GrossRevenue, now),
		CostsMTD:       totals[model.MetricCosts],
		Budget:         goals.Costs,
	}
	if c.Revenue.ProRatedTarget > 0 {
		c.Revenue.PaceRatio = c.Revenue.MonthToDate / c.Revenue.ProRatedTarget
	}
	if c.Elapsed > 0 {
		c.Revenue.Projected = math.Round(c.Revenue.MonthToDate / c.Elapsed)
	}

	c.Pipeline = PipelineContext{
		Summary: pipeline.Aggregate(in.Opportunities, goals),
		Health:  pipeline.Health(in.Opportunities, now),
	}

	c.Behavior = behavior(in.Usage, now)
	c.Habits = habits(in.Streak, in.Actuals, month, now)

	return c, nil
}

// Metric returns the progress entry for metric.
func (c Context) Metric(metric string) (progress.MetricProgress, bool) {
	for _, m := range c.Goals {
		if m.Metric == metric {
			return m, true
		}
	}
	return progress.MetricProgress{}, false
}

// Feature returns the usage pattern for feature.
func (c Context) Feature(feature string) (BehaviorPattern, bool) {
	for _, b := range c.Behavior {
		if b.Feature == feature {
			return b, true
		}
	}
	return BehaviorPattern{}, false
}

func behavior(usage []*model.FeatureUsage, now time.Time) []BehaviorPattern {
	seen := make(map[string]*model.FeatureUsage, len(usage))
	for _, u := range usage {
		if u != nil {
			seen[u.Feature] = u
		}
	}

	patterns := make([]BehaviorPattern, 0, len(model.Features))
	for _, feature := range model.Features {
		p := BehaviorPattern{Feature: feature, DaysSinceUse: -1}
		if u, ok := seen[feature]; ok {
			p.UsageCount = u.UsageCount
			last := u.LastUsedAt
			p.LastUsedAt = &last
			p.DaysSinceUse = daysBetween(last, now)
		}
		patterns = append(patterns, p)
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].UsageCount > patterns[j].UsageCount
	})

	return patterns
}

func habits(streak model.StreakData, actuals []*model.DailyActuals, month string, now time.Time) Habits {
	h := Habits{
		CurrentStreak:      streak.CurrentStreak,
		BestStreak:         streak.BestStreak,
		TotalDaysTracked:   streak.TotalDaysTracked,
		DaysSinceLastEntry: -1,
	}

	cutoff := model.DateKey(now)
	for _, a := range actuals {
		if a == nil || a.Date > cutoff {
			continue
		}
		if a.Month == month {
			h.EntriesThisMonth++
		}
		if a.Date > h.LastEntryDate {
			h.LastEntryDate = a.Date
		}
	}

	if h.LastEntryDate != "" {
		if last, err := model.ParseDate(h.LastEntryDate); err == nil {
			h.DaysSinceLastEntry = daysBetween(last, now)
		}
	}

	return h
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
