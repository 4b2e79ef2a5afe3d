package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/model"
)

func TestCalculate_PercentageIsRatio(t *testing.T) {
	cases := []struct {
		current, target float64
	}{
		{0, 100},
		{50, 100},
		{2000, 25000},
		{150, 100},
		{1, 3},
		{99999, 7},
	}

	for _, tc := range cases {
		got := Calculate(tc.current, tc.target, false)
		assert.InDelta(t, tc.current/tc.target*100, got.Percentage, 1e-9, "current=%v target=%v", tc.current, tc.target)
	}
}

func TestCalculate_ZeroTarget(t *testing.T) {
	got := Calculate(0, 0, false)
	assert.Equal(t, StatusOnTrack, got.Status)
	assert.Equal(t, 0.0, got.Percentage)

	got = Calculate(42, 0, false)
	assert.Equal(t, StatusAhead, got.Status)
	assert.Equal(t, 100.0, got.Percentage)

	got = Calculate(0, 0, true)
	assert.Equal(t, StatusOnTrack, got.Status)

	got = Calculate(10, 0, true)
	assert.Equal(t, StatusAhead, got.Status)
}

func TestCalculate_Bands(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		want    string
	}{
		{"well ahead", 120, StatusAhead},
		{"exactly 110", 110, StatusAhead},
		{"on target", 100, StatusOnTrack},
		{"exactly 90", 90, StatusOnTrack},
		{"just behind", 89, StatusBehind},
		{"nothing", 0, StatusBehind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Calculate(tt.current, 100, false).Status)
		})
	}
}

func TestCalculate_ReversedBands(t *testing.T) {
	target := 1000.0

	assert.Equal(t, StatusAhead, Calculate(0.89*target, target, true).Status)
	assert.Equal(t, StatusOnTrack, Calculate(1.0*target, target, true).Status)
	assert.Equal(t, StatusOnTrack, Calculate(1.1*target, target, true).Status)
	assert.Equal(t, StatusBehind, Calculate(1.2*target, target, true).Status)
}

func TestCalculate_ReversedPercentageClamped(t *testing.T) {
	assert.InDelta(t, 111, Calculate(890, 1000, true).Percentage, 1e-9)
	assert.InDelta(t, 100, Calculate(1000, 1000, true).Percentage, 1e-9)
	assert.Equal(t, 0.0, Calculate(5000, 1000, true).Percentage)
	assert.Equal(t, 200.0, Calculate(-1000, 1000, true).Percentage)
}

func TestCalculate_Messages(t *testing.T) {
	assert.Equal(t, "25% ahead of target", Calculate(125, 100, false).Message)
	assert.Equal(t, "On track, 5% below target", Calculate(95, 100, false).Message)
	assert.Equal(t, "On track, 0% above target", Calculate(100, 100, false).Message)
	assert.Equal(t, "92% behind target", Calculate(2000, 25000, false).Message)
	assert.Equal(t, "20% under budget", Calculate(800, 1000, true).Message)
	assert.Equal(t, "Within budget tolerance, 5% over", Calculate(1050, 1000, true).Message)
	assert.Equal(t, "50% over budget", Calculate(1500, 1000, true).Message)
}

// The trend field only compares against 80% of the same-period target. If
// it is ever changed to compare against a prior period this test must be
// revisited together with every consumer of Trend.
func TestCalculate_TrendIsLevelAgainstTarget(t *testing.T) {
	assert.Equal(t, TrendUp, Calculate(81, 100, false).Trend)
	assert.Equal(t, TrendDown, Calculate(80, 100, false).Trend)
	assert.Equal(t, TrendDown, Calculate(10, 100, false).Trend)

	// Same inputs always give the same trend, no history is involved.
	first := Calculate(85, 100, false).Trend
	second := Calculate(85, 100, false).Trend
	assert.Equal(t, first, second)

	// Costs use the same literal rule, so spending more reads as "up".
	assert.Equal(t, TrendUp, Calculate(900, 1000, true).Trend)
}

func TestProRatedTarget(t *testing.T) {
	date := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 25000, ProRatedTarget(50000, date), 1e-9)

	lastDay := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 50000, ProRatedTarget(50000, lastDay), 1e-9)
}

func TestMidMonthRevenueScenario(t *testing.T) {
	asOf := time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC)
	goals := &model.MonthlyGoals{Month: "2026-09", GrossRevenue: 50000}
	actuals := []*model.DailyActuals{
		{Date: "2026-09-15", Month: "2026-09", GrossRevenue: 2000},
	}

	metrics, err := MonthToDate(goals, actuals, asOf)
	require.NoError(t, err)

	var revenue MetricProgress
	for _, m := range metrics {
		if m.Metric == model.MetricGrossRevenue {
			revenue = m
		}
	}

	assert.InDelta(t, 25000, revenue.Target, 1e-9)
	assert.InDelta(t, 8, revenue.Percentage, 1e-9)
	assert.Equal(t, StatusBehind, revenue.Status)
}

func TestMonthToDate_IgnoresOtherMonthsAndFutureDays(t *testing.T) {
	asOf := time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC)
	goals := &model.MonthlyGoals{Month: "2026-10", GrossRevenue: 3100, Costs: 310}
	actuals := []*model.DailyActuals{
		{Date: "2026-09-30", Month: "2026-09", GrossRevenue: 9999},
		{Date: "2026-10-01", Month: "2026-10", GrossRevenue: 500, Costs: 20},
		{Date: "2026-10-10", Month: "2026-10", GrossRevenue: 500, Costs: 20},
		{Date: "2026-10-11", Month: "2026-10", GrossRevenue: 9999},
	}

	metrics, err := MonthToDate(goals, actuals, asOf)
	require.NoError(t, err)
	require.Len(t, metrics, len(model.Metrics))

	byMetric := map[string]MetricProgress{}
	for _, m := range metrics {
		byMetric[m.Metric] = m
	}

	assert.Equal(t, 1000.0, byMetric[model.MetricGrossRevenue].Current)
	assert.InDelta(t, 1000, byMetric[model.MetricGrossRevenue].Target, 1e-9)
	assert.Equal(t, StatusOnTrack, byMetric[model.MetricGrossRevenue].Status)

	assert.True(t, byMetric[model.MetricCosts].Reversed)
	assert.Equal(t, StatusAhead, byMetric[model.MetricCosts].Status)

	// No target, nothing logged.
	assert.Equal(t, StatusOnTrack, byMetric[model.MetricLectures].Status)
}

func TestElapsed(t *testing.T) {
	asOf := time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC)

	day, days, err := Elapsed("2026-10", asOf)
	require.NoError(t, err)
	assert.Equal(t, 17, day)
	assert.Equal(t, 31, days)

	day, days, err = Elapsed("2026-09", asOf)
	require.NoError(t, err)
	assert.Equal(t, 30, day)
	assert.Equal(t, 30, days)

	day, _, err = Elapsed("2026-11", asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, day)

	_, _, err = Elapsed("october", asOf)
	assert.Error(t, err)
}

func TestAllGoalsMet(t *testing.T) {
	goals := &model.MonthlyGoals{GrossRevenue: 1000, Costs: 200, Lectures: 2}

	assert.True(t, AllGoalsMet(goals, map[string]float64{
		model.MetricGrossRevenue: 1000,
		model.MetricCosts:        150,
		model.MetricLectures:     3,
	}))
	assert.False(t, AllGoalsMet(goals, map[string]float64{
		model.MetricGrossRevenue: 1000,
		model.MetricCosts:        250,
		model.MetricLectures:     3,
	}))
	assert.False(t, AllGoalsMet(goals, map[string]float64{
		model.MetricGrossRevenue: 999,
		model.MetricLectures:     3,
	}))
	assert.False(t, AllGoalsMet(&model.MonthlyGoals{}, map[string]float64{}))
	assert.False(t, AllGoalsMet(nil, nil))
}
