package progress

import (
	"time"

	"github.com/templui/fractional/internal/model"
)

// MetricProgress is the month-to-date standing of one metric.
type MetricProgress struct {
	Metric        string  `json:"metric"`
	Label         string  `json:"label"`
	Current       float64 `json:"current"`
	MonthlyTarget float64 `json:"monthly_target"`
	Target        float64 `json:"target"` // pro-rated to the evaluated day
	Reversed      bool    `json:"reversed"`
	Result
}

// ProRatedTarget returns the share of a monthly target due by date:
// monthly * day / daysInMonth.
func ProRatedTarget(monthly float64, date time.Time) float64 {
	return monthly * float64(date.Day()) / float64(model.DaysInMonth(date))
}

// Elapsed returns how many days of month have passed as of asOf, and the
// length of the month. Months entirely in the past count as fully elapsed,
// future months as not started.
func Elapsed(month string, asOf time.Time) (day, days int, err error) {
	start, err := model.ParseMonth(month)
	if err != nil {
		return 0, 0, err
	}
	days = model.DaysInMonth(start)

	asOfMonth := model.MonthKey(asOf)
	switch {
	case asOfMonth == month:
		return asOf.Day(), days, nil
	case asOfMonth > month:
		return days, days, nil
	default:
		return 0, days, nil
	}
}

// Totals sums actuals per metric, keeping only entries of month dated on or
// before asOf.
func Totals(month string, actuals []*model.DailyActuals, asOf time.Time) map[string]float64 {
	cutoff := model.DateKey(asOf)
	totals := make(map[string]float64, len(model.Metrics))
	for _, a := range actuals {
		if a == nil || a.Month != month || a.Date > cutoff {
			continue
		}
		for _, metric := range model.Metrics {
			totals[metric] += a.Metric(metric)
		}
	}
	return totals
}

// MonthToDate evaluates every metric of goals against the actuals logged so
// far, comparing each sum to the target pro-rated to asOf.
func MonthToDate(goals *model.MonthlyGoals, actuals []*model.DailyActuals, asOf time.Time) ([]MetricProgress, error) {
	if goals == nil {
		return nil, nil
	}

	day, days, err := Elapsed(goals.Month, asOf)
	if err != nil {
		return nil, err
	}

	totals := Totals(goals.Month, actuals, asOf)

	result := make([]MetricProgress, 0, len(model.Metrics))
	for _, metric := range model.Metrics {
		monthly := goals.Metric(metric)
		target := monthly * float64(day) / float64(days)
		reversed := model.IsReversedMetric(metric)

		result = append(result, MetricProgress{
			Metric:        metric,
			Label:         model.MetricLabel(metric),
			Current:       totals[metric],
			MonthlyTarget: monthly,
			Target:        target,
			Reversed:      reversed,
			Result:        Calculate(totals[metric], target, reversed),
		})
	}

	return result, nil
}

// AllGoalsMet reports whether month-to-date totals meet every non-zero
// monthly target. Budgets count as met while spending stays within them.
func AllGoalsMet(goals *model.MonthlyGoals, totals map[string]float64) bool {
	if goals == nil {
		return false
	}

	hasTarget := false
	for _, metric := range model.Metrics {
		target := goals.Metric(metric)
		if target <= 0 {
			continue
		}
		if model.IsReversedMetric(metric) {
			if totals[metric] > target {
				return false
			}
			continue
		}
		hasTarget = true
		if totals[metric] < target {
			return false
		}
	}
	return hasTarget
}
