// Package progress classifies how a tracked number compares to its target.
package progress

import (
	"fmt"
	"math"
)

const (
	StatusAhead   = "ahead"
	StatusOnTrack = "on-track"
	StatusBehind  = "behind"
)

const (
	TrendUp   = "up"
	TrendDown = "down"
)

// Result is the outcome of comparing a current value to a target.
type Result struct {
	Status     string  `json:"status"`
	Percentage float64 `json:"percentage"`
	Trend      string  `json:"trend"`
	Message    string  `json:"message"`
}

// Calculate compares current to target. When reversed is true lower values
// are better, as with costs against a budget.
//
// Percentage is current/target*100 for normal metrics and is not clamped.
// For reversed metrics it is the effective score ((target-current)/target*100)+100
// clamped to [0, 200].
func Calculate(current, target float64, reversed bool) Result {
	if target == 0 {
		return zeroTarget(current)
	}

	result := Result{Trend: trend(current, target)}

	if reversed {
		effective := ((target-current)/target)*100 + 100
		result.Percentage = clamp(effective, 0, 200)

		over := (current - target) / target * 100
		switch {
		case current <= target*0.9:
			result.Status = StatusAhead
			result.Message = fmt.Sprintf("%d%% under budget", roundPct(-over))
		case current <= target*1.1:
			result.Status = StatusOnTrack
			if over > 0 {
				result.Message = fmt.Sprintf("Within budget tolerance, %d%% over", roundPct(over))
			} else {
				result.Message = fmt.Sprintf("Within budget, %d%% under", roundPct(-over))
			}
		default:
			result.Status = StatusBehind
			result.Message = fmt.Sprintf("%d%% over budget", roundPct(over))
		}
		return result
	}

	percentage := current / target * 100
	result.Percentage = percentage

	delta := percentage - 100
	switch {
	case percentage >= 110:
		result.Status = StatusAhead
		result.Message = fmt.Sprintf("%d%% ahead of target", roundPct(delta))
	case percentage >= 90:
		result.Status = StatusOnTrack
		if delta >= 0 {
			result.Message = fmt.Sprintf("On track, %d%% above target", roundPct(delta))
		} else {
			result.Message = fmt.Sprintf("On track, %d%% below target", roundPct(-delta))
		}
	default:
		result.Status = StatusBehind
		result.Message = fmt.Sprintf("%d%% behind target", roundPct(-delta))
	}

	return result
}

func zeroTarget(current float64) Result {
	if current == 0 {
		return Result{
			Status:     StatusOnTrack,
			Percentage: 0,
			Trend:      trend(current, 0),
			Message:    "No target set",
		}
	}
	return Result{
		Status:     StatusAhead,
		Percentage: 100,
		Trend:      trend(current, 0),
		Message:    "No target set, everything counts",
	}
}

// trend compares against 80% of the same-period target. It consults no
// history, so it is a level indicator rather than a time-series trend.
func trend(current, target float64) string {
	if current > target*0.8 {
		return TrendUp
	}
	return TrendDown
}

func roundPct(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
