// Package achievement keeps the tracking streak and the achievement badges
// up to date as daily actuals are saved.
//
// Evaluation is pure: callers load a State, run Evaluate and persist the
// returned State through a StateStore. The tracking service does the load,
// evaluate and save inside the same transaction as the actuals write.
package achievement

import (
	"context"
	"time"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/progress"
)

// WeekStreakDays is the streak length that unlocks the week streak badge.
const WeekStreakDays = 7

// RevenueTargetDivisor turns a monthly revenue goal into a daily target.
const RevenueTargetDivisor = 30

// State is everything the evaluator reads and writes for one user.
type State struct {
	Streak       model.StreakData    `json:"streak"`
	Achievements []model.Achievement `json:"achievements"`
}

// StateStore loads and saves a user's State.
type StateStore interface {
	Load(ctx context.Context, userID string) (State, error)
	Save(ctx context.Context, userID string, state State) error
}

// Input describes the daily actuals that triggered an evaluation.
type Input struct {
	Actuals     *model.DailyActuals
	Goals       *model.MonthlyGoals
	MonthTotals map[string]float64 // month-to-date sums including Actuals
	Today       time.Time
}

// NewState returns the state of a user who has never tracked anything.
func NewState() State {
	return State{Achievements: model.AchievementCatalog()}
}

// Normalize merges the stored achievements into the current catalog so new
// catalog entries show up locked and retired ones are dropped.
func (s State) Normalize() State {
	stored := make(map[string]model.Achievement, len(s.Achievements))
	for _, a := range s.Achievements {
		stored[a.ID] = a
	}

	catalog := model.AchievementCatalog()
	for i, a := range catalog {
		if prev, ok := stored[a.ID]; ok && prev.Unlocked {
			catalog[i].Unlocked = true
			catalog[i].UnlockedDate = prev.UnlockedDate
		}
	}

	s.Achievements = catalog
	return s
}

// UpdateStreak advances the streak for an entry dated date.
//
// Only entries for today move the streak. A today entry right after
// yesterday's extends it, any other gap restarts it at 1. Saving today
// again, or backfilling an earlier day, leaves the streak unchanged:
// a streak counts calendar days, not saves.
func UpdateStreak(streak model.StreakData, date, today time.Time) model.StreakData {
	todayKey := model.DateKey(today)
	if model.DateKey(date) != todayKey {
		return streak
	}
	if streak.LastUpdated == todayKey {
		return streak
	}

	yesterday := model.DateKey(today.AddDate(0, 0, -1))
	if streak.LastUpdated == yesterday {
		streak.CurrentStreak++
	} else {
		streak.CurrentStreak = 1
	}

	streak.BestStreak = max(streak.BestStreak, streak.CurrentStreak)
	streak.TotalDaysTracked++
	streak.LastUpdated = todayKey

	return streak
}

// CheckAchievements unlocks every achievement whose rule holds for state
// and in. Already unlocked achievements are never touched, so repeated
// checks with the same input unlock nothing new.
func CheckAchievements(state State, in Input) (State, []model.Achievement) {
	state = state.Normalize()

	var unlocked []model.Achievement
	for i := range state.Achievements {
		a := &state.Achievements[i]
		if a.Unlocked || !qualifies(a.ID, state, in) {
			continue
		}

		when := in.Today
		a.Unlocked = true
		a.UnlockedDate = &when
		unlocked = append(unlocked, *a)
	}

	return state, unlocked
}

// Evaluate runs the streak update followed by the achievement check.
func Evaluate(state State, in Input) (State, []model.Achievement, error) {
	if in.Actuals != nil {
		date, err := model.ParseDate(in.Actuals.Date)
		if err != nil {
			return state, nil, err
		}
		state.Streak = UpdateStreak(state.Streak, date, in.Today)
	}

	next, unlocked := CheckAchievements(state, in)
	return next, unlocked, nil
}

func qualifies(id string, state State, in Input) bool {
	switch id {
	case model.AchievementFirstEntry:
		return in.Actuals != nil || state.Streak.TotalDaysTracked > 0
	case model.AchievementWeekStreak:
		return state.Streak.CurrentStreak >= WeekStreakDays
	case model.AchievementRevenueTarget:
		if in.Actuals == nil || in.Goals == nil || in.Goals.GrossRevenue <= 0 {
			return false
		}
		if in.Actuals.Date != model.DateKey(in.Today) {
			return false
		}
		return in.Actuals.GrossRevenue >= in.Goals.GrossRevenue/RevenueTargetDivisor
	case model.AchievementMonthComplete:
		return progress.AllGoalsMet(in.Goals, in.MonthTotals)
	}
	return false
}
