package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/progress"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/validation"
)

type recordingTrigger struct {
	users []string
}

func (r *recordingTrigger) Trigger(_ context.Context, userID string) {
	r.users = append(r.users, userID)
}

func unlockedIDs(achievements []model.Achievement) []string {
	var ids []string
	for _, a := range achievements {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestTrackingService_SaveActuals(t *testing.T) {
	env := newTestEnv(t)
	trigger := &recordingTrigger{}
	env.tracking.SetInsightTrigger(trigger)
	ctx := context.Background()

	_, err := env.goals.Save(ctx, env.userID, &model.MonthlyGoals{Month: "2026-09", GrossRevenue: 30000})
	require.NoError(t, err)

	result, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 1500})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, 1, result.Streak.TotalDaysTracked)
	assert.Equal(t, "2026-09-15", result.Streak.LastUpdated)
	assert.ElementsMatch(t, []string{model.AchievementFirstEntry, model.AchievementRevenueTarget}, unlockedIDs(result.NewlyUnlocked))
	assert.Len(t, result.Achievements, len(model.AchievementCatalog()))
	assert.Equal(t, []string{env.userID}, trigger.users)

	// Saving the same day again replaces the numbers but unlocks nothing
	// and leaves the streak alone.
	again, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 1600})
	require.NoError(t, err)
	assert.Empty(t, again.NewlyUnlocked)
	assert.Equal(t, 1, again.Streak.TotalDaysTracked)
	assert.Equal(t, result.Actuals.ID, again.Actuals.ID)

	stored, err := env.tracking.ActualsByDate(ctx, env.userID, "2026-09-15")
	require.NoError(t, err)
	assert.Equal(t, 1600.0, stored.GrossRevenue)

	usage, err := env.usage.List(ctx, env.userID)
	require.NoError(t, err)
	require.NotEmpty(t, usage)
}

func TestTrackingService_SaveActualsRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-16"})
	assert.True(t, validation.IsValidation(err), "future date")

	_, err = env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "15.09.2026"})
	assert.True(t, validation.IsValidation(err))

	_, err = env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", Costs: -1})
	assert.True(t, validation.IsValidation(err))
}

func TestTrackingService_BackfillKeepsStreak(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15"})
	require.NoError(t, err)

	result, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-10", SiteVisits: 40})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, 1, result.Streak.TotalDaysTracked)
}

func TestTrackingService_SaveActualsRollsBackWhenAchievementsFail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// The streak row is written before the unlocks, so this fails the
	// state save halfway through.
	_, err := env.conn.Exec(`
		CREATE TRIGGER fail_unlocks BEFORE INSERT ON achievements
		BEGIN SELECT RAISE(ABORT, 'achievements unavailable'); END`)
	require.NoError(t, err)

	_, err = env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 900})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save achievements")

	_, err = env.tracking.ActualsByDate(ctx, env.userID, "2026-09-15")
	assert.ErrorIs(t, err, repository.ErrActualsNotFound)

	var streaks, unlocks int
	require.NoError(t, env.conn.Get(&streaks, `SELECT COUNT(*) FROM streaks WHERE user_id = $1`, env.userID))
	require.NoError(t, env.conn.Get(&unlocks, `SELECT COUNT(*) FROM achievements WHERE user_id = $1`, env.userID))
	assert.Zero(t, streaks)
	assert.Zero(t, unlocks)

	_, err = env.conn.Exec(`DROP TRIGGER fail_unlocks`)
	require.NoError(t, err)

	result, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 900})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak.TotalDaysTracked)
}

func TestTrackingService_IgnoresClientOwnedFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 100})
	require.NoError(t, err)

	forged := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	again, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{
		ID:           "chosen-id",
		Date:         "2026-09-15",
		Month:        "1999-01",
		GrossRevenue: 200,
		CreatedAt:    forged,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Actuals.ID, again.Actuals.ID)
	assert.Equal(t, "2026-09", again.Actuals.Month)
	assert.NotEqual(t, forged, again.Actuals.CreatedAt)

	fresh, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{ID: "chosen-id", Date: "2026-09-14"})
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-id", fresh.Actuals.ID)

	goals, err := env.goals.Save(ctx, env.userID, &model.MonthlyGoals{ID: "chosen-id", Month: "2026-09", CreatedAt: forged})
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-id", goals.ID)
	assert.NotEqual(t, forged, goals.CreatedAt)
}

func TestTrackingService_SameDayResave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Yesterday's entry starts the run; today extends it once.
	env.tracking.now = fixedClock(september15.AddDate(0, 0, -1))
	_, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-14"})
	require.NoError(t, err)

	env.tracking.now = fixedClock(september15)
	first, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", SiteVisits: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Streak.CurrentStreak)
	assert.Equal(t, 2, first.Streak.TotalDaysTracked)

	for range 3 {
		again, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", SiteVisits: 12})
		require.NoError(t, err)
		assert.Equal(t, first.Streak, again.Streak)
	}
}

func TestTrackingService_Summary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.goals.Save(ctx, env.userID, &model.MonthlyGoals{Month: "2026-09", GrossRevenue: 50000})
	require.NoError(t, err)
	_, err = env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15", GrossRevenue: 2000})
	require.NoError(t, err)

	summary, err := env.tracking.Summary(ctx, env.userID, "2026-09")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", summary.AsOf)
	assert.Len(t, summary.Actuals, 1)
	assert.False(t, summary.AllGoalsMet)
	assert.Equal(t, 1, summary.Streak.CurrentStreak)

	var revenue progress.MetricProgress
	for _, m := range summary.Progress {
		if m.Metric == model.MetricGrossRevenue {
			revenue = m
		}
	}
	assert.InDelta(t, 25000, revenue.Target, 1e-9)
	assert.InDelta(t, 8, revenue.Percentage, 1e-9)
	assert.Equal(t, progress.StatusBehind, revenue.Status)

	past, err := env.tracking.Summary(ctx, env.userID, "2026-08")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-31", past.AsOf)
	assert.Empty(t, past.Actuals)

	_, err = env.tracking.Summary(ctx, env.userID, "September")
	assert.True(t, validation.IsValidation(err))
}

func TestTrackingService_ImportRevenue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-14", GrossRevenue: 100, Notes: "workshop deposit"})
	require.NoError(t, err)

	invoice := RevenuePayment{Provider: "stripe", Reference: "in_123", Date: "2026-09-14", Amount: 1500, Note: "stripe in_123: 1,500.00 USD"}

	_, imported, err := env.tracking.ImportRevenue(ctx, env.userID, invoice)
	require.NoError(t, err)
	assert.True(t, imported)

	_, imported, err = env.tracking.ImportRevenue(ctx, env.userID, invoice)
	require.NoError(t, err)
	assert.False(t, imported, "redelivery is skipped")

	stored, err := env.tracking.ActualsByDate(ctx, env.userID, "2026-09-14")
	require.NoError(t, err)
	assert.Equal(t, 1600.0, stored.GrossRevenue)
	assert.Equal(t, "workshop deposit; stripe in_123: 1,500.00 USD", stored.Notes)

	_, _, err = env.tracking.ImportRevenue(ctx, env.userID, RevenuePayment{Provider: "stripe", Reference: "in_0", Date: "2026-09-14"})
	assert.True(t, validation.IsValidation(err))
}

func TestTrackingService_ImportRevenueSurvivesEditedNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	invoice := RevenuePayment{Provider: "stripe", Reference: "in_123", Date: "2026-09-14", Amount: 1500, Note: "stripe in_123: 1,500.00 USD"}
	_, imported, err := env.tracking.ImportRevenue(ctx, env.userID, invoice)
	require.NoError(t, err)
	require.True(t, imported)

	// The user rewrites the day by hand, dropping the payment note.
	_, err = env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-14", GrossRevenue: 1500, Notes: "retainer"})
	require.NoError(t, err)

	_, imported, err = env.tracking.ImportRevenue(ctx, env.userID, invoice)
	require.NoError(t, err)
	assert.False(t, imported)

	stored, err := env.tracking.ActualsByDate(ctx, env.userID, "2026-09-14")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, stored.GrossRevenue)
	assert.Equal(t, "retainer", stored.Notes)
}

func TestTrackingService_DeleteActuals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.tracking.SaveActuals(ctx, env.userID, &model.DailyActuals{Date: "2026-09-15"})
	require.NoError(t, err)

	require.NoError(t, env.tracking.DeleteActuals(ctx, env.userID, "2026-09-15"))
	assert.Error(t, env.tracking.DeleteActuals(ctx, env.userID, "2026-09-15"))

	state, err := env.tracking.Achievements(ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak.TotalDaysTracked, "deleting does not rewrite history")
}

func TestGoalsService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	empty, err := env.goals.ByMonth(ctx, env.userID, "2026-10")
	require.NoError(t, err)
	assert.Zero(t, empty.GrossRevenue)

	_, err = env.goals.Save(ctx, env.userID, &model.MonthlyGoals{Month: "2026-10", GrossRevenue: -5})
	assert.True(t, validation.IsValidation(err))

	_, err = env.goals.Save(ctx, env.userID, &model.MonthlyGoals{Month: "2026-10", GrossRevenue: 40000, Lectures: 2})
	require.NoError(t, err)

	list, err := env.goals.List(ctx, env.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2.0, list[0].Lectures)

	require.NoError(t, env.goals.Delete(ctx, env.userID, "2026-10"))
}
