package service

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/db/dbtest"
	"github.com/templui/fractional/internal/repository"
)

var september15 = time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

type testEnv struct {
	conn     *sqlx.DB
	userID   string
	usage    *UsageService
	tracking *TrackingService
	goals    *GoalsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn := dbtest.New(t)
	userID := dbtest.CreateUser(t, conn, "u1", "dana@example.com")

	usage := NewUsageService(repository.NewUsageRepository(conn))
	usage.now = fixedClock(september15)

	tracking := NewTrackingService(
		conn,
		repository.NewMonthlyGoalsRepository(conn),
		repository.NewDailyActualsRepository(conn),
		repository.NewAchievementRepository(conn),
		usage,
	)
	tracking.now = fixedClock(september15)

	return &testEnv{
		conn:     conn,
		userID:   userID,
		usage:    usage,
		tracking: tracking,
		goals:    NewGoalsService(repository.NewMonthlyGoalsRepository(conn), usage),
	}
}
