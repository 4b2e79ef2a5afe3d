package model

import (
	"time"
)

// StreakData is derived from daily entries and recomputed incrementally.
type StreakData struct {
	CurrentStreak    int    `db:"current_streak" json:"current_streak"`
	BestStreak       int    `db:"best_streak" json:"best_streak"`
	TotalDaysTracked int    `db:"total_days_tracked" json:"total_days_tracked"`
	LastUpdated      string `db:"last_updated" json:"last_updated"` // YYYY-MM-DD, empty before the first entry
}

const (
	AchievementFirstEntry    = "first_entry"
	AchievementWeekStreak    = "week_streak"
	AchievementRevenueTarget = "revenue_target"
	AchievementMonthComplete = "month_complete"
)

type Achievement struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Unlocked     bool       `json:"unlocked"`
	UnlockedDate *time.Time `json:"unlocked_date,omitempty"`
}

// AchievementCatalog returns a fresh copy of the static catalog with every
// entry locked.
func AchievementCatalog() []Achievement {
	return []Achievement{
		{
			ID:          AchievementFirstEntry,
			Title:       "First entry",
			Description: "Logged your first daily numbers",
		},
		{
			ID:          AchievementWeekStreak,
			Title:       "Week streak",
			Description: "Tracked seven days in a row",
		},
		{
			ID:          AchievementRevenueTarget,
			Title:       "Daily revenue target",
			Description: "Hit a day's share of the monthly revenue goal",
		},
		{
			ID:          AchievementMonthComplete,
			Title:       "Month complete",
			Description: "Met every monthly goal",
		},
	}
}
