package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/achievement"
	"github.com/templui/fractional/internal/model"
)

// AchievementRepository persists streaks and unlocked achievements. It is
// the achievement.StateStore used by the tracking service.
type AchievementRepository interface {
	achievement.StateStore
}

type achievementRepository struct {
	db sqlx.ExtContext
}

func NewAchievementRepository(db sqlx.ExtContext) AchievementRepository {
	return &achievementRepository{db: db}
}

type unlockedRow struct {
	AchievementID string    `db:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

func (r *achievementRepository) Load(ctx context.Context, userID string) (achievement.State, error) {
	state := achievement.NewState()

	err := sqlx.GetContext(ctx, r.db, &state.Streak, `
		SELECT current_streak, best_streak, total_days_tracked, last_updated
		FROM streaks WHERE user_id = $1
	`, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return achievement.State{}, err
	}

	var rows []unlockedRow
	err = sqlx.SelectContext(ctx, r.db, &rows, `SELECT achievement_id, unlocked_at FROM achievements WHERE user_id = $1`, userID)
	if err != nil {
		return achievement.State{}, err
	}

	stored := make([]model.Achievement, 0, len(rows))
	for _, row := range rows {
		unlockedAt := row.UnlockedAt
		stored = append(stored, model.Achievement{ID: row.AchievementID, Unlocked: true, UnlockedDate: &unlockedAt})
	}
	state.Achievements = stored

	return state.Normalize(), nil
}

// Save writes the streak and records newly unlocked achievements. Unlocks
// are never revoked.
func (r *achievementRepository) Save(ctx context.Context, userID string, state achievement.State) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, current_streak, best_streak, total_days_tracked, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			best_streak = excluded.best_streak,
			total_days_tracked = excluded.total_days_tracked,
			last_updated = excluded.last_updated
	`, userID, state.Streak.CurrentStreak, state.Streak.BestStreak, state.Streak.TotalDaysTracked, state.Streak.LastUpdated)
	if err != nil {
		return err
	}

	for _, a := range state.Achievements {
		if !a.Unlocked {
			continue
		}
		unlockedAt := time.Now().UTC()
		if a.UnlockedDate != nil {
			unlockedAt = *a.UnlockedDate
		}

		_, err := r.db.ExecContext(ctx, `
			INSERT INTO achievements (user_id, achievement_id, unlocked_at) VALUES ($1, $2, $3)
			ON CONFLICT (user_id, achievement_id) DO NOTHING
		`, userID, a.ID, unlockedAt)
		if err != nil {
			return err
		}
	}

	return nil
}
