package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/model"
)

type UsageRepository interface {
	Record(ctx context.Context, userID, feature string, at time.Time) error
	List(ctx context.Context, userID string) ([]*model.FeatureUsage, error)
}

type usageRepository struct {
	db sqlx.ExtContext
}

func NewUsageRepository(db sqlx.ExtContext) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) Record(ctx context.Context, userID, feature string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feature_usage (user_id, feature, usage_count, last_used_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, feature) DO UPDATE SET
			usage_count = feature_usage.usage_count + 1,
			last_used_at = excluded.last_used_at
	`, userID, feature, at.UTC())

	return err
}

func (r *usageRepository) List(ctx context.Context, userID string) ([]*model.FeatureUsage, error) {
	var usage []*model.FeatureUsage
	err := sqlx.SelectContext(ctx, r.db, &usage, `SELECT * FROM feature_usage WHERE user_id = $1 ORDER BY feature ASC`, userID)
	if err != nil {
		return nil, err
	}

	return usage, nil
}
