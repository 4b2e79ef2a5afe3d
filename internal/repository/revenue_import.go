package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevenueImportRepository remembers which provider payments were already
// booked into daily actuals.
type RevenueImportRepository interface {
	// Record stores the payment reference and reports false when it was
	// recorded before.
	Record(ctx context.Context, userID, provider, reference, date string, amount float64) (bool, error)
}

type revenueImportRepository struct {
	db sqlx.ExtContext
}

func NewRevenueImportRepository(db sqlx.ExtContext) RevenueImportRepository {
	return &revenueImportRepository{db: db}
}

func (r *revenueImportRepository) Record(ctx context.Context, userID, provider, reference, date string, amount float64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO revenue_imports (user_id, provider, reference, date, amount, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, provider, reference) DO NOTHING
	`, userID, provider, reference, date, amount, time.Now().UTC())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
