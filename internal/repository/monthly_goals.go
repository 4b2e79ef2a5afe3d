package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/model"
)

var ErrGoalsNotFound = errors.New("monthly goals not found")

type MonthlyGoalsRepository interface {
	ByMonth(ctx context.Context, userID, month string) (*model.MonthlyGoals, error)
	List(ctx context.Context, userID string) ([]*model.MonthlyGoals, error)
	Upsert(ctx context.Context, goals *model.MonthlyGoals) error
	Delete(ctx context.Context, userID, month string) error
}

type monthlyGoalsRepository struct {
	db sqlx.ExtContext
}

func NewMonthlyGoalsRepository(db sqlx.ExtContext) MonthlyGoalsRepository {
	return &monthlyGoalsRepository{db: db}
}

func (r *monthlyGoalsRepository) ByMonth(ctx context.Context, userID, month string) (*model.MonthlyGoals, error) {
	goals := &model.MonthlyGoals{}
	query := `SELECT * FROM monthly_goals WHERE user_id = $1 AND month = $2`

	err := sqlx.GetContext(ctx, r.db, goals, query, userID, month)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalsNotFound
	}
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *monthlyGoalsRepository) List(ctx context.Context, userID string) ([]*model.MonthlyGoals, error) {
	var goals []*model.MonthlyGoals
	query := `SELECT * FROM monthly_goals WHERE user_id = $1 ORDER BY month DESC`

	err := sqlx.SelectContext(ctx, r.db, &goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// Upsert writes the goals for (user, month). On conflict the stored ID and
// CreatedAt win and are copied back into goals.
func (r *monthlyGoalsRepository) Upsert(ctx context.Context, goals *model.MonthlyGoals) error {
	now := time.Now().UTC()
	if goals.ID == "" {
		goals.ID = uuid.New().String()
	}
	if goals.CreatedAt.IsZero() {
		goals.CreatedAt = now
	}
	goals.UpdatedAt = now

	query := `
		INSERT INTO monthly_goals (id, user_id, month, gross_revenue, revenue_forecast, costs, site_visits,
			social_followers, pr_articles, workshop_customers, advisory_customers, lectures, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, month) DO UPDATE SET
			gross_revenue = excluded.gross_revenue,
			revenue_forecast = excluded.revenue_forecast,
			costs = excluded.costs,
			site_visits = excluded.site_visits,
			social_followers = excluded.social_followers,
			pr_articles = excluded.pr_articles,
			workshop_customers = excluded.workshop_customers,
			advisory_customers = excluded.advisory_customers,
			lectures = excluded.lectures,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		goals.ID, goals.UserID, goals.Month, goals.GrossRevenue, goals.RevenueForecast, goals.Costs,
		goals.SiteVisits, goals.SocialFollowers, goals.PRArticles, goals.WorkshopCustomers,
		goals.AdvisoryCustomers, goals.Lectures, goals.CreatedAt, goals.UpdatedAt)
	if err != nil {
		return err
	}

	stored, err := r.ByMonth(ctx, goals.UserID, goals.Month)
	if err != nil {
		return err
	}
	goals.ID = stored.ID
	goals.CreatedAt = stored.CreatedAt

	return nil
}

func (r *monthlyGoalsRepository) Delete(ctx context.Context, userID, month string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM monthly_goals WHERE user_id = $1 AND month = $2`, userID, month)
	if err != nil {
		return err
	}
	return expectRow(result, ErrGoalsNotFound)
}
