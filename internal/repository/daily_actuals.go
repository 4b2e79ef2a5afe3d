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

var ErrActualsNotFound = errors.New("daily actuals not found")

type DailyActualsRepository interface {
	ByDate(ctx context.Context, userID, date string) (*model.DailyActuals, error)
	ByMonth(ctx context.Context, userID, month string) ([]*model.DailyActuals, error)
	Upsert(ctx context.Context, actuals *model.DailyActuals) error
	AddRevenue(ctx context.Context, userID, date string, amount float64, note string) (*model.DailyActuals, error)
	Delete(ctx context.Context, userID, date string) error
}

type dailyActualsRepository struct {
	db sqlx.ExtContext
}

func NewDailyActualsRepository(db sqlx.ExtContext) DailyActualsRepository {
	return &dailyActualsRepository{db: db}
}

func (r *dailyActualsRepository) ByDate(ctx context.Context, userID, date string) (*model.DailyActuals, error) {
	actuals := &model.DailyActuals{}
	query := `SELECT * FROM daily_actuals WHERE user_id = $1 AND date = $2`

	err := sqlx.GetContext(ctx, r.db, actuals, query, userID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActualsNotFound
	}
	if err != nil {
		return nil, err
	}

	return actuals, nil
}

func (r *dailyActualsRepository) ByMonth(ctx context.Context, userID, month string) ([]*model.DailyActuals, error) {
	var actuals []*model.DailyActuals
	query := `SELECT * FROM daily_actuals WHERE user_id = $1 AND month = $2 ORDER BY date ASC`

	err := sqlx.SelectContext(ctx, r.db, &actuals, query, userID, month)
	if err != nil {
		return nil, err
	}

	return actuals, nil
}

// Upsert replaces the actuals for (user, date). Month is derived from Date.
func (r *dailyActualsRepository) Upsert(ctx context.Context, actuals *model.DailyActuals) error {
	month, err := model.MonthFromDate(actuals.Date)
	if err != nil {
		return err
	}
	actuals.Month = month

	now := time.Now().UTC()
	if actuals.ID == "" {
		actuals.ID = uuid.New().String()
	}
	if actuals.CreatedAt.IsZero() {
		actuals.CreatedAt = now
	}
	actuals.UpdatedAt = now

	query := `
		INSERT INTO daily_actuals (id, user_id, date, month, gross_revenue, costs, site_visits, social_followers,
			pr_articles, workshop_customers, advisory_customers, lectures, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (user_id, date) DO UPDATE SET
			gross_revenue = excluded.gross_revenue,
			costs = excluded.costs,
			site_visits = excluded.site_visits,
			social_followers = excluded.social_followers,
			pr_articles = excluded.pr_articles,
			workshop_customers = excluded.workshop_customers,
			advisory_customers = excluded.advisory_customers,
			lectures = excluded.lectures,
			notes = excluded.notes,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		actuals.ID, actuals.UserID, actuals.Date, actuals.Month, actuals.GrossRevenue, actuals.Costs,
		actuals.SiteVisits, actuals.SocialFollowers, actuals.PRArticles, actuals.WorkshopCustomers,
		actuals.AdvisoryCustomers, actuals.Lectures, actuals.Notes, actuals.CreatedAt, actuals.UpdatedAt)
	if err != nil {
		return err
	}

	stored, err := r.ByDate(ctx, actuals.UserID, actuals.Date)
	if err != nil {
		return err
	}
	actuals.ID = stored.ID
	actuals.CreatedAt = stored.CreatedAt

	return nil
}

// AddRevenue adds amount to the day's gross revenue, creating the row when
// the day has no actuals yet. note is appended to existing notes with a "; " separator.
func (r *dailyActualsRepository) AddRevenue(ctx context.Context, userID, date string, amount float64, note string) (*model.DailyActuals, error) {
	month, err := model.MonthFromDate(date)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO daily_actuals (id, user_id, date, month, gross_revenue, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, date) DO UPDATE SET
			gross_revenue = daily_actuals.gross_revenue + excluded.gross_revenue,
			notes = CASE WHEN daily_actuals.notes = '' THEN excluded.notes
				ELSE daily_actuals.notes || '; ' || excluded.notes END,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query, uuid.New().String(), userID, date, month, amount, note, now, now)
	if err != nil {
		return nil, err
	}

	return r.ByDate(ctx, userID, date)
}

func (r *dailyActualsRepository) Delete(ctx context.Context, userID, date string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM daily_actuals WHERE user_id = $1 AND date = $2`, userID, date)
	if err != nil {
		return err
	}
	return expectRow(result, ErrActualsNotFound)
}
