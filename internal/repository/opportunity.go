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

var ErrOpportunityNotFound = errors.New("opportunity not found")

type OpportunityRepository interface {
	Create(ctx context.Context, opp *model.Opportunity) error
	ByID(ctx context.Context, userID, id string) (*model.Opportunity, error)
	List(ctx context.Context, userID string) ([]*model.Opportunity, error)
	ByMonth(ctx context.Context, userID, month string) ([]*model.Opportunity, error)
	Update(ctx context.Context, opp *model.Opportunity) error
	UpdateStage(ctx context.Context, userID, id, stage string, probability float64) error
	Delete(ctx context.Context, userID, id string) error
}

type opportunityRepository struct {
	db sqlx.ExtContext
}

func NewOpportunityRepository(db sqlx.ExtContext) OpportunityRepository {
	return &opportunityRepository{db: db}
}

func (r *opportunityRepository) Create(ctx context.Context, opp *model.Opportunity) error {
	now := time.Now().UTC()
	if opp.ID == "" {
		opp.ID = uuid.New().String()
	}
	opp.CreatedAt = now
	opp.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO opportunities (id, user_id, contact_id, title, type, stage, probability, estimated_value, month, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, opp.ID, opp.UserID, opp.ContactID, opp.Title, opp.Type, opp.Stage, opp.Probability,
		opp.EstimatedValue, opp.Month, opp.Notes, opp.CreatedAt, opp.UpdatedAt)

	return err
}

func (r *opportunityRepository) ByID(ctx context.Context, userID, id string) (*model.Opportunity, error) {
	opp := &model.Opportunity{}
	err := sqlx.GetContext(ctx, r.db, opp, `SELECT * FROM opportunities WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOpportunityNotFound
	}
	if err != nil {
		return nil, err
	}

	return opp, nil
}

func (r *opportunityRepository) List(ctx context.Context, userID string) ([]*model.Opportunity, error) {
	var opps []*model.Opportunity
	err := sqlx.SelectContext(ctx, r.db, &opps, `SELECT * FROM opportunities WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}

	return opps, nil
}

func (r *opportunityRepository) ByMonth(ctx context.Context, userID, month string) ([]*model.Opportunity, error) {
	var opps []*model.Opportunity
	query := `SELECT * FROM opportunities WHERE user_id = $1 AND month = $2 ORDER BY updated_at DESC`

	err := sqlx.SelectContext(ctx, r.db, &opps, query, userID, month)
	if err != nil {
		return nil, err
	}

	return opps, nil
}

func (r *opportunityRepository) Update(ctx context.Context, opp *model.Opportunity) error {
	opp.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE opportunities
		SET contact_id = $1, title = $2, type = $3, stage = $4, probability = $5,
			estimated_value = $6, month = $7, notes = $8, updated_at = $9
		WHERE id = $10 AND user_id = $11
	`, opp.ContactID, opp.Title, opp.Type, opp.Stage, opp.Probability, opp.EstimatedValue,
		opp.Month, opp.Notes, opp.UpdatedAt, opp.ID, opp.UserID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrOpportunityNotFound)
}

func (r *opportunityRepository) UpdateStage(ctx context.Context, userID, id, stage string, probability float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE opportunities SET stage = $1, probability = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, stage, probability, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrOpportunityNotFound)
}

func (r *opportunityRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM opportunities WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrOpportunityNotFound)
}
