package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/model"
)

var ErrInsightNotFound = errors.New("insight not found")

type InsightRepository interface {
	Create(ctx context.Context, insight *model.UserInsight) error
	ByID(ctx context.Context, userID, id string) (*model.UserInsight, error)
	Active(ctx context.Context, userID string) ([]*model.UserInsight, error)
	UpdateStatus(ctx context.Context, userID, id, status string) error
	// ExpireStale marks active insights whose expiry is before now as
	// expired. An empty userID expires across all users.
	ExpireStale(ctx context.Context, userID string, now time.Time) (int, error)
}

type insightRepository struct {
	db sqlx.ExtContext
}

func NewInsightRepository(db sqlx.ExtContext) InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) Create(ctx context.Context, insight *model.UserInsight) error {
	now := time.Now().UTC()
	if insight.ID == "" {
		insight.ID = uuid.New().String()
	}
	if insight.Status == "" {
		insight.Status = model.InsightStatusActive
	}
	insight.CreatedAt = now
	insight.UpdatedAt = now

	actions := insight.SuggestedActions
	if actions == nil {
		actions = []string{}
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode suggested actions: %w", err)
	}
	insight.ActionsJSON = string(raw)

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO user_insights (id, user_id, category, title, description, priority, status,
			suggested_actions, confidence_score, source, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, insight.ID, insight.UserID, insight.Category, insight.Title, insight.Description, insight.Priority,
		insight.Status, insight.ActionsJSON, insight.ConfidenceScore, insight.Source, insight.ExpiresAt,
		insight.CreatedAt, insight.UpdatedAt)

	return err
}

func (r *insightRepository) ByID(ctx context.Context, userID, id string) (*model.UserInsight, error) {
	insight := &model.UserInsight{}
	err := sqlx.GetContext(ctx, r.db, insight, `SELECT * FROM user_insights WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInsightNotFound
	}
	if err != nil {
		return nil, err
	}

	return insight, decodeActions(insight)
}

func (r *insightRepository) Active(ctx context.Context, userID string) ([]*model.UserInsight, error) {
	var insights []*model.UserInsight
	query := `SELECT * FROM user_insights WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`

	err := sqlx.SelectContext(ctx, r.db, &insights, query, userID, model.InsightStatusActive)
	if err != nil {
		return nil, err
	}

	for _, insight := range insights {
		if err := decodeActions(insight); err != nil {
			return nil, err
		}
	}

	return insights, nil
}

func (r *insightRepository) UpdateStatus(ctx context.Context, userID, id, status string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE user_insights SET status = $1, updated_at = $2 WHERE id = $3 AND user_id = $4
	`, status, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrInsightNotFound)
}

func (r *insightRepository) ExpireStale(ctx context.Context, userID string, now time.Time) (int, error) {
	type candidate struct {
		ID        string    `db:"id"`
		ExpiresAt time.Time `db:"expires_at"`
	}

	query := `SELECT id, expires_at FROM user_insights WHERE status = $1`
	args := []any{model.InsightStatusActive}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}

	// Timestamps are compared in Go: SQLite stores them as text in a
	// format that does not sort chronologically across time zones.
	var active []candidate
	if err := sqlx.SelectContext(ctx, r.db, &active, query, args...); err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range active {
		if !now.After(c.ExpiresAt) {
			continue
		}
		_, err := r.db.ExecContext(ctx, `UPDATE user_insights SET status = $1, updated_at = $2 WHERE id = $3`,
			model.InsightStatusExpired, now.UTC(), c.ID)
		if err != nil {
			return expired, err
		}
		expired++
	}

	return expired, nil
}

func decodeActions(insight *model.UserInsight) error {
	if insight.ActionsJSON == "" {
		insight.SuggestedActions = []string{}
		return nil
	}
	if err := json.Unmarshal([]byte(insight.ActionsJSON), &insight.SuggestedActions); err != nil {
		return fmt.Errorf("failed to decode suggested actions for insight %s: %w", insight.ID, err)
	}
	return nil
}
