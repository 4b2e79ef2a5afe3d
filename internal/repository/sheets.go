package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fractional/internal/model"
)

var ErrSheetsNotConnected = errors.New("google sheets not connected")

type SheetsRepository interface {
	ByUserID(ctx context.Context, userID string) (*model.SheetsConnection, error)
	Upsert(ctx context.Context, conn *model.SheetsConnection) error
	UpdateToken(ctx context.Context, userID, encryptedToken string) error
	Delete(ctx context.Context, userID string) error
}

type sheetsRepository struct {
	db sqlx.ExtContext
}

func NewSheetsRepository(db sqlx.ExtContext) SheetsRepository {
	return &sheetsRepository{db: db}
}

func (r *sheetsRepository) ByUserID(ctx context.Context, userID string) (*model.SheetsConnection, error) {
	conn := &model.SheetsConnection{}
	err := sqlx.GetContext(ctx, r.db, conn, `SELECT * FROM sheets_connections WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSheetsNotConnected
	}
	if err != nil {
		return nil, err
	}

	return conn, nil
}

func (r *sheetsRepository) Upsert(ctx context.Context, conn *model.SheetsConnection) error {
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sheets_connections (user_id, spreadsheet_id, encrypted_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			spreadsheet_id = excluded.spreadsheet_id,
			encrypted_token = excluded.encrypted_token,
			updated_at = excluded.updated_at
	`, conn.UserID, conn.SpreadsheetID, conn.EncryptedToken, conn.CreatedAt, conn.UpdatedAt)

	return err
}

func (r *sheetsRepository) UpdateToken(ctx context.Context, userID, encryptedToken string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sheets_connections SET encrypted_token = $1, updated_at = $2 WHERE user_id = $3
	`, encryptedToken, time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrSheetsNotConnected)
}

func (r *sheetsRepository) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sheets_connections WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrSheetsNotConnected)
}
