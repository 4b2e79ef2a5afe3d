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

var ErrContactNotFound = errors.New("contact not found")

type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	ByID(ctx context.Context, userID, id string) (*model.Contact, error)
	List(ctx context.Context, userID string) ([]*model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) error
	Delete(ctx context.Context, userID, id string) error
	ReferralStats(ctx context.Context, userID string) ([]*model.ReferralStats, error)
}

type contactRepository struct {
	db sqlx.ExtContext
}

func NewContactRepository(db sqlx.ExtContext) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) error {
	now := time.Now().UTC()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (id, user_id, name, email, company, role, relationship, referred_by_id, notes, last_contacted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, contact.ID, contact.UserID, contact.Name, contact.Email, contact.Company, contact.Role,
		contact.Relationship, contact.ReferredByID, contact.Notes, contact.LastContactedAt,
		contact.CreatedAt, contact.UpdatedAt)

	return err
}

func (r *contactRepository) ByID(ctx context.Context, userID, id string) (*model.Contact, error) {
	contact := &model.Contact{}
	err := sqlx.GetContext(ctx, r.db, contact, `SELECT * FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}

	return contact, nil
}

func (r *contactRepository) List(ctx context.Context, userID string) ([]*model.Contact, error) {
	var contacts []*model.Contact
	err := sqlx.SelectContext(ctx, r.db, &contacts, `SELECT * FROM contacts WHERE user_id = $1 ORDER BY name ASC`, userID)
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact) error {
	contact.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE contacts
		SET name = $1, email = $2, company = $3, role = $4, relationship = $5,
			referred_by_id = $6, notes = $7, last_contacted_at = $8, updated_at = $9
		WHERE id = $10 AND user_id = $11
	`, contact.Name, contact.Email, contact.Company, contact.Role, contact.Relationship,
		contact.ReferredByID, contact.Notes, contact.LastContactedAt, contact.UpdatedAt,
		contact.ID, contact.UserID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrContactNotFound)
}

// Delete removes the contact. Opportunities and referrals pointing at it
// are detached rather than deleted.
func (r *contactRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE opportunities SET contact_id = NULL WHERE contact_id = $1 AND user_id = $2`, id, userID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE contacts SET referred_by_id = NULL WHERE referred_by_id = $1 AND user_id = $2`, id, userID); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}

	return expectRow(result, ErrContactNotFound)
}

// ReferralStats reports, per contact, how many contacts they referred and
// the opportunities attached to them or to the contacts they referred.
func (r *contactRepository) ReferralStats(ctx context.Context, userID string) ([]*model.ReferralStats, error) {
	var stats []*model.ReferralStats
	query := `
		SELECT
			c.id AS contact_id,
			c.name AS name,
			(SELECT COUNT(*) FROM contacts r WHERE r.referred_by_id = c.id) AS referrals,
			COUNT(o.id) AS opportunities,
			COALESCE(SUM(CASE WHEN o.stage = 'won' THEN 1 ELSE 0 END), 0) AS won_opportunities,
			COALESCE(SUM(CASE WHEN o.stage = 'won' THEN o.estimated_value ELSE 0 END), 0) AS won_value
		FROM contacts c
		LEFT JOIN opportunities o ON o.user_id = c.user_id AND (
			o.contact_id = c.id
			OR o.contact_id IN (SELECT r.id FROM contacts r WHERE r.referred_by_id = c.id)
		)
		WHERE c.user_id = $1
		GROUP BY c.id, c.name
		ORDER BY won_value DESC, referrals DESC, c.name ASC`

	err := sqlx.SelectContext(ctx, r.db, &stats, query, userID)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
