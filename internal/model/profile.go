package model

import "time"

// Profile is the business profile of a user. It is what the AI advisor
// receives as business context.
type Profile struct {
	ID           string    `db:"id" json:"-"`
	UserID       string    `db:"user_id" json:"-"`
	Name         string    `db:"name" json:"name"`
	Company      string    `db:"company" json:"company"`
	Industry     string    `db:"industry" json:"industry"`
	Services     string    `db:"services" json:"services"`
	TargetMarket string    `db:"target_market" json:"target_market"`
	Bio          string    `db:"bio" json:"bio"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
