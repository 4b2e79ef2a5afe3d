package model

import (
	"time"
)

// SheetsConnection links a user to the spreadsheet exports are pushed to.
// EncryptedToken is the sealed OAuth token and is never serialized.
type SheetsConnection struct {
	UserID         string    `db:"user_id" json:"-"`
	SpreadsheetID  string    `db:"spreadsheet_id" json:"spreadsheet_id"`
	EncryptedToken string    `db:"encrypted_token" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
