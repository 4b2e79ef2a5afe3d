package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 12
	maxPasswordLen = 72 // bcrypt ignores everything past 72 bytes
	maxNameLen     = 100
	maxEmailLen    = 254
)

var weakPasswordParts = []string{
	"password", "123456", "qwerty", "letmein", "welcome",
	"fractional", "revenue", "admin",
}

// ValidateEmail accepts a bare RFC 5322 address. Display-name forms like
// "Ada <ada@example.com>" are rejected since the value becomes a login.
func ValidateEmail(email string) error {
	switch {
	case email == "":
		return Invalid("email", "is required")
	case len(email) > maxEmailLen:
		return Invalid("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return Invalid("email", "is not a valid address")
	}
	return nil
}

// ValidatePassword reports problems under field, which differs between
// registration ("password") and a password change ("new_password").
func ValidatePassword(field, password string) error {
	if len(password) < minPasswordLen {
		return Invalid(field, "must be at least 12 characters")
	}
	if len(password) > maxPasswordLen {
		return Invalid(field, "must not exceed 72 bytes")
	}

	lower := strings.ToLower(password)
	for _, part := range weakPasswordParts {
		if strings.Contains(lower, part) {
			return Invalid(field, "is too easy to guess")
		}
	}
	return nil
}

func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Invalid("name", "is required")
	}
	if utf8.RuneCountInString(trimmed) > maxNameLen {
		return Invalid("name", "must be at most 100 characters")
	}
	return nil
}
