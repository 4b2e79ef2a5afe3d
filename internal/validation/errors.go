package validation

import (
	"errors"
	"fmt"
)

// Error is a rejected input. Handlers answer it with 422.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &Error{Field: field, Message: message}
}

func IsValidation(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}
