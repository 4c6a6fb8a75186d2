package chat

import "errors"

var (
	// ErrNotFound means the referenced message id does not exist.
	ErrNotFound = errors.New("not_found")
	// ErrPersistenceDisabled is returned by operations that need history when ENABLE_DB is off.
	ErrPersistenceDisabled = errors.New("database_disabled")
)

// ValidationError rejects a request before any mutation. Code is the
// client-facing reason.
type ValidationError struct {
	Code string
}

func (e *ValidationError) Error() string {
	return e.Code
}

var (
	ErrEmptyText      = &ValidationError{Code: "empty_message"}
	ErrMessageTooLong = &ValidationError{Code: "message_too_long"}
	ErrNotEditable    = &ValidationError{Code: "not_editable"}
	ErrInvalidLimit   = &ValidationError{Code: "invalid_limit"}
)
