package app

import "errors"

// Sentinel errors mapped to HTTP statuses by the server layer.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrEntryImmutable     = errors.New("entry cannot be edited after a reply exists")
	ErrAIUnavailable      = errors.New("ai generation failed")
)

// ValidationError carries a user-visible message for a 400 response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErr(msg string) error {
	return &ValidationError{Msg: msg}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
