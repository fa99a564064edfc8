package service

import "errors"

// Business errors. Handlers map these onto HTTP statuses with errors.Is;
// anything else is a 500. Failure reasons on the sign-in path collapse into
// ErrInvalidCredentials so responses don't leak which part was wrong.
var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserDeactivated    = errors.New("user_deactivated")
	ErrEmailNotVerified   = errors.New("email_not_verified")

	ErrEmailTaken = errors.New("email_taken")
	ErrSlugTaken  = errors.New("slug_taken")

	ErrSessionNotFound = errors.New("session_not_found")
	ErrTokenNotFound   = errors.New("token_not_found")
	ErrEmailMismatch   = errors.New("email_mismatch")

	ErrUserNotFound    = errors.New("user_not_found")
	ErrAccountNotFound = errors.New("account_not_found")
	ErrAccountExists   = errors.New("account_exists")

	ErrSecretUnchanged    = errors.New("secret_unchanged")
	ErrSecretConfirmation = errors.New("secret_confirmation_mismatch")

	ErrInvalidDuration = errors.New("invalid_session_duration")
	ErrBatchTooLarge   = errors.New("batch_too_large")

	ErrValidation = errors.New("validation_failed")
)
