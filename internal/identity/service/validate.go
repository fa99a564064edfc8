package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// Input limits. Secrets have per-provider policies: passwords are free-form
// within length bounds, PINs are exactly four digits.
const (
	MinNameLength     = 1
	MaxNameLength     = 100
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
	PINLength         = 4
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NormalizeEmail trims and lowercases an address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validationErr("email is required")
	}
	if len(email) > MaxEmailLength {
		return validationErr("email exceeds %d characters", MaxEmailLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return validationErr("email is not a valid address")
	}
	return nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < MinNameLength {
		return validationErr("name is required")
	}
	if len(name) > MaxNameLength {
		return validationErr("name exceeds %d characters", MaxNameLength)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return validationErr("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return validationErr("password exceeds %d characters", MaxPasswordLength)
	}
	return nil
}

func validatePIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return validationErr("pin must be exactly %d digits", PINLength)
	}
	return nil
}

var (
	slugInvalid  = regexp.MustCompile(`[^a-z0-9]+`)
	slugTrimDash = regexp.MustCompile(`^-+|-+$`)
)

// Slugify derives a URL-safe tenant slug from a display name: lowercase,
// non-alphanumeric runs collapse to single dashes, dashes trimmed from the
// ends. "Acme Corp." becomes "acme-corp".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugTrimDash.ReplaceAllString(s, "")
	return s
}
