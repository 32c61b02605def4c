package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"chat-api/internal/apperr"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 6
)

var validate = validator.New()

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return apperr.Validation("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return apperr.Validation("username cannot contain whitespace")
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperr.Validation("please provide a valid email")
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ValidateURL checks that value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	if err := validate.Var(value, "required,http_url"); err != nil {
		return apperr.Validation("%s must be a valid http(s) URL", field)
	}
	return nil
}
