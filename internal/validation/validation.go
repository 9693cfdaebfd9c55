// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength  = 6
	// MaxPasswordLength is in bytes; bcrypt rejects longer input.
	MaxPasswordLength  = 72
	MaxDisplayNameLen  = 100
	MaxPoemTitleLength = 200
	MaxEmailLength     = 256
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidatePassword checks the account password rules: a minimum length,
// at least one digit and at least one lowercase letter.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
	}

	var hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	return nil
}

// ValidateEmail checks if an email address has a valid format
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > MaxEmailLength {
		return fmt.Errorf("email must not exceed %d characters", MaxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateDisplayName checks a user's public name.
func ValidateDisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("display name is required")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLen {
		return fmt.Errorf("display name must not exceed %d characters", MaxDisplayNameLen)
	}
	return nil
}

// ValidatePoemTitle checks a poem title.
func ValidatePoemTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxPoemTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxPoemTitleLength)
	}
	return nil
}

// ValidatePoemContent checks a poem body. Content is opaque rich text.
func ValidatePoemContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	return nil
}
