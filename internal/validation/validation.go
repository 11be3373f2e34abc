// Package validation provides input validation helpers for the Sentinel API.
package validation

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// Username and password bounds
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	// emailRegex is deliberately loose; deliverability is the real check.
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// usernameRegex allows letters, digits, underscore, hyphen
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidateEmail checks that a string looks like an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	if len(email) > 255 {
		return errors.New("email exceeds maximum length")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("email format is invalid")
	}
	return nil
}

// ValidateUsername checks username length and character set.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return errors.New("username must be at least 3 characters")
	}
	if len(username) > MaxUsernameLength {
		return errors.New("username exceeds maximum length")
	}
	if !usernameRegex.MatchString(username) {
		return errors.New("username may only contain letters, digits, underscore, and hyphen")
	}
	return nil
}

// ValidatePassword enforces minimum password strength.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password exceeds maximum length")
	}
	return nil
}
