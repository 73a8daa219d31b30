package identity

import (
	"regexp"
	"strings"
)

// Student ids allow letters, digits, dash and underscore, min length 3.
var studentIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,}$`)

// Simple email shape check, sufficient for signup validation.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

var (
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	specialPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidPassword requires at least 8 chars with one lowercase, one
// uppercase, and one special character.
func ValidPassword(pw string) bool {
	return len(pw) >= 8 &&
		lowerPattern.MatchString(pw) &&
		upperPattern.MatchString(pw) &&
		specialPattern.MatchString(pw)
}
