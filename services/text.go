package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cppla/threads/utils"
)

const (
	minTextLen = 3
	maxTextLen = 5000
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)

// cleanText trims and sanitises post or reply text and enforces its length.
func cleanText(field, text string) (string, error) {
	text = strings.TrimSpace(utils.Sanitize(strings.TrimSpace(text)))
	n := utf8.RuneCountInString(text)
	if n < minTextLen {
		return "", NewValidationError(field, "must be at least 3 characters")
	}
	if n > maxTextLen {
		return "", NewValidationError(field, "must be at most 5000 characters")
	}
	return text, nil
}

func cleanUsername(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !usernamePattern.MatchString(s) {
		return "", NewValidationError("username", "must be 3-30 characters of a-z, 0-9, _ or .")
	}
	return s, nil
}
