package utils

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// RenderMarkdown turns post text into sanitised HTML for syndication.
func RenderMarkdown(input string) string {
	return string(sanitizer.SanitizeBytes(blackfriday.Run([]byte(input))))
}
