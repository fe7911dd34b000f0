// Package redact holds the placeholder the management gateway substitutes
// for RepoAuth tokens, plus helpers for recognizing secret-bearing field
// names and scrubbing secrets out of free text.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder is substituted for a redacted value (spec §4.7 P8: the
// literal "******" must appear in place of a RepoAuth token).
const Placeholder = "******"

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(token|secret|password|api[_-]?key)["']?\s*[:=]\s*["']?([^"'\s,}]+)["']?`),
	regexp.MustCompile(`(?i)(Bearer)\s+([a-zA-Z0-9_\-.]+)`),
}

var blockedFieldNames = []string{"token", "secret", "password", "apikey", "api_key", "api-key", "credential"}

// IsSecretField reports whether a field name looks like it carries a secret,
// matched case-insensitively against a substring blocklist.
func IsSecretField(name string) bool {
	lower := strings.ToLower(name)
	for _, blocked := range blockedFieldNames {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

// String scrubs any recognizable secret-bearing substring out of free text.
// The logger does not apply it on its own; text must be passed through it
// explicitly.
func String(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, "${1}: "+Placeholder)
	}
	return result
}
