package utils

import "regexp"

// MAX_IDENTIFIER_LENGTH bounds ids taken from requests.
const MAX_IDENTIFIER_LENGTH = 128

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsURLSafe reports whether value can be used as a single URL path segment
// and as a document id: letters, digits, '-' and '_' only.
func IsURLSafe(value string) bool {
	if value == "" || len(value) > MAX_IDENTIFIER_LENGTH {
		return false
	}
	return identifierPattern.MatchString(value)
}
