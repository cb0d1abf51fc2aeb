package utils

import (
	"regexp"
	"strings"
)

var nonEnvVarChars = regexp.MustCompile(`[^A-Z0-9]+`)

// GenerateEnvVarName upper-cases input and collapses every run of other
// characters into a single underscore, e.g. "my-client.v2" -> "MY_CLIENT_V2".
func GenerateEnvVarName(input string) string {
	normalized := nonEnvVarChars.ReplaceAllString(strings.ToUpper(input), "_")
	return strings.Trim(normalized, "_")
}

// GenerateStatsAPIKeyEnvVarName names the variable holding the stats API key
// of a client. Format: STATS_API_KEY_FOR_{NORMALIZED_NAME}
func GenerateStatsAPIKeyEnvVarName(clientName string) string {
	return "STATS_API_KEY_FOR_" + GenerateEnvVarName(clientName)
}
