package utils

import (
	"fmt"
	"log/slog"
	"time"
)

func ParseDurationString(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Duration(0), fmt.Errorf("invalid time duration '%s' : %s", value, err.Error())
	}
	return d, nil
}

// ParseDurationOrDefault returns fallback for empty, invalid or non-positive
// values. Invalid values are logged.
func ParseDurationOrDefault(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := ParseDurationString(value)
	if err != nil {
		slog.Warn("using default duration", slog.String("value", value), slog.String("default", fallback.String()), slog.String("error", err.Error()))
		return fallback
	}
	if d <= 0 {
		return fallback
	}
	return d
}
