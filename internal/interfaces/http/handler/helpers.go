package handler

import "time"

// parseDateTime parses a datetime string in various formats
func parseDateTime(s string) (time.Time, error) {
	// Try RFC3339 first
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	// Try ISO date format
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	// Try datetime without timezone
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	// Default to RFC3339 parsing error
	return time.Parse(time.RFC3339, s)
}
