package bmsdate

import (
	"fmt"
	"strings"
	"time"
)

// Parse parses date strings as stored by BMS/vtiger MySQL schemas,
// trying each known format in turn. Zero dates ("0000-00-00") are an
// expected artifact of those schemas and yield (nil, nil) rather than
// an error, as does an empty string.
func Parse(dateStr string) (*time.Time, error) {
	s := strings.TrimSpace(dateStr)
	if s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil, nil
	}

	formats := []string{
		"2006-01-02 15:04:05", // MySQL DATETIME
		"2006-01-02",          // MySQL DATE
		time.RFC3339,
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("failed to parse BMS date '%s': %w", dateStr, lastErr)
}
