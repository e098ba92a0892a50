package services

import (
	"fmt"
	"time"
)

// ParseDate parses a calendar day (YYYY-MM-DD) as midnight UTC.
// Interaction date filters compare against it.
func ParseDate(dateStr string) (time.Time, error) {
	parsedTime, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}
	return parsedTime, nil
}
