package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange marks malformed request parameters. It is returned before
	// any computation starts.
	ErrInvalidRange = errors.New("invalid range")

	// ErrNoData signals that a source holds no rows for a sensor and range.
	// Callers turn it into an empty result, not a failure.
	ErrNoData = errors.New("no data")
)

// ValidateTimeRange rejects an end that precedes start.
func ValidateTimeRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}

// ValidateWindow rejects negative pre/post window lengths.
func ValidateWindow(preH, postH int) error {
	if preH < 0 || postH < 0 {
		return fmt.Errorf("%w: pre_h and post_h must be non-negative (got %d, %d)", ErrInvalidRange, preH, postH)
	}
	return nil
}
