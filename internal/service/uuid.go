package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidUUID indicates the string is not a valid UUID format
	ErrInvalidUUID = errors.New("invalid UUID format")
	// ErrNotUUIDv7 indicates the UUID is not version 7
	ErrNotUUIDv7 = errors.New("UUID must be version 7")
	// ErrFutureTimestamp indicates the UUIDv7 timestamp is too far in the future
	ErrFutureTimestamp = errors.New("UUID timestamp is too far in the future")
)

// MaxFutureMinutes is the clock skew tolerated when validating assessment IDs
const MaxFutureMinutes = 1

// NewAssessmentID returns a time-ordered UUIDv7 for a crisis assessment.
// Falls back to a random v4 if the v7 generator fails.
func NewAssessmentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ValidateAssessmentID checks that id is a UUIDv7 whose timestamp is not in the future.
// Returns nil if valid, or ErrInvalidUUID, ErrNotUUIDv7, or ErrFutureTimestamp.
func ValidateAssessmentID(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUUID, err)
	}

	if parsed.Version() != 7 {
		return fmt.Errorf("%w: got version %d", ErrNotUUIDv7, parsed.Version())
	}

	timestamp := AssessmentIDTime(parsed.String())
	maxAllowed := time.Now().Add(time.Duration(MaxFutureMinutes) * time.Minute)
	if timestamp.After(maxAllowed) {
		return fmt.Errorf("%w: %v is more than %d minute(s) ahead",
			ErrFutureTimestamp, timestamp.Format(time.RFC3339), MaxFutureMinutes)
	}

	return nil
}

// AssessmentIDTime extracts the embedded creation time from a UUIDv7 assessment ID.
// Returns zero time if parsing fails.
func AssessmentIDTime(id string) time.Time {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}
	}
	// UUID.Time() is derived from the embedded Unix milliseconds for v7
	sec, nsec := parsed.Time().UnixTime()
	return time.Unix(sec, nsec)
}
