package service

import "errors"

var (
	// ErrNoData indicates the requested window holds no data points
	ErrNoData = errors.New("no data available in the requested window")
	// ErrInvalidState indicates an emotional state failed validation
	ErrInvalidState = errors.New("invalid emotional state")
	// ErrInvalidSubject indicates an empty or malformed subject ID
	ErrInvalidSubject = errors.New("invalid subject ID")
	// ErrAssessmentNotFound indicates no audited assessment matches the ID
	ErrAssessmentNotFound = errors.New("assessment not found")

	// errInternalComputation marks a numeric failure that is recovered locally
	errInternalComputation = errors.New("internal computation error")
)
