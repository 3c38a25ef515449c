/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All sentinel errors in one place for consistency and discoverability.
  Domain packages wrap these with structured context types.

ERROR CATEGORIES:
  1. State errors - Violations of the tracker state machine contract
  2. Not-found errors - Missing jobs, shifts, achievements
  3. Gateway errors - Persistence failures propagated from the store

USAGE:
  Domain packages wrap sentinels:

    if errors.Is(err, core.ErrAlreadyTracking) {
        // a shift is in progress; end it first
    }

SEE ALSO:
  - shift/errors.go: Structured tracking errors wrapping these sentinels
  - api/handlers.go: Maps these categories onto HTTP status codes
*/
package core

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAlreadyTracking is returned when Start is called while a shift is
	// in progress. The caller must end the current shift first.
	ErrAlreadyTracking = errors.New("a shift is already being tracked")

	// ErrNotTracking is returned when End is called with no active shift.
	ErrNotTracking = errors.New("no shift is being tracked")

	// ErrJobNotFound is returned when a referenced job doesn't exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrShiftNotFound is returned when a referenced shift doesn't exist.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrAchievementNotFound is returned when a catalog id has no stored row.
	ErrAchievementNotFound = errors.New("achievement not found")

	// ErrInvalidInput is the sentinel behind every ValidationResult failure.
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller behavior
// (bad input or a state machine violation) rather than an engine failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAlreadyTracking) ||
		errors.Is(err, ErrNotTracking) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrAchievementNotFound)
}
