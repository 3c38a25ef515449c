package shift

import (
	"fmt"
	"time"

	"github.com/warp/shift-engine/core"
)

// =============================================================================
// STATE ERRORS - Structured context around the core sentinels
// =============================================================================

// AlreadyTrackingError is returned by Tracker.Start while a shift is in
// progress. It carries the active shift so callers can surface which job is
// blocking the new start.
type AlreadyTrackingError struct {
	ActiveShiftID ShiftID
	JobID         JobID
	StartedAt     time.Time
}

func (e *AlreadyTrackingError) Error() string {
	return fmt.Sprintf("already tracking shift %s (job %s, started %s); end it first",
		e.ActiveShiftID, e.JobID, e.StartedAt.Format(time.RFC3339))
}

func (e *AlreadyTrackingError) Unwrap() error { return core.ErrAlreadyTracking }

// NotTrackingError is returned by Tracker.End when no shift is active.
// Recoverable: a no-op report, not a crash.
type NotTrackingError struct{}

func (e *NotTrackingError) Error() string { return "no active shift to end" }

func (e *NotTrackingError) Unwrap() error { return core.ErrNotTracking }
