/*
tracker.go - The Idle/Tracking state machine

PURPOSE:
  Owns the single active shift. Exactly two states:

    Idle --Start(job)--> Tracking
    Tracking --tick--> Tracking   (display only, no side effects)
    Tracking --End--> Idle

INVARIANT:
  At most one shift is active at a time, globally. Start and End are
  serialized by a mutex: a concurrent second Start observes Tracking and
  fails cleanly instead of creating a second active shift.

PERSISTENCE DISCIPLINE:
  The new shift is persisted before it is committed to memory, so a crash
  mid-shift leaves a recoverable partial record (see Resume). A failed save
  leaves the in-memory state exactly where it was: no partial mutation is
  ever visible after a gateway error.

TICK:
  Elapsed() is a pure read for display. It never writes. Presentation layers
  drive it from a core.Ticker at whatever cadence they like (one second in
  the original design).

SEE ALSO:
  - errors.go: AlreadyTrackingError / NotTrackingError
  - earnings.go: Breakdown computed when a shift ends
  - achieve/engine.go: The completion hook's usual consumer
*/
package shift

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/shift-engine/core"
)

// =============================================================================
// EVENTS - Optional change notification, decoupled from any UI framework
// =============================================================================

type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
)

type Event struct {
	Kind  EventKind
	Shift Shift
}

// CompletionHook runs after a shift has been ended and persisted. The usual
// hook re-evaluates achievements. A hook error is reported to the caller but
// never un-ends the shift.
type CompletionHook func(ctx context.Context, s Shift, b Breakdown) error

// =============================================================================
// TRACKER
// =============================================================================

type Tracker struct {
	mu      sync.Mutex
	clock   core.Clock
	gateway Gateway
	calc    *Calculator
	active  *Shift

	onCompleted CompletionHook
	onChange    func(Event)
}

type TrackerOption func(*Tracker)

// WithCalculator overrides the default calculator (e.g. to opt in to
// IncludeJobBonuses).
func WithCalculator(c *Calculator) TrackerOption {
	return func(t *Tracker) { t.calc = c }
}

// WithCompletionHook registers the post-End hook.
func WithCompletionHook(h CompletionHook) TrackerOption {
	return func(t *Tracker) { t.onCompleted = h }
}

// WithChangeListener registers a start/end notification callback. The
// callback runs on the caller's goroutine while the tracker lock is NOT held.
func WithChangeListener(fn func(Event)) TrackerOption {
	return func(t *Tracker) { t.onChange = fn }
}

// NewTracker builds a tracker with injected dependencies. Pass a fake clock
// and an in-memory gateway for deterministic tests.
func NewTracker(gateway Gateway, clock core.Clock, opts ...TrackerOption) *Tracker {
	if clock == nil {
		clock = core.SystemClock{}
	}
	t := &Tracker{
		clock:   clock,
		gateway: gateway,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.calc == nil {
		t.calc = NewCalculator(clock)
	}
	return t
}

// Resume adopts a persisted active shift after a restart. A no-op when the
// store has none or when the tracker is already Tracking.
func (t *Tracker) Resume(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return nil
	}
	s, err := t.gateway.FetchActiveShift(ctx)
	if err != nil {
		return fmt.Errorf("failed to resume active shift: %w", err)
	}
	t.active = s
	return nil
}

// IsTracking reports the current state.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active != nil
}

// Active returns a copy of the active shift, or nil when Idle.
func (t *Tracker) Active() *Shift {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return nil
	}
	s := *t.active
	return &s
}

// Elapsed returns time since the active shift started, for display only.
// The second return is false when Idle.
func (t *Tracker) Elapsed() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return 0, false
	}
	return t.active.Duration(t.clock.Now()), true
}

// Start begins tracking a shift for the given job. Valid only from Idle.
//
// The shift is persisted with IsActive=true immediately; its type is left
// unset until End derives it from the final duration.
func (t *Tracker) Start(ctx context.Context, job Job) (Shift, error) {
	if res := job.Validate(); !res.Valid() {
		return Shift{}, res.Err()
	}
	if job.ID == "" {
		var res core.ValidationResult
		res.Add("job_id", "required", "a job must be selected")
		return Shift{}, res.Err()
	}

	t.mu.Lock()
	if t.active != nil {
		err := &AlreadyTrackingError{
			ActiveShiftID: t.active.ID,
			JobID:         t.active.JobID,
			StartedAt:     t.active.StartTime,
		}
		t.mu.Unlock()
		return Shift{}, err
	}

	now := t.clock.Now()
	s := Shift{
		ID:          ShiftID(fmt.Sprintf("shift-%d", now.UnixNano())),
		JobID:       job.ID,
		StartTime:   now,
		IsActive:    true,
		BonusAmount: core.ZeroMoney(),
	}

	if err := t.gateway.SaveShift(ctx, s); err != nil {
		t.mu.Unlock()
		return Shift{}, fmt.Errorf("failed to persist started shift: %w", err)
	}

	t.active = &s
	t.mu.Unlock()

	t.notify(Event{Kind: EventStarted, Shift: s})
	return s, nil
}

// End finishes the active shift. Valid only from Tracking.
//
// The final duration derives the shift type (canonical thresholds, see
// classify.go), the earnings breakdown is computed, and the completed shift
// is persisted before the in-memory slot is cleared.
func (t *Tracker) End(ctx context.Context) (Shift, Breakdown, error) {
	t.mu.Lock()
	if t.active == nil {
		t.mu.Unlock()
		return Shift{}, Breakdown{}, &NotTrackingError{}
	}

	now := t.clock.Now()
	s := *t.active
	end := now
	if end.Before(s.StartTime) {
		end = s.StartTime
	}
	s.EndTime = &end
	s.IsActive = false
	s.Type = ClassifyDuration(s.Duration(now))

	// Breakdown needs the job's rate. A fetch failure degrades to zero base
	// earnings rather than blocking the end of the shift.
	job, jobErr := t.gateway.FetchJob(ctx, s.JobID)
	if jobErr != nil {
		job = nil
	}
	breakdown := t.calc.Compute(s, job)

	if err := t.gateway.SaveShift(ctx, s); err != nil {
		// In-memory state untouched: the shift is still Tracking.
		t.mu.Unlock()
		return Shift{}, Breakdown{}, fmt.Errorf("failed to persist completed shift: %w", err)
	}

	t.active = nil
	t.mu.Unlock()

	t.notify(Event{Kind: EventEnded, Shift: s})

	if t.onCompleted != nil {
		if err := t.onCompleted(ctx, s, breakdown); err != nil {
			return s, breakdown, fmt.Errorf("shift ended; completion hook failed: %w", err)
		}
	}
	return s, breakdown, nil
}

func (t *Tracker) notify(e Event) {
	if t.onChange != nil {
		t.onChange(e)
	}
}

// =============================================================================
// MANUAL SHIFTS
// =============================================================================

// FinalizeManual validates a manually entered (or edited) completed shift and
// derives its type from the duration when the caller left it unset. Returns
// the validation result so the UI layer can surface field errors inline.
func FinalizeManual(s Shift) (Shift, *core.ValidationResult) {
	s.IsActive = false
	res := s.Validate()
	if !res.Valid() {
		return s, res
	}
	if s.Type == "" {
		s.Type = ClassifyDuration(s.Duration(*s.EndTime))
	}
	return s, res
}
