/*
Package shift provides the shift lifecycle and earnings engine.

PURPOSE:
  This package owns the working-time domain: jobs with hourly rates and bonus
  catalogs, individual work shifts, the earnings breakdown computed from them,
  and the tracker state machine that manages the single active shift.

KEY CONCEPTS IN THIS FILE (types.go):
  - Job: A named position with an hourly rate and an owned bonus catalog
  - Bonus: A catalog-level extra payment belonging to exactly one job
  - Shift: One work session bounded by start/end time
  - ShiftType: Classification driving the pay-rate multiplier
  - Gateway: The persistence contract the engine writes through

OWNERSHIP:
  A Job exclusively owns its Bonuses (deleting the job cascades). A Shift
  holds a non-owning reference to its Job: deleting the job detaches its
  shifts instead of destroying history.

SEE ALSO:
  - earnings.go: Pure earnings computation
  - classify.go: Duration-based shift type derivation
  - tracker.go: The Idle/Tracking state machine
*/
package shift

import (
	"context"
	"strings"
	"time"

	"github.com/warp/shift-engine/core"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type JobID string
type ShiftID string
type BonusID string

// =============================================================================
// SHIFT TYPE - Classification driving the pay multiplier
// =============================================================================

type ShiftType string

const (
	TypeRegular      ShiftType = "regular"
	TypeOvertime     ShiftType = "overtime"
	TypeSpecialEvent ShiftType = "special_event"
	TypeFlexible     ShiftType = "flexible"
)

// KnownType reports whether t is one of the defined shift types.
func KnownType(t ShiftType) bool {
	switch t {
	case TypeRegular, TypeOvertime, TypeSpecialEvent, TypeFlexible:
		return true
	}
	return false
}

// =============================================================================
// JOB
// =============================================================================

type Job struct {
	ID         JobID
	Name       string
	HourlyRate core.Money
	CreatedAt  time.Time
	IsActive   bool
	Bonuses    []Bonus
}

// BonusTotal sums the job's catalog bonuses. Informational by default: see
// Calculator.IncludeJobBonuses for whether it enters shift totals.
func (j Job) BonusTotal() core.Money {
	total := core.ZeroMoney()
	for _, b := range j.Bonuses {
		total = total.Add(b.Amount)
	}
	return total
}

// Validate checks job fields before any mutation is attempted.
func (j Job) Validate() *core.ValidationResult {
	var res core.ValidationResult
	if strings.TrimSpace(j.Name) == "" {
		res.Add("name", "required", "job name must not be empty")
	}
	if j.HourlyRate.IsNegative() {
		res.Add("hourly_rate", "negative", "hourly rate must be >= 0")
	}
	return &res
}

// =============================================================================
// BONUS - Catalog-level extra payment owned by a job
// =============================================================================

type Bonus struct {
	ID     BonusID
	JobID  JobID
	Name   string
	Amount core.Money
}

func (b Bonus) Validate() *core.ValidationResult {
	var res core.ValidationResult
	if strings.TrimSpace(b.Name) == "" {
		res.Add("name", "required", "bonus name must not be empty")
	}
	if b.Amount.IsNegative() {
		res.Add("amount", "negative", "bonus amount must be >= 0")
	}
	if b.JobID == "" {
		res.Add("job_id", "required", "bonus must belong to a job")
	}
	return &res
}

// =============================================================================
// SHIFT
// =============================================================================

type Shift struct {
	ID        ShiftID
	JobID     JobID // empty when the owning job was deleted (detached)
	StartTime time.Time
	EndTime   *time.Time // nil while active
	IsActive  bool
	Type      ShiftType
	Notes     string
	// BonusAmount is the ad-hoc per-shift bonus, distinct from the job's
	// catalog Bonuses.
	BonusAmount core.Money
}

func (s Shift) IsCompleted() bool {
	return !s.IsActive && s.EndTime != nil
}

// Duration returns elapsed time, using now as a provisional end while the
// shift is active. Never negative.
func (s Shift) Duration(now time.Time) time.Duration {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	d := end.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Validate checks a completed (manually entered or edited) shift.
func (s Shift) Validate() *core.ValidationResult {
	var res core.ValidationResult
	if s.StartTime.IsZero() {
		res.Add("start_time", "required", "start time must be set")
	}
	if !s.IsActive {
		if s.EndTime == nil {
			res.Add("end_time", "required", "completed shift must have an end time")
		} else if s.EndTime.Before(s.StartTime) {
			res.Add("end_time", "before_start", "end time must be >= start time")
		}
	}
	if s.BonusAmount.IsNegative() {
		res.Add("bonus_amount", "negative", "bonus amount must be >= 0")
	}
	if s.Type != "" && !KnownType(s.Type) {
		res.Add("shift_type", "unknown", "unknown shift type")
	}
	return &res
}

// =============================================================================
// QUERIES
// =============================================================================

// Filter narrows FetchShifts results. Zero value matches everything.
type Filter struct {
	JobID         *JobID
	From          *time.Time // shifts starting at or after
	To            *time.Time // shifts starting at or before
	Types         []ShiftType
	CompletedOnly bool
}

// Matches reports whether a shift passes the filter. Store implementations
// may push parts of this into SQL; this is the reference semantics.
func (f Filter) Matches(s Shift) bool {
	if f.JobID != nil && s.JobID != *f.JobID {
		return false
	}
	if f.From != nil && s.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && s.StartTime.After(*f.To) {
		return false
	}
	if f.CompletedOnly && !s.IsCompleted() {
		return false
	}
	if len(f.Types) > 0 {
		ok := false
		for _, t := range f.Types {
			if s.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// =============================================================================
// GATEWAY - Persistence contract for jobs, bonuses and shifts
// =============================================================================

// Gateway is the durable store the engine writes through. Implementations:
// store/sqlite (production) and store/memory (tests/dev).
//
// Error contract: save/fetch failures propagate to the caller; the engine
// does not retry and must leave in-memory state consistent with the last
// successful write.
type Gateway interface {
	SaveJob(ctx context.Context, job Job) error
	FetchJob(ctx context.Context, id JobID) (*Job, error)
	FetchJobs(ctx context.Context) ([]Job, error)

	// DeleteJob cascades the job's bonuses and detaches its shifts
	// (their JobID is cleared, history is preserved).
	DeleteJob(ctx context.Context, id JobID) error

	SaveBonus(ctx context.Context, bonus Bonus) error
	DeleteBonus(ctx context.Context, id BonusID) error

	SaveShift(ctx context.Context, s Shift) error
	DeleteShift(ctx context.Context, id ShiftID) error
	FetchActiveShift(ctx context.Context) (*Shift, error)
	FetchShifts(ctx context.Context, f Filter) ([]Shift, error)
}
