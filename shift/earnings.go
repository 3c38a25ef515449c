/*
earnings.go - Pure earnings computation

PURPOSE:
  Maps a shift + job rate + bonuses to a monetary breakdown. This is the one
  place pay math lives; every list, analytics view and achievement aggregate
  goes through it.

RATE MULTIPLIERS:
  Regular      1.0
  Overtime     1.5
  SpecialEvent 1.25
  Flexible     1.0

BONUS SEMANTICS:
  A shift's own BonusAmount always counts. The job's catalog Bonuses are
  informational and do NOT enter the total unless the caller opts in via
  IncludeJobBonuses. Both behaviors are pinned by tests.

DEGRADED INPUTS:
  A missing job or zero duration yields a zero breakdown, never an error.
  A shift must not be able to crash the aggregate pipeline.

SEE ALSO:
  - classify.go: HoursIn and the duration thresholds
  - achieve/engine.go: Aggregates built on these breakdowns
*/
package shift

import (
	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/core"
)

var multipliers = map[ShiftType]decimal.Decimal{
	TypeRegular:      decimal.NewFromInt(1),
	TypeOvertime:     decimal.RequireFromString("1.5"),
	TypeSpecialEvent: decimal.RequireFromString("1.25"),
	TypeFlexible:     decimal.NewFromInt(1),
}

// Multiplier returns the pay-rate multiplier for a shift type. Unknown types
// fall back to 1.0 rather than zeroing someone's pay.
func Multiplier(t ShiftType) decimal.Decimal {
	if m, ok := multipliers[t]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// Breakdown is the monetary result of one shift.
type Breakdown struct {
	DurationHours decimal.Decimal
	Base          core.Money
	Bonus         core.Money
	Total         core.Money
}

// Calculator computes earnings breakdowns. It is stateless apart from its
// configuration; Compute is safe for concurrent use.
type Calculator struct {
	Clock core.Clock

	// IncludeJobBonuses adds the job's catalog bonuses to every shift total.
	// Off by default: catalog bonuses are informational.
	IncludeJobBonuses bool
}

func NewCalculator(clock core.Clock) *Calculator {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Calculator{Clock: clock}
}

// Compute returns the earnings breakdown for a shift. While the shift is
// active the current time stands in as a provisional end for live display;
// nothing provisional is ever persisted.
//
// A nil job yields zero base earnings (the shift may have been detached by a
// job deletion).
func (c *Calculator) Compute(s Shift, job *Job) Breakdown {
	hours := HoursIn(s.Duration(c.Clock.Now()))

	base := core.ZeroMoney()
	if job != nil {
		base = job.HourlyRate.Mul(hours).Mul(Multiplier(s.Type))
	}

	bonus := s.BonusAmount
	if bonus.IsNegative() {
		bonus = core.ZeroMoney()
	}
	if c.IncludeJobBonuses && job != nil {
		bonus = bonus.Add(job.BonusTotal())
	}

	return Breakdown{
		DurationHours: hours,
		Base:          base,
		Bonus:         bonus,
		Total:         base.Add(bonus),
	}
}

// TotalEarnings sums the totals of a set of shifts against their jobs.
// Detached shifts (no matching job) contribute their bonus only.
func (c *Calculator) TotalEarnings(shifts []Shift, jobs []Job) core.Money {
	byID := make(map[JobID]*Job, len(jobs))
	for i := range jobs {
		byID[jobs[i].ID] = &jobs[i]
	}

	total := core.ZeroMoney()
	for _, s := range shifts {
		total = total.Add(c.Compute(s, byID[s.JobID]).Total)
	}
	return total
}
