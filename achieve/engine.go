/*
engine.go - Pure achievement evaluation over the shift history

PURPOSE:
  Recomputes progress and unlock state for the whole catalog from the
  cumulative shift and job history. Evaluate is pure and idempotent: the same
  history and prior state always yield the same output, and evaluating twice
  in a row without new data is a no-op.

MONOTONICITY:
  An unlocked achievement stays unlocked. If a shift deletion shrinks an
  aggregate below the target, the unlock (and its timestamp) survive:
  achievements record history, not a live gauge.

AGGREGATES:
  Only completed shifts count. An active shift would make the aggregates
  depend on "now" and break idempotence; it simply hasn't happened yet.

STREAKS:
  Consistency metrics use the longest streak over the whole history:
  consecutive calendar days, consecutive ISO weeks, consecutive months with
  at least one completed shift.

SEE ALSO:
  - catalog.go: Entries, metrics, targets
  - shift/earnings.go: The breakdown math the earnings aggregates reuse
*/
package achieve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// AGGREGATES
// =============================================================================

// Aggregates summarizes a shift/job history for metric lookup.
type Aggregates struct {
	ShiftCount     int
	OvertimeShifts int
	JobCount       int
	TotalHours     decimal.Decimal
	TotalEarnings  core.Money
	BonusEarnings  core.Money
	DayStreak      int
	WeekStreak     int
	MonthStreak    int
}

// Aggregate computes all metric values from the history. Active shifts are
// skipped entirely.
func Aggregate(shifts []shift.Shift, jobs []shift.Job, calc *shift.Calculator) Aggregates {
	if calc == nil {
		calc = shift.NewCalculator(nil)
	}

	byID := make(map[shift.JobID]*shift.Job, len(jobs))
	for i := range jobs {
		byID[jobs[i].ID] = &jobs[i]
	}

	agg := Aggregates{
		TotalHours:    decimal.Zero,
		TotalEarnings: core.ZeroMoney(),
		BonusEarnings: core.ZeroMoney(),
		JobCount:      len(jobs),
	}

	var days []time.Time
	for _, s := range shifts {
		if !s.IsCompleted() {
			continue
		}
		agg.ShiftCount++
		if s.Type == shift.TypeOvertime {
			agg.OvertimeShifts++
		}

		b := calc.Compute(s, byID[s.JobID])
		agg.TotalHours = agg.TotalHours.Add(b.DurationHours)
		agg.TotalEarnings = agg.TotalEarnings.Add(b.Total)
		agg.BonusEarnings = agg.BonusEarnings.Add(b.Bonus)

		days = append(days, s.StartTime)
	}

	agg.DayStreak = longestDayStreak(days)
	agg.WeekStreak = longestWeekStreak(days)
	agg.MonthStreak = longestMonthStreak(days)
	return agg
}

// Value returns the aggregate tracked by a metric.
func (a Aggregates) Value(m Metric) decimal.Decimal {
	switch m {
	case MetricShiftCount:
		return decimal.NewFromInt(int64(a.ShiftCount))
	case MetricTotalHours:
		return a.TotalHours
	case MetricTotalEarnings:
		return a.TotalEarnings.Value
	case MetricBonusEarnings:
		return a.BonusEarnings.Value
	case MetricOvertimeShifts:
		return decimal.NewFromInt(int64(a.OvertimeShifts))
	case MetricJobCount:
		return decimal.NewFromInt(int64(a.JobCount))
	case MetricDayStreak:
		return decimal.NewFromInt(int64(a.DayStreak))
	case MetricWeekStreak:
		return decimal.NewFromInt(int64(a.WeekStreak))
	case MetricMonthStreak:
		return decimal.NewFromInt(int64(a.MonthStreak))
	default:
		return decimal.Zero
	}
}

// =============================================================================
// STREAKS
// =============================================================================

func longestRun(indexes []int64) int {
	if len(indexes) == 0 {
		return 0
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	best, run := 1, 1
	for i := 1; i < len(indexes); i++ {
		switch indexes[i] - indexes[i-1] {
		case 0:
			// same bucket, run unchanged
		case 1:
			run++
			if run > best {
				best = run
			}
		default:
			run = 1
		}
	}
	return best
}

func longestDayStreak(starts []time.Time) int {
	idx := make([]int64, len(starts))
	for i, t := range starts {
		t = t.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		idx[i] = day.Unix() / 86400
	}
	return longestRun(idx)
}

func longestWeekStreak(starts []time.Time) int {
	idx := make([]int64, len(starts))
	for i, t := range starts {
		t = t.UTC()
		// Index by the Monday of the ISO week so week streaks survive year
		// boundaries.
		weekday := (int(t.Weekday()) + 6) % 7 // Monday = 0
		monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -weekday)
		idx[i] = monday.Unix() / (86400 * 7)
	}
	return longestRun(idx)
}

func longestMonthStreak(starts []time.Time) int {
	idx := make([]int64, len(starts))
	for i, t := range starts {
		t = t.UTC()
		idx[i] = int64(t.Year())*12 + int64(t.Month()) - 1
	}
	return longestRun(idx)
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate recomputes the full catalog against the history. prior supplies
// the existing unlock state (the monotonicity source); entries missing from
// prior start from zero. now timestamps freshly unlocked entries.
func Evaluate(shifts []shift.Shift, jobs []shift.Job, prior []Achievement, entries []CatalogEntry, now time.Time) []Achievement {
	return EvaluateWith(shifts, jobs, prior, entries, now, nil)
}

// EvaluateWith is Evaluate with an explicit calculator, for callers that opt
// in to non-default earnings semantics.
func EvaluateWith(shifts []shift.Shift, jobs []shift.Job, prior []Achievement, entries []CatalogEntry, now time.Time, calc *shift.Calculator) []Achievement {
	agg := Aggregate(shifts, jobs, calc)

	priorByID := make(map[AchievementID]Achievement, len(prior))
	for _, a := range prior {
		priorByID[a.ID] = a
	}

	out := make([]Achievement, 0, len(entries))
	for _, e := range entries {
		a := e.New()
		value := agg.Value(e.Metric)
		if value.IsNegative() {
			value = decimal.Zero
		}

		p, hadPrior := priorByID[e.ID]
		switch {
		case hadPrior && p.IsUnlocked:
			// Monotonic: never re-lock, keep the original unlock time.
			a.IsUnlocked = true
			a.UnlockedAt = p.UnlockedAt
			a.Progress = e.Target
		case value.GreaterThanOrEqual(e.Target):
			a.IsUnlocked = true
			unlockedAt := now
			a.UnlockedAt = &unlockedAt
			a.Progress = e.Target
		default:
			a.Progress = value
		}

		out = append(out, a)
	}
	return out
}

// =============================================================================
// DERIVED READS
// =============================================================================

// TotalPoints sums the points of unlocked achievements. Derived, not stored.
func TotalPoints(achievements []Achievement) int {
	total := 0
	for _, a := range achievements {
		if a.IsUnlocked {
			total += a.Points
		}
	}
	return total
}

// WeightedScore sums points scaled by rarity weight, for leaderboard-style
// displays.
func WeightedScore(achievements []Achievement) int {
	total := 0
	for _, a := range achievements {
		if a.IsUnlocked {
			total += a.Points * a.Rarity().Weight()
		}
	}
	return total
}

// SortForDisplay orders achievements for presentation: unlocked first, then
// points descending, ties broken by catalog order.
func SortForDisplay(achievements []Achievement) {
	idx := CatalogIndex()
	sort.SliceStable(achievements, func(i, j int) bool {
		a, b := achievements[i], achievements[j]
		if a.IsUnlocked != b.IsUnlocked {
			return a.IsUnlocked
		}
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		return idx[a.ID] < idx[b.ID]
	})
}

// =============================================================================
// SERVICE - Gateway-backed re-evaluation after shift-affecting events
// =============================================================================

// Service glues the pure engine to the persistence gateways: it loads the
// history, evaluates, persists only the rows that changed, and reports the
// newly unlocked entries (the "recent unlocks" feed).
type Service struct {
	shifts       shift.Gateway
	achievements Gateway
	clock        core.Clock
	calc         *shift.Calculator
}

func NewService(shifts shift.Gateway, achievements Gateway, clock core.Clock) *Service {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Service{
		shifts:       shifts,
		achievements: achievements,
		clock:        clock,
		calc:         shift.NewCalculator(clock),
	}
}

// Recompute evaluates the catalog against current history and saves deltas.
// Returns newly unlocked achievements.
func (s *Service) Recompute(ctx context.Context) ([]Achievement, error) {
	history, err := s.shifts.FetchShifts(ctx, shift.Filter{CompletedOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load shift history: %w", err)
	}
	jobs, err := s.shifts.FetchJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	prior, err := s.achievements.FetchAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	priorByID := make(map[AchievementID]Achievement, len(prior))
	for _, a := range prior {
		priorByID[a.ID] = a
	}

	updated := EvaluateWith(history, jobs, prior, Catalog(), s.clock.Now(), s.calc)

	var unlocked []Achievement
	for _, a := range updated {
		p, had := priorByID[a.ID]
		if had && p.IsUnlocked == a.IsUnlocked && p.Progress.Equal(a.Progress) {
			continue // unchanged, skip the write
		}
		if err := s.achievements.SaveAchievement(ctx, a); err != nil {
			return unlocked, fmt.Errorf("failed to save achievement %s: %w", a.ID, err)
		}
		if a.IsUnlocked && (!had || !p.IsUnlocked) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked, nil
}

// Hook adapts Recompute to the tracker's completion hook signature.
func (s *Service) Hook() shift.CompletionHook {
	return func(ctx context.Context, _ shift.Shift, _ shift.Breakdown) error {
		_, err := s.Recompute(ctx)
		return err
	}
}

// List returns all stored achievements in display order plus total points.
func (s *Service) List(ctx context.Context) ([]Achievement, int, error) {
	achievements, err := s.achievements.FetchAchievements(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load achievements: %w", err)
	}
	SortForDisplay(achievements)
	return achievements, TotalPoints(achievements), nil
}
