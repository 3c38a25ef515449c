/*
catalog.go - The fixed achievement catalog

PURPOSE:
  Defines every achievement the engine knows about. The catalog is compiled
  in, keyed by stable ids, and seeded into the store once (idempotently) at
  first run. Stored rows carry unlock/progress state; the catalog stays the
  source of truth for names, icons, points and targets.

METRICS:
  Each entry names the aggregate it tracks (metric) and the target value
  (max progress). engine.go computes the aggregates.

SEE ALSO:
  - engine.go: Evaluate, the aggregates, the streak rules
*/
package achieve

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// METRICS - Aggregates a catalog entry can track
// =============================================================================

type Metric string

const (
	MetricShiftCount     Metric = "shift_count"
	MetricTotalHours     Metric = "total_hours"
	MetricTotalEarnings  Metric = "total_earnings"
	MetricBonusEarnings  Metric = "bonus_earnings"
	MetricOvertimeShifts Metric = "overtime_shifts"
	MetricJobCount       Metric = "job_count"
	MetricDayStreak      Metric = "day_streak"
	MetricWeekStreak     Metric = "week_streak"
	MetricMonthStreak    Metric = "month_streak"
)

// =============================================================================
// CATALOG
// =============================================================================

type CatalogEntry struct {
	ID          AchievementID
	Name        string
	Description string
	IconName    string
	Category    Category
	Points      int
	Metric      Metric
	Target      decimal.Decimal
}

// New returns the zero-progress stored record for this entry.
func (e CatalogEntry) New() Achievement {
	return Achievement{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Category:    e.Category,
		IconName:    e.IconName,
		Points:      e.Points,
		Progress:    decimal.Zero,
		MaxProgress: e.Target,
	}
}

func target(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

var catalog = []CatalogEntry{
	// First Steps
	{ID: "first-shift", Name: "First Shift", Description: "Complete your first shift",
		IconName: "play.circle.fill", Category: CategoryFirstSteps, Points: 10,
		Metric: MetricShiftCount, Target: target(1)},
	{ID: "getting-started", Name: "Getting Started", Description: "Add your first job",
		IconName: "briefcase.fill", Category: CategoryFirstSteps, Points: 5,
		Metric: MetricJobCount, Target: target(1)},

	// Time Tracking
	{ID: "time-tracker", Name: "Time Tracker", Description: "Track 10 hours total",
		IconName: "clock.fill", Category: CategoryTimeTracking, Points: 15,
		Metric: MetricTotalHours, Target: target(10)},
	{ID: "marathon-worker", Name: "Marathon Worker", Description: "Track 100 hours total",
		IconName: "clock.badge.checkmark", Category: CategoryTimeTracking, Points: 50,
		Metric: MetricTotalHours, Target: target(100)},
	{ID: "time-master", Name: "Time Master", Description: "Track 1000 hours total",
		IconName: "clock.badge.exclamationmark", Category: CategoryTimeTracking, Points: 100,
		Metric: MetricTotalHours, Target: target(1000)},

	// Earnings
	{ID: "first-dollar", Name: "First Dollar", Description: "Earn your first dollar",
		IconName: "dollarsign.circle.fill", Category: CategoryEarnings, Points: 10,
		Metric: MetricTotalEarnings, Target: target(1)},
	{ID: "hundredaire", Name: "Hundredaire", Description: "Earn $100 total",
		IconName: "dollarsign.square.fill", Category: CategoryEarnings, Points: 25,
		Metric: MetricTotalEarnings, Target: target(100)},
	{ID: "thousandaire", Name: "Thousandaire", Description: "Earn $1,000 total",
		IconName: "dollarsign.circle", Category: CategoryEarnings, Points: 75,
		Metric: MetricTotalEarnings, Target: target(1000)},
	{ID: "money-maker", Name: "Money Maker", Description: "Earn $10,000 total",
		IconName: "banknote.fill", Category: CategoryEarnings, Points: 150,
		Metric: MetricTotalEarnings, Target: target(10000)},

	// Consistency
	{ID: "daily-grind", Name: "Daily Grind", Description: "Work 7 days in a row",
		IconName: "calendar.badge.clock", Category: CategoryConsistency, Points: 30,
		Metric: MetricDayStreak, Target: target(7)},
	{ID: "week-warrior", Name: "Week Warrior", Description: "Work 4 weeks in a row",
		IconName: "calendar.badge.checkmark", Category: CategoryConsistency, Points: 75,
		Metric: MetricWeekStreak, Target: target(4)},
	{ID: "monthly-master", Name: "Monthly Master", Description: "Work 3 months in a row",
		IconName: "calendar.badge.exclamationmark", Category: CategoryConsistency, Points: 150,
		Metric: MetricMonthStreak, Target: target(3)},

	// Special
	{ID: "overtime-hero", Name: "Overtime Hero", Description: "Work 10 overtime shifts",
		IconName: "clock.badge.plus", Category: CategorySpecial, Points: 40,
		Metric: MetricOvertimeShifts, Target: target(10)},
	{ID: "bonus-hunter", Name: "Bonus Hunter", Description: "Earn $500 in bonuses",
		IconName: "gift.fill", Category: CategorySpecial, Points: 60,
		Metric: MetricBonusEarnings, Target: target(500)},
	{ID: "multi-tasker", Name: "Multi-Tasker", Description: "Work 5 different jobs",
		IconName: "person.3.fill", Category: CategorySpecial, Points: 50,
		Metric: MetricJobCount, Target: target(5)},

	// Milestones
	{ID: "century-club", Name: "Century Club", Description: "Complete 100 shifts",
		IconName: "100.circle.fill", Category: CategoryMilestones, Points: 100,
		Metric: MetricShiftCount, Target: target(100)},
	{ID: "half-thousand", Name: "Half Thousand", Description: "Complete 500 shifts",
		IconName: "500.circle.fill", Category: CategoryMilestones, Points: 250,
		Metric: MetricShiftCount, Target: target(500)},
	{ID: "thousand-club", Name: "Thousand Club", Description: "Complete 1000 shifts",
		IconName: "1000.circle.fill", Category: CategoryMilestones, Points: 500,
		Metric: MetricShiftCount, Target: target(1000)},
}

// Catalog returns the fixed achievement catalog, in display order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// CatalogIndex maps each id to its position in catalog order (the sort
// tiebreaker for display).
func CatalogIndex() map[AchievementID]int {
	idx := make(map[AchievementID]int, len(catalog))
	for i, e := range catalog {
		idx[e.ID] = i
	}
	return idx
}

// =============================================================================
// SEEDING
// =============================================================================

// Seed writes zero-progress records for catalog entries that don't exist yet.
// Idempotent: rows already present (any progress, any unlock state) are left
// untouched.
func Seed(ctx context.Context, gw Gateway) error {
	existing, err := gw.FetchAchievements(ctx)
	if err != nil {
		return fmt.Errorf("failed to load achievements for seeding: %w", err)
	}

	have := make(map[AchievementID]bool, len(existing))
	for _, a := range existing {
		have[a.ID] = true
	}

	for _, e := range catalog {
		if have[e.ID] {
			continue
		}
		if err := gw.SaveAchievement(ctx, e.New()); err != nil {
			return fmt.Errorf("failed to seed achievement %s: %w", e.ID, err)
		}
	}
	return nil
}
