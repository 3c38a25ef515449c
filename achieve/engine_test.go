package achieve_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

var baseDay = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC) // a Monday

func testJob() shift.Job {
	return shift.Job{
		ID:         "job-1",
		Name:       "Barista",
		HourlyRate: core.MustParseMoney("20"),
		IsActive:   true,
	}
}

func doneShift(id string, start time.Time, d time.Duration, typ shift.ShiftType) shift.Shift {
	end := start.Add(d)
	return shift.Shift{
		ID:          shift.ShiftID(id),
		JobID:       "job-1",
		StartTime:   start,
		EndTime:     &end,
		Type:        typ,
		BonusAmount: core.ZeroMoney(),
	}
}

// dailyShifts builds one completed shift per day for n consecutive days.
func dailyShifts(n int) []shift.Shift {
	out := make([]shift.Shift, n)
	for i := 0; i < n; i++ {
		out[i] = doneShift(
			fmt.Sprintf("s-%d", i),
			baseDay.AddDate(0, 0, i),
			8*time.Hour,
			shift.TypeRegular,
		)
	}
	return out
}

func byID(achievements []achieve.Achievement) map[achieve.AchievementID]achieve.Achievement {
	m := make(map[achieve.AchievementID]achieve.Achievement, len(achievements))
	for _, a := range achievements {
		m[a.ID] = a
	}
	return m
}

// =============================================================================
// AGGREGATE TESTS
// =============================================================================

func TestAggregate_BasicCounts(t *testing.T) {
	jobs := []shift.Job{testJob()}
	shifts := []shift.Shift{
		doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular),   // 160
		doneShift("s-2", baseDay.AddDate(0, 0, 1), 9*time.Hour, shift.TypeOvertime), // 270
	}
	shifts[1].BonusAmount = core.MustParseMoney("30")

	agg := achieve.Aggregate(shifts, jobs, nil)

	assert.Equal(t, 2, agg.ShiftCount)
	assert.Equal(t, 1, agg.OvertimeShifts)
	assert.Equal(t, 1, agg.JobCount)
	assert.True(t, decimal.NewFromInt(17).Equal(agg.TotalHours))
	assert.Equal(t, "460.00", agg.TotalEarnings.String())
	assert.Equal(t, "30.00", agg.BonusEarnings.String())
	assert.Equal(t, 2, agg.DayStreak)
}

func TestAggregate_SkipsActiveShifts(t *testing.T) {
	// An active shift hasn't happened yet: including it would make the
	// aggregates depend on "now" and break evaluation idempotence.

	active := shift.Shift{
		ID:          "s-live",
		JobID:       "job-1",
		StartTime:   baseDay,
		IsActive:    true,
		BonusAmount: core.ZeroMoney(),
	}

	agg := achieve.Aggregate([]shift.Shift{active}, []shift.Job{testJob()}, nil)

	assert.Equal(t, 0, agg.ShiftCount)
	assert.True(t, agg.TotalHours.IsZero())
	assert.True(t, agg.TotalEarnings.IsZero())
}

// =============================================================================
// STREAK TESTS
// =============================================================================

func TestAggregate_DayStreak_GapResets(t *testing.T) {
	// 3 consecutive days, a gap, then 5 consecutive days: longest is 5.

	var shifts []shift.Shift
	for _, offset := range []int{0, 1, 2 /* gap */, 10, 11, 12, 13, 14} {
		shifts = append(shifts, doneShift(
			fmt.Sprintf("s-%d", offset),
			baseDay.AddDate(0, 0, offset), 2*time.Hour, shift.TypeFlexible))
	}

	agg := achieve.Aggregate(shifts, nil, nil)
	assert.Equal(t, 5, agg.DayStreak)
}

func TestAggregate_DayStreak_MultipleShiftsSameDay(t *testing.T) {
	// Two shifts on the same day count as one day in the streak.

	shifts := []shift.Shift{
		doneShift("s-1", baseDay, 2*time.Hour, shift.TypeFlexible),
		doneShift("s-2", baseDay.Add(5*time.Hour), 2*time.Hour, shift.TypeFlexible),
		doneShift("s-3", baseDay.AddDate(0, 0, 1), 2*time.Hour, shift.TypeFlexible),
	}

	agg := achieve.Aggregate(shifts, nil, nil)
	assert.Equal(t, 2, agg.DayStreak)
}

func TestAggregate_WeekStreak(t *testing.T) {
	// One shift in each of 4 consecutive ISO weeks.

	var shifts []shift.Shift
	for week := 0; week < 4; week++ {
		shifts = append(shifts, doneShift(
			fmt.Sprintf("s-%d", week),
			baseDay.AddDate(0, 0, week*7), 2*time.Hour, shift.TypeFlexible))
	}

	agg := achieve.Aggregate(shifts, nil, nil)
	assert.Equal(t, 4, agg.WeekStreak)
}

func TestAggregate_MonthStreak_AcrossYearBoundary(t *testing.T) {
	// Nov, Dec, Jan: the month streak survives the year boundary.

	nov := time.Date(2024, time.November, 5, 9, 0, 0, 0, time.UTC)
	shifts := []shift.Shift{
		doneShift("s-1", nov, 2*time.Hour, shift.TypeFlexible),
		doneShift("s-2", nov.AddDate(0, 1, 0), 2*time.Hour, shift.TypeFlexible),
		doneShift("s-3", nov.AddDate(0, 2, 0), 2*time.Hour, shift.TypeFlexible),
	}

	agg := achieve.Aggregate(shifts, nil, nil)
	assert.Equal(t, 3, agg.MonthStreak)
}

// =============================================================================
// EVALUATION TESTS
// =============================================================================

func TestEvaluate_FirstShiftUnlocks(t *testing.T) {
	// GIVEN: One completed shift and one job
	// WHEN: Evaluating the catalog
	// THEN: first-shift, getting-started and the small earnings tiers unlock

	now := baseDay.Add(24 * time.Hour)
	shifts := []shift.Shift{doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)} // $160
	jobs := []shift.Job{testJob()}

	result := byID(achieve.Evaluate(shifts, jobs, nil, achieve.Catalog(), now))

	assert.True(t, result["first-shift"].IsUnlocked)
	assert.True(t, result["getting-started"].IsUnlocked)
	assert.True(t, result["first-dollar"].IsUnlocked)
	assert.True(t, result["hundredaire"].IsUnlocked)
	assert.False(t, result["thousandaire"].IsUnlocked)

	unlocked := result["first-shift"]
	require.NotNil(t, unlocked.UnlockedAt)
	assert.Equal(t, now, *unlocked.UnlockedAt)
}

func TestEvaluate_ProgressBelowTarget(t *testing.T) {
	// 8 tracked hours shows as progress 8/10 toward time-tracker.

	shifts := []shift.Shift{doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)}
	result := byID(achieve.Evaluate(shifts, []shift.Job{testJob()}, nil, achieve.Catalog(), baseDay))

	tracker := result["time-tracker"]
	assert.False(t, tracker.IsUnlocked)
	assert.True(t, decimal.NewFromInt(8).Equal(tracker.Progress))
	assert.True(t, decimal.NewFromInt(10).Equal(tracker.MaxProgress))
}

func TestEvaluate_Idempotent(t *testing.T) {
	// GIVEN: A fixed history
	// WHEN: Evaluating, then evaluating again with the output as prior state
	// THEN: The second pass changes nothing, including UnlockedAt

	firstNow := baseDay.Add(24 * time.Hour)
	laterNow := firstNow.Add(48 * time.Hour)

	shifts := []shift.Shift{doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)}
	jobs := []shift.Job{testJob()}

	first := achieve.Evaluate(shifts, jobs, nil, achieve.Catalog(), firstNow)
	second := achieve.Evaluate(shifts, jobs, first, achieve.Catalog(), laterNow)

	require.Equal(t, len(first), len(second))
	firstByID := byID(first)
	for _, a := range second {
		p := firstByID[a.ID]
		assert.Equal(t, p.IsUnlocked, a.IsUnlocked, "%s unlock state changed", a.ID)
		assert.True(t, p.Progress.Equal(a.Progress), "%s progress changed", a.ID)
		if p.UnlockedAt != nil {
			require.NotNil(t, a.UnlockedAt)
			assert.Equal(t, *p.UnlockedAt, *a.UnlockedAt, "%s unlock time changed", a.ID)
		}
	}
}

func TestEvaluate_Monotonic_SurvivesShrinkingHistory(t *testing.T) {
	// GIVEN: first-shift was unlocked by a shift that is later deleted
	// WHEN: Re-evaluating against the now-empty history
	// THEN: The unlock and its timestamp survive; progress stays at target

	unlockTime := baseDay.Add(24 * time.Hour)
	shifts := []shift.Shift{doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)}
	prior := achieve.Evaluate(shifts, []shift.Job{testJob()}, nil, achieve.Catalog(), unlockTime)

	after := byID(achieve.Evaluate(nil, nil, prior, achieve.Catalog(), unlockTime.Add(time.Hour)))

	firstShift := after["first-shift"]
	assert.True(t, firstShift.IsUnlocked)
	require.NotNil(t, firstShift.UnlockedAt)
	assert.Equal(t, unlockTime, *firstShift.UnlockedAt)
	assert.True(t, firstShift.Progress.Equal(firstShift.MaxProgress))
}

func TestEvaluate_HundredHoursUnlocksMarathonWorker(t *testing.T) {
	// 13 shifts of 8h = 104 hours.

	var shifts []shift.Shift
	for i := 0; i < 13; i++ {
		shifts = append(shifts, doneShift(
			fmt.Sprintf("s-%d", i),
			baseDay.AddDate(0, 0, i), 8*time.Hour, shift.TypeRegular))
	}

	result := byID(achieve.Evaluate(shifts, []shift.Job{testJob()}, nil, achieve.Catalog(), baseDay))

	marathon := result["marathon-worker"]
	assert.True(t, marathon.IsUnlocked)
	assert.True(t, marathon.Progress.Equal(marathon.MaxProgress), "progress caps at target")
}

func TestEvaluate_DailyGrind(t *testing.T) {
	result := byID(achieve.Evaluate(dailyShifts(7), []shift.Job{testJob()}, nil, achieve.Catalog(), baseDay))
	assert.True(t, result["daily-grind"].IsUnlocked)

	result = byID(achieve.Evaluate(dailyShifts(6), []shift.Job{testJob()}, nil, achieve.Catalog(), baseDay))
	assert.False(t, result["daily-grind"].IsUnlocked)
}

func TestEvaluate_OvertimeHero(t *testing.T) {
	var shifts []shift.Shift
	for i := 0; i < 10; i++ {
		shifts = append(shifts, doneShift(
			fmt.Sprintf("s-%d", i),
			baseDay.AddDate(0, 0, i), 9*time.Hour, shift.TypeOvertime))
	}

	result := byID(achieve.Evaluate(shifts, []shift.Job{testJob()}, nil, achieve.Catalog(), baseDay))
	assert.True(t, result["overtime-hero"].IsUnlocked)
}

// =============================================================================
// DERIVED READ TESTS
// =============================================================================

func TestRarityForPoints(t *testing.T) {
	assert.Equal(t, achieve.RarityCommon, achieve.RarityForPoints(10))
	assert.Equal(t, achieve.RarityUncommon, achieve.RarityForPoints(25))
	assert.Equal(t, achieve.RarityRare, achieve.RarityForPoints(50))
	assert.Equal(t, achieve.RarityEpic, achieve.RarityForPoints(100))
	assert.Equal(t, achieve.RarityLegendary, achieve.RarityForPoints(101))
}

func TestTotalPoints_And_WeightedScore(t *testing.T) {
	achievements := []achieve.Achievement{
		{ID: "a", Points: 10, IsUnlocked: true},  // common, weight 1
		{ID: "b", Points: 100, IsUnlocked: true}, // epic, weight 4
		{ID: "c", Points: 500, IsUnlocked: false},
	}

	assert.Equal(t, 110, achieve.TotalPoints(achievements))
	assert.Equal(t, 10*1+100*4, achieve.WeightedScore(achievements))
}

func TestSortForDisplay(t *testing.T) {
	// Unlocked first, points descending, catalog order as tiebreaker.

	achievements := []achieve.Achievement{
		{ID: "thousand-club", Points: 500, IsUnlocked: false},
		{ID: "first-shift", Points: 10, IsUnlocked: true},
		{ID: "first-dollar", Points: 10, IsUnlocked: true},
		{ID: "marathon-worker", Points: 50, IsUnlocked: true},
	}

	achieve.SortForDisplay(achievements)

	ids := make([]achieve.AchievementID, len(achievements))
	for i, a := range achievements {
		ids[i] = a.ID
	}
	// first-shift precedes first-dollar in the catalog.
	assert.Equal(t, []achieve.AchievementID{
		"marathon-worker", "first-shift", "first-dollar", "thousand-club",
	}, ids)
}

// =============================================================================
// SEED TESTS
// =============================================================================

func TestSeed_CreatesZeroProgressRows(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	require.NoError(t, achieve.Seed(ctx, store))

	rows, err := store.FetchAchievements(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, len(achieve.Catalog()))
	for _, a := range rows {
		assert.False(t, a.IsUnlocked)
		assert.True(t, a.Progress.IsZero())
	}
}

func TestSeed_Idempotent_PreservesProgress(t *testing.T) {
	// Re-seeding must not clobber existing unlock state.

	store := memory.New()
	ctx := context.Background()
	require.NoError(t, achieve.Seed(ctx, store))

	unlockedAt := baseDay
	require.NoError(t, store.SaveAchievement(ctx, achieve.Achievement{
		ID:          "first-shift",
		Name:        "First Shift",
		Points:      10,
		Progress:    decimal.NewFromInt(1),
		MaxProgress: decimal.NewFromInt(1),
		IsUnlocked:  true,
		UnlockedAt:  &unlockedAt,
	}))

	require.NoError(t, achieve.Seed(ctx, store))

	rows, err := store.FetchAchievements(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, len(achieve.Catalog()))
	for _, a := range rows {
		if a.ID == "first-shift" {
			assert.True(t, a.IsUnlocked, "re-seed must not re-lock")
		}
	}
}

// =============================================================================
// SERVICE TESTS
// =============================================================================

func TestService_Recompute_ReportsNewUnlocksOnce(t *testing.T) {
	// GIVEN: A seeded store with one completed shift
	// WHEN: Recomputing twice without new data
	// THEN: Unlocks are reported on the first pass only

	store := memory.New()
	clk := &fakeClock{now: baseDay.Add(24 * time.Hour)}
	ctx := context.Background()

	require.NoError(t, achieve.Seed(ctx, store))
	require.NoError(t, store.SaveJob(ctx, testJob()))
	require.NoError(t, store.SaveShift(ctx, doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)))

	svc := achieve.NewService(store, store, clk)

	unlocked, err := svc.Recompute(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, unlocked)

	again, err := svc.Recompute(ctx)
	require.NoError(t, err)
	assert.Empty(t, again, "no new data, no new unlocks")
}

func TestService_List_SortedWithTotals(t *testing.T) {
	store := memory.New()
	clk := &fakeClock{now: baseDay.Add(24 * time.Hour)}
	ctx := context.Background()

	require.NoError(t, achieve.Seed(ctx, store))
	require.NoError(t, store.SaveJob(ctx, testJob()))
	require.NoError(t, store.SaveShift(ctx, doneShift("s-1", baseDay, 8*time.Hour, shift.TypeRegular)))

	svc := achieve.NewService(store, store, clk)
	_, err := svc.Recompute(ctx)
	require.NoError(t, err)

	achievements, totalPoints, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, achievements, len(achieve.Catalog()))

	assert.True(t, achievements[0].IsUnlocked, "unlocked entries sort first")
	assert.Equal(t, achieve.TotalPoints(achievements), totalPoints)
	assert.Positive(t, totalPoints)
}

func TestService_Hook_RecomputesAfterShiftEnds(t *testing.T) {
	// End-to-end: tracker completion drives achievement unlocks.

	store := memory.New()
	clk := &fakeClock{now: baseDay}
	ctx := context.Background()

	require.NoError(t, achieve.Seed(ctx, store))
	require.NoError(t, store.SaveJob(ctx, testJob()))

	svc := achieve.NewService(store, store, clk)
	tracker := shift.NewTracker(store, clk, shift.WithCompletionHook(svc.Hook()))

	_, err := tracker.Start(ctx, testJob())
	require.NoError(t, err)
	clk.now = clk.now.Add(8 * time.Hour)
	_, _, err = tracker.End(ctx)
	require.NoError(t, err)

	achievements, _, err := svc.List(ctx)
	require.NoError(t, err)

	for _, a := range achievements {
		if a.ID == "first-shift" {
			assert.True(t, a.IsUnlocked)
		}
	}
}
