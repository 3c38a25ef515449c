package shift_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
	"github.com/warp/shift-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestTracker(t *testing.T) (*shift.Tracker, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.New()
	clk := newFakeClock()
	tracker := shift.NewTracker(store, clk)

	job := testJob("20")
	require.NoError(t, store.SaveJob(context.Background(), *job))
	return tracker, store, clk
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestTracker_StartFromIdle(t *testing.T) {
	// GIVEN: An idle tracker
	// WHEN: Starting a shift
	// THEN: The tracker is Tracking and the active shift is persisted

	tracker, store, clk := newTestTracker(t)
	ctx := context.Background()

	assert.False(t, tracker.IsTracking())

	s, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)

	assert.True(t, tracker.IsTracking())
	assert.True(t, s.IsActive)
	assert.Equal(t, shift.JobID("job-1"), s.JobID)
	assert.Equal(t, clk.Now(), s.StartTime)
	assert.Nil(t, s.EndTime)

	persisted, err := store.FetchActiveShift(ctx)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, s.ID, persisted.ID)
}

func TestTracker_StartWhileTracking_Rejected(t *testing.T) {
	// GIVEN: A tracker with an active shift
	// WHEN: Starting a second shift
	// THEN: Rejected with AlreadyTrackingError naming the blocking shift

	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()

	first, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)

	_, err = tracker.Start(ctx, *testJob("20"))
	require.Error(t, err)

	var already *shift.AlreadyTrackingError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, first.ID, already.ActiveShiftID)
	assert.True(t, errors.Is(err, core.ErrAlreadyTracking))
	assert.True(t, core.IsClientError(err))
}

func TestTracker_EndFromIdle_Rejected(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, _, err := tracker.End(context.Background())
	require.Error(t, err)

	var notTracking *shift.NotTrackingError
	assert.ErrorAs(t, err, &notTracking)
	assert.True(t, errors.Is(err, core.ErrNotTracking))
}

func TestTracker_StartEndCycle(t *testing.T) {
	// GIVEN: A tracked shift running 9 hours at $20/hour
	// WHEN: Ending it
	// THEN: Type derives to overtime, breakdown is 9 * 20 * 1.5 = $270,
	//       the completed shift is persisted and the tracker returns to Idle

	tracker, store, clk := newTestTracker(t)
	ctx := context.Background()

	started, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)

	clk.Advance(9 * time.Hour)

	s, b, err := tracker.End(ctx)
	require.NoError(t, err)

	assert.Equal(t, started.ID, s.ID)
	assert.Equal(t, shift.TypeOvertime, s.Type)
	assert.False(t, s.IsActive)
	require.NotNil(t, s.EndTime)
	assert.Equal(t, 9*time.Hour, s.EndTime.Sub(s.StartTime))
	assert.Equal(t, "270.00", b.Total.String())

	assert.False(t, tracker.IsTracking())
	active, err := store.FetchActiveShift(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := store.FetchShifts(ctx, shift.Filter{CompletedOnly: true})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, s.ID, history[0].ID)
}

func TestTracker_Elapsed(t *testing.T) {
	tracker, _, clk := newTestTracker(t)
	ctx := context.Background()

	_, ok := tracker.Elapsed()
	assert.False(t, ok, "idle tracker has no elapsed time")

	_, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)

	elapsed, ok := tracker.Elapsed()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, elapsed)
}

func TestTracker_StartWithoutJob_Rejected(t *testing.T) {
	tracker, _, _ := newTestTracker(t)

	_, err := tracker.Start(context.Background(), shift.Job{Name: "no id", HourlyRate: core.ZeroMoney()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidInput))
	assert.False(t, tracker.IsTracking())
}

// =============================================================================
// PERSISTENCE FAILURE TESTS
// =============================================================================

func TestTracker_StartPersistFails_StaysIdle(t *testing.T) {
	// GIVEN: A gateway that rejects writes
	// WHEN: Starting a shift
	// THEN: The error propagates and the tracker stays Idle

	tracker, store, _ := newTestTracker(t)
	store.FailWrites = errors.New("disk full")

	_, err := tracker.Start(context.Background(), *testJob("20"))
	require.Error(t, err)
	assert.False(t, tracker.IsTracking())
}

func TestTracker_EndPersistFails_StaysTracking(t *testing.T) {
	// A failed save of the completed shift must leave the shift active:
	// the caller can retry End without losing the session.

	tracker, store, clk := newTestTracker(t)
	ctx := context.Background()

	_, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)
	clk.Advance(time.Hour)

	store.FailWrites = errors.New("disk full")
	_, _, err = tracker.End(ctx)
	require.Error(t, err)
	assert.True(t, tracker.IsTracking(), "failed save must not end the shift")

	// Retry after the fault clears.
	store.FailWrites = nil
	s, _, err := tracker.End(ctx)
	require.NoError(t, err)
	assert.False(t, s.IsActive)
	assert.False(t, tracker.IsTracking())
}

// =============================================================================
// RESUME TESTS
// =============================================================================

func TestTracker_Resume_AdoptsPersistedActiveShift(t *testing.T) {
	// GIVEN: A store holding an active shift from a previous run
	// WHEN: A fresh tracker resumes
	// THEN: It adopts the shift and can end it normally

	store := memory.New()
	clk := newFakeClock()
	ctx := context.Background()

	require.NoError(t, store.SaveJob(ctx, *testJob("20")))
	require.NoError(t, store.SaveShift(ctx, shift.Shift{
		ID:          "shift-old",
		JobID:       "job-1",
		StartTime:   clk.Now().Add(-2 * time.Hour),
		IsActive:    true,
		BonusAmount: core.ZeroMoney(),
	}))

	tracker := shift.NewTracker(store, clk)
	require.NoError(t, tracker.Resume(ctx))

	assert.True(t, tracker.IsTracking())
	elapsed, ok := tracker.Elapsed()
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, elapsed)
}

func TestTracker_Resume_NoActiveShift_IsNoop(t *testing.T) {
	tracker, _, _ := newTestTracker(t)
	require.NoError(t, tracker.Resume(context.Background()))
	assert.False(t, tracker.IsTracking())
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestTracker_ConcurrentStart_OnlyOneWins(t *testing.T) {
	// GIVEN: Many goroutines racing to start a shift
	// THEN: Exactly one succeeds; the rest observe AlreadyTracking

	tracker, _, _ := newTestTracker(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = tracker.Start(ctx, *testJob("20"))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.True(t, errors.Is(err, core.ErrAlreadyTracking))
		}
	}
	assert.Equal(t, 1, wins)
}

// =============================================================================
// HOOK AND EVENT TESTS
// =============================================================================

func TestTracker_CompletionHook_RunsAfterEnd(t *testing.T) {
	store := memory.New()
	clk := newFakeClock()
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, *testJob("20")))

	var hookShift shift.Shift
	tracker := shift.NewTracker(store, clk,
		shift.WithCompletionHook(func(_ context.Context, s shift.Shift, b shift.Breakdown) error {
			hookShift = s
			return nil
		}),
	)

	_, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)
	clk.Advance(time.Hour)

	s, _, err := tracker.End(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, hookShift.ID)
}

func TestTracker_CompletionHookError_ShiftStillEnds(t *testing.T) {
	// A hook failure is reported but never un-ends the shift.

	store := memory.New()
	clk := newFakeClock()
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, *testJob("20")))

	tracker := shift.NewTracker(store, clk,
		shift.WithCompletionHook(func(context.Context, shift.Shift, shift.Breakdown) error {
			return errors.New("evaluation failed")
		}),
	)

	_, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)
	clk.Advance(time.Hour)

	s, _, err := tracker.End(ctx)
	require.Error(t, err)
	assert.NotEmpty(t, s.ID, "the ended shift is still returned")
	assert.False(t, tracker.IsTracking())
}

func TestTracker_ChangeListener(t *testing.T) {
	store := memory.New()
	clk := newFakeClock()
	ctx := context.Background()
	require.NoError(t, store.SaveJob(ctx, *testJob("20")))

	var events []shift.EventKind
	tracker := shift.NewTracker(store, clk,
		shift.WithChangeListener(func(e shift.Event) {
			events = append(events, e.Kind)
		}),
	)

	_, err := tracker.Start(ctx, *testJob("20"))
	require.NoError(t, err)
	clk.Advance(time.Hour)
	_, _, err = tracker.End(ctx)
	require.NoError(t, err)

	assert.Equal(t, []shift.EventKind{shift.EventStarted, shift.EventEnded}, events)
}

// =============================================================================
// MANUAL SHIFT TESTS
// =============================================================================

func TestFinalizeManual_DerivesType(t *testing.T) {
	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(9 * time.Hour)

	s, res := shift.FinalizeManual(shift.Shift{
		ID:          "s-1",
		JobID:       "job-1",
		StartTime:   start,
		EndTime:     &end,
		BonusAmount: core.ZeroMoney(),
	})

	require.True(t, res.Valid())
	assert.Equal(t, shift.TypeOvertime, s.Type)
	assert.False(t, s.IsActive)
}

func TestFinalizeManual_KeepsExplicitType(t *testing.T) {
	// A manually chosen special_event survives even though no duration
	// would derive it.

	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	s, res := shift.FinalizeManual(shift.Shift{
		ID:          "s-1",
		JobID:       "job-1",
		StartTime:   start,
		EndTime:     &end,
		Type:        shift.TypeSpecialEvent,
		BonusAmount: core.ZeroMoney(),
	})

	require.True(t, res.Valid())
	assert.Equal(t, shift.TypeSpecialEvent, s.Type)
}

func TestFinalizeManual_EndBeforeStart_Rejected(t *testing.T) {
	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, res := shift.FinalizeManual(shift.Shift{
		ID:          "s-1",
		JobID:       "job-1",
		StartTime:   start,
		EndTime:     &end,
		BonusAmount: core.ZeroMoney(),
	})

	require.False(t, res.Valid())
	assert.Equal(t, "end_time", res.Errors[0].Field)
}
