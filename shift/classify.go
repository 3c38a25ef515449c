package shift

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SHIFT TYPE CLASSIFICATION - Canonical duration thresholds
// =============================================================================

// Classification thresholds in hours. A shift strictly longer than eight
// hours is overtime; six up to and including eight hours is regular; anything
// shorter is flexible. SpecialEvent is never derived from duration, it is
// only ever assigned manually.
var (
	overtimeAbove  = decimal.NewFromInt(8)
	regularAtLeast = decimal.NewFromInt(6)
)

// Classify maps a final shift duration onto its type.
//
// Boundary behavior: exactly 6.0h and exactly 8.0h are both Regular.
func Classify(durationHours decimal.Decimal) ShiftType {
	switch {
	case durationHours.GreaterThan(overtimeAbove):
		return TypeOvertime
	case durationHours.GreaterThanOrEqual(regularAtLeast):
		return TypeRegular
	default:
		return TypeFlexible
	}
}

// ClassifyDuration is Classify for a time.Duration.
func ClassifyDuration(d time.Duration) ShiftType {
	return Classify(HoursIn(d))
}

// HoursIn converts a duration to decimal hours.
func HoursIn(d time.Duration) decimal.Decimal {
	if d < 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour)))
}
