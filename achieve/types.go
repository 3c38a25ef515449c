/*
Package achieve provides the achievement evaluation engine.

PURPOSE:
  Gamifies tracking: a fixed catalog of milestones is evaluated against the
  cumulative shift/job history, producing unlock and progress state.

KEY CONCEPTS IN THIS FILE (types.go):
  - Achievement: A stored gamification record keyed by a stable catalog id
  - Category: Display grouping (First Steps ... Milestones)
  - Rarity: Derived from points, each tier carrying a score weight
  - Gateway: Persistence contract for achievement records

SEMANTICS:
  Achievements record history, not a live gauge: once unlocked, an
  achievement never re-locks, even if later edits or deletions shrink the
  underlying aggregate.

SEE ALSO:
  - catalog.go: The fixed catalog and idempotent seeding
  - engine.go: Pure evaluation, sorting, derived total points
*/
package achieve

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS AND ENUMS
// =============================================================================

type AchievementID string

type Category string

const (
	CategoryFirstSteps   Category = "first_steps"
	CategoryTimeTracking Category = "time_tracking"
	CategoryEarnings     Category = "earnings"
	CategoryConsistency  Category = "consistency"
	CategorySpecial      Category = "special"
	CategoryMilestones   Category = "milestones"
)

// Rarity tiers, derived from points. Not stored: a derived read.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// RarityForPoints maps point values onto rarity tiers.
func RarityForPoints(points int) Rarity {
	switch {
	case points <= 10:
		return RarityCommon
	case points <= 25:
		return RarityUncommon
	case points <= 50:
		return RarityRare
	case points <= 100:
		return RarityEpic
	default:
		return RarityLegendary
	}
}

// Weight is the score weight of a rarity tier.
func (r Rarity) Weight() int {
	switch r {
	case RarityCommon:
		return 1
	case RarityUncommon:
		return 2
	case RarityRare:
		return 3
	case RarityEpic:
		return 4
	case RarityLegendary:
		return 5
	default:
		return 1
	}
}

// =============================================================================
// ACHIEVEMENT - Stored unlock/progress state
// =============================================================================

type Achievement struct {
	ID          AchievementID
	Name        string
	Description string
	Category    Category
	IconName    string
	Points      int
	Progress    decimal.Decimal
	MaxProgress decimal.Decimal
	IsUnlocked  bool
	UnlockedAt  *time.Time
}

func (a Achievement) Rarity() Rarity { return RarityForPoints(a.Points) }

// ProgressFraction returns progress/maxProgress clamped to [0, 1].
func (a Achievement) ProgressFraction() decimal.Decimal {
	if !a.MaxProgress.IsPositive() {
		return decimal.Zero
	}
	f := a.Progress.Div(a.MaxProgress)
	one := decimal.NewFromInt(1)
	if f.GreaterThan(one) {
		return one
	}
	if f.IsNegative() {
		return decimal.Zero
	}
	return f
}

// =============================================================================
// GATEWAY - Persistence contract for achievement records
// =============================================================================

type Gateway interface {
	SaveAchievement(ctx context.Context, a Achievement) error
	FetchAchievements(ctx context.Context) ([]Achievement, error)
}
