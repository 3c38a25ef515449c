/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract: Money becomes a
  plain float here and nowhere else.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Field validation lives in the domain (shift.Job.Validate etc.); handlers
  translate ValidationResult into a 400 with structured field errors.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// JOB TYPES
// =============================================================================

// JobDTO represents a job in API responses.
type JobDTO struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	HourlyRate float64    `json:"hourly_rate"`
	CreatedAt  string     `json:"created_at"`
	IsActive   bool       `json:"is_active"`
	Bonuses    []BonusDTO `json:"bonuses"`
	BonusTotal float64    `json:"bonus_total"`
}

// BonusDTO represents a catalog bonus.
type BonusDTO struct {
	ID     string  `json:"id"`
	JobID  string  `json:"job_id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// CreateJobRequest creates a job, optionally with an initial bonus catalog.
type CreateJobRequest struct {
	Name       string               `json:"name"`
	HourlyRate float64              `json:"hourly_rate"`
	Bonuses    []CreateBonusRequest `json:"bonuses,omitempty"`
}

// UpdateJobRequest edits a job's mutable fields.
type UpdateJobRequest struct {
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourly_rate"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// CreateBonusRequest adds a bonus to a job's catalog.
type CreateBonusRequest struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// =============================================================================
// SHIFT TYPES
// =============================================================================

// ShiftDTO represents a shift plus its computed earnings breakdown.
type ShiftDTO struct {
	ID            string  `json:"id"`
	JobID         string  `json:"job_id,omitempty"`
	StartTime     string  `json:"start_time"`
	EndTime       *string `json:"end_time,omitempty"`
	IsActive      bool    `json:"is_active"`
	ShiftType     string  `json:"shift_type,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	BonusAmount   float64 `json:"bonus_amount"`
	DurationHours float64 `json:"duration_hours"`
	BaseEarnings  float64 `json:"base_earnings"`
	BonusEarnings float64 `json:"bonus_earnings"`
	TotalEarnings float64 `json:"total_earnings"`
}

// CreateShiftRequest adds a completed shift manually. shift_type left empty
// is derived from the duration.
type CreateShiftRequest struct {
	JobID       string  `json:"job_id"`
	StartTime   string  `json:"start_time"` // RFC3339
	EndTime     string  `json:"end_time"`   // RFC3339
	ShiftType   string  `json:"shift_type,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	BonusAmount float64 `json:"bonus_amount,omitempty"`
}

// UpdateShiftRequest edits a completed shift.
type UpdateShiftRequest struct {
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	ShiftType   string  `json:"shift_type,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	BonusAmount float64 `json:"bonus_amount,omitempty"`
}

// =============================================================================
// TRACKER TYPES
// =============================================================================

// StartTrackingRequest selects the job to track.
type StartTrackingRequest struct {
	JobID string `json:"job_id"`
}

// TrackerStatusDTO is the live tracker state for display.
type TrackerStatusDTO struct {
	IsTracking     bool      `json:"is_tracking"`
	Shift          *ShiftDTO `json:"shift,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// StopTrackingResponse reports the completed shift, its breakdown, and any
// achievements the shift unlocked.
type StopTrackingResponse struct {
	Shift    ShiftDTO         `json:"shift"`
	Unlocked []AchievementDTO `json:"unlocked,omitempty"`
}

// =============================================================================
// ACHIEVEMENT TYPES
// =============================================================================

// AchievementDTO represents one achievement's display state.
type AchievementDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	IconName         string  `json:"icon_name"`
	Points           int     `json:"points"`
	Rarity           string  `json:"rarity"`
	Progress         float64 `json:"progress"`
	MaxProgress      float64 `json:"max_progress"`
	ProgressFraction float64 `json:"progress_fraction"`
	IsUnlocked       bool    `json:"is_unlocked"`
	UnlockedAt       *string `json:"unlocked_at,omitempty"`
}

// AchievementsResponse lists achievements in display order with derived
// totals.
type AchievementsResponse struct {
	Achievements  []AchievementDTO `json:"achievements"`
	TotalPoints   int              `json:"total_points"`
	WeightedScore int              `json:"weighted_score"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryDTO aggregates the whole history for dashboards.
type SummaryDTO struct {
	ShiftCount     int     `json:"shift_count"`
	JobCount       int     `json:"job_count"`
	OvertimeShifts int     `json:"overtime_shifts"`
	TotalHours     float64 `json:"total_hours"`
	TotalEarnings  float64 `json:"total_earnings"`
	BonusEarnings  float64 `json:"bonus_earnings"`
	DayStreak      int     `json:"day_streak"`
	WeekStreak     int     `json:"week_streak"`
	MonthStreak    int     `json:"month_streak"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toJobDTO(j shift.Job) JobDTO {
	bonuses := make([]BonusDTO, len(j.Bonuses))
	for i, b := range j.Bonuses {
		bonuses[i] = toBonusDTO(b)
	}
	return JobDTO{
		ID:         string(j.ID),
		Name:       j.Name,
		HourlyRate: j.HourlyRate.Float64(),
		CreatedAt:  j.CreatedAt.Format(time.RFC3339),
		IsActive:   j.IsActive,
		Bonuses:    bonuses,
		BonusTotal: j.BonusTotal().Float64(),
	}
}

func toBonusDTO(b shift.Bonus) BonusDTO {
	return BonusDTO{
		ID:     string(b.ID),
		JobID:  string(b.JobID),
		Name:   b.Name,
		Amount: b.Amount.Float64(),
	}
}

func toShiftDTO(s shift.Shift, b shift.Breakdown) ShiftDTO {
	dto := ShiftDTO{
		ID:            string(s.ID),
		JobID:         string(s.JobID),
		StartTime:     s.StartTime.Format(time.RFC3339),
		IsActive:      s.IsActive,
		ShiftType:     string(s.Type),
		Notes:         s.Notes,
		BonusAmount:   s.BonusAmount.Float64(),
		DurationHours: roundHours(b.DurationHours),
		BaseEarnings:  b.Base.RoundCents().Float64(),
		BonusEarnings: b.Bonus.RoundCents().Float64(),
		TotalEarnings: b.Total.RoundCents().Float64(),
	}
	if s.EndTime != nil {
		end := s.EndTime.Format(time.RFC3339)
		dto.EndTime = &end
	}
	return dto
}

func toAchievementDTO(a achieve.Achievement) AchievementDTO {
	progress, _ := a.Progress.Float64()
	maxProgress, _ := a.MaxProgress.Float64()
	fraction, _ := a.ProgressFraction().Float64()
	dto := AchievementDTO{
		ID:               string(a.ID),
		Name:             a.Name,
		Description:      a.Description,
		Category:         string(a.Category),
		IconName:         a.IconName,
		Points:           a.Points,
		Rarity:           string(a.Rarity()),
		Progress:         progress,
		MaxProgress:      maxProgress,
		ProgressFraction: fraction,
		IsUnlocked:       a.IsUnlocked,
	}
	if a.UnlockedAt != nil {
		t := a.UnlockedAt.Format(time.RFC3339)
		dto.UnlockedAt = &t
	}
	return dto
}

func toAchievementDTOs(as []achieve.Achievement) []AchievementDTO {
	dtos := make([]AchievementDTO, len(as))
	for i, a := range as {
		dtos[i] = toAchievementDTO(a)
	}
	return dtos
}

func toSummaryDTO(agg achieve.Aggregates) SummaryDTO {
	hours, _ := agg.TotalHours.Round(4).Float64()
	return SummaryDTO{
		ShiftCount:     agg.ShiftCount,
		JobCount:       agg.JobCount,
		OvertimeShifts: agg.OvertimeShifts,
		TotalHours:     hours,
		TotalEarnings:  agg.TotalEarnings.RoundCents().Float64(),
		BonusEarnings:  agg.BonusEarnings.RoundCents().Float64(),
		DayStreak:      agg.DayStreak,
		WeekStreak:     agg.WeekStreak,
		MonthStreak:    agg.MonthStreak,
	}
}

func roundHours(h decimal.Decimal) float64 {
	f, _ := h.Round(4).Float64()
	return f
}
