/*
handlers.go - HTTP API handlers for the shift engine

PURPOSE:
  Exposes the shift/earnings/achievement core via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Jobs:
    GET    /api/jobs                 List jobs with bonus catalogs
    POST   /api/jobs                 Create job
    GET    /api/jobs/{id}            Get job
    PUT    /api/jobs/{id}            Edit job
    DELETE /api/jobs/{id}            Delete job (cascade bonuses, detach shifts)
    POST   /api/jobs/{id}/bonuses    Add a catalog bonus
  Bonuses:
    DELETE /api/bonuses/{id}         Remove a catalog bonus
  Shifts:
    GET    /api/shifts               List shifts (filterable) with earnings
    POST   /api/shifts               Add a completed shift manually
    PUT    /api/shifts/{id}          Edit a shift
    DELETE /api/shifts/{id}          Delete a shift
  Tracker:
    GET    /api/tracker              Live status + elapsed time
    POST   /api/tracker/start        Start tracking a job
    POST   /api/tracker/stop         End the active shift
  Achievements:
    GET    /api/achievements         Display-sorted list + total points
  Summary:
    GET    /api/summary              History-wide aggregates

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (with structured field details)
  - 404: Resource not found
  - 409: State machine violations (already/not tracking)
  - 500: Gateway failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Gateway      shift.Gateway
	Tracker      *shift.Tracker
	Achievements *achieve.Service
	Clock        core.Clock

	calc *shift.Calculator
}

// NewHandler creates a handler over the given dependencies.
func NewHandler(gw shift.Gateway, tracker *shift.Tracker, svc *achieve.Service, clock core.Clock) *Handler {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &Handler{
		Gateway:      gw,
		Tracker:      tracker,
		Achievements: svc,
		Clock:        clock,
		calc:         shift.NewCalculator(clock),
	}
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns all jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Gateway.FetchJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toJobDTO(j)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetJob returns a single job with its bonus catalog.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := shift.JobID(chi.URLParam(r, "id"))

	job, err := h.Gateway.FetchJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get job", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// CreateJob creates a new job, optionally with an initial bonus catalog.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	now := h.Clock.Now()
	job := shift.Job{
		ID:         shift.JobID(fmt.Sprintf("job-%d", now.UnixNano())),
		Name:       req.Name,
		HourlyRate: core.NewMoneyFromFloat(req.HourlyRate),
		CreatedAt:  now,
		IsActive:   true,
	}
	for i, b := range req.Bonuses {
		job.Bonuses = append(job.Bonuses, shift.Bonus{
			ID:     shift.BonusID(fmt.Sprintf("bonus-%d-%d", now.UnixNano(), i)),
			JobID:  job.ID,
			Name:   b.Name,
			Amount: core.NewMoneyFromFloat(b.Amount),
		})
	}

	if res := job.Validate(); !res.Valid() {
		writeValidation(w, res)
		return
	}
	for _, b := range job.Bonuses {
		if res := b.Validate(); !res.Valid() {
			writeValidation(w, res)
			return
		}
	}

	if err := h.Gateway.SaveJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err)
		return
	}

	h.recompute(r.Context())
	writeJSON(w, http.StatusCreated, toJobDTO(job))
}

// UpdateJob edits a job's name, rate and active flag.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id := shift.JobID(chi.URLParam(r, "id"))

	var req UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.Gateway.FetchJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get job", err)
		return
	}

	job.Name = req.Name
	job.HourlyRate = core.NewMoneyFromFloat(req.HourlyRate)
	if req.IsActive != nil {
		job.IsActive = *req.IsActive
	}

	if res := job.Validate(); !res.Valid() {
		writeValidation(w, res)
		return
	}
	if err := h.Gateway.SaveJob(r.Context(), *job); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update job", err)
		return
	}

	h.recompute(r.Context())
	writeJSON(w, http.StatusOK, toJobDTO(*job))
}

// DeleteJob removes a job, cascading bonuses and detaching shifts.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := shift.JobID(chi.URLParam(r, "id"))

	if err := h.Gateway.DeleteJob(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete job", err)
		return
	}

	h.recompute(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// AddBonus appends a bonus to a job's catalog.
func (h *Handler) AddBonus(w http.ResponseWriter, r *http.Request) {
	jobID := shift.JobID(chi.URLParam(r, "id"))

	var req CreateBonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bonus := shift.Bonus{
		ID:     shift.BonusID(fmt.Sprintf("bonus-%d", h.Clock.Now().UnixNano())),
		JobID:  jobID,
		Name:   req.Name,
		Amount: core.NewMoneyFromFloat(req.Amount),
	}
	if res := bonus.Validate(); !res.Valid() {
		writeValidation(w, res)
		return
	}

	if err := h.Gateway.SaveBonus(r.Context(), bonus); err != nil {
		writeDomainError(w, "Failed to add bonus", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBonusDTO(bonus))
}

// DeleteBonus removes a catalog bonus.
func (h *Handler) DeleteBonus(w http.ResponseWriter, r *http.Request) {
	id := shift.BonusID(chi.URLParam(r, "id"))

	if err := h.Gateway.DeleteBonus(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete bonus", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns shifts matching optional query filters, each with its
// computed earnings breakdown.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseShiftFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	shifts, err := h.Gateway.FetchShifts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	jobs, err := h.Gateway.FetchJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load jobs", err)
		return
	}

	byID := make(map[shift.JobID]*shift.Job, len(jobs))
	for i := range jobs {
		byID[jobs[i].ID] = &jobs[i]
	}

	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s, h.calc.Compute(s, byID[s.JobID]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateShift adds a completed shift manually (the manual-entry flow).
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, res, err := h.shiftFromRequest(shift.Shift{
		ID:    shift.ShiftID(fmt.Sprintf("shift-%d", h.Clock.Now().UnixNano())),
		JobID: shift.JobID(req.JobID),
	}, req.StartTime, req.EndTime, req.ShiftType, req.Notes, req.BonusAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !res.Valid() {
		writeValidation(w, res)
		return
	}

	job, err := h.Gateway.FetchJob(r.Context(), s.JobID)
	if err != nil {
		writeDomainError(w, "Unknown job for shift", err)
		return
	}

	if err := h.Gateway.SaveShift(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	h.recompute(r.Context())
	writeJSON(w, http.StatusCreated, toShiftDTO(s, h.calc.Compute(s, job)))
}

// GetShift returns a single shift with its earnings breakdown.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	id := shift.ShiftID(chi.URLParam(r, "id"))

	s, err := h.fetchShift(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get shift", err)
		return
	}

	var job *shift.Job
	if s.JobID != "" {
		job, _ = h.Gateway.FetchJob(r.Context(), s.JobID)
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s, h.calc.Compute(*s, job)))
}

// UpdateShift edits a completed shift.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	id := shift.ShiftID(chi.URLParam(r, "id"))

	var req UpdateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	existing, err := h.fetchShift(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get shift", err)
		return
	}

	s, res, err := h.shiftFromRequest(*existing, req.StartTime, req.EndTime, req.ShiftType, req.Notes, req.BonusAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if !res.Valid() {
		writeValidation(w, res)
		return
	}

	if err := h.Gateway.SaveShift(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	var job *shift.Job
	if s.JobID != "" {
		job, _ = h.Gateway.FetchJob(r.Context(), s.JobID)
	}

	h.recompute(r.Context())
	writeJSON(w, http.StatusOK, toShiftDTO(s, h.calc.Compute(s, job)))
}

// DeleteShift removes a shift. Achievements already unlocked stay unlocked.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	id := shift.ShiftID(chi.URLParam(r, "id"))

	if err := h.Gateway.DeleteShift(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete shift", err)
		return
	}

	h.recompute(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// shiftFromRequest applies request fields onto a shift and finalizes it.
func (h *Handler) shiftFromRequest(base shift.Shift, start, end, shiftType, notes string, bonus float64) (shift.Shift, *core.ValidationResult, error) {
	startTime, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return base, nil, fmt.Errorf("invalid start_time (use RFC3339)")
	}
	endTime, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return base, nil, fmt.Errorf("invalid end_time (use RFC3339)")
	}

	base.StartTime = startTime.UTC()
	et := endTime.UTC()
	base.EndTime = &et
	base.Type = shift.ShiftType(shiftType)
	base.Notes = notes
	base.BonusAmount = core.NewMoneyFromFloat(bonus)

	s, res := shift.FinalizeManual(base)
	return s, res, nil
}

func (h *Handler) fetchShift(ctx context.Context, id shift.ShiftID) (*shift.Shift, error) {
	shifts, err := h.Gateway.FetchShifts(ctx, shift.Filter{})
	if err != nil {
		return nil, err
	}
	for i := range shifts {
		if shifts[i].ID == id {
			return &shifts[i], nil
		}
	}
	return nil, core.ErrShiftNotFound
}

// =============================================================================
// TRACKER HANDLERS
// =============================================================================

// TrackerStatus returns the live state: whether a shift is active, the
// provisional breakdown, and elapsed seconds.
func (h *Handler) TrackerStatus(w http.ResponseWriter, r *http.Request) {
	status := TrackerStatusDTO{}

	if active := h.Tracker.Active(); active != nil {
		status.IsTracking = true
		elapsed, _ := h.Tracker.Elapsed()
		status.ElapsedSeconds = elapsed.Seconds()

		var job *shift.Job
		if active.JobID != "" {
			job, _ = h.Gateway.FetchJob(r.Context(), active.JobID)
		}
		dto := toShiftDTO(*active, h.calc.Compute(*active, job))
		status.Shift = &dto
	}
	writeJSON(w, http.StatusOK, status)
}

// StartTracking begins a shift for the requested job.
func (h *Handler) StartTracking(w http.ResponseWriter, r *http.Request) {
	var req StartTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.Gateway.FetchJob(r.Context(), shift.JobID(req.JobID))
	if err != nil {
		writeDomainError(w, "Unknown job", err)
		return
	}

	s, err := h.Tracker.Start(r.Context(), *job)
	if err != nil {
		writeDomainError(w, "Failed to start tracking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(s, h.calc.Compute(s, job)))
}

// StopTracking ends the active shift and reports any new unlocks.
func (h *Handler) StopTracking(w http.ResponseWriter, r *http.Request) {
	s, breakdown, err := h.Tracker.End(r.Context())
	if err != nil && s.ID == "" {
		writeDomainError(w, "Failed to stop tracking", err)
		return
	}

	resp := StopTrackingResponse{Shift: toShiftDTO(s, breakdown)}
	if err != nil {
		// Shift ended but the achievement hook failed: report the shift,
		// log the hook failure.
		log.Printf("achievement re-evaluation failed: %v", err)
	} else if h.Achievements != nil {
		// Hook already ran inside End; surface the freshly unlocked rows.
		achievements, _, lerr := h.Achievements.List(r.Context())
		if lerr == nil {
			for _, a := range achievements {
				if a.IsUnlocked && a.UnlockedAt != nil && !a.UnlockedAt.Before(s.StartTime) {
					resp.Unlocked = append(resp.Unlocked, toAchievementDTO(a))
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ACHIEVEMENT HANDLERS
// =============================================================================

// ListAchievements returns the display-sorted catalog state plus derived
// totals.
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, totalPoints, err := h.Achievements.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list achievements", err)
		return
	}

	writeJSON(w, http.StatusOK, AchievementsResponse{
		Achievements:  toAchievementDTOs(achievements),
		TotalPoints:   totalPoints,
		WeightedScore: achieve.WeightedScore(achievements),
	})
}

// =============================================================================
// SUMMARY HANDLER
// =============================================================================

// Summary returns history-wide aggregates for dashboards.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Gateway.FetchShifts(r.Context(), shift.Filter{CompletedOnly: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load shifts", err)
		return
	}
	jobs, err := h.Gateway.FetchJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load jobs", err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryDTO(achieve.Aggregate(shifts, jobs, h.calc)))
}

// =============================================================================
// HELPERS
// =============================================================================

// recompute re-evaluates achievements after a shift-affecting event. A
// failure here must not fail the original write; it is logged and the next
// event retries naturally.
func (h *Handler) recompute(ctx context.Context) {
	if h.Achievements == nil {
		return
	}
	if _, err := h.Achievements.Recompute(ctx); err != nil {
		log.Printf("achievement re-evaluation failed: %v", err)
	}
}

func parseShiftFilter(r *http.Request) (shift.Filter, error) {
	var f shift.Filter
	q := r.URL.Query()

	if v := q.Get("job_id"); v != "" {
		id := shift.JobID(v)
		f.JobID = &id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid from (use RFC3339)")
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid to (use RFC3339)")
		}
		f.To = &t
	}
	if v := q.Get("type"); v != "" {
		f.Types = []shift.ShiftType{shift.ShiftType(v)}
	}
	if q.Get("completed") == "true" {
		f.CompletedOnly = true
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error category onto an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Code:    "validation",
			Details: verr.Result.Errors,
		})
		return
	}

	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, core.ErrAlreadyTracking), errors.Is(err, core.ErrNotTracking):
		resp := ErrorResponse{Error: message, Code: "state", Details: err.Error()}
		writeJSON(w, http.StatusConflict, resp)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeValidation(w http.ResponseWriter, res *core.ValidationResult) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Validation failed",
		Code:    "validation",
		Details: res.Errors,
	})
}
