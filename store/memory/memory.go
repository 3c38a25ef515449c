// Package memory provides an in-memory Gateway implementation (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
)

// =============================================================================
// MEMORY STORE - Implements shift.Gateway and achieve.Gateway
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	jobs         map[shift.JobID]shift.Job
	bonuses      map[shift.BonusID]shift.Bonus
	shifts       map[shift.ShiftID]shift.Shift
	achievements map[achieve.AchievementID]achieve.Achievement

	// FailWrites makes every save return an error. Tests use it to verify
	// that a failed persistence call leaves engine state untouched.
	FailWrites error
}

var _ shift.Gateway = (*Store)(nil)
var _ achieve.Gateway = (*Store)(nil)

func New() *Store {
	return &Store{
		jobs:         make(map[shift.JobID]shift.Job),
		bonuses:      make(map[shift.BonusID]shift.Bonus),
		shifts:       make(map[shift.ShiftID]shift.Shift),
		achievements: make(map[achieve.AchievementID]achieve.Achievement),
	}
}

// =============================================================================
// JOBS
// =============================================================================

func (m *Store) SaveJob(_ context.Context, job shift.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.jobs[job.ID] = job
	for _, b := range job.Bonuses {
		m.bonuses[b.ID] = b
	}
	return nil
}

func (m *Store) FetchJob(_ context.Context, id shift.JobID) (*shift.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, core.ErrJobNotFound
	}
	j := job
	j.Bonuses = m.bonusesForLocked(id)
	return &j, nil
}

func (m *Store) FetchJobs(_ context.Context) ([]shift.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]shift.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		j.Bonuses = m.bonusesForLocked(j.ID)
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].CreatedAt.Before(jobs[k].CreatedAt) })
	return jobs, nil
}

// DeleteJob cascades bonuses and detaches shifts, preserving shift history.
func (m *Store) DeleteJob(_ context.Context, id shift.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.jobs[id]; !ok {
		return core.ErrJobNotFound
	}
	delete(m.jobs, id)
	for bid, b := range m.bonuses {
		if b.JobID == id {
			delete(m.bonuses, bid)
		}
	}
	for sid, s := range m.shifts {
		if s.JobID == id {
			s.JobID = ""
			m.shifts[sid] = s
		}
	}
	return nil
}

func (m *Store) bonusesForLocked(id shift.JobID) []shift.Bonus {
	var out []shift.Bonus
	for _, b := range m.bonuses {
		if b.JobID == id {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// BONUSES
// =============================================================================

func (m *Store) SaveBonus(_ context.Context, b shift.Bonus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.jobs[b.JobID]; !ok {
		return core.ErrJobNotFound
	}
	m.bonuses[b.ID] = b
	return nil
}

func (m *Store) DeleteBonus(_ context.Context, id shift.BonusID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	delete(m.bonuses, id)
	return nil
}

// =============================================================================
// SHIFTS
// =============================================================================

func (m *Store) SaveShift(_ context.Context, s shift.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.shifts[s.ID] = s
	return nil
}

func (m *Store) DeleteShift(_ context.Context, id shift.ShiftID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if _, ok := m.shifts[id]; !ok {
		return core.ErrShiftNotFound
	}
	delete(m.shifts, id)
	return nil
}

func (m *Store) FetchActiveShift(_ context.Context) (*shift.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shifts {
		if s.IsActive {
			active := s
			return &active, nil
		}
	}
	return nil, nil
}

func (m *Store) FetchShifts(_ context.Context, f shift.Filter) ([]shift.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []shift.Shift
	for _, s := range m.shifts {
		if f.Matches(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func (m *Store) SaveAchievement(_ context.Context, a achieve.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	m.achievements[a.ID] = a
	return nil
}

func (m *Store) FetchAchievements(_ context.Context) ([]achieve.Achievement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]achieve.Achievement, 0, len(m.achievements))
	for _, a := range m.achievements {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
