/*
Package sqlite provides a SQLite-backed implementation of the gateway interfaces.

PURPOSE:
  Implements the persistence contract (shift.Gateway, achieve.Gateway) using
  SQLite. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  jobs:         Named positions with hourly rates
  bonuses:      Job-owned bonus catalog (ON DELETE CASCADE)
  shifts:       Work sessions; job reference nulls out when the job goes
                (ON DELETE SET NULL - history is preserved, never destroyed)
  achievements: Unlock/progress state keyed by stable catalog ids

INVARIANT ENFORCEMENT:
  A partial unique index on shifts(is_active) backs up the tracker's
  one-active-shift invariant at the database level.

NUMERIC STORAGE:
  Money and progress values are stored as decimal TEXT, never REAL.
  Timestamps are RFC3339 TEXT in UTC.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and WAL mode so readers don't block.

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - shift/types.go: Gateway interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/shift-engine/achieve"
	"github.com/warp/shift-engine/core"
	"github.com/warp/shift-engine/shift"
)

// Store implements both gateway interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ shift.Gateway = (*Store)(nil)
var _ achieve.Gateway = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		created_at TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS bonuses (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bonuses_job ON bonuses(job_id);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		job_id TEXT REFERENCES jobs(id) ON DELETE SET NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		shift_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		bonus_amount TEXT NOT NULL DEFAULT '0'
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_job ON shifts(job_id);
	CREATE INDEX IF NOT EXISTS idx_shifts_start ON shifts(start_time);

	-- Backs up the one-active-shift invariant at the database level.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_single_active
		ON shifts(is_active) WHERE is_active = TRUE;

	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		icon_name TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0,
		progress TEXT NOT NULL DEFAULT '0',
		max_progress TEXT NOT NULL,
		is_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		unlocked_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOBS
// =============================================================================

// SaveJob inserts or updates a job. A job passed with Bonuses attached
// persists those too.
func (s *Store) SaveJob(ctx context.Context, job shift.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs (id, name, hourly_rate, created_at, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			is_active = excluded.is_active
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Name,
		job.HourlyRate.Value.String(),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	for _, b := range job.Bonuses {
		if err := s.saveBonusLocked(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// FetchJob returns a job with its bonus catalog, or ErrJobNotFound.
func (s *Store) FetchJob(ctx context.Context, id shift.JobID) (*shift.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, hourly_rate, created_at, is_active FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job: %w", err)
	}

	bonuses, err := s.queryBonuses(ctx, id)
	if err != nil {
		return nil, err
	}
	job.Bonuses = bonuses
	return &job, nil
}

// FetchJobs returns all jobs with their bonus catalogs, oldest first.
func (s *Store) FetchJobs(ctx context.Context) ([]shift.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, hourly_rate, created_at, is_active FROM jobs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []shift.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range jobs {
		bonuses, err := s.queryBonuses(ctx, jobs[i].ID)
		if err != nil {
			return nil, err
		}
		jobs[i].Bonuses = bonuses
	}
	return jobs, nil
}

// DeleteJob removes a job. Bonuses cascade; shifts are detached (job_id set
// NULL by the foreign key), preserving history.
func (s *Store) DeleteJob(ctx context.Context, id shift.JobID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrJobNotFound
	}
	return nil
}

func scanJob(row interface{ Scan(...any) error }) (shift.Job, error) {
	var (
		job       shift.Job
		rate      string
		createdAt string
	)
	if err := row.Scan(&job.ID, &job.Name, &rate, &createdAt, &job.IsActive); err != nil {
		return job, err
	}
	job.HourlyRate = core.MustParseMoney(rate)
	t, _ := time.Parse(time.RFC3339Nano, createdAt)
	job.CreatedAt = t
	return job, nil
}

// =============================================================================
// BONUSES
// =============================================================================

func (s *Store) SaveBonus(ctx context.Context, b shift.Bonus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveBonusLocked(ctx, b)
}

func (s *Store) saveBonusLocked(ctx context.Context, b shift.Bonus) error {
	query := `
		INSERT INTO bonuses (id, job_id, name, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			amount = excluded.amount
	`
	_, err := s.db.ExecContext(ctx, query, b.ID, b.JobID, b.Name, b.Amount.Value.String())
	if err != nil {
		return fmt.Errorf("failed to save bonus: %w", err)
	}
	return nil
}

func (s *Store) DeleteBonus(ctx context.Context, id shift.BonusID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM bonuses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete bonus: %w", err)
	}
	return nil
}

func (s *Store) queryBonuses(ctx context.Context, jobID shift.JobID) ([]shift.Bonus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, job_id, name, amount FROM bonuses WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bonuses: %w", err)
	}
	defer rows.Close()

	var bonuses []shift.Bonus
	for rows.Next() {
		var (
			b      shift.Bonus
			amount string
		)
		if err := rows.Scan(&b.ID, &b.JobID, &b.Name, &amount); err != nil {
			return nil, err
		}
		b.Amount = core.MustParseMoney(amount)
		bonuses = append(bonuses, b)
	}
	return bonuses, rows.Err()
}

// =============================================================================
// SHIFTS
// =============================================================================

func (s *Store) SaveShift(ctx context.Context, sh shift.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endTime any
	if sh.EndTime != nil {
		endTime = sh.EndTime.UTC().Format(time.RFC3339Nano)
	}
	var jobID any
	if sh.JobID != "" {
		jobID = string(sh.JobID)
	}

	query := `
		INSERT INTO shifts (id, job_id, start_time, end_time, is_active, shift_type, notes, bonus_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_id = excluded.job_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			is_active = excluded.is_active,
			shift_type = excluded.shift_type,
			notes = excluded.notes,
			bonus_amount = excluded.bonus_amount
	`
	_, err := s.db.ExecContext(ctx, query,
		sh.ID,
		jobID,
		sh.StartTime.UTC().Format(time.RFC3339Nano),
		endTime,
		sh.IsActive,
		string(sh.Type),
		sh.Notes,
		sh.BonusAmount.Value.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

func (s *Store) DeleteShift(ctx context.Context, id shift.ShiftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return core.ErrShiftNotFound
	}
	return nil
}

// FetchActiveShift returns the single active shift, or nil when none exists.
func (s *Store) FetchActiveShift(ctx context.Context) (*shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, shiftSelect+` WHERE is_active = TRUE LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active shift: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	sh, err := scanShift(rows)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// FetchShifts returns shifts matching the filter, ordered by start time.
func (s *Store) FetchShifts(ctx context.Context, f shift.Filter) ([]shift.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := shiftSelect + ` WHERE 1=1`
	var args []any

	if f.JobID != nil {
		if *f.JobID == "" {
			query += ` AND job_id IS NULL`
		} else {
			query += ` AND job_id = ?`
			args = append(args, *f.JobID)
		}
	}
	if f.From != nil {
		query += ` AND start_time >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339Nano))
	}
	if f.To != nil {
		query += ` AND start_time <= ?`
		args = append(args, f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.CompletedOnly {
		query += ` AND is_active = FALSE AND end_time IS NOT NULL`
	}
	if len(f.Types) > 0 {
		query += ` AND shift_type IN (?` + placeholders(len(f.Types)-1) + `)`
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY start_time ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []shift.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

const shiftSelect = `SELECT id, job_id, start_time, end_time, is_active, shift_type, notes, bonus_amount FROM shifts`

func scanShift(rows *sql.Rows) (shift.Shift, error) {
	var (
		sh        shift.Shift
		jobID     sql.NullString
		startTime string
		endTime   sql.NullString
		bonus     string
	)
	err := rows.Scan(&sh.ID, &jobID, &startTime, &endTime, &sh.IsActive, &sh.Type, &sh.Notes, &bonus)
	if err != nil {
		return sh, fmt.Errorf("failed to scan shift: %w", err)
	}
	sh.JobID = shift.JobID(jobID.String)
	sh.StartTime, _ = time.Parse(time.RFC3339Nano, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339Nano, endTime.String)
		sh.EndTime = &t
	}
	sh.BonusAmount = core.MustParseMoney(bonus)
	return sh, nil
}

func placeholders(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ",?"
	}
	return out
}

// =============================================================================
// ACHIEVEMENTS
// =============================================================================

func (s *Store) SaveAchievement(ctx context.Context, a achieve.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unlockedAt any
	if a.UnlockedAt != nil {
		unlockedAt = a.UnlockedAt.UTC().Format(time.RFC3339Nano)
	}

	query := `
		INSERT INTO achievements (id, name, description, category, icon_name, points, progress, max_progress, is_unlocked, unlocked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			icon_name = excluded.icon_name,
			points = excluded.points,
			progress = excluded.progress,
			max_progress = excluded.max_progress,
			is_unlocked = excluded.is_unlocked,
			unlocked_at = excluded.unlocked_at
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Description, string(a.Category), a.IconName,
		a.Points, a.Progress.String(), a.MaxProgress.String(), a.IsUnlocked, unlockedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save achievement: %w", err)
	}
	return nil
}

func (s *Store) FetchAchievements(ctx context.Context) ([]achieve.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, category, icon_name, points, progress, max_progress, is_unlocked, unlocked_at
		 FROM achievements ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var out []achieve.Achievement
	for rows.Next() {
		var (
			a          achieve.Achievement
			progress   string
			maxProg    string
			unlockedAt sql.NullString
		)
		err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Category, &a.IconName,
			&a.Points, &progress, &maxProg, &a.IsUnlocked, &unlockedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		a.Progress = core.MustParseMoney(progress).Value
		a.MaxProgress = core.MustParseMoney(maxProg).Value
		if unlockedAt.Valid {
			t, _ := time.Parse(time.RFC3339Nano, unlockedAt.String)
			a.UnlockedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
