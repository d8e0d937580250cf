package healthstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS glucose_readings (
	timestamp INTEGER PRIMARY KEY,
	value     REAL NOT NULL,
	unit      TEXT NOT NULL DEFAULT 'mg/dL'
);
CREATE TABLE IF NOT EXISTS weight_readings (
	timestamp INTEGER PRIMARY KEY,
	kilograms REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS activity_summaries (
	date             INTEGER PRIMARY KEY,
	steps            INTEGER NOT NULL,
	active_energy    REAL NOT NULL DEFAULT 0,
	exercise_minutes INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS authorizations (
	sample_type TEXT PRIMARY KEY,
	granted_at  INTEGER NOT NULL
);
`

// SQLite stores samples in a local sqlite database. Authorization grants
// are persisted alongside the samples so they survive restarts.
type SQLite struct {
	db *sql.DB

	mu         sync.RWMutex
	authorized map[SampleType]bool
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening health database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing health schema: %w", err)
	}

	s := &SQLite{db: db, authorized: make(map[SampleType]bool)}
	if err := s.loadAuthorizations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) loadAuthorizations() error {
	rows, err := s.db.Query(`SELECT sample_type FROM authorizations`)
	if err != nil {
		return fmt.Errorf("loading authorizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t SampleType
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("scanning authorization: %w", err)
		}
		s.authorized[t] = true
	}
	return rows.Err()
}

func (s *SQLite) Authorized(types ...SampleType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range types {
		if !s.authorized[t] {
			return false
		}
	}
	return len(types) > 0
}

func (s *SQLite) RequestAuthorization(ctx context.Context, types ...SampleType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range types {
		if !supportedSampleType(t) {
			return fmt.Errorf("%w: %s", ErrUnsupportedType, t)
		}
	}

	now := time.Now().Unix()
	for _, t := range types {
		if s.authorized[t] {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO authorizations (sample_type, granted_at) VALUES (?, ?)`, string(t), now)
		if err != nil {
			return fmt.Errorf("recording authorization: %w", err)
		}
		s.authorized[t] = true
	}
	return nil
}

func (s *SQLite) GlucoseReadings(ctx context.Context, start, end time.Time) ([]GlucoseReading, error) {
	if !s.Authorized(SampleGlucose) {
		return nil, ErrNotAuthorized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, value, unit FROM glucose_readings
		 WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying glucose readings: %w", err)
	}
	defer rows.Close()

	var readings []GlucoseReading
	for rows.Next() {
		var ts int64
		var r GlucoseReading
		if err := rows.Scan(&ts, &r.Value, &r.Unit); err != nil {
			return nil, fmt.Errorf("scanning glucose reading: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLite) WeightReadings(ctx context.Context, start, end time.Time) ([]WeightReading, error) {
	if !s.Authorized(SampleWeight) {
		return nil, ErrNotAuthorized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, kilograms FROM weight_readings
		 WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying weight readings: %w", err)
	}
	defer rows.Close()

	var readings []WeightReading
	for rows.Next() {
		var ts int64
		var r WeightReading
		if err := rows.Scan(&ts, &r.Kilograms); err != nil {
			return nil, fmt.Errorf("scanning weight reading: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (s *SQLite) ActivitySummaries(ctx context.Context, start, end time.Time) ([]ActivitySummary, error) {
	if !s.Authorized(activitySampleTypes...) {
		return nil, ErrNotAuthorized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, steps, active_energy, exercise_minutes FROM activity_summaries
		 WHERE date >= ? AND date < ? ORDER BY date`,
		start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("querying activity summaries: %w", err)
	}
	defer rows.Close()

	var summaries []ActivitySummary
	for rows.Next() {
		var date int64
		var a ActivitySummary
		if err := rows.Scan(&date, &a.Steps, &a.ActiveEnergyKcal, &a.ExerciseMinutes); err != nil {
			return nil, fmt.Errorf("scanning activity summary: %w", err)
		}
		a.Date = time.Unix(date, 0).UTC()
		summaries = append(summaries, a)
	}
	return summaries, rows.Err()
}

func (s *SQLite) InsertGlucose(ctx context.Context, readings []GlucoseReading) error {
	if !s.Authorized(SampleGlucose) {
		return ErrNotAuthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning glucose insert: %w", err)
	}
	defer tx.Rollback()

	for _, r := range readings {
		unit := r.Unit
		if unit == "" {
			unit = "mg/dL"
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO glucose_readings (timestamp, value, unit) VALUES (?, ?, ?)`,
			r.Timestamp.Unix(), r.Value, unit)
		if err != nil {
			return fmt.Errorf("inserting glucose reading: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) InsertWeight(ctx context.Context, readings []WeightReading) error {
	if !s.Authorized(SampleWeight) {
		return ErrNotAuthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning weight insert: %w", err)
	}
	defer tx.Rollback()

	for _, r := range readings {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO weight_readings (timestamp, kilograms) VALUES (?, ?)`,
			r.Timestamp.Unix(), r.Kilograms)
		if err != nil {
			return fmt.Errorf("inserting weight reading: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) InsertActivity(ctx context.Context, summaries []ActivitySummary) error {
	if !s.Authorized(activitySampleTypes...) {
		return ErrNotAuthorized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning activity insert: %w", err)
	}
	defer tx.Rollback()

	for _, a := range summaries {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO activity_summaries (date, steps, active_energy, exercise_minutes) VALUES (?, ?, ?, ?)`,
			a.Date.Unix(), a.Steps, a.ActiveEnergyKcal, a.ExerciseMinutes)
		if err != nil {
			return fmt.Errorf("inserting activity summary: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) SampleCount(ctx context.Context, t SampleType) (int, error) {
	var table string
	switch t {
	case SampleGlucose:
		table = "glucose_readings"
	case SampleWeight:
		table = "weight_readings"
	case SampleSteps, SampleActiveEnergy, SampleExerciseMinutes:
		table = "activity_summaries"
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s samples: %w", t, err)
	}
	return count, nil
}
