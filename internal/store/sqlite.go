package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists specimens, fibres, runs, motor units, and
// co-activations at .mupool/mupool.db under the project root.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (creating if needed) the database under
// projectRoot/.mupool and initialises the schema.
func NewSQLiteStore(projectRoot string) (*SQLiteStore, error) {
	dir := filepath.Join(projectRoot, ".mupool")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .mupool directory: %w", err)
	}

	dbPath := filepath.Join(dir, "mupool.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveSpecimen inserts or replaces a specimen record.
func (s *SQLiteStore) SaveSpecimen(ctx context.Context, sp Specimen) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sp.Name == "" {
		return fmt.Errorf("save specimen: empty name")
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO specimens (name, snr_mult, frame_width, created_at) VALUES (?, ?, ?, ?)`,
		sp.Name, sp.SNRMult, sp.FrameWidth, sp.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save specimen: %w", err)
	}
	return nil
}

// GetSpecimen returns the named specimen.
func (s *SQLiteStore) GetSpecimen(ctx context.Context, name string) (*Specimen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sp Specimen
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, snr_mult, frame_width, created_at FROM specimens WHERE name = ?`, name).
		Scan(&sp.Name, &sp.SNRMult, &sp.FrameWidth, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("specimen %q not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("get specimen: %w", err)
	}
	if sp.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parse specimen time: %w", err)
	}
	return &sp, nil
}

// ListSpecimens returns all specimens ordered by name.
func (s *SQLiteStore) ListSpecimens(ctx context.Context) ([]Specimen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, snr_mult, frame_width, created_at FROM specimens ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list specimens: %w", err)
	}
	defer rows.Close()

	var out []Specimen
	for rows.Next() {
		var sp Specimen
		var created string
		if err := rows.Scan(&sp.Name, &sp.SNRMult, &sp.FrameWidth, &created); err != nil {
			return nil, fmt.Errorf("scan specimen: %w", err)
		}
		if sp.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse specimen time: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// SaveFibres replaces the fibre set of a specimen in one transaction.
func (s *SQLiteStore) SaveFibres(ctx context.Context, specimen string, fibres []Fibre) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save fibres: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fibres WHERE specimen = ?`, specimen); err != nil {
		return fmt.Errorf("save fibres: %w", err)
	}
	for _, f := range fibres {
		alive := 0
		if f.Alive {
			alive = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fibres (specimen, idx, x, y, alive) VALUES (?, ?, ?, ?, ?)`,
			specimen, f.Index, f.X, f.Y, alive); err != nil {
			return fmt.Errorf("save fibre %d: %w", f.Index, err)
		}
	}
	return tx.Commit()
}

// GetFibres returns a specimen's fibres in index order.
func (s *SQLiteStore) GetFibres(ctx context.Context, specimen string) ([]Fibre, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT specimen, idx, x, y, alive FROM fibres WHERE specimen = ? ORDER BY idx`, specimen)
	if err != nil {
		return nil, fmt.Errorf("get fibres: %w", err)
	}
	defer rows.Close()

	var out []Fibre
	for rows.Next() {
		var f Fibre
		var alive int
		if err := rows.Scan(&f.Specimen, &f.Index, &f.X, &f.Y, &alive); err != nil {
			return nil, fmt.Errorf("scan fibre: %w", err)
		}
		f.Alive = alive != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveRun stores an identification run and its motor units in one
// transaction. An empty ID gets a content-derived one; the final ID is
// written back to the run.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, units []MotorUnitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ID == "" {
		run.ID = runID(run)
	}

	labels, err := json.Marshal(run.Labels)
	if err != nil {
		return fmt.Errorf("save run: marshal labels: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, specimen, electrode, created_at, correlation, detector, objective,
		  threshold, resolution, seed, communities, labels, activity_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Specimen, run.Electrode, run.CreatedAt.Format(time.RFC3339Nano),
		run.Correlation, run.Detector, run.Objective,
		run.Threshold, run.Resolution, run.Seed, run.Communities,
		string(labels), run.ActivityPath); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM motor_units WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("save run: clear units: %w", err)
	}
	for _, u := range units {
		fibres, err := json.Marshal(u.Fibres)
		if err != nil {
			return fmt.Errorf("save run: marshal unit %d: %w", u.Unit, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO motor_units (run_id, unit, size, fibres, area) VALUES (?, ?, ?, ?, ?)`,
			run.ID, u.Unit, u.Size, string(fibres), u.Area); err != nil {
			return fmt.Errorf("save run: unit %d: %w", u.Unit, err)
		}
	}
	return tx.Commit()
}

// GetRun returns one run and its motor units.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, []MotorUnitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var run Run
	var created, labels string
	var electrode, activityPath sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, specimen, electrode, created_at, correlation, detector, objective,
		        threshold, resolution, seed, communities, labels, activity_path
		 FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.Specimen, &electrode, &created, &run.Correlation,
			&run.Detector, &run.Objective, &run.Threshold, &run.Resolution,
			&run.Seed, &run.Communities, &labels, &activityPath)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("run %q not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get run: %w", err)
	}
	run.Electrode = electrode.String
	run.ActivityPath = activityPath.String
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, nil, fmt.Errorf("parse run time: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &run.Labels); err != nil {
		return nil, nil, fmt.Errorf("unmarshal run labels: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, unit, size, fibres, area FROM motor_units WHERE run_id = ? ORDER BY unit`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get run units: %w", err)
	}
	defer rows.Close()

	var units []MotorUnitRecord
	for rows.Next() {
		var u MotorUnitRecord
		var fibres string
		if err := rows.Scan(&u.RunID, &u.Unit, &u.Size, &fibres, &u.Area); err != nil {
			return nil, nil, fmt.Errorf("scan unit: %w", err)
		}
		if err := json.Unmarshal([]byte(fibres), &u.Fibres); err != nil {
			return nil, nil, fmt.Errorf("unmarshal unit fibres: %w", err)
		}
		units = append(units, u)
	}
	return &run, units, rows.Err()
}

// ListRuns returns runs for a specimen, newest first. An empty specimen
// lists every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, specimen string) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, specimen, created_at, communities, threshold FROM runs`
	args := []any{}
	if specimen != "" {
		query += ` WHERE specimen = ?`
		args = append(args, specimen)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &run.Specimen, &created, &run.Communities, &run.Threshold); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse run time: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// runID derives a stable short ID from the run's identity fields.
func runID(run *Run) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%d|%s",
		run.Specimen, run.Electrode, run.Correlation, run.Detector,
		run.Objective, run.Seed, run.CreatedAt.Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))[:12]
}
