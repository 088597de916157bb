package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"dementor/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. Unit results are kept
// as JSON blobs; the schema only indexes what queries filter on.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS unit_results (
		unit TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started DATETIME NOT NULL,
		finished DATETIME NOT NULL,
		units INTEGER NOT NULL,
		findings INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// unitKey normalizes a unit identifier so a scan-only run can name the unit
// either by its stored name or by the original root path.
func unitKey(unit string) string {
	return filepath.Base(filepath.Clean(unit))
}

func (s *SQLiteStore) SaveUnit(ctx context.Context, result model.ScanUnitResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode unit result: %w", err)
	}
	query := `INSERT INTO unit_results (unit, status, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(unit) DO UPDATE SET status=excluded.status, payload=excluded.payload, updated_at=excluded.updated_at`
	_, err = s.db.ExecContext(ctx, query, unitKey(result.Unit), string(result.Status), string(payload), time.Now().UTC())
	return err
}

func (s *SQLiteStore) LoadUnit(ctx context.Context, unit string) (*model.ScanUnitResult, error) {
	var payload string
	query := `SELECT payload FROM unit_results WHERE unit = ?`
	err := s.db.QueryRowContext(ctx, query, unitKey(unit)).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no stored result for unit %s", unit)
	}
	if err != nil {
		return nil, err
	}
	var result model.ScanUnitResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode unit result: %w", err)
	}
	return &result, nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunResult) error {
	query := `INSERT INTO runs (started, finished, units, findings) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, run.Started, run.Finished, len(run.Units), run.TotalFindings())
	return err
}

func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, started, finished, units, findings FROM runs ORDER BY started DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Started, &r.Finished, &r.Units, &r.Findings); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
