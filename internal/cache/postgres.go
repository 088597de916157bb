package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"dementor/internal/model"
)

// PostgresStore implements Store on Postgres, for deployments where several
// scanners share one result history.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS unit_results (
		unit TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS runs (
		id BIGSERIAL PRIMARY KEY,
		started TIMESTAMPTZ NOT NULL,
		finished TIMESTAMPTZ NOT NULL,
		units INTEGER NOT NULL,
		findings INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveUnit(ctx context.Context, result model.ScanUnitResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode unit result: %w", err)
	}
	query := `INSERT INTO unit_results (unit, status, payload, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (unit) DO UPDATE SET status=EXCLUDED.status, payload=EXCLUDED.payload, updated_at=EXCLUDED.updated_at`
	_, err = s.db.ExecContext(ctx, query, unitKey(result.Unit), string(result.Status), string(payload), time.Now().UTC())
	return err
}

func (s *PostgresStore) LoadUnit(ctx context.Context, unit string) (*model.ScanUnitResult, error) {
	var payload string
	query := `SELECT payload FROM unit_results WHERE unit = $1`
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

func (s *PostgresStore) SaveRun(ctx context.Context, run model.RunResult) error {
	query := `INSERT INTO runs (started, finished, units, findings) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, run.Started, run.Finished, len(run.Units), run.TotalFindings())
	return err
}

func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, started, finished, units, findings FROM runs ORDER BY started DESC LIMIT $1`
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
