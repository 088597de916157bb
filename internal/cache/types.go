package cache

import (
	"context"
	"time"

	"dementor/internal/model"
)

// RunRecord is a stored summary of one pipeline run.
type RunRecord struct {
	ID       int64     `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Units    int       `json:"units"`
	Findings int       `json:"findings"`
}

// Store persists scan results between invocations. Unit results are keyed by
// unit name, so a parse-only run can be picked up later by scan-only, and
// run summaries accumulate for the report history.
type Store interface {
	Close() error

	SaveUnit(ctx context.Context, result model.ScanUnitResult) error
	LoadUnit(ctx context.Context, unit string) (*model.ScanUnitResult, error)

	SaveRun(ctx context.Context, run model.RunResult) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
