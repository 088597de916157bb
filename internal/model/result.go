package model

import "time"

// UnitStatus describes how a scan unit finished.
type UnitStatus string

const (
	StatusOK      UnitStatus = "ok"
	StatusPartial UnitStatus = "partial"
	StatusFailed  UnitStatus = "failed"
)

// UnitError is a non-fatal error captured on a scan unit result. Errors are
// enumerated in the result rather than aborting the run.
type UnitError struct {
	Stage   string `json:"stage"` // "extract", "match" or "setup"
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// Warning records a skipped manifest entry or an unresolved dependency
// version. Warnings never fail a unit.
type Warning struct {
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// ScanUnitResult holds everything produced for one repository or folder.
// It serializes to JSON so parse-only runs can be resumed with scan-only.
type ScanUnitResult struct {
	Unit         string       `json:"unit"`
	Status       UnitStatus   `json:"status"`
	Dependencies []Dependency `json:"dependencies"`
	Findings     []Finding    `json:"findings"`
	Errors       []UnitError  `json:"errors,omitempty"`
	Warnings     []Warning    `json:"warnings,omitempty"`
}

// Degrade lowers the unit status to partial unless it already failed.
func (r *ScanUnitResult) Degrade() {
	if r.Status != StatusFailed {
		r.Status = StatusPartial
	}
}

// AddError records a non-fatal error and degrades the unit.
func (r *ScanUnitResult) AddError(stage, file, msg string) {
	r.Errors = append(r.Errors, UnitError{Stage: stage, File: file, Message: msg})
	r.Degrade()
}

// RunResult aggregates all unit results for one invocation. It is owned by
// the pipeline orchestrator and consumed by reporting.
type RunResult struct {
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Units    []ScanUnitResult `json:"units"`
}

// TotalFindings counts findings across all units.
func (r RunResult) TotalFindings() int {
	n := 0
	for _, u := range r.Units {
		n += len(u.Findings)
	}
	return n
}

// Failed reports whether any unit failed outright.
func (r RunResult) Failed() bool {
	for _, u := range r.Units {
		if u.Status == StatusFailed {
			return true
		}
	}
	return false
}
