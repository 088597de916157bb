package match

import (
	"context"
	"fmt"

	"dementor/internal/model"
)

// AdvisorySource answers vulnerability queries by package identity. An empty
// result is a valid "no advisories" answer; failures are reported as
// *LookupError so callers can tell them apart and retry.
//
// The source is read-only from the matcher's perspective; a handle is passed
// in at construction rather than held in any process-wide singleton.
type AdvisorySource interface {
	Lookup(ctx context.Context, name string, eco model.Ecosystem) ([]model.Advisory, error)
}

// LookupError is a transient advisory-source failure (unreachable endpoint,
// timeout, server error). It is retried with backoff; exhausting retries
// degrades the owning scan unit to partial without failing the run.
type LookupError struct {
	Package string
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("advisory lookup for %s failed: %v", e.Package, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
