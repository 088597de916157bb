package match

import (
	"context"
	"fmt"
	"log/slog"

	"dementor/internal/model"
	"dementor/internal/telemetry"
)

// Matcher evaluates one dependency at a time against an advisory source.
// It is stateless and safe for concurrent use; the pipeline decides how
// many Match calls run in flight.
type Matcher struct {
	Source AdvisorySource
	Retry  RetryPolicy
}

func NewMatcher(source AdvisorySource) *Matcher {
	return &Matcher{Source: source, Retry: DefaultRetryPolicy}
}

// Match looks up advisories for dep and returns one finding per advisory
// whose affected ranges cover the resolved version. A dependency with no
// usable version is never matched; it comes back with a warning instead so
// the absence of findings cannot be mistaken for a clean result.
func (m *Matcher) Match(ctx context.Context, dep model.Dependency) ([]model.Finding, *model.Warning, error) {
	if dep.Unresolved() {
		w := &model.Warning{
			Message: fmt.Sprintf("%s (%s): no resolvable version %q, skipped vulnerability matching", dep.Name, dep.Ecosystem, dep.DeclaredVersion),
		}
		if len(dep.SourceFiles) > 0 {
			w.File = dep.SourceFiles[0]
		}
		return nil, w, nil
	}

	var advisories []model.Advisory
	err := m.Retry.Do(ctx, func() error {
		var lookupErr error
		advisories, lookupErr = m.Source.Lookup(ctx, dep.Name, dep.Ecosystem)
		return lookupErr
	})
	if err != nil {
		return nil, nil, err
	}

	var findings []model.Finding
	for _, adv := range advisories {
		if f, ok := m.evaluate(dep, adv); ok {
			findings = append(findings, f)
		}
	}
	if len(findings) > 0 {
		slog.Debug("advisories matched",
			"package", dep.Name,
			"ecosystem", dep.Ecosystem,
			"version", dep.ResolvedVersion,
			"findings", len(findings))
	}
	return findings, nil, nil
}

// evaluate applies one advisory to one dependency. The advisory must name
// the package in an affected entry and that entry's ranges must cover the
// resolved version; sources sometimes return advisories for related packages
// and those are dropped here rather than reported.
func (m *Matcher) evaluate(dep model.Dependency, adv model.Advisory) (model.Finding, bool) {
	if !AdvisoryAffects(dep.Name, dep.Ecosystem, dep.ResolvedVersion, adv) {
		return model.Finding{}, false
	}

	severity := model.ParseSeverity(adv.Severity)
	telemetry.TrackFinding(severity.String())
	return model.Finding{
		Dependency:   dep,
		Advisory:     adv,
		Severity:     severity,
		FixedVersion: bestFixedVersion(dep, adv),
	}, true
}

// bestFixedVersion picks the smallest fixed version strictly above the
// resolved version across all of the advisory's ranges, the minimal upgrade
// that clears this advisory. Empty when the advisory declares no such fix.
func bestFixedVersion(dep model.Dependency, adv model.Advisory) string {
	best := ""
	for _, affected := range adv.Affected {
		if affected.Package.Name != dep.Name {
			continue
		}
		for _, rng := range affected.Ranges {
			if rng.Type == "GIT" {
				continue
			}
			for _, ev := range rng.Events {
				if ev.Fixed == "" {
					continue
				}
				if compareVersions(dep.Ecosystem, ev.Fixed, dep.ResolvedVersion) <= 0 {
					continue
				}
				if best == "" || compareVersions(dep.Ecosystem, ev.Fixed, best) < 0 {
					best = ev.Fixed
				}
			}
		}
	}
	return best
}
