package registry

import (
	"context"
	"fmt"

	"dementor/internal/match"
	"dementor/internal/model"
)

// Advice is an upgrade recommendation for one finding. SaferVersion is the
// smallest upgrade that clears the advisory; Latest is what the ecosystem's
// registry currently publishes. Caution flags a latest version that the same
// advisory still covers.
type Advice struct {
	Finding      model.Finding `json:"finding"`
	SaferVersion string        `json:"safer_version,omitempty"`
	Latest       string        `json:"latest,omitempty"`
	Caution      bool          `json:"caution,omitempty"`
}

// Recommend builds upgrade advice for a finding. A registry that does not
// know the package still yields advice from the advisory's fixed version
// alone; the registry lookup only adds the latest-version comparison.
func (c *Client) Recommend(ctx context.Context, f model.Finding) Advice {
	advice := Advice{Finding: f, SaferVersion: f.FixedVersion}

	latest, err := c.LatestVersion(ctx, f.Dependency.Name, f.Dependency.Ecosystem)
	if err != nil {
		return advice
	}
	advice.Latest = latest
	advice.Caution = match.AdvisoryAffects(f.Dependency.Name, f.Dependency.Ecosystem, latest, f.Advisory)
	return advice
}

// String renders the advice as the one-line recommendation used in reports
// and CLI output.
func (a Advice) String() string {
	d := a.Finding.Dependency
	switch {
	case a.Caution:
		return fmt.Sprintf("%s@%s: CAUTION, latest version %s is still affected by %s; pin %s instead",
			d.Name, d.ResolvedVersion, a.Latest, a.Finding.Advisory.ID, a.SaferVersion)
	case a.SaferVersion != "" && a.Latest != "" && a.SaferVersion != a.Latest:
		return fmt.Sprintf("%s@%s: upgrade to %s (minimal fix for %s) or %s (latest)",
			d.Name, d.ResolvedVersion, a.SaferVersion, a.Finding.Advisory.ID, a.Latest)
	case a.SaferVersion != "":
		return fmt.Sprintf("%s@%s: upgrade to %s (fixes %s)",
			d.Name, d.ResolvedVersion, a.SaferVersion, a.Finding.Advisory.ID)
	case a.Latest != "":
		return fmt.Sprintf("%s@%s: no fixed version declared for %s; latest is %s",
			d.Name, d.ResolvedVersion, a.Finding.Advisory.ID, a.Latest)
	default:
		return fmt.Sprintf("%s@%s: no fixed version declared for %s",
			d.Name, d.ResolvedVersion, a.Finding.Advisory.ID)
	}
}
