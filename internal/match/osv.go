package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dementor/internal/model"
	"dementor/internal/telemetry"
)

const osvQueryURL = "https://api.osv.dev/v1/query"

// OSVSource queries the OSV (Open Source Vulnerability) database. It is the
// default AdvisorySource implementation.
type OSVSource struct {
	HTTPClient *http.Client
	APIURL     string
}

func NewOSVSource() *OSVSource {
	return &OSVSource{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIURL:     osvQueryURL,
	}
}

type osvQuery struct {
	Package osvPackage `json:"package"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvResponse struct {
	Vulns []osvVuln `json:"vulns"`
}

type osvVuln struct {
	ID        string    `json:"id"`
	Aliases   []string  `json:"aliases"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details"`
	Published time.Time `json:"published"`
	Modified  time.Time `json:"modified"`
	Affected  []struct {
		Package struct {
			Name      string `json:"name"`
			Ecosystem string `json:"ecosystem"`
		} `json:"package"`
		Ranges []struct {
			Type   string `json:"type"`
			Events []struct {
				Introduced   string `json:"introduced"`
				Fixed        string `json:"fixed"`
				LastAffected string `json:"last_affected"`
			} `json:"events"`
		} `json:"ranges"`
		Versions []string `json:"versions"`
	} `json:"affected"`
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
}

// Lookup queries OSV by package identity and returns every advisory known
// for it, with affected version ranges intact. The version comparison itself
// happens locally in the matcher.
func (s *OSVSource) Lookup(ctx context.Context, name string, eco model.Ecosystem) ([]model.Advisory, error) {
	body, err := json.Marshal(osvQuery{Package: osvPackage{Name: name, Ecosystem: string(eco)}})
	if err != nil {
		return nil, fmt.Errorf("marshal OSV query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build OSV request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	telemetry.LookupStarted()
	defer telemetry.LookupFinished()

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, &LookupError{Package: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &LookupError{Package: name, Err: fmt.Errorf("OSV API returned %s", resp.Status)}
	}

	var decoded osvResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &LookupError{Package: name, Err: fmt.Errorf("decode OSV response: %w", err)}
	}

	advisories := make([]model.Advisory, 0, len(decoded.Vulns))
	for _, v := range decoded.Vulns {
		advisories = append(advisories, toAdvisory(v))
	}
	return advisories, nil
}

func toAdvisory(v osvVuln) model.Advisory {
	adv := model.Advisory{
		ID:        v.ID,
		Aliases:   v.Aliases,
		Summary:   v.Summary,
		Details:   v.Details,
		Published: v.Published,
		Modified:  v.Modified,
		Severity:  v.DatabaseSpecific.Severity,
	}
	if adv.Severity == "" {
		// Fall back to the CVSS vector when no database label is present.
		for _, s := range v.Severity {
			if s.Type == "CVSS_V3" || s.Type == "CVSS_V2" {
				adv.Severity = s.Score
			}
		}
	}
	for _, a := range v.Affected {
		affected := model.Affected{
			Package: model.PackageID{
				Name:      a.Package.Name,
				Ecosystem: model.NormalizeEcosystem(a.Package.Ecosystem),
			},
			Versions: a.Versions,
		}
		for _, r := range a.Ranges {
			rng := model.VersionRange{Type: r.Type}
			for _, e := range r.Events {
				rng.Events = append(rng.Events, model.Event{
					Introduced:   e.Introduced,
					Fixed:        e.Fixed,
					LastAffected: e.LastAffected,
				})
			}
			affected.Ranges = append(affected.Ranges, rng)
		}
		adv.Affected = append(adv.Affected, affected)
	}
	return adv
}
