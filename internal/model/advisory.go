package model

import "time"

// Advisory is a vulnerability record as returned by the advisory source.
// The shape mirrors the OSV schema; advisories are immutable once fetched
// for a given scan.
type Advisory struct {
	ID        string     `json:"id"`
	Aliases   []string   `json:"aliases,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Details   string     `json:"details,omitempty"`
	Severity  string     `json:"severity,omitempty"` // raw, e.g. "HIGH" or a CVSS vector
	Published time.Time  `json:"published,omitempty"`
	Modified  time.Time  `json:"modified,omitempty"`
	Affected  []Affected `json:"affected,omitempty"`
}

// Affected names one package the advisory applies to, with the version
// ranges and/or explicit version list that are vulnerable.
type Affected struct {
	Package  PackageID      `json:"package"`
	Ranges   []VersionRange `json:"ranges,omitempty"`
	Versions []string       `json:"versions,omitempty"`
}

// PackageID is the package identity inside an advisory.
type PackageID struct {
	Name      string    `json:"name"`
	Ecosystem Ecosystem `json:"ecosystem"`
}

// VersionRange is an ordered list of range events. Introduced bounds are
// inclusive, Fixed bounds exclusive, LastAffected bounds inclusive.
type VersionRange struct {
	Type   string  `json:"type,omitempty"` // SEMVER, ECOSYSTEM or GIT
	Events []Event `json:"events,omitempty"`
}

// Event is a single range boundary. Exactly one field is set.
type Event struct {
	Introduced   string `json:"introduced,omitempty"`
	Fixed        string `json:"fixed,omitempty"`
	LastAffected string `json:"last_affected,omitempty"`
}

// CVEs returns the CVE identifiers among the advisory's aliases.
func (a Advisory) CVEs() []string {
	var out []string
	for _, alias := range a.Aliases {
		if len(alias) >= 4 && alias[:4] == "CVE-" {
			out = append(out, alias)
		}
	}
	return out
}
