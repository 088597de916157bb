package model

import "sort"

// Finding links one dependency to one advisory that matched it. Findings are
// created only by the matcher and never mutated afterwards; multiple
// advisories against the same dependency each produce a distinct finding.
type Finding struct {
	Dependency Dependency `json:"dependency"`
	Advisory   Advisory   `json:"advisory"`
	Severity   Severity   `json:"severity"`

	// FixedVersion is the smallest fixed version above the resolved version,
	// when the advisory declares one.
	FixedVersion string `json:"fixed_version,omitempty"`
}

// SortFindings orders findings for reports: severity descending, then
// package, then advisory ID.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		fi, fj := findings[i], findings[j]
		if ri, rj := fi.Severity.Rank(), fj.Severity.Rank(); ri != rj {
			return ri > rj
		}
		if fi.Dependency.Ecosystem != fj.Dependency.Ecosystem {
			return fi.Dependency.Ecosystem < fj.Dependency.Ecosystem
		}
		if fi.Dependency.Name != fj.Dependency.Name {
			return fi.Dependency.Name < fj.Dependency.Name
		}
		return fi.Advisory.ID < fj.Advisory.ID
	})
}
