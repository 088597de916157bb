package model

import (
	"fmt"
	"sort"
)

// Dependency is the canonical form every parser produces and the matcher
// consumes. (Name, Ecosystem, ResolvedVersion) uniquely identifies a
// dependency within one scan unit.
type Dependency struct {
	Name      string    `json:"name"`
	Ecosystem Ecosystem `json:"ecosystem"`

	// DeclaredVersion is the specifier exactly as written in the manifest.
	// It may be a range ("^1.2.0"), a pin, or empty/"latest".
	DeclaredVersion string `json:"declared_version"`

	// ResolvedVersion is the concrete version used for matching. Empty when
	// no sound version could be determined; such dependencies are reported
	// as unresolved instead of being matched.
	ResolvedVersion string `json:"resolved_version"`

	// SourceFiles lists every manifest that declared this dependency,
	// relative to the scan unit root.
	SourceFiles []string `json:"source_files"`

	// Direct is nil for ecosystems without dependency-depth information.
	Direct *bool `json:"direct,omitempty"`

	// Pinned marks a resolution taken from a lockfile (or an exact pin),
	// which wins over range-derived resolutions when merging.
	Pinned bool `json:"pinned,omitempty"`
}

// Key returns the identity used for deduplication within a scan unit.
func (d Dependency) Key() string {
	return fmt.Sprintf("%s|%s|%s", d.Name, d.Ecosystem, d.ResolvedVersion)
}

// Unresolved reports whether the dependency has no usable concrete version.
func (d Dependency) Unresolved() bool {
	return d.ResolvedVersion == "" || d.ResolvedVersion == "latest"
}

// Merge folds other into d, assuming both refer to the same (name, ecosystem)
// pair. The most specific resolution wins: a lockfile pin beats a declared
// pin, which beats a cleaned range, which beats nothing. Source provenance is
// unioned either way.
func (d *Dependency) Merge(other Dependency) {
	switch {
	case other.Pinned && !d.Pinned:
		d.ResolvedVersion = other.ResolvedVersion
		d.DeclaredVersion = other.DeclaredVersion
		d.Pinned = true
	case d.Unresolved() && !other.Unresolved() && !d.Pinned:
		d.ResolvedVersion = other.ResolvedVersion
		d.DeclaredVersion = other.DeclaredVersion
	}
	if d.Direct == nil {
		d.Direct = other.Direct
	}
	d.SourceFiles = unionStrings(d.SourceFiles, other.SourceFiles)
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SortDependencies orders a dependency slice deterministically for reports
// and for set-equality comparisons in tests.
func SortDependencies(deps []Dependency) {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Ecosystem != deps[j].Ecosystem {
			return deps[i].Ecosystem < deps[j].Ecosystem
		}
		if deps[i].Name != deps[j].Name {
			return deps[i].Name < deps[j].Name
		}
		return deps[i].ResolvedVersion < deps[j].ResolvedVersion
	})
}
