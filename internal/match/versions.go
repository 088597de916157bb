package match

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"dementor/internal/model"
)

// Version comparison policy, one well-defined total order per ecosystem:
//
//   - Go and npm follow semantic-version precedence (Masterminds/semver,
//     lenient about a leading "v").
//   - PyPI, Maven and anything semver cannot parse fall back to numeric
//     tuple comparison on the dot-separated segments, with missing segments
//     treated as zero and non-numeric suffixes compared lexicographically.
//
// Range bounds are honored exactly as the advisory expresses them:
// "introduced" is inclusive, "fixed" exclusive, "last_affected" inclusive,
// and an introduced value of "0" means the range has no lower bound.

// compareVersions returns -1, 0 or 1 ordering a against b under the
// ecosystem's scheme.
func compareVersions(eco model.Ecosystem, a, b string) int {
	if eco == model.EcosystemGo || eco == model.EcosystemNpm {
		av, aerr := semver.NewVersion(strings.TrimPrefix(a, "v"))
		bv, berr := semver.NewVersion(strings.TrimPrefix(b, "v"))
		if aerr == nil && berr == nil {
			return av.Compare(bv)
		}
	}
	return compareTuples(a, b)
}

func compareTuples(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, ra := numericPrefix(sa)
		nb, rb := numericPrefix(sb)
		if na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// numericPrefix splits "3rc1" into (3, "rc1"); a segment with no digits
// counts as zero.
func numericPrefix(s string) (int, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s
	}
	return n, s[i:]
}

// AdvisoryAffects reports whether the advisory covers the named package at
// the given version. Used by the matcher and by upgrade advice to test
// whether a candidate version would still be vulnerable.
func AdvisoryAffects(name string, eco model.Ecosystem, version string, adv model.Advisory) bool {
	for _, affected := range adv.Affected {
		if affected.Package.Name != name {
			continue
		}
		if affected.Package.Ecosystem != "" && affected.Package.Ecosystem != eco {
			continue
		}
		if versionAffected(eco, version, affected) {
			return true
		}
	}
	return false
}

// versionAffected reports whether version falls inside any of the affected
// entry's ranges, or appears in its explicit version list.
func versionAffected(eco model.Ecosystem, version string, affected model.Affected) bool {
	for _, listed := range affected.Versions {
		if listed == version || compareVersions(eco, listed, version) == 0 {
			return true
		}
	}
	for _, rng := range affected.Ranges {
		if rng.Type == "GIT" {
			// Commit-hash ranges have no version order to compare against.
			continue
		}
		if inRange(eco, version, rng) {
			return true
		}
	}
	return false
}

// inRange walks the range events in order. Each "introduced" opens an
// interval; the next "fixed" or "last_affected" closes it.
func inRange(eco model.Ecosystem, version string, rng model.VersionRange) bool {
	open := false
	var lower string
	check := func(upper string, inclusive bool) bool {
		if !open {
			return false
		}
		if lower != "0" && compareVersions(eco, version, lower) < 0 {
			return false
		}
		cmp := compareVersions(eco, version, upper)
		if inclusive {
			return cmp <= 0
		}
		return cmp < 0
	}

	for _, ev := range rng.Events {
		switch {
		case ev.Introduced != "":
			open = true
			lower = ev.Introduced
		case ev.Fixed != "":
			if check(ev.Fixed, false) {
				return true
			}
			open = false
		case ev.LastAffected != "":
			if check(ev.LastAffected, true) {
				return true
			}
			open = false
		}
	}
	// A trailing open interval has no upper bound.
	if open && (lower == "0" || compareVersions(eco, version, lower) >= 0) {
		return true
	}
	return false
}
