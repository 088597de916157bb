package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dementor/internal/model"
)

func TestCompareVersionsSemver(t *testing.T) {
	assert.Equal(t, -1, compareVersions(model.EcosystemNpm, "1.2.3", "1.3.0"))
	assert.Equal(t, 1, compareVersions(model.EcosystemNpm, "2.0.0", "1.99.99"))
	assert.Equal(t, 0, compareVersions(model.EcosystemGo, "v1.2.3", "1.2.3"))
	// Prerelease sorts below the release under semver precedence.
	assert.Equal(t, -1, compareVersions(model.EcosystemNpm, "1.3.0-rc.1", "1.3.0"))
}

func TestCompareVersionsTupleFallback(t *testing.T) {
	assert.Equal(t, -1, compareVersions(model.EcosystemPyPI, "2.9", "2.10"))
	assert.Equal(t, 0, compareVersions(model.EcosystemPyPI, "1.0", "1.0.0"))
	assert.Equal(t, -1, compareVersions(model.EcosystemMaven, "5.3.9", "5.3.10"))
	// Non-numeric suffixes compare lexicographically within a segment.
	assert.Equal(t, -1, compareVersions(model.EcosystemPyPI, "1.0rc1", "1.0rc2"))
}

func TestInRangeBounds(t *testing.T) {
	rng := model.VersionRange{
		Type: "SEMVER",
		Events: []model.Event{
			{Introduced: "1.0.0"},
			{Fixed: "1.3.0"},
		},
	}

	assert.True(t, inRange(model.EcosystemNpm, "1.0.0", rng), "introduced bound is inclusive")
	assert.True(t, inRange(model.EcosystemNpm, "1.2.9", rng))
	assert.False(t, inRange(model.EcosystemNpm, "1.3.0", rng), "fixed bound is exclusive")
	assert.False(t, inRange(model.EcosystemNpm, "0.9.0", rng))
}

func TestInRangeLastAffectedInclusive(t *testing.T) {
	rng := model.VersionRange{
		Type: "ECOSYSTEM",
		Events: []model.Event{
			{Introduced: "0"},
			{LastAffected: "2.5.1"},
		},
	}

	assert.True(t, inRange(model.EcosystemPyPI, "2.5.1", rng))
	assert.True(t, inRange(model.EcosystemPyPI, "0.0.1", rng), "introduced 0 means unbounded below")
	assert.False(t, inRange(model.EcosystemPyPI, "2.5.2", rng))
}

func TestInRangeTrailingOpenInterval(t *testing.T) {
	rng := model.VersionRange{
		Type:   "SEMVER",
		Events: []model.Event{{Introduced: "3.0.0"}},
	}

	assert.True(t, inRange(model.EcosystemNpm, "99.0.0", rng))
	assert.False(t, inRange(model.EcosystemNpm, "2.9.0", rng))
}

func TestInRangeMultipleIntervals(t *testing.T) {
	rng := model.VersionRange{
		Type: "SEMVER",
		Events: []model.Event{
			{Introduced: "1.0.0"},
			{Fixed: "1.2.0"},
			{Introduced: "2.0.0"},
			{Fixed: "2.1.0"},
		},
	}

	assert.True(t, inRange(model.EcosystemNpm, "1.1.0", rng))
	assert.False(t, inRange(model.EcosystemNpm, "1.5.0", rng))
	assert.True(t, inRange(model.EcosystemNpm, "2.0.5", rng))
	assert.False(t, inRange(model.EcosystemNpm, "2.1.0", rng))
}

func TestVersionAffectedExplicitList(t *testing.T) {
	affected := model.Affected{
		Package:  model.PackageID{Name: "requests", Ecosystem: model.EcosystemPyPI},
		Versions: []string{"2.19.0", "2.19.1"},
	}

	assert.True(t, versionAffected(model.EcosystemPyPI, "2.19.1", affected))
	assert.False(t, versionAffected(model.EcosystemPyPI, "2.20.0", affected))
}

func TestVersionAffectedSkipsGitRanges(t *testing.T) {
	affected := model.Affected{
		Package: model.PackageID{Name: "lodash", Ecosystem: model.EcosystemNpm},
		Ranges: []model.VersionRange{
			{
				Type: "GIT",
				Events: []model.Event{
					{Introduced: "0"},
					{Fixed: "deadbeef"},
				},
			},
		},
	}

	assert.False(t, versionAffected(model.EcosystemNpm, "4.17.11", affected))
}
