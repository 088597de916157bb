package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLockfilePinWinsOverRange(t *testing.T) {
	d := Dependency{
		Name: "lodash", Ecosystem: EcosystemNpm,
		DeclaredVersion: "^4.17.0", ResolvedVersion: "4.17.0",
		SourceFiles: []string{"package.json"},
	}
	d.Merge(Dependency{
		Name: "lodash", Ecosystem: EcosystemNpm,
		DeclaredVersion: "4.17.21", ResolvedVersion: "4.17.21",
		SourceFiles: []string{"package-lock.json"},
		Pinned:      true,
	})

	assert.Equal(t, "4.17.21", d.ResolvedVersion)
	assert.True(t, d.Pinned)
	assert.Equal(t, []string{"package-lock.json", "package.json"}, d.SourceFiles)
}

func TestMergePinNotOverriddenByRange(t *testing.T) {
	d := Dependency{
		Name: "lodash", Ecosystem: EcosystemNpm,
		ResolvedVersion: "4.17.21", Pinned: true,
		SourceFiles: []string{"package-lock.json"},
	}
	d.Merge(Dependency{
		Name: "lodash", Ecosystem: EcosystemNpm,
		DeclaredVersion: "^4.0.0", ResolvedVersion: "4.0.0",
		SourceFiles: []string{"package.json"},
	})

	assert.Equal(t, "4.17.21", d.ResolvedVersion)
	assert.True(t, d.Pinned)
}

func TestMergeResolvedFillsUnresolved(t *testing.T) {
	d := Dependency{
		Name: "express", Ecosystem: EcosystemNpm,
		DeclaredVersion: "latest", ResolvedVersion: "",
		SourceFiles: []string{"a/package.json"},
	}
	d.Merge(Dependency{
		Name: "express", Ecosystem: EcosystemNpm,
		DeclaredVersion: "~4.18.0", ResolvedVersion: "4.18.0",
		SourceFiles: []string{"b/package.json"},
	})

	assert.Equal(t, "4.18.0", d.ResolvedVersion)
	assert.Equal(t, []string{"a/package.json", "b/package.json"}, d.SourceFiles)
}

func TestMergeIsIdempotent(t *testing.T) {
	d := Dependency{
		Name: "left-pad", Ecosystem: EcosystemNpm,
		ResolvedVersion: "1.3.0",
		SourceFiles:     []string{"package.json"},
	}
	other := Dependency{
		Name: "left-pad", Ecosystem: EcosystemNpm,
		ResolvedVersion: "1.3.0", Pinned: true,
		SourceFiles: []string{"package-lock.json"},
	}

	d.Merge(other)
	once := d
	d.Merge(other)
	assert.Equal(t, once, d)
}

func TestMergeKeepsDirectFlag(t *testing.T) {
	direct := true
	d := Dependency{Name: "a", Ecosystem: EcosystemNpm, ResolvedVersion: "1.0.0"}
	d.Merge(Dependency{Name: "a", Ecosystem: EcosystemNpm, ResolvedVersion: "1.0.0", Direct: &direct})

	if assert.NotNil(t, d.Direct) {
		assert.True(t, *d.Direct)
	}
}

func TestUnresolved(t *testing.T) {
	assert.True(t, Dependency{ResolvedVersion: ""}.Unresolved())
	assert.True(t, Dependency{ResolvedVersion: "latest"}.Unresolved())
	assert.False(t, Dependency{ResolvedVersion: "1.0.0"}.Unresolved())
}

func TestSortDependenciesIsDeterministic(t *testing.T) {
	deps := []Dependency{
		{Name: "b", Ecosystem: EcosystemNpm, ResolvedVersion: "1.0.0"},
		{Name: "a", Ecosystem: EcosystemPyPI, ResolvedVersion: "2.0.0"},
		{Name: "a", Ecosystem: EcosystemNpm, ResolvedVersion: "1.0.0"},
	}
	SortDependencies(deps)

	assert.Equal(t, "a", deps[0].Name)
	assert.Equal(t, EcosystemNpm, deps[0].Ecosystem)
	assert.Equal(t, "b", deps[1].Name)
	assert.Equal(t, EcosystemPyPI, deps[2].Ecosystem)
}
