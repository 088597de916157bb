package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpmParseSections(t *testing.T) {
	input := `{
		"name": "app",
		"dependencies": {"left-pad": "^1.2.0", "express": "4.18.2"},
		"devDependencies": {"jest": "~29.7.0"},
		"peerDependencies": {"react": ">=18.0.0"},
		"optionalDependencies": {"fsevents": "2.3.3"}
	}`
	p := &NpmParser{}
	deps, warns, err := p.Parse("package.json", []byte(input))
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, deps, 5)

	leftPad := depByName(deps, "left-pad")
	require.NotNil(t, leftPad)
	assert.Equal(t, "^1.2.0", leftPad.DeclaredVersion)
	assert.Equal(t, "1.2.0", leftPad.ResolvedVersion)
	assert.False(t, leftPad.Pinned)

	express := depByName(deps, "express")
	require.NotNil(t, express)
	assert.Equal(t, "4.18.2", express.ResolvedVersion)
	assert.True(t, express.Pinned, "an exact specifier is a pin")

	react := depByName(deps, "react")
	require.NotNil(t, react)
	assert.Equal(t, "18.0.0", react.ResolvedVersion)
}

func TestNpmParseUnsupportedSpecifiers(t *testing.T) {
	input := `{
		"dependencies": {
			"mylib": "git+https://example.com/mylib.git",
			"local": "file:../local",
			"anything": "*"
		}
	}`
	p := &NpmParser{}
	deps, warns, err := p.Parse("package.json", []byte(input))
	require.NoError(t, err)
	assert.Len(t, warns, 3)
	require.Len(t, deps, 3, "unresolvable dependencies are kept, not dropped")
	for _, d := range deps {
		assert.True(t, d.Unresolved(), d.Name)
	}
}

func TestNpmParseCompoundSpecifiersStayUnresolved(t *testing.T) {
	input := `{
		"dependencies": {
			"bounded": ">=1.2.0 <2.0.0",
			"either": "^7 || ^8",
			"wildcard": "1.2.x",
			"hyphen": "1.2.0 - 1.4.0"
		}
	}`
	p := &NpmParser{}
	deps, warns, err := p.Parse("package.json", []byte(input))
	require.NoError(t, err)
	assert.Len(t, warns, 4)
	require.Len(t, deps, 4)
	for _, d := range deps {
		assert.True(t, d.Unresolved(), "%s resolved to %q", d.Name, d.ResolvedVersion)
		assert.NotEmpty(t, d.DeclaredVersion, d.Name)
	}
}

func TestNpmParseMalformed(t *testing.T) {
	p := &NpmParser{}
	_, _, err := p.Parse("package.json", []byte(`{"dependencies": [`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNpmLockParsePackagesMap(t *testing.T) {
	input := `{
		"lockfileVersion": 3,
		"packages": {
			"": {"name": "app", "version": "1.0.0"},
			"node_modules/left-pad": {"version": "1.3.0"},
			"node_modules/a": {"version": "2.0.0"},
			"node_modules/a/node_modules/b": {"version": "0.5.0"}
		}
	}`
	p := &NpmLockParser{}
	deps, warns, err := p.Parse("package-lock.json", []byte(input))
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, deps, 3)

	leftPad := depByName(deps, "left-pad")
	require.NotNil(t, leftPad)
	assert.Equal(t, "1.3.0", leftPad.ResolvedVersion)
	assert.True(t, leftPad.Pinned)
	require.NotNil(t, leftPad.Direct)
	assert.True(t, *leftPad.Direct)

	b := depByName(deps, "b")
	require.NotNil(t, b)
	require.NotNil(t, b.Direct)
	assert.False(t, *b.Direct, "nested install is transitive")
}

func TestNpmLockParseLegacyDependencies(t *testing.T) {
	input := `{
		"lockfileVersion": 1,
		"dependencies": {
			"left-pad": {"version": "1.3.0"},
			"broken": {}
		}
	}`
	p := &NpmLockParser{}
	deps, warns, err := p.Parse("package-lock.json", []byte(input))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "left-pad", deps[0].Name)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0].Message, "broken")
}
