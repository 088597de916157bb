package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEcosystem(t *testing.T) {
	cases := map[string]Ecosystem{
		"go":     EcosystemGo,
		"golang": EcosystemGo,
		"npm":    EcosystemNpm,
		"NPM":    EcosystemNpm,
		"pypi":   EcosystemPyPI,
		"PyPI":   EcosystemPyPI,
		"maven":  EcosystemMaven,
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeEcosystem(raw), raw)
	}
}

func TestParseSeverity(t *testing.T) {
	assert.Equal(t, SeverityMedium, ParseSeverity("MODERATE"))
	assert.Equal(t, SeverityCritical, ParseSeverity(" critical "))
	assert.Equal(t, SeverityUnknown, ParseSeverity("CVSS:3.1/AV:N/AC:L"))
	assert.Equal(t, SeverityUnknown, ParseSeverity(""))
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityUnknown, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		assert.Greater(t, order[i].Rank(), order[i-1].Rank())
	}
}

func TestSortFindingsBySeverityThenPackage(t *testing.T) {
	findings := []Finding{
		{Dependency: Dependency{Name: "b", Ecosystem: EcosystemNpm}, Advisory: Advisory{ID: "A-2"}, Severity: SeverityLow},
		{Dependency: Dependency{Name: "a", Ecosystem: EcosystemNpm}, Advisory: Advisory{ID: "A-3"}, Severity: SeverityCritical},
		{Dependency: Dependency{Name: "a", Ecosystem: EcosystemNpm}, Advisory: Advisory{ID: "A-1"}, Severity: SeverityLow},
	}
	SortFindings(findings)

	assert.Equal(t, "A-3", findings[0].Advisory.ID)
	assert.Equal(t, "A-1", findings[1].Advisory.ID)
	assert.Equal(t, "A-2", findings[2].Advisory.ID)
}

func TestCVEs(t *testing.T) {
	adv := Advisory{Aliases: []string{"GHSA-xxxx", "CVE-2024-1234", "CVE-2023-0001"}}
	assert.Equal(t, []string{"CVE-2024-1234", "CVE-2023-0001"}, adv.CVEs())
	assert.Empty(t, Advisory{}.CVEs())
}

func TestDegradeNeverUpgradesFailed(t *testing.T) {
	r := ScanUnitResult{Status: StatusFailed}
	r.Degrade()
	assert.Equal(t, StatusFailed, r.Status)

	r = ScanUnitResult{Status: StatusOK}
	r.AddError("extract", "pom.xml", "malformed manifest")
	assert.Equal(t, StatusPartial, r.Status)
	assert.Len(t, r.Errors, 1)
}

func TestRunResultAggregates(t *testing.T) {
	run := RunResult{Units: []ScanUnitResult{
		{Findings: []Finding{{}, {}}},
		{Status: StatusFailed},
	}}
	assert.Equal(t, 2, run.TotalFindings())
	assert.True(t, run.Failed())
}
