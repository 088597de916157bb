package model

import "strings"

// Ecosystem identifies the package ecosystem a dependency belongs to.
// Values use the OSV spelling so they can be sent to the advisory API as-is.
type Ecosystem string

const (
	EcosystemGo    Ecosystem = "Go"
	EcosystemNpm   Ecosystem = "npm"
	EcosystemPyPI  Ecosystem = "PyPI"
	EcosystemMaven Ecosystem = "Maven"
)

// NormalizeEcosystem maps loosely-spelled ecosystem names ("golang", "pypi",
// "maven") onto their canonical form. Unknown names pass through unchanged.
func NormalizeEcosystem(name string) Ecosystem {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "go", "golang":
		return EcosystemGo
	case "npm", "node":
		return EcosystemNpm
	case "pypi", "python":
		return EcosystemPyPI
	case "maven", "java":
		return EcosystemMaven
	default:
		return Ecosystem(name)
	}
}
