package parsers

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"dementor/internal/model"
)

// RequirementsParser parses pip requirements.txt files. Environment markers
// and editable installs are ignored; version operators are stripped for the
// resolved version while the declared specifier stays verbatim.
type RequirementsParser struct{}

func (p *RequirementsParser) Name() string { return "requirements.txt" }

func (p *RequirementsParser) Recognizes(path string) bool {
	return filepath.Base(path) == "requirements.txt"
}

var (
	requirementLine = regexp.MustCompile(`^([a-zA-Z0-9_.\-]+)(.*)$`)
	leadingOps      = regexp.MustCompile(`^[><=~!]+`)
	versionNumber   = regexp.MustCompile(`\d+(?:\.\d+)*`)
)

func (p *RequirementsParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var deps []model.Dependency
	var warns []model.Warning
	direct := true

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Drop environment markers and pip options.
		spec := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		if strings.HasPrefix(spec, "-e ") || strings.HasPrefix(spec, "--") {
			continue
		}

		m := requirementLine.FindStringSubmatch(spec)
		if m == nil {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("line %d: unparsable requirement %q", lineNum, line),
			})
			continue
		}
		name := m[1]
		constraint := strings.TrimSpace(m[2])

		resolved := cleanPythonVersion(constraint)
		if constraint != "" && resolved == "" {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("line %d: unrecognized version %q for %s", lineNum, constraint, name),
			})
			continue
		}

		deps = append(deps, model.Dependency{
			Name:            name,
			Ecosystem:       model.EcosystemPyPI,
			DeclaredVersion: constraint,
			ResolvedVersion: resolved,
			SourceFiles:     []string{path},
			Direct:          &direct,
			Pinned:          strings.HasPrefix(constraint, "=="),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrMalformed, path, err)
	}
	return deps, warns, nil
}

// cleanPythonVersion strips comparison operators and extracts the first
// dotted version number from a pip constraint. Returns "" when nothing
// version-like remains.
func cleanPythonVersion(constraint string) string {
	if constraint == "" {
		return ""
	}
	cleaned := strings.TrimSpace(leadingOps.ReplaceAllString(constraint, ""))
	return versionNumber.FindString(cleaned)
}
