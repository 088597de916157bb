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

// GradleParser parses build.gradle dependency declarations of the form
// implementation 'group:artifact:version'. Placeholder versions using Gradle
// variables cannot be resolved statically and become warnings.
type GradleParser struct{}

func (p *GradleParser) Name() string { return "build.gradle" }

func (p *GradleParser) Recognizes(path string) bool {
	base := filepath.Base(path)
	return base == "build.gradle" || base == "build.gradle.kts"
}

var gradleDep = regexp.MustCompile(
	`^\s*(implementation|api|compile|testImplementation|runtimeOnly|annotationProcessor)\s*\(?['"]([^'"]+):([^'"]+):([^'"]+)['"]`)

func (p *GradleParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var deps []model.Dependency
	var warns []model.Warning
	direct := true

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		m := gradleDep.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		group, artifact, version := strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), strings.TrimSpace(m[4])
		name := group + ":" + artifact

		if version == "" || strings.ContainsAny(version, "${}()") {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("line %d: unresolved version %q for %s", lineNum, version, name),
			})
			continue
		}

		deps = append(deps, model.Dependency{
			Name:            name,
			Ecosystem:       model.EcosystemMaven,
			DeclaredVersion: version,
			ResolvedVersion: version,
			SourceFiles:     []string{path},
			Direct:          &direct,
			Pinned:          true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrMalformed, path, err)
	}
	return deps, warns, nil
}
