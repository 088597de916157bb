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

// GoModParser parses go.mod files. Go modules carry exact pins, so every
// dependency is resolved; replace directives override the requirement they
// replace.
type GoModParser struct{}

func (p *GoModParser) Name() string { return "gomod" }

func (p *GoModParser) Recognizes(path string) bool {
	return filepath.Base(path) == "go.mod"
}

var (
	replaceFull   = regexp.MustCompile(`^(\S+)\s+(\S+)\s+=>\s+(\S+)\s+(\S+)$`)
	replaceSimple = regexp.MustCompile(`^(\S+)\s+=>\s+(\S+)\s+(\S+)$`)
	hasDigit      = regexp.MustCompile(`\d`)
)

func (p *GoModParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var deps []model.Dependency
	var warns []model.Warning

	// Replacements collected first; they override requires at the end.
	replaced := make(map[string]model.Dependency)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	inRequire := false
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		indirect := strings.Contains(line, "// indirect")
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		switch {
		case line == "require (":
			inRequire = true
			continue
		case inRequire && line == ")":
			inRequire = false
			continue
		case strings.HasPrefix(line, "replace "):
			stmt := strings.TrimSpace(strings.TrimPrefix(line, "replace "))
			old, dep, ok := parseReplace(path, stmt)
			if !ok {
				warns = append(warns, model.Warning{
					File:    path,
					Message: fmt.Sprintf("line %d: replace directive without usable version: %q", lineNum, stmt),
				})
				continue
			}
			replaced[old] = dep
			continue
		}

		fields := line
		if strings.HasPrefix(line, "require ") {
			fields = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		parts := strings.Fields(fields)
		if len(parts) < 2 {
			continue
		}
		name, version := parts[0], strings.Trim(parts[1], "()[]")
		if !hasDigit.MatchString(version) {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("line %d: version %q for %s has no digits, skipped", lineNum, version, name),
			})
			continue
		}

		direct := !indirect
		deps = append(deps, model.Dependency{
			Name:            name,
			Ecosystem:       model.EcosystemGo,
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

	// Apply replacements: drop the replaced requirement, keep the target.
	if len(replaced) > 0 {
		kept := deps[:0]
		for _, d := range deps {
			if _, ok := replaced[d.Name]; !ok {
				kept = append(kept, d)
			}
		}
		deps = kept
		for _, d := range replaced {
			deps = append(deps, d)
		}
	}

	return deps, warns, nil
}

// parseReplace handles "old [ver] => new ver". The form without a target
// version (local directory replacements) carries nothing scannable.
func parseReplace(path, stmt string) (oldModule string, dep model.Dependency, ok bool) {
	var newModule, newVersion string
	if m := replaceFull.FindStringSubmatch(stmt); m != nil {
		oldModule, newModule, newVersion = m[1], m[3], m[4]
	} else if m := replaceSimple.FindStringSubmatch(stmt); m != nil {
		oldModule, newModule, newVersion = m[1], m[2], m[3]
	} else {
		return "", model.Dependency{}, false
	}
	if !hasDigit.MatchString(newVersion) {
		return "", model.Dependency{}, false
	}
	direct := true
	return oldModule, model.Dependency{
		Name:            newModule,
		Ecosystem:       model.EcosystemGo,
		DeclaredVersion: newVersion,
		ResolvedVersion: newVersion,
		SourceFiles:     []string{path},
		Direct:          &direct,
		Pinned:          true,
	}, true
}
