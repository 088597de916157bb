package parsers

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"dementor/internal/model"
)

// NpmParser parses package.json manifests. Specifiers are kept verbatim as
// the declared version; the resolved version is a best-effort strip of the
// common range operators, matching what the advisory API expects.
type NpmParser struct{}

func (p *NpmParser) Name() string { return "package.json" }

func (p *NpmParser) Recognizes(path string) bool {
	return filepath.Base(path) == "package.json"
}

type packageJSON struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func (p *NpmParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var manifest packageJSON
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	var deps []model.Dependency
	var warns []model.Warning
	direct := true

	sections := []map[string]string{
		manifest.Dependencies,
		manifest.DevDependencies,
		manifest.PeerDependencies,
		manifest.OptionalDependencies,
	}
	for _, section := range sections {
		for name, spec := range section {
			spec = strings.TrimSpace(spec)
			cleaned := cleanNpmSpecifier(spec)
			if cleaned == "" || strings.HasPrefix(cleaned, "git") || strings.HasPrefix(cleaned, "file") {
				warns = append(warns, model.Warning{
					File:    path,
					Message: fmt.Sprintf("%s has unsupported specifier %q", name, spec),
				})
				// Keep the dependency so it is reported as unresolved.
				deps = append(deps, model.Dependency{
					Name:            name,
					Ecosystem:       model.EcosystemNpm,
					DeclaredVersion: spec,
					SourceFiles:     []string{path},
					Direct:          &direct,
				})
				continue
			}
			deps = append(deps, model.Dependency{
				Name:            name,
				Ecosystem:       model.EcosystemNpm,
				DeclaredVersion: spec,
				ResolvedVersion: cleaned,
				SourceFiles:     []string{path},
				Direct:          &direct,
				Pinned:          cleaned == spec,
			})
		}
	}
	return deps, warns, nil
}

func cleanNpmSpecifier(spec string) string {
	s := spec
	for _, prefix := range []string{">=", "<=", "^", "~", ">", "<", "=", "v"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimSpace(s)
	if s == "latest" || s == "*" || s == "x" {
		return ""
	}
	// Compound ranges and wildcard segments name no single concrete version.
	if strings.ContainsAny(s, " |") {
		return ""
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "x" || seg == "X" || seg == "*" {
			return ""
		}
	}
	return s
}

// NpmLockParser parses package-lock.json lockfiles (v2/v3 "packages" map,
// falling back to the legacy "dependencies" tree). Lockfile entries are
// exact pins and take precedence over package.json ranges on merge.
type NpmLockParser struct{}

func (p *NpmLockParser) Name() string { return "package-lock.json" }

func (p *NpmLockParser) Recognizes(path string) bool {
	return filepath.Base(path) == "package-lock.json"
}

type packageLock struct {
	Packages     map[string]lockEntry `json:"packages"`
	Dependencies map[string]lockEntry `json:"dependencies"`
}

type lockEntry struct {
	Version string `json:"version"`
	Dev     bool   `json:"dev"`
}

func (p *NpmLockParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var lock packageLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	var deps []model.Dependency
	var warns []model.Warning

	appendDep := func(name, version string, direct bool) {
		if version == "" {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("%s has no version in lockfile", name),
			})
			return
		}
		d := direct
		deps = append(deps, model.Dependency{
			Name:            name,
			Ecosystem:       model.EcosystemNpm,
			DeclaredVersion: version,
			ResolvedVersion: version,
			SourceFiles:     []string{path},
			Direct:          &d,
			Pinned:          true,
		})
	}

	if len(lock.Packages) > 0 {
		for key, entry := range lock.Packages {
			if key == "" { // the root project itself
				continue
			}
			name := strings.TrimPrefix(key, "node_modules/")
			// Nested entries like a/node_modules/b are transitive installs.
			direct := !strings.Contains(name, "node_modules/")
			if i := strings.LastIndex(name, "node_modules/"); i >= 0 {
				name = name[i+len("node_modules/"):]
			}
			appendDep(name, entry.Version, direct)
		}
		return deps, warns, nil
	}

	for name, entry := range lock.Dependencies {
		appendDep(name, entry.Version, true)
	}
	return deps, warns, nil
}
