package extract

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dementor/internal/model"
	"dementor/internal/parsers"
	"dementor/internal/telemetry"
)

// ignoredDirs are skipped during the walk (exact match on folder name).
var ignoredDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"node_modules": {},
	"vendor":       {},
	"bin":          {},
	"obj":          {},
	"target":       {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
}

// DefaultMaxDepth bounds how deep below the unit root the walk descends.
const DefaultMaxDepth = 16

// Coordinator walks a file tree, runs the recognizing parser on each
// manifest, and merges the results into one deduplicated dependency set.
// It performs no network access and never mutates the scanned tree.
type Coordinator struct {
	Parsers  []parsers.Parser
	MaxDepth int
}

func NewCoordinator() *Coordinator {
	return &Coordinator{Parsers: parsers.All(), MaxDepth: DefaultMaxDepth}
}

// Extract produces the dependency set for one scan unit. Findings stay empty
// at this stage. A missing or unreadable root fails the unit; individual
// unreadable or malformed manifests only degrade it to partial.
func (c *Coordinator) Extract(root string) *model.ScanUnitResult {
	result := &model.ScanUnitResult{
		Unit:   filepath.Base(filepath.Clean(root)),
		Status: model.StatusOK,
	}

	absRoot, err := filepath.Abs(root)
	if err == nil {
		if info, statErr := os.Stat(absRoot); statErr != nil || !info.IsDir() {
			err = fmt.Errorf("scan root %s is not a readable directory", root)
		}
	}
	if err != nil {
		result.Status = model.StatusFailed
		result.Errors = append(result.Errors, model.UnitError{
			Stage: "setup", Message: err.Error(),
		})
		return result
	}

	merged := make(map[string]*model.Dependency)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			result.AddError("extract", path, err.Error())
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := ignoredDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if c.depth(absRoot, path) > c.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		parser := parsers.ForFile(c.Parsers, path)
		if parser == nil {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			rel = path
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			result.AddError("extract", rel, readErr.Error())
			return nil
		}

		deps, warns, parseErr := parser.Parse(rel, data)
		if parseErr != nil {
			telemetry.TrackParseError(parser.Name())
			result.AddError("extract", rel, parseErr.Error())
			return nil
		}
		result.Warnings = append(result.Warnings, warns...)

		for _, dep := range deps {
			key := string(dep.Ecosystem) + "|" + dep.Name
			if existing, ok := merged[key]; ok {
				existing.Merge(dep)
			} else {
				d := dep
				merged[key] = &d
			}
		}
		slog.Debug("parsed manifest", "file", rel, "parser", parser.Name(), "dependencies", len(deps))
		return nil
	})
	if walkErr != nil {
		result.AddError("extract", root, walkErr.Error())
	}

	for _, dep := range merged {
		result.Dependencies = append(result.Dependencies, *dep)
	}
	model.SortDependencies(result.Dependencies)
	telemetry.TrackDependenciesParsed(len(result.Dependencies))
	return result
}

func (c *Coordinator) depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}
