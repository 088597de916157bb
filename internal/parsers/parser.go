package parsers

import (
	"errors"

	"dementor/internal/model"
)

// ErrMalformed marks a manifest that is structurally unreadable. Individual
// bad entries inside an otherwise readable file become warnings instead.
var ErrMalformed = errors.New("malformed manifest")

// Parser turns raw manifest bytes into canonical dependencies. Recognition is
// by filename only so parser selection stays deterministic; content sniffing
// is deliberately avoided.
type Parser interface {
	// Name identifies the parser in logs and error messages.
	Name() string

	// Recognizes reports whether this parser handles the given file path.
	Recognizes(path string) bool

	// Parse extracts dependencies from the file contents. A malformed entry
	// yields a warning and is skipped; an unreadable file returns an error
	// wrapping ErrMalformed.
	Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error)
}

// All returns every parser in priority order. Lockfile parsers come before
// their manifest counterparts so exact pins are seen first; order is fixed
// and the first recognizing parser wins.
func All() []Parser {
	return []Parser{
		&NpmLockParser{},
		&NpmParser{},
		&GoModParser{},
		&RequirementsParser{},
		&PomParser{},
		&GradleParser{},
	}
}

// ForFile selects the first parser recognizing path, or nil when the file is
// not a supported manifest. At most one parser ever runs per file.
func ForFile(all []Parser, path string) Parser {
	for _, p := range all {
		if p.Recognizes(path) {
			return p
		}
	}
	return nil
}
