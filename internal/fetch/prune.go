package fetch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// manifestNames are the files dependency extraction reads. Everything else
// in a checkout is dead weight once cloning is done.
var manifestNames = map[string]bool{
	"go.mod":            true,
	"package.json":      true,
	"package-lock.json": true,
	"requirements.txt":  true,
	"pom.xml":           true,
	"build.gradle":      true,
	"build.gradle.kts":  true,
}

// Prune deletes everything under root except manifest files, including the
// .git directory. Shrinks long-lived work directories to the handful of
// files a rescan actually needs; Fetch re-clones a pruned checkout when the
// repository is requested again.
func Prune(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("prune checkout: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("prune checkout: %s is not a directory", root)
	}

	var removed int
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				if err := os.RemoveAll(path); err != nil {
					return err
				}
				removed++
				return filepath.SkipDir
			}
			return nil
		}
		if manifestNames[d.Name()] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("prune checkout: %w", err)
	}

	if err := removeEmptyDirs(root); err != nil {
		return fmt.Errorf("prune checkout: %w", err)
	}
	slog.Info("pruned checkout", "root", root, "removed", removed)
	return nil
}

// removeEmptyDirs deletes directories left childless by pruning, deepest
// first so parents empty out as their children go.
func removeEmptyDirs(root string) error {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		entries, err := os.ReadDir(dirs[i])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			if err := os.Remove(dirs[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
