package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Source is a remote repository to scan. The access token travels only in
// the clone URL handed to git; every log line and error message goes through
// the masking writer first.
type Source struct {
	CloneURL string // full URL, token embedded when present
	Name     string // unit name, the repository name
}

// ParseSource accepts "https://github.com/owner/repo",
// "https://<token>@github.com/owner/repo" or the short "owner/repo" form.
// An explicit token argument is woven into the URL when the URL itself
// carries none.
func ParseSource(raw, token string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, fmt.Errorf("empty repository URL")
	}

	if !strings.Contains(raw, "://") {
		parts := strings.Split(strings.Trim(raw, "/"), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return Source{}, fmt.Errorf("repository %q is not owner/repo or a clone URL", raw)
		}
		raw = "https://github.com/" + parts[0] + "/" + parts[1]
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Source{}, fmt.Errorf("parse repository URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return Source{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	name := strings.TrimSuffix(path.Base(u.Path), ".git")
	if name == "" || name == "/" || name == "." {
		return Source{}, fmt.Errorf("repository URL %q has no repository name", MaskToken(raw))
	}

	if token != "" && u.User == nil {
		u.User = url.User(token)
	}
	return Source{CloneURL: u.String(), Name: name}, nil
}

var (
	reGitHubPAT = regexp.MustCompile(`https://[^@:/]+@`)
	reBasicAuth = regexp.MustCompile(`https://[^:/]+:[^@/]+@`)
)

// MaskToken redacts embedded credentials from a URL or log fragment.
func MaskToken(s string) string {
	s = reBasicAuth.ReplaceAllString(s, "https://[REDACTED]@")
	s = reGitHubPAT.ReplaceAllString(s, "https://[REDACTED]@")
	return s
}

// maskingWriter redacts credentials from everything git prints.
type maskingWriter struct {
	w io.Writer
}

func (mw *maskingWriter) Write(p []byte) (n int, err error) {
	_, err = mw.w.Write([]byte(MaskToken(string(p))))
	return len(p), err
}

// Fetcher materializes remote sources under a local work directory, one
// subdirectory per repository. Clones are shallow; a source that is already
// present is updated in place.
type Fetcher struct {
	WorkDir string
	Timeout time.Duration
}

func NewFetcher(workDir string) *Fetcher {
	return &Fetcher{WorkDir: workDir, Timeout: 10 * time.Minute}
}

// Fetch clones or updates the source and returns the local checkout path,
// which becomes the scan unit root.
func (f *Fetcher) Fetch(ctx context.Context, src Source) (string, error) {
	if err := os.MkdirAll(f.WorkDir, 0755); err != nil {
		return "", fmt.Errorf("create work directory: %w", err)
	}
	dest := filepath.Join(f.WorkDir, src.Name)

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		slog.Info("updating existing checkout", "unit", src.Name)
		if err := f.run(ctx, dest, "pull", "--ff-only", "--depth", "1"); err != nil {
			return "", err
		}
		return dest, nil
	}

	// A dest without .git is a stale checkout, typically one that was pruned
	// down to its manifests. Start over.
	if _, err := os.Stat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return "", fmt.Errorf("remove stale checkout: %w", err)
		}
	}

	slog.Info("cloning repository", "unit", src.Name, "url", MaskToken(src.CloneURL))
	if err := f.run(ctx, "", "clone", "--depth", "1", src.CloneURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (f *Fetcher) run(ctx context.Context, dir string, args ...string) error {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=/bin/true")
	cmd.Stdout = &maskingWriter{w: &outBuf}
	cmd.Stderr = &maskingWriter{w: &errBuf}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s failed: %w\nstderr: %s", args[0], err, errBuf.String())
	}
	return nil
}
