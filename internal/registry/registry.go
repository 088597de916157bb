package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dementor/internal/model"
)

// Client resolves the latest published version of a package from its
// ecosystem's public registry. Used for upgrade advice only; matching never
// depends on registry data.
type Client struct {
	HTTPClient *http.Client

	NpmURL     string
	PyPIURL    string
	GoProxyURL string
	MavenURL   string
}

func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		NpmURL:     "https://registry.npmjs.org",
		PyPIURL:    "https://pypi.org",
		GoProxyURL: "https://proxy.golang.org",
		MavenURL:   "https://search.maven.org",
	}
}

// LatestVersion returns the newest published version of the package, or an
// error when the registry does not know it.
func (c *Client) LatestVersion(ctx context.Context, name string, eco model.Ecosystem) (string, error) {
	switch eco {
	case model.EcosystemNpm:
		return c.latestNpm(ctx, name)
	case model.EcosystemPyPI:
		return c.latestPyPI(ctx, name)
	case model.EcosystemGo:
		return c.latestGoModule(ctx, name)
	case model.EcosystemMaven:
		return c.latestMaven(ctx, name)
	default:
		return "", fmt.Errorf("no registry for ecosystem %s", eco)
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) latestNpm(ctx context.Context, name string) (string, error) {
	var doc struct {
		Version string `json:"version"`
	}
	u := fmt.Sprintf("%s/%s/latest", c.NpmURL, url.PathEscape(name))
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return "", err
	}
	if doc.Version == "" {
		return "", fmt.Errorf("npm registry has no latest version for %s", name)
	}
	return doc.Version, nil
}

func (c *Client) latestPyPI(ctx context.Context, name string) (string, error) {
	var doc struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	u := fmt.Sprintf("%s/pypi/%s/json", c.PyPIURL, url.PathEscape(name))
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return "", err
	}
	if doc.Info.Version == "" {
		return "", fmt.Errorf("PyPI has no version for %s", name)
	}
	return doc.Info.Version, nil
}

func (c *Client) latestGoModule(ctx context.Context, name string) (string, error) {
	var doc struct {
		Version string `json:"Version"`
	}
	// The module proxy requires the path lower-cased with uppercase letters
	// escaped as !x.
	u := fmt.Sprintf("%s/%s/@latest", c.GoProxyURL, escapeGoModule(name))
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return "", err
	}
	if doc.Version == "" {
		return "", fmt.Errorf("module proxy has no version for %s", name)
	}
	return doc.Version, nil
}

func (c *Client) latestMaven(ctx context.Context, name string) (string, error) {
	group, artifact, ok := strings.Cut(name, ":")
	if !ok {
		return "", fmt.Errorf("maven package %q is not group:artifact", name)
	}
	var doc struct {
		Response struct {
			Docs []struct {
				LatestVersion string `json:"latestVersion"`
			} `json:"docs"`
		} `json:"response"`
	}
	q := url.Values{}
	q.Set("q", fmt.Sprintf("g:%q AND a:%q", group, artifact))
	q.Set("rows", "1")
	q.Set("wt", "json")
	u := fmt.Sprintf("%s/solrsearch/select?%s", c.MavenURL, q.Encode())
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return "", err
	}
	if len(doc.Response.Docs) == 0 || doc.Response.Docs[0].LatestVersion == "" {
		return "", fmt.Errorf("maven central has no version for %s", name)
	}
	return doc.Response.Docs[0].LatestVersion, nil
}

func escapeGoModule(path string) string {
	var sb strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('!')
			sb.WriteRune(r - 'A' + 'a')
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
