package parsers

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"dementor/internal/model"
)

// PomParser parses Maven pom.xml files. Versions referencing ${properties}
// are interpolated from the POM's own properties block (plus project.version)
// where possible; anything still unresolved is reported as a warning and the
// dependency is kept without a resolved version.
type PomParser struct{}

func (p *PomParser) Name() string { return "pom.xml" }

func (p *PomParser) Recognizes(path string) bool {
	return filepath.Base(path) == "pom.xml"
}

type pomProject struct {
	Version    string    `xml:"version"`
	Parent     pomParent `xml:"parent"`
	Properties pomProps  `xml:"properties"`
	Deps       []pomDep  `xml:"dependencies>dependency"`
	Managed    []pomDep  `xml:"dependencyManagement>dependencies>dependency"`
}

type pomParent struct {
	Version string `xml:"version"`
}

type pomDep struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

// pomProps captures the free-form <properties> block as a name/value map.
type pomProps struct {
	entries map[string]string
}

func (p *pomProps) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	p.entries = make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			p.entries[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func (p *PomParser) Parse(path string, data []byte) ([]model.Dependency, []model.Warning, error) {
	var project pomProject
	if err := xml.Unmarshal(data, &project); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	props := project.Properties.entries
	if props == nil {
		props = make(map[string]string)
	}
	if _, ok := props["project.version"]; !ok {
		if project.Version != "" {
			props["project.version"] = strings.TrimSpace(project.Version)
		} else if project.Parent.Version != "" {
			props["project.version"] = strings.TrimSpace(project.Parent.Version)
		}
	}

	// dependencyManagement supplies versions for deps that omit one.
	managed := make(map[string]string)
	for _, d := range project.Managed {
		if d.GroupID != "" && d.ArtifactID != "" && d.Version != "" {
			managed[d.GroupID+":"+d.ArtifactID] = strings.TrimSpace(d.Version)
		}
	}

	var deps []model.Dependency
	var warns []model.Warning
	direct := true

	for _, d := range project.Deps {
		if d.GroupID == "" || d.ArtifactID == "" {
			continue
		}
		name := strings.TrimSpace(d.GroupID) + ":" + strings.TrimSpace(d.ArtifactID)
		declared := strings.TrimSpace(d.Version)
		if declared == "" {
			declared = managed[name]
		}

		resolved, ok := interpolatePomVersion(declared, props)
		if !ok || resolved == "" {
			warns = append(warns, model.Warning{
				File:    path,
				Message: fmt.Sprintf("unresolvable version %q for %s", declared, name),
			})
		}
		dep := model.Dependency{
			Name:            name,
			Ecosystem:       model.EcosystemMaven,
			DeclaredVersion: declared,
			SourceFiles:     []string{path},
			Direct:          &direct,
		}
		if ok && resolved != "" {
			dep.ResolvedVersion = resolved
			dep.Pinned = true
		}
		deps = append(deps, dep)
	}
	return deps, warns, nil
}

// interpolatePomVersion resolves ${property} references against the POM's
// properties. Returns ok=false when a referenced property is unknown.
func interpolatePomVersion(version string, props map[string]string) (string, bool) {
	if !strings.Contains(version, "${") {
		return version, true
	}
	if !strings.HasPrefix(version, "${") || !strings.HasSuffix(version, "}") {
		return "", false
	}
	key := version[2 : len(version)-1]
	value, ok := props[key]
	if !ok || strings.Contains(value, "${") {
		return "", false
	}
	return value, true
}
