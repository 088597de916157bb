package report

import (
	"encoding/xml"
	"strings"

	"dementor/internal/model"
)

type xmlReport struct {
	XMLName      xml.Name     `xml:"vulnerabilityReport"`
	Unit         string       `xml:"unit,attr"`
	Status       string       `xml:"status,attr"`
	Dependencies int          `xml:"dependencies,attr"`
	Findings     []xmlFinding `xml:"finding"`
	Warnings     []xmlNote    `xml:"warning"`
	Errors       []xmlNote    `xml:"error"`
}

type xmlFinding struct {
	Severity     string `xml:"severity,attr"`
	Advisory     string `xml:"advisory"`
	Package      string `xml:"package"`
	Ecosystem    string `xml:"ecosystem"`
	Version      string `xml:"version"`
	CVEs         string `xml:"cves,omitempty"`
	FixedVersion string `xml:"fixedVersion,omitempty"`
	Summary      string `xml:"summary,omitempty"`
	SourceFiles  string `xml:"sourceFiles,omitempty"`
}

type xmlNote struct {
	Stage   string `xml:"stage,attr,omitempty"`
	File    string `xml:"file,attr,omitempty"`
	Message string `xml:",chardata"`
}

func renderXML(unit model.ScanUnitResult) ([]byte, error) {
	doc := xmlReport{
		Unit:         unit.Unit,
		Status:       string(unit.Status),
		Dependencies: len(unit.Dependencies),
	}
	for _, f := range unit.Findings {
		doc.Findings = append(doc.Findings, xmlFinding{
			Severity:     f.Severity.String(),
			Advisory:     f.Advisory.ID,
			Package:      f.Dependency.Name,
			Ecosystem:    string(f.Dependency.Ecosystem),
			Version:      f.Dependency.ResolvedVersion,
			CVEs:         strings.Join(f.Advisory.CVEs(), " "),
			FixedVersion: f.FixedVersion,
			Summary:      f.Advisory.Summary,
			SourceFiles:  strings.Join(f.Dependency.SourceFiles, " "),
		})
	}
	for _, w := range unit.Warnings {
		doc.Warnings = append(doc.Warnings, xmlNote{File: w.File, Message: w.Message})
	}
	for _, e := range unit.Errors {
		doc.Errors = append(doc.Errors, xmlNote{Stage: e.Stage, File: e.File, Message: e.Message})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}
