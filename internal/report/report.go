package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dementor/internal/model"
)

// Format is one of the supported report output formats.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatHTML Format = "html"
	FormatXML  Format = "xml"
)

// AllFormats lists every supported format in output order.
var AllFormats = []Format{FormatJSON, FormatCSV, FormatText, FormatHTML, FormatXML}

// ParseFormats parses a comma-separated format list; "all" expands to every
// supported format.
func ParseFormats(s string) ([]Format, error) {
	if strings.TrimSpace(strings.ToLower(s)) == "all" {
		return AllFormats, nil
	}
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.TrimSpace(strings.ToLower(part)))
		switch f {
		case FormatJSON, FormatCSV, FormatText, FormatHTML, FormatXML:
			out = append(out, f)
		case "":
		default:
			return nil, fmt.Errorf("unsupported report format: %s", part)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no report format given")
	}
	return out, nil
}

// Writer renders unit results into timestamped report files.
type Writer struct {
	Dir string

	now func() time.Time // overridable in tests
}

func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, now: time.Now}
}

// Write renders one unit result in the given format and returns the path of
// the written file. Findings are expected pre-sorted by the pipeline.
func (w *Writer) Write(unit model.ScanUnitResult, format Format) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	content, err := w.render(unit, format)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("vulnerability_report_%s_%s.%s",
		sanitizeUnitName(unit.Unit), w.now().Format("20060102_150405"), format)
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// WriteAll renders the unit in each format, returning the written paths.
func (w *Writer) WriteAll(unit model.ScanUnitResult, formats []Format) ([]string, error) {
	var paths []string
	for _, f := range formats {
		path, err := w.Write(unit, f)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (w *Writer) render(unit model.ScanUnitResult, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return renderJSON(unit)
	case FormatCSV:
		return renderCSV(unit)
	case FormatText:
		return renderText(unit), nil
	case FormatHTML:
		return renderHTML(unit)
	case FormatXML:
		return renderXML(unit)
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

func sanitizeUnitName(unit string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_")
	name := replacer.Replace(unit)
	if name == "" {
		name = "scan"
	}
	return name
}

func renderJSON(unit model.ScanUnitResult) ([]byte, error) {
	data, err := json.MarshalIndent(unit, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func renderCSV(unit model.ScanUnitResult) ([]byte, error) {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)
	header := []string{"package", "ecosystem", "version", "severity", "advisory", "cves", "fixed_version", "summary", "source_files"}
	if err := cw.Write(header); err != nil {
		return nil, err
	}
	for _, f := range unit.Findings {
		row := []string{
			f.Dependency.Name,
			string(f.Dependency.Ecosystem),
			f.Dependency.ResolvedVersion,
			f.Severity.String(),
			f.Advisory.ID,
			strings.Join(f.Advisory.CVEs(), " "),
			f.FixedVersion,
			f.Advisory.Summary,
			strings.Join(f.Dependency.SourceFiles, " "),
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func renderText(unit model.ScanUnitResult) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SCA-Dementor vulnerability report\n")
	fmt.Fprintf(&sb, "Unit:         %s\n", unit.Unit)
	fmt.Fprintf(&sb, "Status:       %s\n", unit.Status)
	fmt.Fprintf(&sb, "Dependencies: %d\n", len(unit.Dependencies))
	fmt.Fprintf(&sb, "Findings:     %d\n\n", len(unit.Findings))

	if len(unit.Findings) == 0 {
		sb.WriteString("No known vulnerabilities found.\n")
	}
	for _, f := range unit.Findings {
		fmt.Fprintf(&sb, "[%s] %s %s@%s\n", strings.ToUpper(f.Severity.String()), f.Advisory.ID, f.Dependency.Name, f.Dependency.ResolvedVersion)
		if cves := f.Advisory.CVEs(); len(cves) > 0 {
			fmt.Fprintf(&sb, "  CVEs:    %s\n", strings.Join(cves, ", "))
		}
		if f.Advisory.Summary != "" {
			fmt.Fprintf(&sb, "  Summary: %s\n", f.Advisory.Summary)
		}
		if f.FixedVersion != "" {
			fmt.Fprintf(&sb, "  Fix:     upgrade to %s\n", f.FixedVersion)
		}
		if len(f.Dependency.SourceFiles) > 0 {
			fmt.Fprintf(&sb, "  Source:  %s\n", strings.Join(f.Dependency.SourceFiles, ", "))
		}
		sb.WriteByte('\n')
	}

	if len(unit.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range unit.Warnings {
			fmt.Fprintf(&sb, "  %s: %s\n", w.File, w.Message)
		}
	}
	if len(unit.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range unit.Errors {
			fmt.Fprintf(&sb, "  [%s] %s: %s\n", e.Stage, e.File, e.Message)
		}
	}
	return []byte(sb.String())
}
