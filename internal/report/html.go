package report

import (
	"bytes"
	"html/template"
	"strings"

	"dementor/internal/model"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"join":  strings.Join,
	"cves":  func(a model.Advisory) []string { return a.CVEs() },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Vulnerability report: {{.Unit}}</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; vertical-align: top; }
th { background: #f0f0f0; }
.sev-critical { color: #fff; background: #b00020; }
.sev-high { color: #fff; background: #d32f2f; }
.sev-medium { background: #ffb300; }
.sev-low { background: #fff59d; }
.sev-unknown { background: #e0e0e0; }
.meta { color: #666; }
</style>
</head>
<body>
<h1>SCA-Dementor vulnerability report</h1>
<p class="meta">Unit: <strong>{{.Unit}}</strong> | Status: {{.Status}} | Dependencies: {{len .Dependencies}} | Findings: {{len .Findings}}</p>
{{if .Findings}}
<table>
<tr><th>Severity</th><th>Advisory</th><th>Package</th><th>Version</th><th>CVEs</th><th>Fix</th><th>Summary</th></tr>
{{range .Findings}}
<tr>
<td class="sev-{{.Severity}}">{{upper .Severity.String}}</td>
<td>{{.Advisory.ID}}</td>
<td>{{.Dependency.Name}} ({{.Dependency.Ecosystem}})</td>
<td>{{.Dependency.ResolvedVersion}}</td>
<td>{{join (cves .Advisory) ", "}}</td>
<td>{{if .FixedVersion}}upgrade to {{.FixedVersion}}{{end}}</td>
<td>{{.Advisory.Summary}}</td>
</tr>
{{end}}
</table>
{{else}}
<p>No known vulnerabilities found.</p>
{{end}}
{{if .Warnings}}
<h2>Warnings</h2>
<ul>{{range .Warnings}}<li>{{.File}}: {{.Message}}</li>{{end}}</ul>
{{end}}
{{if .Errors}}
<h2>Errors</h2>
<ul>{{range .Errors}}<li>[{{.Stage}}] {{.File}}: {{.Message}}</li>{{end}}</ul>
{{end}}
</body>
</html>
`))

func renderHTML(unit model.ScanUnitResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, unit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
