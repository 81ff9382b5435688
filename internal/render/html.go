package render

import (
	"html/template"
	"strings"

	"github.com/dshills/termcheck/internal/schema"
)

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"lines": func(s string) []string {
		var out []string
		for _, l := range strings.Split(s, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				out = append(out, l)
			}
		}
		return out
	},
	"verdictClass": func(v schema.Verdict) string {
		return strings.ToLower(strings.ReplaceAll(string(v), "_", "-"))
	},
}).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>Name Notation Compliance Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
.report { border: 1px solid #ddd; border-radius: 4px; padding: 1em; margin-bottom: 1em; }
.compliant { border-left: 6px solid #2e7d32; }
.needs-review { border-left: 6px solid #f9a825; }
.non-compliant { border-left: 6px solid #c62828; }
.failed { border-left: 6px solid #555; background: #f5f5f5; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ddd; padding: 0.3em 0.6em; text-align: left; }
.flag { font-weight: bold; color: #c62828; }
</style>
</head>
<body>
<h1>Name Notation Compliance Report</h1>
<p>{{.Tool}} {{.Version}} &middot; catalogue {{.CatalogueVersion}}</p>
{{with .Summary}}
<h2>Summary</h2>
<table>
<tr><th>Evaluations</th><td>{{.Total}}</td></tr>
<tr><th>Failed</th><td>{{.Failed}}</td></tr>
<tr><th>KO-EN compliant</th><td>{{.KoEnCompliant}} / {{.KoEnCount}}</td></tr>
<tr><th>EN-KO compliant</th><td>{{.EnKoCompliant}} / {{.EnKoCount}}</td></tr>
<tr><th>Expert reviews</th><td>{{.ExpertReviews}}</td></tr>
</table>
{{end}}
{{range .Outcomes}}
{{if .Failed}}
<div class="report failed">
<h2>{{.Input}}</h2>
<p>{{.FailureMarker}}</p>
</div>
{{else}}
{{with .Combined}}<p>Bidirectional check passed: {{if .Passed}}yes{{else}}no{{end}}</p>{{end}}
{{range .Reports}}
<div class="report {{verdictClass .Verdict}}">
<h2>{{.SourceText}} &rarr; {{.Notation}}</h2>
<p><strong>{{.Verdict}}</strong> &middot; {{.OverallScore}}/100 (rules {{.RuleScore}}, process {{.Process.Score}}) &middot; {{.Direction}} &middot; {{.Category}}</p>
{{if .NeedsExpertValidation}}<p class="flag">Expert validation required</p>{{end}}
{{if .NeedsPhoneticianReview}}<p class="flag">Phonetician review required</p>{{end}}
<table>
<tr><th>Rule</th><th>Score</th><th>Passed</th><th>Mandatory</th><th>Rationale</th></tr>
{{range .RuleResults}}<tr><td>{{.RuleID}}</td><td>{{.Score}}</td><td>{{.Passed}}</td><td>{{.Mandatory}}</td><td>{{.Rationale}}</td></tr>
{{end}}</table>
{{with .Process.OrderingViolations}}<h3>Ordering violations</h3><ul>{{range .}}<li>{{.SourceID}} (rank {{.ExpectedRank}}) at position {{.ActualPosition}}</li>{{end}}</ul>{{end}}
{{with .Process.MissingMandatory}}<h3>Missing mandatory sources</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
{{with lines .Recommendation}}<h3>Recommendations</h3><ul>{{range .}}<li>{{.}}</li>{{end}}</ul>{{end}}
</div>
{{end}}
{{end}}
{{end}}
</body>
</html>
`
