// Package render produces output from evaluation outcomes: JSON, Markdown,
// an HTML report page, and termbase entries.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatTermbase = "termbase"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatMarkdown, FormatHTML, FormatTermbase}
}

// Document is everything one run produced.
type Document struct {
	Tool             string           `json:"tool"`
	Version          string           `json:"version"`
	CatalogueVersion string           `json:"catalogue_version"`
	Summary          *schema.Summary  `json:"summary,omitempty"`
	Outcomes         []schema.Outcome `json:"outcomes"`
}

// Render dispatches to the renderer for format.
func Render(format string, doc *Document) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return RenderJSON(doc)
	case FormatMarkdown, "markdown":
		if doc == nil {
			return nil, fmt.Errorf("render: nil document")
		}
		return []byte(RenderMarkdown(doc)), nil
	case FormatHTML:
		return RenderHTML(doc)
	case FormatTermbase:
		if doc == nil {
			return nil, fmt.Errorf("render: nil document")
		}
		return []byte(RenderTermbase(doc)), nil
	default:
		return nil, fmt.Errorf("render: unknown format %q (available: %s)", format, strings.Join(Formats(), ", "))
	}
}

// RenderJSON produces a pretty-printed JSON representation of the document.
// The output round-trips through json.Unmarshal back to an equal Document.
func RenderJSON(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a GitHub-flavoured Markdown report: the batch
// summary, then one section per outcome. Failed outcomes carry their
// evaluation_failed marker.
func RenderMarkdown(doc *Document) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("# Name Notation Compliance Report\n\n")
	if doc.Summary != nil {
		writeSummary(&sb, *doc.Summary)
	}

	for _, o := range doc.Outcomes {
		switch {
		case o.Failed():
			fmt.Fprintf(&sb, "## %s\n\n", mdEscape(o.Input))
			fmt.Fprintf(&sb, "`%s`\n\n", o.FailureMarker())
		case o.Combined != nil:
			passed := "no"
			if o.Combined.Passed {
				passed = "yes"
			}
			fmt.Fprintf(&sb, "## %s ⇄ %s\n\n", mdEscape(o.Combined.Forward.SourceText), mdEscape(o.Combined.Forward.Notation))
			fmt.Fprintf(&sb, "**Bidirectional check passed:** %s\n\n", passed)
			writeReport(&sb, o.Combined.Forward, "###")
			writeReport(&sb, o.Combined.Reverse, "###")
		case o.Report != nil:
			writeReport(&sb, *o.Report, "##")
		}
	}
	return sb.String()
}

// ReportMarkdown renders a single report.
func ReportMarkdown(r schema.ComplianceReport) string {
	var sb strings.Builder
	writeReport(&sb, r, "##")
	return sb.String()
}

func writeSummary(sb *strings.Builder, s schema.Summary) {
	sb.WriteString("## Summary\n\n")
	if s.RunID != "" {
		fmt.Fprintf(sb, "**Run:** %s  \n", s.RunID)
	}
	fmt.Fprintf(sb, "**Evaluations:** %d | **Failed:** %d | **Expert reviews:** %d\n\n", s.Total, s.Failed, s.ExpertReviews)
	sb.WriteString("| Direction | Reports | Compliant |\n")
	sb.WriteString("|---|---|---|\n")
	fmt.Fprintf(sb, "| KO-EN | %d | %d |\n", s.KoEnCount, s.KoEnCompliant)
	fmt.Fprintf(sb, "| EN-KO | %d | %d |\n\n", s.EnKoCount, s.EnKoCompliant)
}

func writeReport(sb *strings.Builder, r schema.ComplianceReport, h string) {
	fmt.Fprintf(sb, "%s %s → %s\n\n", h, mdEscape(r.SourceText), mdEscape(r.Notation))
	fmt.Fprintf(sb, "**Verdict:** %s  \n", r.Verdict)
	fmt.Fprintf(sb, "**Score:** %d/100 (rules %d, process %d)  \n", r.OverallScore, r.RuleScore, r.Process.Score)
	fmt.Fprintf(sb, "**Direction:** %s | **Category:** %s\n\n", r.Direction, r.Category)
	if r.NeedsExpertValidation {
		sb.WriteString("**Expert validation required**\n\n")
	}
	if r.NeedsPhoneticianReview {
		sb.WriteString("**Phonetician review required**\n\n")
	}

	if len(r.RuleResults) > 0 {
		sb.WriteString("| Rule | Score | Passed | Mandatory | Rationale |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, rr := range r.RuleResults {
			fmt.Fprintf(sb, "| %s | %d | %s | %s | %s |\n",
				rr.RuleID, rr.Score, yesNo(rr.Passed), yesNo(rr.Mandatory), mdEscape(rr.Rationale))
		}
		sb.WriteString("\n")
	}

	writeProcess(sb, r.Process, r.InjectedSteps)

	if r.Recommendation != "" {
		sb.WriteString("**Recommendations:**\n\n")
		for _, line := range strings.Split(r.Recommendation, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(sb, "- %s\n", line)
			}
		}
		sb.WriteString("\n")
	}
}

// writeProcess renders the verification-order audit into sb.
func writeProcess(sb *strings.Builder, p schema.ProcessAuditResult, injected []string) {
	fmt.Fprintf(sb, "**Verification process:** %d/100\n\n", p.Score)
	for _, v := range p.OrderingViolations {
		fmt.Fprintf(sb, "- `%s` (rank %d) consulted out of order at position %d\n", v.SourceID, v.ExpectedRank, v.ActualPosition)
	}
	for _, id := range p.MissingMandatory {
		fmt.Fprintf(sb, "- mandatory source `%s` not consulted\n", id)
	}
	for _, id := range injected {
		fmt.Fprintf(sb, "- `%s` confirmation required for this name\n", id)
	}
	for _, id := range p.UnknownSources {
		fmt.Fprintf(sb, "- unknown source `%s` ignored\n", id)
	}
	if len(p.OrderingViolations)+len(p.MissingMandatory)+len(injected)+len(p.UnknownSources) > 0 {
		sb.WriteString("\n")
	}
}

// RenderTermbase produces recommended termbase entries for every completed
// report. Real-person EN-KO entries carry the HZ Original Notation line.
func RenderTermbase(doc *Document) string {
	if doc == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("# Recommended Termbase Entries\n\n")
	for _, o := range doc.Outcomes {
		if o.Failed() {
			fmt.Fprintf(&sb, "## %s\n\n%s\n\n---\n\n", o.Input, o.FailureMarker())
			continue
		}
		for _, r := range o.Reports() {
			writeTermbaseEntry(&sb, r)
		}
	}
	return sb.String()
}

func writeTermbaseEntry(sb *strings.Builder, r schema.ComplianceReport) {
	fmt.Fprintf(sb, "## %s → %s\n\n", r.SourceText, r.Notation)

	var consulted []string
	for _, st := range r.Process.Steps {
		if !st.Found {
			continue
		}
		name := st.SourceID
		if s, ok := catalogue.LookupSource(st.SourceID); ok {
			name = s.Name
		}
		consulted = append(consulted, name)
	}
	if len(consulted) > 0 {
		sb.WriteString("### Verification Sources\n")
		for _, name := range consulted {
			fmt.Fprintf(sb, "- %s\n", name)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Termbase Entry\n")
	fmt.Fprintf(sb, "- **Direction**: %s\n", r.Direction)
	fmt.Fprintf(sb, "- **Category**: %s\n", r.Category)
	fmt.Fprintf(sb, "- **Verdict**: %s\n", r.Verdict)
	if r.Direction == schema.EnToKo && r.Category == schema.CategoryRealPerson {
		fmt.Fprintf(sb, "- **HZ Original Notation**: %s\n", r.Notation)
	}
	sb.WriteString("\n")

	fmt.Fprintf(sb, "### Compliance Score: %d/100\n\n", r.OverallScore)

	if r.Recommendation != "" {
		sb.WriteString("### Recommendations\n")
		for _, line := range strings.Split(r.Recommendation, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				fmt.Fprintf(sb, "- %s\n", line)
			}
		}
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
}

// RenderHTML produces a standalone HTML report page.
func RenderHTML(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: nil document")
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render: html: %w", err)
	}
	return buf.Bytes(), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
