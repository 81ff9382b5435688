package render

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dshills/termcheck/internal/schema"
)

func sampleReport() schema.ComplianceReport {
	return schema.ComplianceReport{
		SourceText:   "김지원",
		Notation:     "Kim Ji-won",
		Direction:    schema.KoToEn,
		Category:     schema.CategoryRealPerson,
		Script:       schema.ScriptKorean,
		OverallScore: 90,
		RuleScore:    100,
		RuleResults: []schema.RuleResult{
			{RuleID: "hyphenation", Score: 100, Passed: true, Mandatory: true, Weight: 2, Rationale: "given name hyphenated | generator note: ok"},
			{RuleID: "romanization", Score: 100, Passed: true, Mandatory: true, Weight: 2, Rationale: "matches RR"},
		},
		Process: schema.ProcessAuditResult{
			Score:              90,
			OrderingViolations: []schema.OrderingViolation{{ExpectedRank: 10, ActualPosition: 4, SourceID: "nikl_romanization"}},
			Steps: []schema.StepOutcome{
				{SourceID: "teamwork", Rank: 1, Mandatory: true, Found: true, Position: 1},
				{SourceID: "kofic_kobiz", Rank: 11, Mandatory: true, Found: true, Position: 3},
				{SourceID: "imdb", Rank: 15},
			},
		},
		Verdict:               schema.VerdictNonCompliant,
		NeedsExpertValidation: true,
		Recommendation:        "Consult NIKL romanization before KOFIC KoBiz.\nHave an expert validate the notation.",
	}
}

func sampleDocument() *Document {
	rep := sampleReport()
	fwd := sampleReport()
	fwd.Verdict = schema.VerdictCompliant
	rev := schema.ComplianceReport{
		SourceText:   "Tom Holland",
		Notation:     "톰 홀랜드",
		Direction:    schema.EnToKo,
		Category:     schema.CategoryRealPerson,
		OverallScore: 100,
		Verdict:      schema.VerdictCompliant,
		Passed:       true,
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Document{
		Tool:             "termcheck",
		Version:          "0.1.0",
		CatalogueVersion: "cf-manual-2020.08",
		Summary:          &schema.Summary{RunID: "run-1", Total: 3, Failed: 1, KoEnCount: 2, KoEnCompliant: 1, EnKoCount: 1, EnKoCompliant: 1, ExpertReviews: 1, GeneratedAt: at},
		Outcomes: []schema.Outcome{
			{ID: "1", Input: "김지원", Report: &rep, EvaluatedAt: at},
			{ID: "2", Input: "!!!", Error: "classify \"!!!\": no Hangul or Latin letters", EvaluatedAt: at},
			{ID: "3", Input: "김지원", Combined: &schema.CombinedReport{Forward: fwd, Reverse: rev, Passed: false}, EvaluatedAt: at},
		},
	}
}

func TestRenderJSON_RoundTrip(t *testing.T) {
	doc := sampleDocument()
	b, err := RenderJSON(doc)
	if err != nil {
		t.Fatalf("RenderJSON error: %v", err)
	}
	var got Document
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(*doc, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, *doc)
	}
}

func TestRenderJSON_PrettyPrinted(t *testing.T) {
	b, err := RenderJSON(sampleDocument())
	if err != nil {
		t.Fatalf("RenderJSON error: %v", err)
	}
	if !strings.Contains(string(b), "\n  \"tool\": \"termcheck\"") {
		t.Errorf("expected indented output, got:\n%s", b)
	}
}

func TestRenderJSON_NilDocument(t *testing.T) {
	if _, err := RenderJSON(nil); err == nil {
		t.Error("RenderJSON(nil) expected error")
	}
}

func TestRenderMarkdown_Summary(t *testing.T) {
	md := RenderMarkdown(sampleDocument())
	for _, want := range []string{
		"## Summary",
		"**Evaluations:** 3 | **Failed:** 1 | **Expert reviews:** 1",
		"| KO-EN | 2 | 1 |",
		"| EN-KO | 1 | 1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Report(t *testing.T) {
	md := RenderMarkdown(sampleDocument())
	for _, want := range []string{
		"## 김지원 → Kim Ji-won",
		"**Verdict:** NON_COMPLIANT",
		"**Score:** 90/100 (rules 100, process 90)",
		"**Expert validation required**",
		"| hyphenation | 100 | yes | yes | given name hyphenated \\| generator note: ok |",
		"- `nikl_romanization` (rank 10) consulted out of order at position 4",
		"- Have an expert validate the notation.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_FailureMarker(t *testing.T) {
	md := RenderMarkdown(sampleDocument())
	if !strings.Contains(md, "`evaluation_failed: classify \"!!!\": no Hangul or Latin letters`") {
		t.Errorf("markdown missing failure marker:\n%s", md)
	}
}

func TestRenderMarkdown_Bidirectional(t *testing.T) {
	md := RenderMarkdown(sampleDocument())
	for _, want := range []string{
		"## 김지원 ⇄ Kim Ji-won",
		"**Bidirectional check passed:** no",
		"### Tom Holland → 톰 홀랜드",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_NilDocument(t *testing.T) {
	if got := RenderMarkdown(nil); got != "" {
		t.Errorf("RenderMarkdown(nil) = %q, want empty string", got)
	}
}

func TestReportMarkdown(t *testing.T) {
	md := ReportMarkdown(sampleReport())
	if !strings.HasPrefix(md, "## 김지원 → Kim Ji-won\n") {
		t.Errorf("unexpected heading:\n%s", md)
	}
}

func TestRenderTermbase(t *testing.T) {
	tb := RenderTermbase(sampleDocument())
	for _, want := range []string{
		"# Recommended Termbase Entries",
		"## 김지원 → Kim Ji-won",
		"### Verification Sources\n- CF Teamwork\n- KOFIC KoBiz\n",
		"### Compliance Score: 90/100",
		"- **HZ Original Notation**: 톰 홀랜드",
		"evaluation_failed: ",
	} {
		if !strings.Contains(tb, want) {
			t.Errorf("termbase missing %q:\n%s", want, tb)
		}
	}
	if strings.Contains(tb, "IMDb") {
		t.Error("termbase lists a source that was not consulted")
	}
	if n := strings.Count(tb, "HZ Original Notation"); n != 1 {
		t.Errorf("HZ Original Notation appears %d times, want 1", n)
	}
}

func TestRenderHTML(t *testing.T) {
	b, err := RenderHTML(sampleDocument())
	if err != nil {
		t.Fatalf("RenderHTML error: %v", err)
	}
	page := string(b)
	for _, want := range []string{
		"<!DOCTYPE html>",
		`class="report non-compliant"`,
		`class="report compliant"`,
		"evaluation_failed: classify &#34;!!!&#34;: no Hangul or Latin letters",
		"<li>Have an expert validate the notation.</li>",
		"Bidirectional check passed: no",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestRenderHTML_EscapesInput(t *testing.T) {
	doc := &Document{Outcomes: []schema.Outcome{{Input: "<script>", Error: "empty input"}}}
	b, err := RenderHTML(doc)
	if err != nil {
		t.Fatalf("RenderHTML error: %v", err)
	}
	if strings.Contains(string(b), "<script>") {
		t.Error("input was not escaped")
	}
}

func TestRender_Dispatch(t *testing.T) {
	doc := sampleDocument()
	for _, f := range Formats() {
		b, err := Render(f, doc)
		if err != nil {
			t.Errorf("Render(%q) error: %v", f, err)
		}
		if len(b) == 0 {
			t.Errorf("Render(%q) produced no output", f)
		}
	}
	if _, err := Render("pdf", doc); err == nil {
		t.Error("Render(\"pdf\") expected error")
	}
	if _, err := Render(FormatMarkdown, nil); err == nil {
		t.Error("Render(md, nil) expected error")
	}
}

func TestMdEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a|b", "a\\|b"},
		{"line1\nline2", "line1 line2"},
		{"x\r\ny", "x y"},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := mdEscape(c.in); got != c.want {
			t.Errorf("mdEscape(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
