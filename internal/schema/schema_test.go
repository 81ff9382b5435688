package schema_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dshills/termcheck/internal/schema"
)

func TestComplianceReport_JSONRoundTrip(t *testing.T) {
	original := &schema.ComplianceReport{
		SourceText:   "김지원",
		Notation:     "Kim Ji-won",
		Direction:    schema.KoToEn,
		Category:     schema.CategoryRealPerson,
		Script:       schema.ScriptKorean,
		OverallScore: 60,
		RuleScore:    100,
		RuleResults: []schema.RuleResult{
			{RuleID: "hyphenation", Score: 100, Passed: true, Mandatory: true, Weight: 2, Rationale: "hyphen placed"},
		},
		Process: schema.ProcessAuditResult{
			Score:              60,
			OrderingViolations: []schema.OrderingViolation{{ExpectedRank: 1, ActualPosition: 2, SourceID: "kofic_kobiz"}},
			MissingMandatory:   []string{"hazel_confirmation"},
		},
		Verdict:               schema.VerdictNonCompliant,
		NeedsExpertValidation: true,
		InjectedSteps:         []string{"hazel_confirmation"},
		Recommendation:        "verify with Hazel",
	}

	b, err := json.MarshalIndent(original, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got schema.ComplianceReport
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.OverallScore != 60 || got.RuleScore != 100 {
		t.Errorf("scores mismatch: %d/%d", got.OverallScore, got.RuleScore)
	}
	if got.Verdict != schema.VerdictNonCompliant {
		t.Errorf("Verdict mismatch: %q", got.Verdict)
	}
	if len(got.Process.OrderingViolations) != 1 || got.Process.OrderingViolations[0].SourceID != "kofic_kobiz" {
		t.Errorf("ordering violations mismatch: %+v", got.Process.OrderingViolations)
	}
	if !got.NeedsExpertValidation || got.NeedsPhoneticianReview {
		t.Errorf("flags mismatch: expert=%v phonetician=%v", got.NeedsExpertValidation, got.NeedsPhoneticianReview)
	}
}

func TestEnumValues_Serialize(t *testing.T) {
	verdicts := []struct {
		v    schema.Verdict
		want string
	}{
		{schema.VerdictCompliant, "COMPLIANT"},
		{schema.VerdictNeedsReview, "NEEDS_REVIEW"},
		{schema.VerdictNonCompliant, "NON_COMPLIANT"},
	}
	for _, tc := range verdicts {
		b, _ := json.Marshal(tc.v)
		if string(b) != `"`+tc.want+`"` {
			t.Errorf("Verdict %q serialized to %s, want %q", tc.v, b, tc.want)
		}
	}

	directions := []struct {
		d    schema.Direction
		want string
	}{
		{schema.KoToEn, "KO-EN"},
		{schema.EnToKo, "EN-KO"},
	}
	for _, tc := range directions {
		b, _ := json.Marshal(tc.d)
		if string(b) != `"`+tc.want+`"` {
			t.Errorf("Direction %q serialized to %s, want %q", tc.d, b, tc.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	cases := map[string]schema.Direction{
		"KO-EN":  schema.KoToEn,
		"ko_en":  schema.KoToEn,
		"KO→EN":  schema.KoToEn,
		"en-ko":  schema.EnToKo,
		" EN>KO": schema.EnToKo,
	}
	for in, want := range cases {
		got, err := schema.ParseDirection(in)
		if err != nil {
			t.Errorf("ParseDirection(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDirection(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := schema.ParseDirection("KO-FR"); err == nil {
		t.Error("ParseDirection(KO-FR) should fail")
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]schema.Category{
		"real_person": schema.CategoryRealPerson,
		"Real-Person": schema.CategoryRealPerson,
		"other":       schema.CategoryOther,
		"":            schema.CategoryOther,
	}
	for in, want := range cases {
		got, err := schema.ParseCategory(in)
		if err != nil || got != want {
			t.Errorf("ParseCategory(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := schema.ParseCategory("animal"); err == nil {
		t.Error("ParseCategory(animal) should fail")
	}
}

func TestNewNameCandidate(t *testing.T) {
	in := schema.NameCandidate{
		SourceText: "  김지원 ",
		Direction:  schema.KoToEn,
		Category:   schema.CategoryRealPerson,
		Notation:   "Kim Ji-won ",
		Evidence: []schema.EvidenceItem{
			{SourceID: "teamwork", Position: 1, Tags: []schema.Tag{schema.TagStageName}},
			{SourceID: "kofic_kobiz", Position: 3},
		},
	}
	c, err := schema.NewNameCandidate(in)
	if err != nil {
		t.Fatalf("NewNameCandidate: %v", err)
	}
	if c.SourceText != "김지원" || c.Notation != "Kim Ji-won" {
		t.Errorf("fields not trimmed: %q / %q", c.SourceText, c.Notation)
	}
	if !c.HasTag(schema.TagStageName) {
		t.Error("HasTag should see evidence tags")
	}

	// The candidate owns its slices.
	in.Evidence[0].Tags[0] = schema.TagAnimal
	in.Evidence[1].SourceID = "imdb"
	if c.Evidence[0].Tags[0] != schema.TagStageName || c.Evidence[1].SourceID != "kofic_kobiz" {
		t.Error("candidate shares evidence with caller")
	}
}

func TestNewNameCandidate_Errors(t *testing.T) {
	_, err := schema.NewNameCandidate(schema.NameCandidate{Direction: schema.KoToEn, Category: schema.CategoryOther})
	if !errors.Is(err, schema.ErrEmptyInput) {
		t.Errorf("empty source: got %v, want ErrEmptyInput", err)
	}

	_, err = schema.NewNameCandidate(schema.NameCandidate{SourceText: "서울", Direction: "KO-FR", Category: schema.CategoryOther})
	if err == nil {
		t.Error("invalid direction should fail")
	}

	_, err = schema.NewNameCandidate(schema.NameCandidate{
		SourceText: "서울",
		Direction:  schema.KoToEn,
		Category:   schema.CategoryOther,
		Evidence: []schema.EvidenceItem{
			{SourceID: "nikl", Position: 2},
			{SourceID: "kmdb", Position: 2},
		},
	})
	var me *schema.MalformedEvidenceError
	if !errors.As(err, &me) {
		t.Fatalf("non-increasing positions: got %v, want MalformedEvidenceError", err)
	}
	if me.SourceID != "kmdb" {
		t.Errorf("MalformedEvidenceError.SourceID = %q, want kmdb", me.SourceID)
	}
}

func TestReversed(t *testing.T) {
	c := schema.NameCandidate{
		SourceText:         "김지원",
		Notation:           "Kim Ji-won",
		Direction:          schema.KoToEn,
		Category:           schema.CategoryRealPerson,
		GeneratorRationale: "RR",
		ConfirmedAt:        time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	r := c.Reversed(nil)
	if r.SourceText != "Kim Ji-won" || r.Notation != "김지원" || r.Direction != schema.EnToKo {
		t.Errorf("Reversed = %+v", r)
	}
	if r.GeneratorRationale != "" {
		t.Error("Reversed should drop the generator rationale")
	}
	if !r.ConfirmedAt.Equal(c.ConfirmedAt) {
		t.Error("Reversed should keep confirmation metadata")
	}
}

func TestOutcome_FailureMarker(t *testing.T) {
	o := schema.Outcome{Input: "x", Error: "classification: \"\": empty input"}
	if !o.Failed() {
		t.Fatal("Failed() = false")
	}
	if got := o.FailureMarker(); got != `evaluation_failed: classification: "": empty input` {
		t.Errorf("FailureMarker() = %q", got)
	}
	if o.Reports() != nil {
		t.Error("failed outcome has no reports")
	}
}
