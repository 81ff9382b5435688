// Package schema defines the canonical data types shared by the termcheck
// evaluation engine and its collaborators.
package schema

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Direction is the notation direction of an evaluation.
type Direction string

const (
	KoToEn Direction = "KO-EN"
	EnToKo Direction = "EN-KO"
)

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == KoToEn {
		return EnToKo
	}
	return KoToEn
}

// ParseDirection accepts "KO-EN"/"EN-KO" in any case, with "-", "_" or
// "→" as separator.
func ParseDirection(s string) (Direction, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "-", "→", "-", ">", "-", " ", "").Replace(norm)
	switch norm {
	case "KO-EN", "KOEN", "KO--EN":
		return KoToEn, nil
	case "EN-KO", "ENKO", "EN--KO":
		return EnToKo, nil
	}
	return "", fmt.Errorf("schema: unknown direction %q (want KO-EN or EN-KO)", s)
}

// Category classifies a name for rule and overlay selection.
type Category string

const (
	CategoryRealPerson Category = "real_person"
	CategoryOther      Category = "other"
)

// ParseCategory converts a string to a Category constant.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryRealPerson, "real-person", "person":
		return CategoryRealPerson, nil
	case CategoryOther, "":
		return CategoryOther, nil
	}
	return "", fmt.Errorf("schema: unknown category %q (want real_person or other)", s)
}

// Script is the writing system detected in a piece of text.
type Script string

const (
	ScriptKorean Script = "KOREAN"
	ScriptLatin  Script = "LATIN"
	ScriptMixed  Script = "MIXED"
)

// Tag marks a candidate (or a single evidence item) with a property that
// triggers or exempts specific rules.
type Tag string

const (
	TagNorthKorean Tag = "north_korean"
	TagStageName   Tag = "stage_name"
	TagAnimal      Tag = "animal"
)

// EvidenceItem records one consultation of a verification source.
type EvidenceItem struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	Position int    `json:"position" yaml:"position"`
	Payload  string `json:"payload,omitempty" yaml:"payload"`
	Tags     []Tag  `json:"tags,omitempty" yaml:"tags"`
}

// NameCandidate is one evaluation request. Build it with NewNameCandidate and
// treat it as read-only afterwards; rules and the auditor never modify it.
type NameCandidate struct {
	SourceText  string         `json:"source_text"`
	Direction   Direction      `json:"direction"`
	Category    Category       `json:"category"`
	Notation    string         `json:"candidate_notation"`
	Evidence    []EvidenceItem `json:"evidence"`
	Tags        []Tag          `json:"tags,omitempty"`
	Project     string         `json:"project,omitempty"`
	ConfirmedAt time.Time      `json:"confirmed_at,omitzero"`

	// GeneratorRationale is free text from the candidate generator. It is
	// carried into rule rationales and never scored.
	GeneratorRationale string `json:"generator_rationale,omitempty"`
}

// NewNameCandidate validates c and returns a copy that shares no slices with
// the caller. Evidence positions must be strictly increasing.
func NewNameCandidate(c NameCandidate) (NameCandidate, error) {
	if strings.TrimSpace(c.SourceText) == "" {
		return NameCandidate{}, &ClassificationError{Input: c.SourceText, Reason: "empty source text"}
	}
	switch c.Direction {
	case KoToEn, EnToKo:
	default:
		return NameCandidate{}, fmt.Errorf("schema: candidate %q: invalid direction %q", c.SourceText, c.Direction)
	}
	switch c.Category {
	case CategoryRealPerson, CategoryOther:
	default:
		return NameCandidate{}, fmt.Errorf("schema: candidate %q: invalid category %q", c.SourceText, c.Category)
	}
	for i := 1; i < len(c.Evidence); i++ {
		prev, cur := c.Evidence[i-1], c.Evidence[i]
		if cur.Position <= prev.Position {
			return NameCandidate{}, &MalformedEvidenceError{
				SourceID: cur.SourceID,
				Position: cur.Position,
				Reason:   fmt.Sprintf("position %d does not follow %d", cur.Position, prev.Position),
			}
		}
	}

	out := c
	out.SourceText = strings.TrimSpace(c.SourceText)
	out.Notation = strings.TrimSpace(c.Notation)
	out.Tags = slices.Clone(c.Tags)
	out.Evidence = make([]EvidenceItem, len(c.Evidence))
	for i, ev := range c.Evidence {
		ev.Tags = slices.Clone(ev.Tags)
		out.Evidence[i] = ev
	}
	return out, nil
}

// HasTag reports whether the candidate or any of its evidence carries t.
func (c NameCandidate) HasTag(t Tag) bool {
	if slices.Contains(c.Tags, t) {
		return true
	}
	for _, ev := range c.Evidence {
		if slices.Contains(ev.Tags, t) {
			return true
		}
	}
	return false
}

// IsNFProject reports whether the candidate belongs to a Netflix project.
func (c NameCandidate) IsNFProject() bool {
	switch strings.ToLower(strings.TrimSpace(c.Project)) {
	case "nf", "nflx", "netflix":
		return true
	}
	return false
}

// Reversed returns the candidate for the opposite direction: the notation
// becomes the source and vice versa. Evidence is replaced by ev.
func (c NameCandidate) Reversed(ev []EvidenceItem) NameCandidate {
	r := c
	r.SourceText = c.Notation
	r.Notation = c.SourceText
	r.Direction = c.Direction.Reverse()
	r.Evidence = ev
	r.GeneratorRationale = ""
	return r
}

// RuleID identifies a rule within a catalogue rule set.
type RuleID string

// RuleResult is one rule's judgement of a candidate.
type RuleResult struct {
	RuleID    RuleID `json:"rule_id"`
	Score     int    `json:"score"`
	Passed    bool   `json:"passed"`
	Mandatory bool   `json:"mandatory"`
	Weight    int    `json:"weight"`
	Rationale string `json:"rationale"`
}

// VerificationStep is one required consultation. Lower Rank must be
// consulted earlier.
type VerificationStep struct {
	SourceID  string `json:"source_id" yaml:"source_id"`
	Rank      int    `json:"required_rank" yaml:"rank"`
	Mandatory bool   `json:"mandatory" yaml:"mandatory"`
}

// OrderingViolation records a step consulted after a lower-priority source.
type OrderingViolation struct {
	ExpectedRank   int    `json:"expected_rank"`
	ActualPosition int    `json:"actual_position"`
	SourceID       string `json:"source_id"`
}

// StepOutcome records how one verification step was matched against the
// evidence. Position is zero when the step was not found.
type StepOutcome struct {
	SourceID  string `json:"source_id"`
	Rank      int    `json:"required_rank"`
	Mandatory bool   `json:"mandatory"`
	Found     bool   `json:"found"`
	Position  int    `json:"position,omitempty"`
}

// ProcessAuditResult is the verification-order audit of one candidate.
type ProcessAuditResult struct {
	Score              int                 `json:"score"`
	OrderingViolations []OrderingViolation `json:"ordering_violations"`
	MissingMandatory   []string            `json:"missing_mandatory"`
	Steps              []StepOutcome       `json:"steps"`

	// UnknownSources lists evidence source ids absent from the source
	// registry. They were ignored by the audit.
	UnknownSources []string `json:"unknown_sources,omitempty"`
}

// Verdict is the overall judgement of one report.
type Verdict string

const (
	VerdictCompliant    Verdict = "COMPLIANT"
	VerdictNeedsReview  Verdict = "NEEDS_REVIEW"
	VerdictNonCompliant Verdict = "NON_COMPLIANT"
)

// ComplianceReport is the result of one evaluation pass. It is built once and
// never modified afterwards.
type ComplianceReport struct {
	SourceText             string             `json:"source_text"`
	Notation               string             `json:"candidate_notation"`
	Direction              Direction          `json:"direction"`
	Category               Category           `json:"category"`
	Script                 Script             `json:"script"`
	OverallScore           int                `json:"overall_score"`
	RuleScore              int                `json:"rule_score"`
	RuleResults            []RuleResult       `json:"rule_results"`
	Process                ProcessAuditResult `json:"process_result"`
	Verdict                Verdict            `json:"verdict"`
	Passed                 bool               `json:"passed"`
	NeedsExpertValidation  bool               `json:"needs_expert_validation"`
	NeedsPhoneticianReview bool               `json:"needs_phonetician_review"`
	InjectedSteps          []string           `json:"injected_steps,omitempty"`
	Recommendation         string             `json:"recommendation"`
}

// CombinedReport pairs the two directions of a bidirectional check.
type CombinedReport struct {
	Forward ComplianceReport `json:"forward"`
	Reverse ComplianceReport `json:"reverse"`
	Passed  bool             `json:"passed"`
}

// Outcome is the per-name entry of a batch. Exactly one of Report, Combined
// or Error is set.
type Outcome struct {
	ID          string            `json:"id"`
	Input       string            `json:"input"`
	Report      *ComplianceReport `json:"report,omitempty"`
	Combined    *CombinedReport   `json:"combined,omitempty"`
	Error       string            `json:"error,omitempty"`
	EvaluatedAt time.Time         `json:"evaluated_at"`
}

// Failed reports whether the evaluation failed.
func (o Outcome) Failed() bool { return o.Error != "" }

// FailureMarker is the user-visible marker for a failed evaluation.
func (o Outcome) FailureMarker() string {
	if o.Error == "" {
		return ""
	}
	return "evaluation_failed: " + o.Error
}

// Reports returns every ComplianceReport in the outcome.
func (o Outcome) Reports() []ComplianceReport {
	switch {
	case o.Combined != nil:
		return []ComplianceReport{o.Combined.Forward, o.Combined.Reverse}
	case o.Report != nil:
		return []ComplianceReport{*o.Report}
	}
	return nil
}

// Summary counts batch outcomes.
type Summary struct {
	RunID         string    `json:"run_id"`
	Total         int       `json:"total"`
	Failed        int       `json:"failed"`
	KoEnCount     int       `json:"ko_en_count"`
	KoEnCompliant int       `json:"ko_en_compliant"`
	EnKoCount     int       `json:"en_ko_count"`
	EnKoCompliant int       `json:"en_ko_compliant"`
	ExpertReviews int       `json:"expert_reviews"`
	GeneratedAt   time.Time `json:"generated_at"`
}
