// Package llm generates candidate notations through an LLM provider: prompt
// construction, response validation, and the single repair attempt.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/profile"
	"github.com/dshills/termcheck/internal/schema"
)

// ErrInvalidModelOutput is returned when both the initial and repair LLM
// responses fail validation.
var ErrInvalidModelOutput = errors.New("llm: invalid model output after repair attempt")

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// Options configures a Generate call.
type Options struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
	Debug       bool
}

// Request is one name to generate a notation for.
type Request struct {
	Source    string
	Direction schema.Direction
	Category  schema.Category
	Tags      []schema.Tag
	Project   string
}

// Candidate is a validated generator answer.
type Candidate struct {
	Notation  string `json:"notation"`
	Rationale string `json:"rationale"`
}

// ValidationError records a single validation failure on an LLM response.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// Generate builds a prompt, calls the LLM, validates the response, and
// performs one repair attempt if validation fails.
func Generate(ctx context.Context, req Request, opts Options) (*Candidate, error) {
	prof, err := profile.For(req.Direction, req.Category)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	provider, err := NewProvider(opts.Provider, opts.Model)
	if err != nil {
		return nil, fmt.Errorf("llm: create provider: %w", err)
	}

	sysPrompt := buildSystemPrompt(prof)
	userPrompt := buildUserPrompt(req)

	if opts.Debug {
		fmt.Fprintf(os.Stderr, "=== DEBUG: system prompt ===\n%s\n", sysPrompt)
		fmt.Fprintf(os.Stderr, "=== DEBUG: user prompt ===\n%s\n", userPrompt)
	}

	raw, err := provider.Complete(ctx, sysPrompt, userPrompt, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("llm: complete: %w", err)
	}

	cand, validationErrs := ValidateResponse(raw, prof)
	if cand != nil && !needsRepair(validationErrs) {
		return cand, nil
	}

	repairPrompt := buildRepairPrompt(userPrompt, raw, validationErrs)
	raw2, err := provider.Complete(ctx, sysPrompt, repairPrompt, opts.MaxTokens, opts.Temperature)
	if err != nil {
		return nil, fmt.Errorf("llm: repair complete: %w", err)
	}

	cand2, validationErrs2 := ValidateResponse(raw2, prof)
	if cand2 != nil && !needsRepair(validationErrs2) {
		return cand2, nil
	}

	return nil, ErrInvalidModelOutput
}

// Generator adapts Generate to the batch runner's generator interface.
type Generator struct {
	Options Options
}

// Generate returns a notation and rationale for c's source text. Tags on the
// candidate and on its evidence reach the prompt.
func (g Generator) Generate(ctx context.Context, c schema.NameCandidate) (string, string, error) {
	req := Request{
		Source:    c.SourceText,
		Direction: c.Direction,
		Category:  c.Category,
		Tags:      candidateTags(c),
		Project:   c.Project,
	}
	cand, err := Generate(ctx, req, g.Options)
	if err != nil {
		return "", "", err
	}
	return cand.Notation, cand.Rationale, nil
}

func candidateTags(c schema.NameCandidate) []schema.Tag {
	var out []schema.Tag
	add := func(tags []schema.Tag) {
		for _, t := range tags {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	add(c.Tags)
	for _, ev := range c.Evidence {
		add(ev.Tags)
	}
	return out
}

// needsRepair returns true when validation errors include a failure that
// requires a retry.
func needsRepair(errs []ValidationError) bool {
	for _, e := range errs {
		switch e.Field {
		case "json_parse", "required_field", "script":
			return true
		}
	}
	return false
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that LLMs
// sometimes wrap around JSON output. A lone opening fence from a truncated
// response is stripped as well.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}

// invalidJSONEscapeRe matches a backslash followed by any character that is not
// a valid JSON string escape character ("\/bfnrtu).
var invalidJSONEscapeRe = regexp.MustCompile(`\\([^"\\/bfnrtu])`)

// fixInvalidJSONEscapes replaces invalid JSON escape sequences in s with their
// correctly double-escaped equivalents.
func fixInvalidJSONEscapes(s string) string {
	return invalidJSONEscapeRe.ReplaceAllString(s, `\\$1`)
}

// maxRationaleRunes bounds the rationale carried into rule rationales.
const maxRationaleRunes = 1000

// ValidateResponse parses and validates the raw LLM response against prof.
// Non-fatal issues (a missing or overlong rationale) are fixed in place and
// recorded. Returns a nil candidate on parse failure, a missing notation, or a
// notation written in the wrong script.
func ValidateResponse(raw string, prof profile.Profile) (*Candidate, []ValidationError) {
	var errs []ValidationError

	raw = stripMarkdownFences(raw)

	var cand Candidate
	if err := json.Unmarshal([]byte(raw), &cand); err != nil {
		fixed := fixInvalidJSONEscapes(raw)
		if err2 := json.Unmarshal([]byte(fixed), &cand); err2 != nil {
			errs = append(errs, ValidationError{Field: "json_parse", Message: err.Error()})
			return nil, errs
		}
	}

	cand.Notation = strings.TrimSpace(cand.Notation)
	if cand.Notation == "" {
		errs = append(errs, ValidationError{Field: "required_field", Message: "notation is missing"})
		return nil, errs
	}

	res, err := classify.Classify(cand.Notation)
	switch {
	case err != nil:
		errs = append(errs, ValidationError{Field: "script", Message: err.Error()})
		return nil, errs
	case res.Script != prof.TargetScript:
		errs = append(errs, ValidationError{
			Field:   "script",
			Message: fmt.Sprintf("notation %q is %s, want %s", cand.Notation, res.Script, prof.TargetScript),
		})
		return nil, errs
	}

	cand.Rationale = strings.TrimSpace(cand.Rationale)
	switch {
	case cand.Rationale == "":
		errs = append(errs, ValidationError{Field: "rationale", Message: "rationale is empty"})
	case len([]rune(cand.Rationale)) > maxRationaleRunes:
		errs = append(errs, ValidationError{Field: "rationale", Message: "rationale truncated"})
		cand.Rationale = string([]rune(cand.Rationale)[:maxRationaleRunes])
	}

	return &cand, errs
}

// buildSystemPrompt assembles the LLM system prompt.
func buildSystemPrompt(prof profile.Profile) string {
	var sb strings.Builder

	sb.WriteString("You are termcheck, a proper-name notation assistant for Korean and English subtitles.\n\n")

	sb.WriteString("Output ONLY valid JSON conforming to the schema below. " +
		"No prose, no markdown, no explanation outside the JSON.\n\n")

	switch prof.TargetScript {
	case schema.ScriptKorean:
		sb.WriteString("The notation MUST be written in Hangul only.\n\n")
	case schema.ScriptLatin:
		sb.WriteString("The notation MUST be written in Latin letters only.\n\n")
	}

	if prof.SystemPromptAddendum != "" {
		sb.WriteString(prof.SystemPromptAddendum)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Sources are consulted in this order:\n")
	sb.WriteString(catalogue.ProcessText(prof.Direction))
	sb.WriteString("\n")

	sb.WriteString(outputSchema)

	return sb.String()
}

// outputSchema is the JSON schema fragment shown to the LLM.
const outputSchema = `Output schema (JSON only):
{
  "notation": "the proposed notation",
  "rationale": "which sources and rules support it"
}
`

// buildUserPrompt assembles the LLM user prompt.
func buildUserPrompt(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "NAME: %s\n", req.Source)
	fmt.Fprintf(&sb, "DIRECTION: %s\n", req.Direction)
	fmt.Fprintf(&sb, "CATEGORY: %s\n", req.Category)
	if len(req.Tags) > 0 {
		tags := make([]string, len(req.Tags))
		for i, t := range req.Tags {
			tags[i] = string(t)
		}
		fmt.Fprintf(&sb, "TAGS: %s\n", strings.Join(tags, ", "))
	}
	if req.Project != "" {
		fmt.Fprintf(&sb, "PROJECT: %s\n", req.Project)
	}

	sb.WriteString("\nProduce the JSON answer now.")

	return sb.String()
}

// buildRepairPrompt constructs the repair message. It includes the original
// user prompt and the previous invalid response so the LLM has full context.
func buildRepairPrompt(originalUserPrompt, previousResponse string, errs []ValidationError) string {
	var sb strings.Builder
	sb.WriteString(originalUserPrompt)
	sb.WriteString("\n\nYour previous response was:\n")
	sb.WriteString(previousResponse)
	sb.WriteString("\n\nThat response was invalid. Errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "  - %s\n", e.Error())
	}
	sb.WriteString("\nPlease output only the corrected JSON conforming to the schema. Do not repeat the error.")
	return sb.String()
}
