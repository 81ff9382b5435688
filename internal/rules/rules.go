// Package rules scores a candidate notation against catalogue rules. Every
// scorer is a pure function of the rule, the candidate and the romanization
// table; the Evaluator only filters and maps.
package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// maxRationaleNote bounds the generator text appended to rationales.
const maxRationaleNote = 200

type scorer func(r catalogue.Rule, c schema.NameCandidate, t *catalogue.Table) (int, string)

var scorers = map[catalogue.Kind]scorer{
	catalogue.KindHyphenation:    scoreHyphenation,
	catalogue.KindCapitalization: scoreCapitalization,
	catalogue.KindStageName:      scoreStageName,
	catalogue.KindNorthKorean:    scoreNorthKorean,
	catalogue.KindRomanization:   scoreRomanization,
	catalogue.KindPriorNotation:  scorePriorNotation,
	catalogue.KindHangulNotation: scoreHangulNotation,
	catalogue.KindWordSpacing:    scoreWordSpacing,
}

// Evaluator applies rules to candidates.
type Evaluator struct {
	table *catalogue.Table
}

// NewEvaluator returns an Evaluator backed by table.
func NewEvaluator(table *catalogue.Table) *Evaluator {
	if table == nil {
		table = catalogue.NewTable()
	}
	return &Evaluator{table: table}
}

// Evaluate scores c against every applicable rule. Results follow the order
// of rules; rules the candidate is exempt from or not triggered for produce
// no result.
func (e *Evaluator) Evaluate(c schema.NameCandidate, rules []catalogue.Rule) ([]schema.RuleResult, error) {
	out := make([]schema.RuleResult, 0, len(rules))
	for _, r := range rules {
		if !r.AppliesTo(c) {
			continue
		}
		res, err := e.Score(r, c)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Score applies a single rule regardless of its applicability.
func (e *Evaluator) Score(r catalogue.Rule, c schema.NameCandidate) (schema.RuleResult, error) {
	fn, ok := scorers[r.Kind]
	if !ok {
		return schema.RuleResult{}, fmt.Errorf("rules: rule %q: no scorer for kind %q", r.ID, r.Kind)
	}
	score, rationale := fn(r, c, e.table)
	score = max(0, min(100, score))
	weight := r.Weight
	if weight < 1 {
		weight = 1
	}
	return schema.RuleResult{
		RuleID:    r.ID,
		Score:     score,
		Passed:    score >= r.PassScore,
		Mandatory: r.Mandatory,
		Weight:    weight,
		Rationale: withGeneratorNote(rationale, c.GeneratorRationale),
	}, nil
}

func withGeneratorNote(rationale, note string) string {
	note = strings.Join(strings.Fields(note), " ")
	if note == "" {
		return rationale
	}
	if utf8.RuneCountInString(note) > maxRationaleNote {
		note = string([]rune(note)[:maxRationaleNote]) + "…"
	}
	return rationale + " | generator note: " + note
}
