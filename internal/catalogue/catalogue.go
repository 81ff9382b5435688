// Package catalogue holds the declarative data the evaluation engine scores
// against: rule sets per (direction, category), the verification sources in
// priority order, the required verification steps, and the romanization
// table. A Catalogue is built once and only read afterwards, so one value is
// safe to share between concurrent evaluations.
package catalogue

import (
	"slices"

	"github.com/dshills/termcheck/internal/schema"
)

// Version identifies the built-in catalogue data.
const Version = "cf-manual-2020.08"

// Kind selects the scoring function of a rule.
type Kind string

const (
	KindHyphenation    Kind = "hyphenation"
	KindCapitalization Kind = "capitalization"
	KindStageName      Kind = "stage_name"
	KindNorthKorean    Kind = "north_korean"
	KindRomanization   Kind = "romanization"
	KindPriorNotation  Kind = "prior_notation"
	KindHangulNotation Kind = "hangul_notation"
	KindWordSpacing    Kind = "word_spacing"
)

// Rule is one declared rule. Rules carry no behaviour: the scorer is selected
// by Kind in the rules package.
type Rule struct {
	ID          schema.RuleID
	Kind        Kind
	Description string
	Weight      int
	Mandatory   bool
	// PassScore is the minimum score at which the rule counts as passed.
	PassScore int
	// Strict tightens the capitalization check to require lower-case after
	// the first letter of every word.
	Strict bool
	// Trigger, when set, limits the rule to candidates carrying the tag.
	Trigger schema.Tag
	// Exempt lists tags that remove the rule from the evaluation entirely.
	Exempt []schema.Tag
}

// AppliesTo reports whether the rule produces a result for c.
func (r Rule) AppliesTo(c schema.NameCandidate) bool {
	if r.Trigger != "" && !c.HasTag(r.Trigger) {
		return false
	}
	for _, t := range r.Exempt {
		if c.HasTag(t) {
			return false
		}
	}
	return true
}

// ExemptedBy returns the first exemption tag carried by c, if any.
func (r Rule) ExemptedBy(c schema.NameCandidate) (schema.Tag, bool) {
	for _, t := range r.Exempt {
		if c.HasTag(t) {
			return t, true
		}
	}
	return "", false
}

type key struct {
	dir schema.Direction
	cat schema.Category
}

// Plan is everything needed to evaluate one candidate: the ordered rules and
// the ranked verification steps for its (direction, category). A Plan is a
// private copy and may be modified by the caller.
type Plan struct {
	Version   string
	Direction schema.Direction
	Category  schema.Category
	Rules     []Rule
	Steps     []schema.VerificationStep
}

// Rule returns the rule with the given id.
func (p Plan) Rule(id schema.RuleID) (Rule, bool) {
	i := slices.IndexFunc(p.Rules, func(r Rule) bool { return r.ID == id })
	if i < 0 {
		return Rule{}, false
	}
	return p.Rules[i], true
}

// Catalogue is the immutable rule and source registry.
type Catalogue struct {
	version string
	rules   map[key][]Rule
	steps   map[key][]schema.VerificationStep
	table   *Table
}

// Default returns the built-in catalogue.
func Default() *Catalogue {
	return &Catalogue{
		version: Version,
		rules:   builtinRules(),
		steps:   builtinSteps(),
		table:   NewTable(),
	}
}

// Version returns the catalogue data version.
func (c *Catalogue) Version() string { return c.version }

// Romanization returns the romanization table.
func (c *Catalogue) Romanization() *Table { return c.table }

// Lookup returns a copy of the plan for (dir, cat). It fails with a
// *schema.CatalogueLookupError when no rule set is declared for the pair.
func (c *Catalogue) Lookup(dir schema.Direction, cat schema.Category) (Plan, error) {
	k := key{dir, cat}
	rs, ok := c.rules[k]
	if !ok {
		return Plan{}, &schema.CatalogueLookupError{Direction: dir, Category: cat}
	}
	rules := make([]Rule, len(rs))
	for i, r := range rs {
		r.Exempt = slices.Clone(r.Exempt)
		rules[i] = r
	}
	return Plan{
		Version:   c.version,
		Direction: dir,
		Category:  cat,
		Rules:     rules,
		Steps:     slices.Clone(c.steps[k]),
	}, nil
}

// KnownSource reports whether id is in the source registry.
func (c *Catalogue) KnownSource(id string) bool {
	_, ok := registry[id]
	return ok
}

// clone returns a deep copy used as the base for overrides.
func (c *Catalogue) clone() *Catalogue {
	out := &Catalogue{
		version: c.version,
		rules:   make(map[key][]Rule, len(c.rules)),
		steps:   make(map[key][]schema.VerificationStep, len(c.steps)),
		table:   c.table.clone(),
	}
	for k, rs := range c.rules {
		cp := make([]Rule, len(rs))
		for i, r := range rs {
			r.Exempt = slices.Clone(r.Exempt)
			cp[i] = r
		}
		out.rules[k] = cp
	}
	for k, st := range c.steps {
		out.steps[k] = slices.Clone(st)
	}
	return out
}

func builtinRules() map[key][]Rule {
	hyphenation := Rule{
		ID:          "hyphenation",
		Kind:        KindHyphenation,
		Description: "Given-name syllables are joined by a single hyphen (Kim Ji-won).",
		Weight:      1,
		PassScore:   100,
		Exempt:      []schema.Tag{schema.TagAnimal, schema.TagStageName},
	}
	capitalization := Rule{
		ID:          "capitalization",
		Kind:        KindCapitalization,
		Description: "Each word starts upper-case; the letter after a hyphen is lower-case.",
		Weight:      1,
		PassScore:   100,
	}
	stageName := Rule{
		ID:          "stage-name",
		Kind:        KindStageName,
		Description: "Stage names in upper-case style use first-letter capitals with the rest lower-case.",
		Weight:      1,
		PassScore:   100,
		Trigger:     schema.TagStageName,
	}
	northKorean := Rule{
		ID:          "north-korean",
		Kind:        KindNorthKorean,
		Description: "North Korean given names replace the space with a hyphen and lower-case the second syllable.",
		Weight:      1,
		PassScore:   100,
		Trigger:     schema.TagNorthKorean,
	}
	romanization := Rule{
		ID:          "romanization",
		Kind:        KindRomanization,
		Description: "Each syllable follows the NIKL Revised Romanization table (surname conventions allowed).",
		Weight:      1,
		PassScore:   100,
		Exempt:      []schema.Tag{schema.TagStageName},
	}
	priorNotation := Rule{
		ID:          "prior-notation",
		Kind:        KindPriorNotation,
		Description: "The candidate matches the notation already confirmed in internal records.",
		Weight:      1,
		PassScore:   100,
	}
	hangulNotation := Rule{
		ID:          "hangul-notation",
		Kind:        KindHangulNotation,
		Description: "The Korean notation is written entirely in Hangul syllables.",
		Weight:      1,
		PassScore:   100,
	}
	wordSpacing := Rule{
		ID:          "word-spacing",
		Kind:        KindWordSpacing,
		Description: "The Korean notation keeps the word division of the source name.",
		Weight:      1,
		PassScore:   100,
	}

	koOther := []Rule{hyphenation, capitalization, stageName, northKorean, romanization, priorNotation}

	koPerson := slices.Clone(koOther)
	for i := range koPerson {
		r := &koPerson[i]
		r.Exempt = slices.Clone(r.Exempt)
		switch r.Kind {
		case KindHyphenation, KindRomanization:
			r.Mandatory = true
			r.Weight = 2
		case KindCapitalization:
			r.Mandatory = true
			r.Strict = true
		case KindNorthKorean:
			r.Mandatory = true
		}
	}

	enOther := []Rule{hangulNotation, wordSpacing, priorNotation}
	enPerson := slices.Clone(enOther)
	for i := range enPerson {
		r := &enPerson[i]
		switch r.Kind {
		case KindHangulNotation:
			r.Mandatory = true
			r.Weight = 2
		case KindPriorNotation:
			r.Mandatory = true
		}
	}

	return map[key][]Rule{
		{schema.KoToEn, schema.CategoryOther}:      koOther,
		{schema.KoToEn, schema.CategoryRealPerson}: koPerson,
		{schema.EnToKo, schema.CategoryOther}:      enOther,
		{schema.EnToKo, schema.CategoryRealPerson}: enPerson,
	}
}

// mandatorySteps lists the sources that must be consulted per pair. Every
// other source of the direction is an optional step at its priority rank.
var mandatorySteps = map[key][]string{
	{schema.KoToEn, schema.CategoryOther}:      {"teamwork", "nikl_romanization"},
	{schema.KoToEn, schema.CategoryRealPerson}: {"teamwork", "terminology_depository", "nikl_romanization", "kofic_kobiz"},
	{schema.EnToKo, schema.CategoryOther}:      {"teamwork", "nikl"},
	{schema.EnToKo, schema.CategoryRealPerson}: {"teamwork", "terminology_depository", "nikl", "youtube"},
}

func builtinSteps() map[key][]schema.VerificationStep {
	out := make(map[key][]schema.VerificationStep, len(mandatorySteps))
	for k, mandatory := range mandatorySteps {
		prio := priorities[k.dir]
		steps := make([]schema.VerificationStep, len(prio))
		for i, id := range prio {
			steps[i] = schema.VerificationStep{
				SourceID:  id,
				Rank:      i + 1,
				Mandatory: slices.Contains(mandatory, id),
			}
		}
		out[k] = steps
	}
	return out
}
