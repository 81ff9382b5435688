// Package overlay adds the real-person requirements to an evaluation plan.
// Every policy branch lives in the decision table below.
package overlay

import (
	"slices"
	"time"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// Cutoff is the last confirmation date that needs no phonetician
// confirmation step. Later dates do.
var Cutoff = time.Date(2020, time.August, 11, 0, 0, 0, 0, time.UTC)

type predicate func(c schema.NameCandidate, now time.Time) bool

func realPerson(c schema.NameCandidate, _ time.Time) bool {
	return c.Category == schema.CategoryRealPerson
}

func direction(d schema.Direction) predicate {
	return func(c schema.NameCandidate, _ time.Time) bool { return c.Direction == d }
}

// confirmedAfterCutoff compares calendar days. A candidate with no
// confirmation date is being confirmed now.
func confirmedAfterCutoff(c schema.NameCandidate, now time.Time) bool {
	t := c.ConfirmedAt
	if t.IsZero() {
		t = now
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.After(Cutoff)
}

func nfProject(c schema.NameCandidate, _ time.Time) bool { return c.IsNFProject() }

func not(p predicate) predicate {
	return func(c schema.NameCandidate, now time.Time) bool { return !p(c, now) }
}

func all(ps ...predicate) predicate {
	return func(c schema.NameCandidate, now time.Time) bool {
		for _, p := range ps {
			if !p(c, now) {
				return false
			}
		}
		return true
	}
}

// Action is what a matching decision contributes.
type Action struct {
	ForceMandatoryHyphenation bool
	PhoneticianReview         bool
	InjectStep                string
}

// Decision is one row of the overlay table.
type Decision struct {
	Name   string
	when   predicate
	Action Action
}

// Table is the real-person decision table. Every matching row applies.
var Table = []Decision{
	{
		Name:   "ko-en-mandatory-hyphenation",
		when:   all(realPerson, direction(schema.KoToEn)),
		Action: Action{ForceMandatoryHyphenation: true},
	},
	{
		Name:   "en-ko-phonetician-review",
		when:   all(realPerson, direction(schema.EnToKo)),
		Action: Action{PhoneticianReview: true},
	},
	{
		Name:   "nf-kyonshik-confirmation",
		when:   all(realPerson, confirmedAfterCutoff, nfProject),
		Action: Action{InjectStep: catalogue.SourceKyonshik},
	},
	{
		Name:   "non-nf-hazel-confirmation",
		when:   all(realPerson, confirmedAfterCutoff, not(nfProject)),
		Action: Action{InjectStep: catalogue.SourceHazel},
	},
}

// Adjustment is the plan after the overlay plus the flags it raised.
type Adjustment struct {
	Plan              catalogue.Plan
	PhoneticianReview bool
	InjectedSteps     []string
	Decisions         []string
}

// Overlay applies Table to evaluation plans.
type Overlay struct {
	// Now supplies the confirmation time of candidates without one.
	Now func() time.Time
}

// New returns an Overlay using the wall clock.
func New() *Overlay {
	return &Overlay{Now: time.Now}
}

// Apply returns plan adjusted for c. Candidates that are not real persons
// pass through unchanged. plan is not modified.
func (o *Overlay) Apply(c schema.NameCandidate, plan catalogue.Plan) Adjustment {
	now := time.Now()
	if o != nil && o.Now != nil {
		now = o.Now()
	}

	adj := Adjustment{Plan: plan}
	adj.Plan.Rules = slices.Clone(plan.Rules)
	adj.Plan.Steps = slices.Clone(plan.Steps)

	for _, d := range Table {
		if !d.when(c, now) {
			continue
		}
		adj.Decisions = append(adj.Decisions, d.Name)
		if d.Action.ForceMandatoryHyphenation {
			adj.Plan.Rules = forceHyphenation(adj.Plan.Rules)
		}
		if d.Action.PhoneticianReview {
			adj.PhoneticianReview = true
		}
		if d.Action.InjectStep != "" {
			adj.Plan.Steps = inject(adj.Plan.Steps, d.Action.InjectStep)
			adj.InjectedSteps = append(adj.InjectedSteps, d.Action.InjectStep)
		}
	}
	return adj
}

func forceHyphenation(rules []catalogue.Rule) []catalogue.Rule {
	i := slices.IndexFunc(rules, func(r catalogue.Rule) bool { return r.Kind == catalogue.KindHyphenation })
	if i >= 0 {
		rules[i].Mandatory = true
		return rules
	}
	h := catalogue.Rule{
		ID:          "hyphenation",
		Kind:        catalogue.KindHyphenation,
		Description: "Given-name syllables are joined by a single hyphen (Kim Ji-won).",
		Weight:      2,
		Mandatory:   true,
		PassScore:   100,
		Exempt:      []schema.Tag{schema.TagAnimal, schema.TagStageName},
	}
	return append([]catalogue.Rule{h}, rules...)
}

// inject adds a mandatory step ranked after every existing step.
func inject(steps []schema.VerificationStep, source string) []schema.VerificationStep {
	i := slices.IndexFunc(steps, func(s schema.VerificationStep) bool { return s.SourceID == source })
	if i >= 0 {
		steps[i].Mandatory = true
		return steps
	}
	rank := 0
	for _, s := range steps {
		rank = max(rank, s.Rank)
	}
	return append(steps, schema.VerificationStep{SourceID: source, Rank: rank + 1, Mandatory: true})
}

// Combine pairs the reports of a bidirectional check. The pair passes only
// when both directions pass.
func Combine(forward, reverse schema.ComplianceReport) schema.CombinedReport {
	return schema.CombinedReport{
		Forward: forward,
		Reverse: reverse,
		Passed:  forward.Passed && reverse.Passed,
	}
}
