// Package engine wires the classifier, catalogue, rule evaluator, process
// auditor, real-person overlay and aggregator into one evaluation call. An
// Engine holds only read-only state and may be shared between goroutines.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/dshills/termcheck/internal/audit"
	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/overlay"
	"github.com/dshills/termcheck/internal/rules"
	"github.com/dshills/termcheck/internal/schema"
	"github.com/dshills/termcheck/internal/verdict"
)

// Engine evaluates name candidates.
type Engine struct {
	catalogue *catalogue.Catalogue
	policy    catalogue.Policy
	evaluator *rules.Evaluator
	overlay   *overlay.Overlay
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy replaces the default scoring policy.
func WithPolicy(p catalogue.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger used for ignored evidence.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithOverlay replaces the real-person overlay, mainly to pin its clock.
func WithOverlay(o *overlay.Overlay) Option {
	return func(e *Engine) {
		if o != nil {
			e.overlay = o
		}
	}
}

// New returns an Engine over cat. A nil cat uses the built-in catalogue.
func New(cat *catalogue.Catalogue, opts ...Option) (*Engine, error) {
	if cat == nil {
		cat = catalogue.Default()
	}
	e := &Engine{
		catalogue: cat,
		policy:    catalogue.DefaultPolicy(),
		overlay:   overlay.New(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.policy.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.evaluator = rules.NewEvaluator(cat.Romanization())
	return e, nil
}

// Catalogue returns the catalogue the engine scores against.
func (e *Engine) Catalogue() *catalogue.Catalogue { return e.catalogue }

// Policy returns the scoring policy.
func (e *Engine) Policy() catalogue.Policy { return e.policy }

// Classify detects the script and category of text.
func (e *Engine) Classify(text string) (classify.Result, error) {
	return classify.Classify(text)
}

// Evaluate runs one evaluation pass over c. Errors are fatal for c only:
// *schema.ClassificationError, *schema.CatalogueLookupError or
// *schema.MalformedEvidenceError for non-increasing positions.
func (e *Engine) Evaluate(c schema.NameCandidate) (schema.ComplianceReport, error) {
	c, err := schema.NewNameCandidate(c)
	if err != nil {
		return schema.ComplianceReport{}, err
	}
	cls, err := classify.Classify(c.SourceText)
	if err != nil {
		return schema.ComplianceReport{}, err
	}
	plan, err := e.catalogue.Lookup(c.Direction, c.Category)
	if err != nil {
		return schema.ComplianceReport{}, err
	}

	adj := e.overlay.Apply(c, plan)

	results, err := e.evaluator.Evaluate(c, adj.Plan.Rules)
	if err != nil {
		return schema.ComplianceReport{}, fmt.Errorf("engine: %w", err)
	}

	process := audit.Audit(c.Evidence, adj.Plan.Steps, audit.PenaltiesFrom(e.policy), e.catalogue.KnownSource)
	if len(process.UnknownSources) > 0 {
		e.logUnknown(c)
	}

	out := verdict.Aggregate(verdict.Input{
		Direction:         c.Direction,
		Category:          c.Category,
		Results:           results,
		Process:           process,
		Policy:            e.policy,
		PhoneticianReview: adj.PhoneticianReview,
		InjectedSteps:     adj.InjectedSteps,
	})

	return schema.ComplianceReport{
		SourceText:             c.SourceText,
		Notation:               c.Notation,
		Direction:              c.Direction,
		Category:               c.Category,
		Script:                 cls.Script,
		OverallScore:           out.OverallScore,
		RuleScore:              out.RuleScore,
		RuleResults:            results,
		Process:                process,
		Verdict:                out.Verdict,
		Passed:                 out.Passed,
		NeedsExpertValidation:  out.NeedsExpertValidation,
		NeedsPhoneticianReview: adj.PhoneticianReview,
		InjectedSteps:          adj.InjectedSteps,
		Recommendation:         out.Recommendation,
	}, nil
}

// EvaluateBidirectional runs forward and reverse as two passes and combines
// them. reverse must run in the opposite direction of forward.
func (e *Engine) EvaluateBidirectional(forward, reverse schema.NameCandidate) (schema.CombinedReport, error) {
	if reverse.Direction != forward.Direction.Reverse() {
		return schema.CombinedReport{}, fmt.Errorf("engine: reverse pass direction %q does not reverse %q", reverse.Direction, forward.Direction)
	}
	fwd, err := e.Evaluate(forward)
	if err != nil {
		return schema.CombinedReport{}, fmt.Errorf("engine: forward pass: %w", err)
	}
	rev, err := e.Evaluate(reverse)
	if err != nil {
		return schema.CombinedReport{}, fmt.Errorf("engine: reverse pass: %w", err)
	}
	return overlay.Combine(fwd, rev), nil
}

func (e *Engine) logUnknown(c schema.NameCandidate) {
	for _, ev := range c.Evidence {
		if e.catalogue.KnownSource(ev.SourceID) {
			continue
		}
		err := &schema.MalformedEvidenceError{SourceID: ev.SourceID, Position: ev.Position, Reason: "unknown source; ignored"}
		e.logger.Warn("ignoring evidence",
			"source_text", c.SourceText,
			"direction", string(c.Direction),
			"error", err.Error(),
		)
	}
}
