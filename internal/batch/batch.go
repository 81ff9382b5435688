// Package batch evaluates many name candidates in parallel. Each name is
// evaluated independently: a failure is captured in its Outcome and never
// aborts the rest of the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/termcheck/internal/engine"
	"github.com/dshills/termcheck/internal/metrics"
	"github.com/dshills/termcheck/internal/schema"
)

// DefaultConcurrency bounds parallel evaluations when no option overrides it.
const DefaultConcurrency = 4

// ErrGenerator marks failures of the candidate generator.
var ErrGenerator = errors.New("candidate generation failed")

// ErrPanic marks an evaluation that panicked.
var ErrPanic = errors.New("evaluation panicked")

// Generator proposes a notation for a candidate's source name. The candidate
// carries the tags and project the proposal must respect.
type Generator interface {
	Generate(ctx context.Context, c schema.NameCandidate) (notation, rationale string, err error)
}

// EvidenceSource returns evidence already on record for a source name.
type EvidenceSource interface {
	Name() string
	Lookup(ctx context.Context, source string) ([]schema.EvidenceItem, error)
}

// Recorder persists completed reports.
type Recorder interface {
	Record(ctx context.Context, report schema.ComplianceReport) error
}

// Request is one entry of a batch.
type Request struct {
	ID        string
	Candidate schema.NameCandidate
	// Reverse, when set, requests a bidirectional check. An empty source
	// text is filled with the forward notation.
	Reverse *schema.NameCandidate
	// Generate asks the generator for a notation when the candidate has none.
	Generate bool
}

// Runner evaluates batches against one Engine.
type Runner struct {
	engine      *engine.Engine
	concurrency int
	generator   Generator
	sources     []EvidenceSource
	recorder    Recorder
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the number of names evaluated at once. Values below 1
// are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithGenerator sets the candidate generator.
func WithGenerator(g Generator) Option {
	return func(r *Runner) { r.generator = g }
}

// WithEvidenceSources adds sources consulted before each evaluation.
func WithEvidenceSources(s ...EvidenceSource) Option {
	return func(r *Runner) { r.sources = append(r.sources, s...) }
}

// WithRecorder sets the sink for completed reports.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTracer replaces the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithClock pins the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner returns a Runner evaluating with e.
func NewRunner(e *engine.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:      e,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		tracer:      otel.Tracer("github.com/dshills/termcheck/internal/batch"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates reqs and returns one Outcome per request in input order. When
// ctx is cancelled no further names are started; their outcomes carry the
// context error and Run returns it alongside the partial results.
func (r *Runner) Run(ctx context.Context, reqs []Request) ([]schema.Outcome, schema.Summary, error) {
	runID := uuid.NewString()
	log := r.logger.With("run_id", runID)
	log.InfoContext(ctx, "batch started", "names", len(reqs), "concurrency", r.concurrency)

	outcomes := make([]schema.Outcome, len(reqs))
	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(reqs); j++ {
				outcomes[j] = r.failed(reqs[j], j, err)
			}
			break
		}
		g.Go(func() error {
			outcomes[i] = r.evaluate(ctx, log, req, i)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summarize(outcomes, runID, r.now())
	log.InfoContext(ctx, "batch finished",
		"total", summary.Total,
		"failed", summary.Failed,
		"ko_en_compliant", summary.KoEnCompliant,
		"en_ko_compliant", summary.EnKoCompliant,
	)
	return outcomes, summary, ctx.Err()
}

func (r *Runner) evaluate(ctx context.Context, log *slog.Logger, req Request, i int) (out schema.Outcome) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "termcheck.evaluate", trace.WithAttributes(
		attribute.String("name.source", req.Candidate.SourceText),
		attribute.String("name.direction", string(req.Candidate.Direction)),
		attribute.String("name.category", string(req.Candidate.Category)),
	))
	defer span.End()

	// A panicking collaborator fails this name only.
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		err := fmt.Errorf("%w: %v", ErrPanic, p)
		out = r.failed(req, i, err)
		r.metrics.IncrementFailure(FailureKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, FailureKind(err))
		log.ErrorContext(ctx, "evaluation panicked",
			"id", out.ID,
			"source", req.Candidate.SourceText,
			"panic", p,
			"stack", string(debug.Stack()),
		)
	}()

	out, err := r.evaluateOne(ctx, req, i)
	r.metrics.ObserveEvaluateLatency(time.Since(start))
	if err != nil {
		kind := FailureKind(err)
		r.metrics.IncrementFailure(kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		log.WarnContext(ctx, "evaluation failed",
			"id", out.ID,
			"source", req.Candidate.SourceText,
			"kind", kind,
			"error", err,
		)
		return out
	}

	for _, rep := range out.Reports() {
		r.metrics.ObserveReport(rep)
		r.record(ctx, log, rep)
	}
	if rep := out.Reports(); len(rep) > 0 {
		span.SetAttributes(
			attribute.String("report.verdict", string(rep[0].Verdict)),
			attribute.Int("report.overall_score", rep[0].OverallScore),
		)
	}
	log.DebugContext(ctx, "evaluation finished", "id", out.ID, "source", req.Candidate.SourceText)
	return out
}

// evaluateOne returns the outcome for req. On error the outcome is already
// marked failed.
func (r *Runner) evaluateOne(ctx context.Context, req Request, i int) (schema.Outcome, error) {
	c := req.Candidate
	if req.Generate && c.Notation == "" {
		if err := r.generate(ctx, &c); err != nil {
			return r.failed(req, i, err), err
		}
	}
	c.Evidence = r.gather(ctx, c.SourceText, c.Evidence)

	out := schema.Outcome{ID: outcomeID(req, i), Input: c.SourceText, EvaluatedAt: r.now().UTC()}
	if req.Reverse == nil {
		rep, err := r.engine.Evaluate(c)
		if err != nil {
			return r.failed(req, i, err), err
		}
		out.Report = &rep
		return out, nil
	}

	rev := *req.Reverse
	if rev.SourceText == "" {
		rev.SourceText = c.Notation
	}
	rev.Evidence = r.gather(ctx, rev.SourceText, rev.Evidence)
	comb, err := r.engine.EvaluateBidirectional(c, rev)
	if err != nil {
		return r.failed(req, i, err), err
	}
	out.Combined = &comb
	return out, nil
}

func (r *Runner) generate(ctx context.Context, c *schema.NameCandidate) error {
	if r.generator == nil {
		return fmt.Errorf("%w: no generator configured", ErrGenerator)
	}
	start := time.Now()
	notation, rationale, err := r.generator.Generate(ctx, *c)
	r.metrics.ObserveCollaboratorLatency("generator", time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGenerator, err)
	}
	c.Notation = notation
	c.GeneratorRationale = rationale
	return nil
}

// gather prepends evidence from the configured sources to supplied. Supplied
// positions are shifted past the gathered items so the sequence stays
// strictly increasing. Source failures are logged and skipped.
func (r *Runner) gather(ctx context.Context, source string, supplied []schema.EvidenceItem) []schema.EvidenceItem {
	if len(r.sources) == 0 {
		return supplied
	}
	var found []schema.EvidenceItem
	for _, s := range r.sources {
		start := time.Now()
		items, err := s.Lookup(ctx, source)
		r.metrics.ObserveCollaboratorLatency(s.Name(), time.Since(start))
		if err != nil {
			r.logger.WarnContext(ctx, "evidence lookup failed", "source", s.Name(), "name", source, "error", err)
			continue
		}
		found = append(found, items...)
	}
	if len(found) == 0 {
		return supplied
	}

	merged := make([]schema.EvidenceItem, 0, len(found)+len(supplied))
	for i, item := range found {
		item.Position = i + 1
		merged = append(merged, item)
	}
	offset := 0
	if len(supplied) > 0 && supplied[0].Position <= len(found) {
		offset = len(found) + 1 - supplied[0].Position
	}
	for _, item := range supplied {
		item.Position += offset
		merged = append(merged, item)
	}
	return merged
}

func (r *Runner) record(ctx context.Context, log *slog.Logger, rep schema.ComplianceReport) {
	if r.recorder == nil {
		return
	}
	start := time.Now()
	err := r.recorder.Record(ctx, rep)
	r.metrics.ObserveCollaboratorLatency("history", time.Since(start))
	if err != nil {
		log.WarnContext(ctx, "recording report failed", "source", rep.SourceText, "error", err)
	}
}

func (r *Runner) failed(req Request, i int, err error) schema.Outcome {
	return schema.Outcome{
		ID:          outcomeID(req, i),
		Input:       req.Candidate.SourceText,
		Error:       err.Error(),
		EvaluatedAt: r.now().UTC(),
	}
}

func outcomeID(req Request, i int) string {
	if req.ID != "" {
		return req.ID
	}
	return strconv.Itoa(i + 1)
}

// FailureKind labels err for metrics and logs.
func FailureKind(err error) string {
	var (
		classErr *schema.ClassificationError
		catErr   *schema.CatalogueLookupError
		evErr    *schema.MalformedEvidenceError
	)
	switch {
	case errors.As(err, &classErr):
		return "classification"
	case errors.As(err, &catErr):
		return "catalogue"
	case errors.As(err, &evErr):
		return "malformed_evidence"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, ErrGenerator):
		return "generator"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}

// Summarize counts outcomes. A report is compliant when it passed.
func Summarize(outcomes []schema.Outcome, runID string, now time.Time) schema.Summary {
	s := schema.Summary{RunID: runID, Total: len(outcomes), GeneratedAt: now.UTC()}
	for _, o := range outcomes {
		if o.Failed() {
			s.Failed++
			continue
		}
		for _, rep := range o.Reports() {
			switch rep.Direction {
			case schema.KoToEn:
				s.KoEnCount++
				if rep.Passed {
					s.KoEnCompliant++
				}
			case schema.EnToKo:
				s.EnKoCount++
				if rep.Passed {
					s.EnKoCompliant++
				}
			}
			if rep.NeedsExpertValidation {
				s.ExpertReviews++
			}
		}
	}
	return s
}
