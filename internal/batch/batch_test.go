package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/termcheck/internal/engine"
	"github.com/dshills/termcheck/internal/metrics"
	"github.com/dshills/termcheck/internal/overlay"
	"github.com/dshills/termcheck/internal/schema"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(nil, engine.WithOverlay(&overlay.Overlay{Now: func() time.Time { return fixedNow }}))
	require.NoError(t, err)
	return e
}

func evidence(ids ...string) []schema.EvidenceItem {
	out := make([]schema.EvidenceItem, len(ids))
	for i, id := range ids {
		out[i] = schema.EvidenceItem{SourceID: id, Position: i + 1}
	}
	return out
}

func koPerson() schema.NameCandidate {
	return schema.NameCandidate{
		SourceText:  "김지원",
		Direction:   schema.KoToEn,
		Category:    schema.CategoryRealPerson,
		Notation:    "Kim Ji-won",
		ConfirmedAt: time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC),
		Evidence:    evidence("teamwork", "terminology_depository", "nikl_romanization", "kofic_kobiz"),
	}
}

type fakeGenerator struct {
	notation, rationale string
	err                 error
}

func (g fakeGenerator) Generate(context.Context, schema.NameCandidate) (string, string, error) {
	return g.notation, g.rationale, g.err
}

// panickingGenerator panics for one source text and echoes a fixed notation
// otherwise.
type panickingGenerator struct {
	panicOn  string
	notation string
}

func (g panickingGenerator) Generate(_ context.Context, c schema.NameCandidate) (string, string, error) {
	if c.SourceText == g.panicOn {
		panic("provider SDK blew up")
	}
	return g.notation, "generated", nil
}

// capturingGenerator records the candidates it is asked about.
type capturingGenerator struct {
	mu   sync.Mutex
	seen []schema.NameCandidate
}

func (g *capturingGenerator) Generate(_ context.Context, c schema.NameCandidate) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = append(g.seen, c)
	return "Kim Ji-won", "generated", nil
}

type fakeSource struct {
	name  string
	items []schema.EvidenceItem
	err   error
}

func (s fakeSource) Name() string { return s.name }

func (s fakeSource) Lookup(context.Context, string) ([]schema.EvidenceItem, error) {
	return s.items, s.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []schema.ComplianceReport
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, rep schema.ComplianceReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return r.err
}

func TestRun_IsolatesFailures(t *testing.T) {
	bad := koPerson()
	bad.SourceText = "   "
	reqs := []Request{
		{ID: "ok", Candidate: koPerson()},
		{ID: "bad", Candidate: bad},
		{Candidate: koPerson()},
	}

	outcomes, summary, err := NewRunner(newEngine(t), WithClock(func() time.Time { return fixedNow })).Run(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "ok", outcomes[0].ID)
	require.NotNil(t, outcomes[0].Report)
	assert.Equal(t, schema.VerdictCompliant, outcomes[0].Report.Verdict)

	assert.Equal(t, "bad", outcomes[1].ID)
	assert.True(t, outcomes[1].Failed())
	assert.True(t, strings.HasPrefix(outcomes[1].FailureMarker(), "evaluation_failed: "))

	assert.Equal(t, "3", outcomes[2].ID)
	assert.False(t, outcomes[2].Failed())

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.KoEnCount)
	assert.Equal(t, 2, summary.KoEnCompliant)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, fixedNow, summary.GeneratedAt)
}

func TestRun_PreservesOrderAtAnyConcurrency(t *testing.T) {
	notations := []string{"Kim Ji-won", "Kim Jiwon", "Kim-Ji won", "Kim Ji-won"}
	reqs := make([]Request, len(notations))
	for i, n := range notations {
		c := koPerson()
		c.Notation = n
		reqs[i] = Request{Candidate: c}
	}

	var want []int
	for _, n := range []int{1, 3, 16} {
		outcomes, _, err := NewRunner(newEngine(t), WithConcurrency(n)).Run(context.Background(), reqs)
		require.NoError(t, err)
		got := make([]int, len(outcomes))
		for i, o := range outcomes {
			require.NotNil(t, o.Report)
			assert.Equal(t, notations[i], o.Report.Notation)
			got[i] = o.Report.OverallScore
		}
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got, "concurrency %d", n)
	}
}

func TestRun_GeneratesMissingNotation(t *testing.T) {
	c := koPerson()
	c.Notation = ""
	gen := fakeGenerator{notation: "Kim Ji-won", rationale: "KOFIC KoBiz spelling"}

	outcomes, _, err := NewRunner(newEngine(t), WithGenerator(gen)).Run(context.Background(), []Request{{Candidate: c, Generate: true}})
	require.NoError(t, err)
	require.NotNil(t, outcomes[0].Report)
	assert.Equal(t, "Kim Ji-won", outcomes[0].Report.Notation)
	require.NotEmpty(t, outcomes[0].Report.RuleResults)
	assert.Contains(t, outcomes[0].Report.RuleResults[0].Rationale, "KOFIC KoBiz spelling")
}

func TestRun_GeneratorSeesTagsAndProject(t *testing.T) {
	c := koPerson()
	c.Notation = ""
	c.Tags = []schema.Tag{schema.TagStageName}
	c.Project = "NF"
	gen := &capturingGenerator{}

	_, _, err := NewRunner(newEngine(t), WithGenerator(gen)).Run(context.Background(), []Request{{Candidate: c, Generate: true}})
	require.NoError(t, err)
	require.Len(t, gen.seen, 1)
	assert.Equal(t, []schema.Tag{schema.TagStageName}, gen.seen[0].Tags)
	assert.Equal(t, "NF", gen.seen[0].Project)
}

func TestRun_PanickingCollaboratorIsIsolated(t *testing.T) {
	reqs := make([]Request, 3)
	for i, src := range []string{"김지원", "김정은", "박지원"} {
		c := koPerson()
		c.SourceText = src
		c.Notation = ""
		reqs[i] = Request{Candidate: c, Generate: true}
	}
	m := metrics.New(nil)
	gen := panickingGenerator{panicOn: "김정은", notation: "Kim Ji-won"}

	outcomes, summary, err := NewRunner(newEngine(t), WithGenerator(gen), WithMetrics(m), WithConcurrency(2)).Run(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.False(t, outcomes[0].Failed())
	assert.False(t, outcomes[2].Failed())
	require.True(t, outcomes[1].Failed())
	assert.Equal(t, "2", outcomes[1].ID)
	assert.Contains(t, outcomes[1].FailureMarker(), "evaluation_failed:")
	assert.Contains(t, outcomes[1].Error, "provider SDK blew up")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("panic")))
}

func TestRun_GeneratorFailures(t *testing.T) {
	c := koPerson()
	c.Notation = ""
	cases := []struct {
		name string
		opts []Option
	}{
		{"no generator", nil},
		{"generator error", []Option{WithGenerator(fakeGenerator{err: errors.New("rate limited")})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New(nil)
			opts := append([]Option{WithMetrics(m)}, tc.opts...)
			outcomes, summary, err := NewRunner(newEngine(t), opts...).Run(context.Background(), []Request{{Candidate: c, Generate: true}})
			require.NoError(t, err)
			assert.True(t, outcomes[0].Failed())
			assert.Contains(t, outcomes[0].Error, ErrGenerator.Error())
			assert.Equal(t, 1, summary.Failed)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("generator")))
		})
	}
}

func TestRun_EvidenceSourceFailureIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := fakeSource{name: "teamwork", err: errors.New("503 Service Unavailable")}

	outcomes, _, err := NewRunner(newEngine(t), WithLogger(logger), WithEvidenceSources(src)).Run(context.Background(), []Request{{Candidate: koPerson()}})
	require.NoError(t, err)
	require.NotNil(t, outcomes[0].Report)
	assert.Equal(t, schema.VerdictCompliant, outcomes[0].Report.Verdict)
	assert.Contains(t, buf.String(), "evidence lookup failed")
	assert.Contains(t, buf.String(), "503 Service Unavailable")
}

func TestRun_PriorNotationFromSourceIsScored(t *testing.T) {
	src := fakeSource{name: "history", items: []schema.EvidenceItem{{SourceID: "history", Payload: "Kim Ji-won"}}}
	c := koPerson()
	c.Notation = "Gim Ji-won"

	outcomes, _, err := NewRunner(newEngine(t), WithEvidenceSources(src)).Run(context.Background(), []Request{{Candidate: c}})
	require.NoError(t, err)
	require.NotNil(t, outcomes[0].Report)

	var found bool
	for _, rr := range outcomes[0].Report.RuleResults {
		if rr.RuleID == "prior-notation" {
			found = true
			assert.False(t, rr.Passed)
		}
	}
	assert.True(t, found, "prior-notation rule not evaluated")
}

func TestGather_ShiftsSuppliedPositions(t *testing.T) {
	src := fakeSource{name: "history", items: []schema.EvidenceItem{
		{SourceID: "history", Payload: "Kim Ji-won", Position: 99},
		{SourceID: "history", Payload: "Kim Jee-won", Position: 7},
	}}
	r := NewRunner(newEngine(t), WithEvidenceSources(src))

	got := r.gather(context.Background(), "김지원", evidence("teamwork", "nikl_romanization"))
	positions := make([]int, len(got))
	for i, ev := range got {
		positions[i] = ev.Position
	}
	assert.Equal(t, []int{1, 2, 3, 4}, positions)
	assert.Equal(t, "teamwork", got[2].SourceID)

	late := []schema.EvidenceItem{{SourceID: "teamwork", Position: 10}}
	got = r.gather(context.Background(), "김지원", late)
	assert.Equal(t, 10, got[2].Position)
}

func TestGather_NoSources(t *testing.T) {
	r := NewRunner(newEngine(t))
	supplied := evidence("teamwork")
	assert.Equal(t, supplied, r.gather(context.Background(), "김지원", supplied))
}

func TestRun_RecordsEveryReport(t *testing.T) {
	rec := &fakeRecorder{}
	rev := schema.NameCandidate{
		Direction: schema.EnToKo,
		Category:  schema.CategoryRealPerson,
		Notation:  "김지원",
		Evidence:  evidence("teamwork", "terminology_depository", "nikl", "youtube"),
	}
	reqs := []Request{
		{Candidate: koPerson()},
		{Candidate: koPerson(), Reverse: &rev},
	}

	outcomes, summary, err := NewRunner(newEngine(t), WithRecorder(rec)).Run(context.Background(), reqs)
	require.NoError(t, err)
	require.NotNil(t, outcomes[1].Combined)
	assert.Equal(t, "Kim Ji-won", outcomes[1].Combined.Reverse.SourceText)
	assert.Len(t, rec.reports, 3)
	assert.Equal(t, 2, summary.KoEnCount)
	assert.Equal(t, 1, summary.EnKoCount)
}

func TestRun_RecorderFailureDoesNotFailOutcome(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database is locked")}
	outcomes, _, err := NewRunner(newEngine(t), WithRecorder(rec)).Run(context.Background(), []Request{{Candidate: koPerson()}})
	require.NoError(t, err)
	assert.False(t, outcomes[0].Failed())
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, summary, err := NewRunner(newEngine(t)).Run(ctx, []Request{{Candidate: koPerson()}, {Candidate: koPerson()}})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Failed())
		assert.Equal(t, context.Canceled.Error(), o.Error)
	}
	assert.Equal(t, 2, summary.Failed)
}

func TestRun_Metrics(t *testing.T) {
	m := metrics.New(nil)
	bad := koPerson()
	bad.SourceText = "!!!"
	_, _, err := NewRunner(newEngine(t), WithMetrics(m)).Run(context.Background(), []Request{{Candidate: koPerson()}, {Candidate: bad}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outcomes.WithLabelValues("COMPLIANT", "KO-EN", "real_person")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("classification")))
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&schema.ClassificationError{Input: "", Reason: "empty input"}, "classification"},
		{fmt.Errorf("engine: %w", &schema.CatalogueLookupError{Direction: "KO-EN", Category: "x"}), "catalogue"},
		{&schema.MalformedEvidenceError{SourceID: "teamwork", Position: 1, Reason: "x"}, "malformed_evidence"},
		{fmt.Errorf("%w: boom", ErrGenerator), "generator"},
		{fmt.Errorf("%w: boom", ErrPanic), "panic"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "other"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FailureKind(c.err), "FailureKind(%v)", c.err)
	}
}

func TestSummarize(t *testing.T) {
	passed := schema.ComplianceReport{Direction: schema.EnToKo, Passed: true}
	review := schema.ComplianceReport{Direction: schema.EnToKo, NeedsExpertValidation: true}
	ko := schema.ComplianceReport{Direction: schema.KoToEn, Passed: true}
	outcomes := []schema.Outcome{
		{Report: &passed},
		{Report: &review},
		{Combined: &schema.CombinedReport{Forward: ko, Reverse: passed}},
		{Error: "empty input"},
	}

	s := Summarize(outcomes, "run-1", fixedNow)
	assert.Equal(t, schema.Summary{
		RunID:         "run-1",
		Total:         4,
		Failed:        1,
		KoEnCount:     1,
		KoEnCompliant: 1,
		EnKoCount:     3,
		EnKoCompliant: 2,
		ExpertReviews: 1,
		GeneratedAt:   fixedNow,
	}, s)
}
