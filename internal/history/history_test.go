package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/termcheck/internal/schema"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// clock returns a now func that advances one second per call.
func clock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func report(source, notation string, passed bool) schema.ComplianceReport {
	v := schema.VerdictCompliant
	score := 100
	if !passed {
		v = schema.VerdictNonCompliant
		score = 40
	}
	return schema.ComplianceReport{
		SourceText:   source,
		Notation:     notation,
		Direction:    schema.KoToEn,
		Category:     schema.CategoryRealPerson,
		OverallScore: score,
		Verdict:      v,
		Passed:       passed,
		RuleResults:  []schema.RuleResult{{RuleID: "hyphenation", Score: score, Passed: passed}},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := tempStore(t)
	s.now = clock()
	ctx := context.Background()

	rec, err := s.Save(ctx, report("김지원", "Kim Ji-won", true))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.SourceText, got.SourceText)
	assert.Equal(t, schema.KoToEn, got.Direction)
	assert.Equal(t, schema.VerdictCompliant, got.Verdict)
	assert.True(t, got.Passed)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.Report, got.Report)
}

func TestGet_Missing(t *testing.T) {
	_, err := tempStore(t).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestLookup_ReturnsPassedNotationsNewestFirst(t *testing.T) {
	s := tempStore(t)
	s.now = clock()
	ctx := context.Background()

	for _, r := range []schema.ComplianceReport{
		report("김지원", "Kim Ji-won", true),
		report("김지원", "Kim Jiwon", false),
		report("김지원", "Gim Ji-won", true),
		report("김지원", "Kim Ji-won", true),
		report("박서준", "Park Seo-jun", true),
	} {
		require.NoError(t, s.Record(ctx, r))
	}

	items, err := s.Lookup(ctx, "김지원")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, schema.EvidenceItem{SourceID: "history", Position: 1, Payload: "Kim Ji-won"}, items[0])
	assert.Equal(t, schema.EvidenceItem{SourceID: "history", Position: 2, Payload: "Gim Ji-won"}, items[1])
}

func TestLookup_Unknown(t *testing.T) {
	items, err := tempStore(t).Lookup(context.Background(), "이순신")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecent(t *testing.T) {
	s := tempStore(t)
	s.now = clock()
	ctx := context.Background()
	for _, n := range []string{"Kim Ji-won", "Kim Jiwon", "Gim Ji-won"} {
		require.NoError(t, s.Record(ctx, report("김지원", n, true)))
	}

	recs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Gim Ji-won", recs[0].Notation)
	assert.Equal(t, "Kim Jiwon", recs[1].Notation)

	none, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecord_Concurrent(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Record(ctx, report("김지원", "Kim Ji-won", true)))
		}()
	}
	wg.Wait()

	recs, err := s.Recent(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, recs, 8)
}

func TestName(t *testing.T) {
	assert.Equal(t, "history", tempStore(t).Name())
}
