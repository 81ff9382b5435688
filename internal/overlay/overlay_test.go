package overlay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func plan(t *testing.T, dir schema.Direction, cat schema.Category) catalogue.Plan {
	t.Helper()
	p, err := catalogue.Default().Lookup(dir, cat)
	require.NoError(t, err)
	return p
}

func TestApply_OtherUnchanged(t *testing.T) {
	o := &Overlay{Now: fixedNow}
	p := plan(t, schema.KoToEn, schema.CategoryOther)
	c := schema.NameCandidate{SourceText: "서울", Direction: schema.KoToEn, Category: schema.CategoryOther}
	adj := o.Apply(c, p)
	assert.Equal(t, p, adj.Plan)
	assert.False(t, adj.PhoneticianReview)
	assert.Empty(t, adj.InjectedSteps)
	assert.Empty(t, adj.Decisions)
}

func TestApply_ConfirmationBranches(t *testing.T) {
	o := &Overlay{Now: fixedNow}
	cases := []struct {
		name      string
		project   string
		confirmed time.Time
		want      []string
	}{
		{"nf after cutoff", "NF", time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), []string{catalogue.SourceKyonshik}},
		{"netflix after cutoff", "netflix", time.Date(2020, 8, 12, 0, 0, 0, 0, time.UTC), []string{catalogue.SourceKyonshik}},
		{"non-nf after cutoff", "tving", time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), []string{catalogue.SourceHazel}},
		{"on cutoff day", "NF", time.Date(2020, 8, 11, 23, 59, 0, 0, time.UTC), nil},
		{"before cutoff", "", time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), nil},
		{"unconfirmed uses now", "", time.Time{}, []string{catalogue.SourceHazel}},
	}
	for _, tc := range cases {
		c := schema.NameCandidate{
			SourceText:  "김지원",
			Direction:   schema.KoToEn,
			Category:    schema.CategoryRealPerson,
			Project:     tc.project,
			ConfirmedAt: tc.confirmed,
		}
		adj := o.Apply(c, plan(t, schema.KoToEn, schema.CategoryRealPerson))
		assert.Equal(t, tc.want, adj.InjectedSteps, tc.name)
	}
}

func TestApply_InjectedStepRankedLastAndMandatory(t *testing.T) {
	o := &Overlay{Now: fixedNow}
	p := plan(t, schema.EnToKo, schema.CategoryRealPerson)
	c := schema.NameCandidate{SourceText: "Tom Holland", Direction: schema.EnToKo, Category: schema.CategoryRealPerson, Project: "nf"}
	adj := o.Apply(c, p)

	require.Len(t, adj.Plan.Steps, len(p.Steps)+1)
	last := adj.Plan.Steps[len(adj.Plan.Steps)-1]
	assert.Equal(t, catalogue.SourceKyonshik, last.SourceID)
	assert.True(t, last.Mandatory)
	for _, s := range p.Steps {
		assert.Less(t, s.Rank, last.Rank)
	}
	// The input plan is untouched.
	assert.Len(t, p.Steps, len(adj.Plan.Steps)-1)
}

func TestApply_PhoneticianAlwaysForEnKoRealPerson(t *testing.T) {
	o := &Overlay{Now: fixedNow}
	c := schema.NameCandidate{
		SourceText:  "Tom Holland",
		Direction:   schema.EnToKo,
		Category:    schema.CategoryRealPerson,
		ConfirmedAt: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	adj := o.Apply(c, plan(t, schema.EnToKo, schema.CategoryRealPerson))
	assert.True(t, adj.PhoneticianReview)
	assert.Contains(t, adj.Decisions, "en-ko-phonetician-review")

	c.Direction = schema.KoToEn
	adj = o.Apply(c, plan(t, schema.KoToEn, schema.CategoryRealPerson))
	assert.False(t, adj.PhoneticianReview)
}

func TestApply_ForcesMandatoryHyphenation(t *testing.T) {
	o := &Overlay{Now: fixedNow}
	c := schema.NameCandidate{SourceText: "김지원", Direction: schema.KoToEn, Category: schema.CategoryRealPerson}

	// Even a catalogue that relaxed the rule gets it back as mandatory.
	relaxed, err := catalogue.Default().Apply(catalogue.Overrides{Rules: []catalogue.RuleOverride{
		{Direction: "KO-EN", Category: "real_person", ID: "hyphenation", Mandatory: new(bool)},
	}})
	require.NoError(t, err)
	p, err := relaxed.Lookup(schema.KoToEn, schema.CategoryRealPerson)
	require.NoError(t, err)
	h, _ := p.Rule("hyphenation")
	require.False(t, h.Mandatory)

	adj := o.Apply(c, p)
	h, ok := adj.Plan.Rule("hyphenation")
	require.True(t, ok)
	assert.True(t, h.Mandatory)

	// A plan without the rule gets one prepended.
	p.Rules = p.Rules[1:]
	adj = o.Apply(c, p)
	require.NotEmpty(t, adj.Plan.Rules)
	assert.Equal(t, catalogue.KindHyphenation, adj.Plan.Rules[0].Kind)
	assert.True(t, adj.Plan.Rules[0].Mandatory)
}

func TestApply_ExistingStepMadeMandatory(t *testing.T) {
	steps := []schema.VerificationStep{{SourceID: catalogue.SourceHazel, Rank: 2}}
	out := inject(steps, catalogue.SourceHazel)
	require.Len(t, out, 1)
	assert.True(t, out[0].Mandatory)
	assert.Equal(t, 2, out[0].Rank)
}

func TestCombine(t *testing.T) {
	ok := schema.ComplianceReport{Passed: true}
	bad := schema.ComplianceReport{Passed: false}
	assert.True(t, Combine(ok, ok).Passed)
	assert.False(t, Combine(ok, bad).Passed)
	assert.False(t, Combine(bad, ok).Passed)
	assert.False(t, Combine(bad, bad).Passed)
}
