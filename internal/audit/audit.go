// Package audit checks whether the recorded evidence consulted the required
// verification sources in priority order. The audit is a fold over a closed
// evidence list; it never waits for more evidence and never reorders it.
package audit

import (
	"slices"
	"sort"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// Penalties are the per-finding deductions from a perfect process score.
type Penalties struct {
	Ordering         int
	MissingMandatory int
}

// DefaultPenalties returns the built-in deductions.
func DefaultPenalties() Penalties {
	return Penalties{
		Ordering:         catalogue.DefaultOrderingPenalty,
		MissingMandatory: catalogue.DefaultMissingMandatoryPenalty,
	}
}

// PenaltiesFrom extracts the deductions of a policy.
func PenaltiesFrom(p catalogue.Policy) Penalties {
	return Penalties{Ordering: p.OrderingPenalty, MissingMandatory: p.MissingMandatoryPenalty}
}

// Audit matches each step, by rank, to the first evidence item citing its
// source. A matched step is an ordering violation when a step of strictly
// higher rank was matched at an earlier position. Mandatory steps without
// evidence are missing. Evidence citing sources unknown to known is skipped
// and reported in UnknownSources; a nil known accepts everything.
func Audit(evidence []schema.EvidenceItem, steps []schema.VerificationStep, pen Penalties, known func(string) bool) schema.ProcessAuditResult {
	res := schema.ProcessAuditResult{
		OrderingViolations: []schema.OrderingViolation{},
		MissingMandatory:   []string{},
		Steps:              make([]schema.StepOutcome, 0, len(steps)),
	}

	first := make(map[string]int, len(evidence))
	for _, ev := range evidence {
		if known != nil && !known(ev.SourceID) {
			if !slices.Contains(res.UnknownSources, ev.SourceID) {
				res.UnknownSources = append(res.UnknownSources, ev.SourceID)
			}
			continue
		}
		if _, seen := first[ev.SourceID]; !seen {
			first[ev.SourceID] = ev.Position
		}
	}

	ranked := slices.Clone(steps)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })
	for _, st := range ranked {
		pos, found := first[st.SourceID]
		res.Steps = append(res.Steps, schema.StepOutcome{
			SourceID:  st.SourceID,
			Rank:      st.Rank,
			Mandatory: st.Mandatory,
			Found:     found,
			Position:  pos,
		})
		if !found && st.Mandatory {
			res.MissingMandatory = append(res.MissingMandatory, st.SourceID)
		}
	}

	res.OrderingViolations = violations(res.Steps)

	score := 100 - pen.Ordering*len(res.OrderingViolations) - pen.MissingMandatory*len(res.MissingMandatory)
	res.Score = max(0, min(100, score))
	return res
}

// violations scans outcomes (sorted by rank) from the lowest priority up,
// tracking the earliest position seen among strictly higher ranks.
func violations(outcomes []schema.StepOutcome) []schema.OrderingViolation {
	var found []schema.OrderingViolation
	earliest, seen := 0, false
	for i := len(outcomes) - 1; i >= 0; {
		j := i
		for j >= 0 && outcomes[j].Rank == outcomes[i].Rank {
			j--
		}
		group := outcomes[j+1 : i+1]
		for _, o := range group {
			if o.Found && seen && o.Position > earliest {
				found = append(found, schema.OrderingViolation{
					ExpectedRank:   o.Rank,
					ActualPosition: o.Position,
					SourceID:       o.SourceID,
				})
			}
		}
		for _, o := range group {
			if o.Found && (!seen || o.Position < earliest) {
				earliest, seen = o.Position, true
			}
		}
		i = j
	}
	slices.Reverse(found)
	out := make([]schema.OrderingViolation, 0, len(found))
	return append(out, found...)
}
