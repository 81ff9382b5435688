package verdict

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// Recommend builds the recommendation text for an aggregated pass, one
// recommendation per line.
func Recommend(in Input, out Outcome) string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	var failed []string
	for _, r := range in.Results {
		if !r.Passed {
			failed = append(failed, string(r.RuleID))
		}
	}
	if len(failed) > 0 {
		add("Revise the notation to satisfy: %s.", strings.Join(failed, ", "))
	}
	if len(in.Process.MissingMandatory) > 0 {
		add("Consult the mandatory sources not on record: %s.", strings.Join(in.Process.MissingMandatory, ", "))
	}
	if len(in.Process.OrderingViolations) > 0 {
		late := make([]string, len(in.Process.OrderingViolations))
		for i, v := range in.Process.OrderingViolations {
			late[i] = v.SourceID
		}
		add("Repeat verification in priority order; consulted after lower-priority sources: %s.", strings.Join(late, ", "))
	}
	if len(in.Process.UnknownSources) > 0 {
		add("Evidence from unrecognized sources was ignored: %s.", strings.Join(in.Process.UnknownSources, ", "))
	}

	if in.Category == schema.CategoryRealPerson {
		switch in.Direction {
		case schema.KoToEn:
			add("For real person names, hyphenation is mandatory between given-name syllables.")
			add("Verify with multiple official sources including NIKL standards.")
		case schema.EnToKo:
			add("Record 'HZ Original Notation' in the Korean target of the termbase.")
		}
	}
	if in.PhoneticianReview {
		add("Have a phonetician review the Korean notation.")
	}
	if slices.Contains(in.InjectedSteps, catalogue.SourceKyonshik) {
		add("Confirm the notation through Kyonshik (NF project, first confirmed after 08/11/2020).")
	}
	if slices.Contains(in.InjectedSteps, catalogue.SourceHazel) {
		add("Confirm the notation through Hazel (non-NF project, first confirmed after 08/11/2020).")
	}
	if out.NeedsExpertValidation {
		add("Overall score %d is below %d: request expert validation before use.", out.OverallScore, in.Policy.ExpertFloorFor(in.Category))
	}
	if out.Verdict == schema.VerdictCompliant {
		add("The notation complies with the manual; record it in the termbase.")
	}
	return strings.Join(lines, "\n")
}
