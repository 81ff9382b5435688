// Package verdict provides deterministic local logic for combining rule and
// process scores into an overall score and verdict. No I/O happens here.
package verdict

import (
	"fmt"
	"strings"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/schema"
)

// Input is everything the aggregator needs for one evaluation pass.
type Input struct {
	Direction         schema.Direction
	Category          schema.Category
	Results           []schema.RuleResult
	Process           schema.ProcessAuditResult
	Policy            catalogue.Policy
	PhoneticianReview bool
	InjectedSteps     []string
}

// Outcome is the aggregated judgement of one pass.
type Outcome struct {
	RuleScore             int
	OverallScore          int
	Verdict               schema.Verdict
	Passed                bool
	NeedsExpertValidation bool
	Recommendation        string
}

// Aggregate computes the scores, flags, verdict and recommendation for in.
// The result depends only on in.
func Aggregate(in Input) Outcome {
	failed := FailedMandatory(in.Results)
	ruleScore := RuleScore(in.Results, len(failed) > 0, in.Policy.MandatoryFailCap)
	overall := OverallScore(in.Category, ruleScore, in.Process.Score, len(failed) > 0, in.Policy)
	expert := NeedsExpertValidation(in.Category, overall, in.Policy)

	v := DetermineVerdict(in, overall, expert)
	out := Outcome{
		RuleScore:             ruleScore,
		OverallScore:          overall,
		Verdict:               v,
		Passed:                v != schema.VerdictNonCompliant,
		NeedsExpertValidation: expert,
	}
	out.Recommendation = Recommend(in, out)
	return out
}

// RuleScore is the weighted mean of rule scores rounded down, or 100 when no
// rule applied. A failed mandatory rule caps it at failCap.
func RuleScore(results []schema.RuleResult, mandatoryFailed bool, failCap int) int {
	if len(results) == 0 {
		return 100
	}
	sum, weights := 0, 0
	for _, r := range results {
		w := max(r.Weight, 1)
		sum += r.Score * w
		weights += w
	}
	score := sum / weights
	if mandatoryFailed {
		score = min(score, failCap)
	}
	return clamp(score)
}

// OverallScore combines the rule and process scores. Real persons take the
// lower of the two; other names blend them by Policy.RuleShare. A failed
// mandatory rule caps the result at Policy.MandatoryFailCap.
func OverallScore(cat schema.Category, ruleScore, processScore int, mandatoryFailed bool, p catalogue.Policy) int {
	var score int
	if cat == schema.CategoryRealPerson {
		score = min(ruleScore, processScore)
	} else {
		score = (ruleScore*p.RuleShare + processScore*(100-p.RuleShare)) / 100
	}
	if mandatoryFailed {
		score = min(score, p.MandatoryFailCap)
	}
	return clamp(score)
}

// NeedsExpertValidation reports whether overall is below the expert floor of
// the category.
func NeedsExpertValidation(cat schema.Category, overall int, p catalogue.Policy) bool {
	floor := p.ExpertFloorFor(cat)
	return floor > 0 && overall < floor
}

// FailedMandatory returns the ids of mandatory rules that did not pass.
func FailedMandatory(results []schema.RuleResult) []schema.RuleID {
	var out []schema.RuleID
	for _, r := range results {
		if r.Mandatory && !r.Passed {
			out = append(out, r.RuleID)
		}
	}
	return out
}

// VerdictOrdinal returns the numeric ordinal for a verdict, used to compare
// severity order. COMPLIANT=0, NEEDS_REVIEW=1, NON_COMPLIANT=2.
// Used by --fail-on comparison: exit 2 if VerdictOrdinal(actual) >= VerdictOrdinal(threshold).
func VerdictOrdinal(v schema.Verdict) int {
	switch v {
	case schema.VerdictCompliant:
		return 0
	case schema.VerdictNeedsReview:
		return 1
	case schema.VerdictNonCompliant:
		return 2
	default:
		return -1
	}
}

// ParseVerdict converts a string to a Verdict constant.
func ParseVerdict(s string) (schema.Verdict, error) {
	v := schema.Verdict(strings.ToUpper(strings.TrimSpace(s)))
	if VerdictOrdinal(v) < 0 {
		return "", fmt.Errorf("verdict: unknown verdict %q (want COMPLIANT, NEEDS_REVIEW or NON_COMPLIANT)", s)
	}
	return v, nil
}

// DetermineVerdict applies the verdict rules.
//
// Rules (in order of precedence):
//  1. Any failed mandatory rule → NON_COMPLIANT
//  2. Overall score below the category pass score → NON_COMPLIANT
//  3. Expert validation or phonetician review required → NEEDS_REVIEW
//  4. Any ordering violation, missing mandatory source or failed rule → NEEDS_REVIEW
//  5. Otherwise → COMPLIANT
func DetermineVerdict(in Input, overall int, expert bool) schema.Verdict {
	// Rule 1: failed mandatory rule.
	if len(FailedMandatory(in.Results)) > 0 {
		return schema.VerdictNonCompliant
	}

	// Rule 2: below pass score.
	if overall < in.Policy.PassScoreFor(in.Category) {
		return schema.VerdictNonCompliant
	}

	// Rule 3: human sign-off pending.
	if expert || in.PhoneticianReview {
		return schema.VerdictNeedsReview
	}

	// Rule 4: process or optional-rule findings.
	if len(in.Process.OrderingViolations) > 0 || len(in.Process.MissingMandatory) > 0 {
		return schema.VerdictNeedsReview
	}
	for _, r := range in.Results {
		if !r.Passed {
			return schema.VerdictNeedsReview
		}
	}

	// Rule 5: all clear.
	return schema.VerdictCompliant
}

func clamp(score int) int {
	return max(0, min(100, score))
}
