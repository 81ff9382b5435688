package catalogue

import (
	"errors"
	"fmt"

	"github.com/dshills/termcheck/internal/schema"
)

// Default policy values.
const (
	DefaultOrderingPenalty         = 10
	DefaultMissingMandatoryPenalty = 25
	DefaultRuleShare               = 70
	DefaultMandatoryFailCap        = 50
	DefaultPassScore               = 80
	DefaultRealPersonPassScore     = 95
	DefaultExpertFloor             = 95
)

// Policy holds the scoring constants used by the auditor and aggregator.
type Policy struct {
	OrderingPenalty         int `yaml:"ordering_penalty" json:"ordering_penalty"`
	MissingMandatoryPenalty int `yaml:"missing_mandatory_penalty" json:"missing_mandatory_penalty"`
	// RuleShare is the percentage weight of the rule aggregate in the
	// overall score of non-real-person reports. The process score takes
	// the rest.
	RuleShare           int `yaml:"rule_share" json:"rule_share"`
	MandatoryFailCap    int `yaml:"mandatory_fail_cap" json:"mandatory_fail_cap"`
	PassScore           int `yaml:"pass_score" json:"pass_score"`
	RealPersonPassScore int `yaml:"real_person_pass_score" json:"real_person_pass_score"`
	// ExpertFloor is the real-person score below which expert validation is
	// required. The manual fixes it at 95; Validate rejects other values.
	ExpertFloor int `yaml:"expert_floor" json:"expert_floor"`
	// OtherExpertFloor enables expert escalation for non-real-person names.
	// Zero disables it.
	OtherExpertFloor int `yaml:"other_expert_floor" json:"other_expert_floor"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		OrderingPenalty:         DefaultOrderingPenalty,
		MissingMandatoryPenalty: DefaultMissingMandatoryPenalty,
		RuleShare:               DefaultRuleShare,
		MandatoryFailCap:        DefaultMandatoryFailCap,
		PassScore:               DefaultPassScore,
		RealPersonPassScore:     DefaultRealPersonPassScore,
		ExpertFloor:             DefaultExpertFloor,
	}
}

// PassScoreFor returns the minimum overall score for a compliant verdict.
func (p Policy) PassScoreFor(cat schema.Category) int {
	if cat == schema.CategoryRealPerson {
		return p.RealPersonPassScore
	}
	return p.PassScore
}

// ExpertFloorFor returns the score below which expert validation is needed.
// Zero means never.
func (p Policy) ExpertFloorFor(cat schema.Category) int {
	if cat == schema.CategoryRealPerson {
		return p.ExpertFloor
	}
	return p.OtherExpertFloor
}

// Validate checks that every value is in range.
func (p Policy) Validate() error {
	var errs []error
	if p.OrderingPenalty < 1 || p.OrderingPenalty > 100 {
		errs = append(errs, fmt.Errorf("ordering_penalty %d out of range [1,100]", p.OrderingPenalty))
	}
	if p.MissingMandatoryPenalty <= p.OrderingPenalty || p.MissingMandatoryPenalty > 100 {
		errs = append(errs, fmt.Errorf("missing_mandatory_penalty %d must be greater than ordering_penalty and at most 100", p.MissingMandatoryPenalty))
	}
	for _, f := range []struct {
		name string
		v    int
	}{
		{"rule_share", p.RuleShare},
		{"mandatory_fail_cap", p.MandatoryFailCap},
		{"pass_score", p.PassScore},
		{"real_person_pass_score", p.RealPersonPassScore},
		{"other_expert_floor", p.OtherExpertFloor},
	} {
		if f.v < 0 || f.v > 100 {
			errs = append(errs, fmt.Errorf("%s %d out of range [0,100]", f.name, f.v))
		}
	}
	if p.ExpertFloor != DefaultExpertFloor {
		errs = append(errs, fmt.Errorf("expert_floor %d must be %d", p.ExpertFloor, DefaultExpertFloor))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("catalogue: invalid policy: %w", err)
	}
	return nil
}
