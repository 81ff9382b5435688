package catalogue

import (
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/termcheck/internal/schema"
)

// Overrides is the YAML shape of a catalogue override file.
type Overrides struct {
	Version  string              `yaml:"version"`
	Rules    []RuleOverride      `yaml:"rules"`
	Steps    []StepOverride      `yaml:"steps"`
	Surnames map[string][]string `yaml:"surnames"`
}

// RuleOverride changes an existing rule. Nil fields keep the built-in value.
type RuleOverride struct {
	Direction string `yaml:"direction"`
	Category  string `yaml:"category"`
	ID        string `yaml:"id"`
	Weight    *int   `yaml:"weight"`
	Mandatory *bool  `yaml:"mandatory"`
	PassScore *int   `yaml:"pass_score"`
}

// StepOverride changes or adds a verification step.
type StepOverride struct {
	Direction string `yaml:"direction"`
	Category  string `yaml:"category"`
	SourceID  string `yaml:"source_id"`
	Rank      *int   `yaml:"rank"`
	Mandatory *bool  `yaml:"mandatory"`
}

// LoadFile reads an override file and applies it to the built-in catalogue.
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalogue: reading %s: %w", path, err)
	}
	var ov Overrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("catalogue: parsing %s: %w", path, err)
	}
	cat, err := Default().Apply(ov)
	if err != nil {
		return nil, fmt.Errorf("catalogue: %s: %w", path, err)
	}
	return cat, nil
}

// Apply returns a new catalogue with ov applied. The receiver is unchanged.
func (c *Catalogue) Apply(ov Overrides) (*Catalogue, error) {
	out := c.clone()
	if ov.Version != "" {
		out.version = ov.Version
	}

	for _, ro := range ov.Rules {
		k, err := parseKey(ro.Direction, ro.Category)
		if err != nil {
			return nil, err
		}
		rules := out.rules[k]
		i := slices.IndexFunc(rules, func(r Rule) bool { return string(r.ID) == ro.ID })
		if i < 0 {
			return nil, fmt.Errorf("rule override: no rule %q in %s/%s", ro.ID, k.dir, k.cat)
		}
		if ro.Weight != nil {
			if *ro.Weight < 1 {
				return nil, fmt.Errorf("rule override %q: weight must be positive", ro.ID)
			}
			rules[i].Weight = *ro.Weight
		}
		if ro.Mandatory != nil {
			rules[i].Mandatory = *ro.Mandatory
		}
		if ro.PassScore != nil {
			if *ro.PassScore < 0 || *ro.PassScore > 100 {
				return nil, fmt.Errorf("rule override %q: pass_score out of range", ro.ID)
			}
			rules[i].PassScore = *ro.PassScore
		}
	}

	for _, so := range ov.Steps {
		k, err := parseKey(so.Direction, so.Category)
		if err != nil {
			return nil, err
		}
		if !out.KnownSource(so.SourceID) {
			return nil, fmt.Errorf("step override: unknown source %q", so.SourceID)
		}
		steps := out.steps[k]
		i := slices.IndexFunc(steps, func(s schema.VerificationStep) bool { return s.SourceID == so.SourceID })
		if i < 0 {
			if so.Rank == nil {
				return nil, fmt.Errorf("step override: new step %q needs a rank", so.SourceID)
			}
			steps = append(steps, schema.VerificationStep{SourceID: so.SourceID})
			i = len(steps) - 1
		}
		if so.Rank != nil {
			if *so.Rank < 1 {
				return nil, fmt.Errorf("step override %q: rank must be positive", so.SourceID)
			}
			steps[i].Rank = *so.Rank
		}
		if so.Mandatory != nil {
			steps[i].Mandatory = *so.Mandatory
		}
		sort.SliceStable(steps, func(a, b int) bool { return steps[a].Rank < steps[b].Rank })
		out.steps[k] = steps
	}

	for surname, spellings := range ov.Surnames {
		if len(spellings) == 0 {
			delete(out.table.surnames, surname)
			continue
		}
		out.table.surnames[surname] = slices.Clone(spellings)
	}
	return out, nil
}

func parseKey(dir, cat string) (key, error) {
	d, err := schema.ParseDirection(dir)
	if err != nil {
		return key{}, err
	}
	c, err := schema.ParseCategory(cat)
	if err != nil {
		return key{}, err
	}
	return key{d, c}, nil
}
