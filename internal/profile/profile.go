// Package profile defines notation profiles that modulate candidate-generation
// prompts. Each profile covers one (direction, category) pair and provides a
// SystemPromptAddendum that is appended to the system prompt sent to the LLM.
package profile

import (
	"fmt"

	"github.com/dshills/termcheck/internal/schema"
)

// Profile describes the notation guidance for one direction and category.
type Profile struct {
	Name                 string
	Description          string
	Direction            schema.Direction
	Category             schema.Category
	SystemPromptAddendum string
	// TargetScript is the script the generated notation must be written in.
	TargetScript schema.Script
	// StrictCapitalization, when true, requires every letter after the first
	// of each word to be lower-case.
	StrictCapitalization bool
}

// builtins is the registry of built-in profiles keyed by name.
var builtins = map[string]Profile{
	"ko-en-person": {
		Name:        "ko-en-person",
		Description: "Korean real-person names written in English.",
		Direction:   schema.KoToEn,
		Category:    schema.CategoryRealPerson,
		SystemPromptAddendum: "The name belongs to a real person. Write the surname first, then the " +
			"given name with its syllables joined by a hyphen (Kim Ji-won). Capitalize only the first " +
			"letter of the surname and of the given name; the letter after the hyphen stays lower-case. " +
			"Use the person's established spelling when KOFIC KoBiz or a confirmed prior notation shows one, " +
			"otherwise follow the Revised Romanization of Korean.",
		TargetScript:         schema.ScriptLatin,
		StrictCapitalization: true,
	},
	"ko-en-other": {
		Name:        "ko-en-other",
		Description: "Korean character, place and other proper names written in English.",
		Direction:   schema.KoToEn,
		Category:    schema.CategoryOther,
		SystemPromptAddendum: "The name is fictional or non-personal. Follow the Revised Romanization of " +
			"Korean. Hyphenate given-name syllables only for person-shaped names; animal names and stage " +
			"names are written as one word. Keep a stage name as the performer uses it. North Korean names " +
			"separate every syllable with a space and capitalize each one.",
		TargetScript: schema.ScriptLatin,
	},
	"en-ko-person": {
		Name:        "en-ko-person",
		Description: "Real-person names written in Korean Hangul.",
		Direction:   schema.EnToKo,
		Category:    schema.CategoryRealPerson,
		SystemPromptAddendum: "The name belongs to a real person. Write it in Hangul following the " +
			"National Institute of Korean Language loanword rules and the person's own pronunciation as " +
			"heard in interviews. Keep one Hangul word per source word; a middle dot may separate parts. " +
			"Prefer a notation already confirmed in the termbase or in earlier Teamwork tasks.",
		TargetScript: schema.ScriptKorean,
	},
	"en-ko-other": {
		Name:        "en-ko-other",
		Description: "Fictional and other proper names written in Korean Hangul.",
		Direction:   schema.EnToKo,
		Category:    schema.CategoryOther,
		SystemPromptAddendum: "The name is fictional or non-personal. Write it in Hangul following the " +
			"National Institute of Korean Language loanword rules. Keep one Hangul word per source word.",
		TargetScript: schema.ScriptKorean,
	},
}

// Names lists the built-in profile names in a stable order.
func Names() []string {
	return []string{"ko-en-person", "ko-en-other", "en-ko-person", "en-ko-other"}
}

// Load returns the named built-in profile or an error if the name is unknown.
func Load(name string) (Profile, error) {
	p, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile: unknown profile %q (available: ko-en-person, ko-en-other, en-ko-person, en-ko-other)", name)
	}
	return p, nil
}

// For returns the profile covering dir and cat.
func For(dir schema.Direction, cat schema.Category) (Profile, error) {
	for _, p := range builtins {
		if p.Direction == dir && p.Category == cat {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("profile: no profile for %s/%s", dir, cat)
}
