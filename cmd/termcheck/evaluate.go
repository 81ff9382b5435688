package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/termcheck/internal/batch"
	"github.com/dshills/termcheck/internal/intake"
	"github.com/dshills/termcheck/internal/render"
	"github.com/dshills/termcheck/internal/schema"
)

func (a *app) evaluateCmd() *cobra.Command {
	var (
		f                runFlags
		candidate        string
		direction        string
		category         string
		tags             []string
		project          string
		confirmed        string
		evidencePath     string
		reverseCandidate string
		generate         bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <source>",
		Short: "Evaluate one notation candidate",
		Example: `  termcheck evaluate 김연아 --candidate "Kim Yuna" --category real_person --evidence evidence.yaml
  termcheck evaluate "Tom Holland" --generate --format md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			source := strings.TrimSpace(args[0])
			if candidate == "" && !generate {
				return fmt.Errorf("either --candidate or --generate is required")
			}

			dir, cat, err := intake.Resolve(source, direction, category)
			if err != nil {
				return err
			}
			confirmedAt, err := intake.ParseDate(confirmed)
			if err != nil {
				return fmt.Errorf("--confirmed: %w", err)
			}
			var evidence []schema.EvidenceItem
			if evidencePath != "" {
				if evidence, err = intake.LoadEvidence(evidencePath); err != nil {
					return err
				}
			}

			req := batch.Request{
				ID: "1",
				Candidate: schema.NameCandidate{
					SourceText:  source,
					Direction:   dir,
					Category:    cat,
					Notation:    strings.TrimSpace(candidate),
					Evidence:    evidence,
					Tags:        toTags(tags),
					Project:     project,
					ConfirmedAt: confirmedAt,
				},
				Generate: generate,
			}
			if reverseCandidate != "" {
				req.Reverse = &schema.NameCandidate{
					Direction:   dir.Reverse(),
					Category:    cat,
					Notation:    reverseCandidate,
					Tags:        req.Candidate.Tags,
					Project:     project,
					ConfirmedAt: confirmedAt,
				}
			}

			s, err := a.newSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			outcomes, summary, err := s.runner.Run(cmd.Context(), []batch.Request{req})
			if err != nil {
				return err
			}
			return a.finish(cmd.Context(), s, f, outcomes, summary, "")
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&candidate, "candidate", "", "Candidate notation to evaluate")
	flags.StringVar(&direction, "direction", "", "KO-EN or EN-KO (default: inferred from the source script)")
	flags.StringVar(&category, "category", "", "real_person or other (default: inferred)")
	flags.StringSliceVar(&tags, "tag", nil, "Tags: north_korean, stage_name, animal (repeatable)")
	flags.StringVar(&project, "project", "", "Project name; names starting with NF are Netflix projects")
	flags.StringVar(&confirmed, "confirmed", "", "Date the notation was first confirmed (YYYY-MM-DD)")
	flags.StringVar(&evidencePath, "evidence", "", "YAML file listing consulted sources in order")
	flags.StringVar(&reverseCandidate, "reverse-candidate", "", "Back-translation of the candidate; enables the bidirectional check")
	flags.BoolVar(&generate, "generate", false, "Ask the LLM for a candidate when --candidate is empty")
	flags.BoolVar(&f.withHistory, "with-history", false, "Use and record evaluation history")
	flags.BoolVar(&f.withTeamwork, "with-teamwork", false, "Gather prior notations from Teamwork")
	flags.StringVarP(&f.format, "format", "f", render.FormatJSON, "Output format: json, md, html, termbase")
	flags.StringVar(&f.failOn, "fail-on", "", "Exit 2 when a verdict is at or above this level (COMPLIANT, NEEDS_REVIEW, NON_COMPLIANT)")
	return cmd
}

func toTags(in []string) []schema.Tag {
	if len(in) == 0 {
		return nil
	}
	out := make([]schema.Tag, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(strings.ToLower(t)); t != "" {
			out = append(out, schema.Tag(t))
		}
	}
	return out
}
