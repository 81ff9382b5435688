package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/termcheck/internal/batch"
	"github.com/dshills/termcheck/internal/intake"
	"github.com/dshills/termcheck/internal/render"
)

func (a *app) batchCmd() *cobra.Command {
	var (
		f         runFlags
		outDir    string
		generate  bool
		direction string
		category  string
		project   string
	)

	cmd := &cobra.Command{
		Use:   "batch <requests.yaml|names.txt>",
		Short: "Evaluate many names in parallel",
		Long: `Evaluate every name in a YAML request file or a plain name list.

A name list holds one or more names per line ("source" or
"source = notation"); names without a notation are generated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			reqs, err := loadRequests(args[0], intake.Defaults{
				Direction: direction,
				Category:  category,
				Project:   project,
				Generate:  generate,
			})
			if err != nil {
				return err
			}
			if generate {
				for i := range reqs {
					reqs[i].Generate = true
				}
			}
			if f.postToTeamwork && a.cfg.Teamwork.ProjectID == "" {
				return fmt.Errorf("--post-to-teamwork needs teamwork.project_id in the config")
			}

			s, err := a.newSession(f)
			if err != nil {
				return err
			}
			defer s.Close()

			outcomes, summary, err := s.runner.Run(cmd.Context(), reqs)
			if err != nil {
				return err
			}
			return a.finish(cmd.Context(), s, f, outcomes, summary, outDir)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.concurrency, "concurrency", 0, "Names evaluated at once (default from config)")
	flags.StringVarP(&outDir, "out", "o", "", "Write every report format into this directory")
	flags.BoolVar(&generate, "generate", false, "Generate candidates for names that have none")
	flags.StringVar(&direction, "direction", "", "Direction for name lists (default: inferred per name)")
	flags.StringVar(&category, "category", "", "Category for name lists (default: inferred per name)")
	flags.StringVar(&project, "project", "", "Project for name lists")
	flags.BoolVar(&f.withHistory, "with-history", false, "Use and record evaluation history")
	flags.BoolVar(&f.withTeamwork, "with-teamwork", false, "Gather prior notations from Teamwork")
	flags.BoolVar(&f.postToTeamwork, "post-to-teamwork", false, "Post each report to Teamwork")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	flags.StringVarP(&f.format, "format", "f", render.FormatJSON, "Output format when --out is not set")
	flags.StringVar(&f.failOn, "fail-on", "", "Exit 2 when any verdict is at or above this level")
	return cmd
}

// loadRequests reads YAML request files by extension and anything else as a
// name list.
func loadRequests(path string, d intake.Defaults) ([]batch.Request, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return intake.LoadRequests(path)
	}
	entries, err := intake.ParseNamesFile(path)
	if err != nil {
		return nil, err
	}
	return intake.FromEntries(entries, d)
}
