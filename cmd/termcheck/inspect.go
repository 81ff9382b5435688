package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/termcheck/internal/catalogue"
	"github.com/dshills/termcheck/internal/classify"
	"github.com/dshills/termcheck/internal/history"
	"github.com/dshills/termcheck/internal/render"
	"github.com/dshills/termcheck/internal/schema"
	"github.com/dshills/termcheck/internal/teamwork"
)

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>...",
		Short: "Detect script, direction and category of names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TEXT\tSCRIPT\tDIRECTION\tCATEGORY")
			var failed int
			for _, text := range args {
				res, err := classify.Classify(text)
				if err != nil {
					failed++
					fmt.Fprintf(tw, "%s\t-\t-\t%v\n", text, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", text, res.Script, res.Direction(), res.Category)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return &exitError{code: exitFailures, err: fmt.Errorf("%d of %d inputs could not be classified", failed, len(args))}
			}
			return nil
		},
	}
}

func (a *app) resourcesCmd() *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Print the verification process and its sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := []schema.Direction{schema.KoToEn, schema.EnToKo}
			if direction != "" {
				d, err := schema.ParseDirection(direction)
				if err != nil {
					return err
				}
				dirs = []schema.Direction{d}
			}
			out := make([]string, 0, len(dirs))
			for _, d := range dirs {
				out = append(out, catalogue.ProcessText(d))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, "\n"))
			return err
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "", "KO-EN or EN-KO (default: both)")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit int
		id    string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.cfg.History.Path, a.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if id != "" {
				rec, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), render.ReportMarkdown(rec.Report))
				return err
			}

			recs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tDIRECTION\tSOURCE\tNOTATION\tSCORE\tVERDICT")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Direction,
					r.SourceText, r.Notation, r.OverallScore, r.Verdict)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to list")
	cmd.Flags().StringVar(&id, "id", "", "Print the full report of one record")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <name>",
		Short: "Report what Teamwork knows about a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw, err := teamwork.NewFromEnv(a.cfg.Teamwork.Domain, teamwork.WithLogger(a.logger))
			if err != nil {
				return err
			}
			v, err := tw.VerificationStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}
