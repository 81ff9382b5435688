package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/termcheck/internal/batch"
	"github.com/dshills/termcheck/internal/engine"
	"github.com/dshills/termcheck/internal/history"
	"github.com/dshills/termcheck/internal/llm"
	"github.com/dshills/termcheck/internal/metrics"
	"github.com/dshills/termcheck/internal/render"
	"github.com/dshills/termcheck/internal/schema"
	"github.com/dshills/termcheck/internal/teamwork"
	"github.com/dshills/termcheck/internal/verdict"
)

// runFlags are the collaborator switches shared by evaluate and batch.
type runFlags struct {
	concurrency    int
	withHistory    bool
	withTeamwork   bool
	postToTeamwork bool
	metricsFile    string
	format         string
	failOn         string
}

// validate rejects bad flag values before any evaluation starts.
func (f runFlags) validate() error {
	if f.failOn != "" {
		if _, err := verdict.ParseVerdict(f.failOn); err != nil {
			return err
		}
	}
	for _, format := range render.Formats() {
		if f.format == format || f.format == "" {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q", f.format)
}

// session is one wired evaluation pipeline.
type session struct {
	engine   *engine.Engine
	runner   *batch.Runner
	registry *prometheus.Registry
	store    *history.Store
	teamwork *teamwork.Client
}

func (s *session) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (a *app) newSession(f runFlags) (*session, error) {
	cat, err := a.cfg.LoadCatalogue()
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(cat, engine.WithPolicy(a.cfg.Policy), engine.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	s := &session{engine: eng, registry: prometheus.NewRegistry()}
	concurrency := a.cfg.Batch.Concurrency
	if f.concurrency > 0 {
		concurrency = f.concurrency
	}
	opts := []batch.Option{
		batch.WithConcurrency(concurrency),
		batch.WithGenerator(llm.Generator{Options: a.cfg.LLMOptions()}),
		batch.WithMetrics(metrics.New(s.registry)),
		batch.WithLogger(a.logger),
	}

	if f.withHistory || a.cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(a.cfg.History.Path), 0o755); err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		store, err := history.Open(a.cfg.History.Path, a.logger)
		if err != nil {
			return nil, err
		}
		s.store = store
		opts = append(opts, batch.WithEvidenceSources(store), batch.WithRecorder(store))
	}

	if f.withTeamwork || f.postToTeamwork {
		tw, err := teamwork.NewFromEnv(a.cfg.Teamwork.Domain, teamwork.WithLogger(a.logger))
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.teamwork = tw
		if f.withTeamwork {
			opts = append(opts, batch.WithEvidenceSources(tw))
		}
	}

	s.runner = batch.NewRunner(eng, opts...)
	return s, nil
}

// finish renders the outcomes, runs the post-run collaborators and maps the
// results to an exit code.
func (a *app) finish(ctx context.Context, s *session, f runFlags, outcomes []schema.Outcome, summary schema.Summary, outDir string) error {
	doc := &render.Document{
		Tool:             appName,
		Version:          version,
		CatalogueVersion: s.engine.Catalogue().Version(),
		Summary:          &summary,
		Outcomes:         outcomes,
	}

	if outDir != "" {
		if err := writeAll(outDir, doc); err != nil {
			return err
		}
		a.logger.Info("reports written", "dir", outDir)
	} else {
		out, err := render.Render(f.format, doc)
		if err != nil {
			return err
		}
		if _, err := a.stdout.Write(append(out, '\n')); err != nil {
			return err
		}
	}

	if f.postToTeamwork {
		a.postToTeamwork(ctx, s.teamwork, outcomes)
	}

	if f.metricsFile != "" {
		if err := metrics.WriteTextfile(f.metricsFile, s.registry); err != nil {
			return err
		}
	}

	if summary.Failed > 0 {
		return &exitError{code: exitFailures, err: fmt.Errorf("%d of %d evaluations failed", summary.Failed, summary.Total)}
	}
	if f.failOn != "" {
		threshold, err := verdict.ParseVerdict(f.failOn)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			for _, rep := range o.Reports() {
				if verdict.VerdictOrdinal(rep.Verdict) >= verdict.VerdictOrdinal(threshold) {
					return &exitError{code: exitFailOn, err: fmt.Errorf("%s is %s (fail-on %s)", rep.SourceText, rep.Verdict, threshold)}
				}
			}
		}
	}
	return nil
}

// writeAll writes every output format into dir.
func writeAll(dir string, doc *render.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string]string{
		render.FormatJSON:     "report.json",
		render.FormatMarkdown: "report.md",
		render.FormatHTML:     "report.html",
		render.FormatTermbase: "termbase.md",
	}
	for _, format := range render.Formats() {
		out, err := render.Render(format, doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, files[format]), out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", files[format], err)
		}
	}
	return nil
}

// postToTeamwork comments on the latest earlier evaluation of each name, or
// creates a task in the configured project when there is none. Failures are
// logged and do not change the exit code.
func (a *app) postToTeamwork(ctx context.Context, tw *teamwork.Client, outcomes []schema.Outcome) {
	projectID := a.cfg.Teamwork.ProjectID
	for _, o := range outcomes {
		for _, rep := range o.Reports() {
			v, err := tw.VerificationStatus(ctx, rep.SourceText)
			if err != nil {
				a.logger.Warn("teamwork lookup failed", "source", rep.SourceText, "error", err)
			}
			if n := len(v.Evaluations); n > 0 {
				taskID := string(v.Evaluations[n-1].ID)
				if err := tw.CommentEvaluation(ctx, taskID, rep); err != nil {
					a.logger.Warn("teamwork comment failed", "source", rep.SourceText, "task", taskID, "error", err)
					continue
				}
				a.logger.Info("teamwork comment posted", "source", rep.SourceText, "task", taskID)
				continue
			}
			id, err := tw.PostEvaluation(ctx, projectID, rep)
			if err != nil {
				var apiErr *teamwork.APIError
				if errors.As(err, &apiErr) {
					a.logger.Warn("teamwork rejected evaluation", "source", rep.SourceText, "status", apiErr.StatusCode)
				} else {
					a.logger.Warn("teamwork post failed", "source", rep.SourceText, "error", err)
				}
				continue
			}
			a.logger.Info("teamwork task created", "source", rep.SourceText, "task", id)
		}
	}
}
