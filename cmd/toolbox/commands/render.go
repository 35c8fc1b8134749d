package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/engine"
	"github.com/brickyard/toolbox/pkg/headless"
	"github.com/brickyard/toolbox/pkg/stores"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type renderFailure struct {
	Unit      string `json:"unit"`
	Namespace string `json:"namespace"`
	Error     string `json:"error"`
}

type renderReport struct {
	*engine.Outcome
	Failures []renderFailure `json:"failures,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func newRenderCommand() *cobra.Command {
	var (
		pages        []string
		journalPath  string
		scripts      string
		metricsFile  string
		parallel     int
		failFast     bool
		telOpts      telemetryOptions
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render page fixtures into headless payloads",
		Long: `Walk page fixtures the way a rendering host does and print the
headless element payloads of every page in dispatch order.

A page fixture is a YAML document of areablocks, blocks and editables with
their rendered values. Values tagged !asset or !markup stand for assets and
rendered markup. Every page is its own render pass; several pages render
concurrently. With --journal every pass and its payloads are also recorded
in a SQLite payload journal.

Units that fail to resolve are reported and the walk continues; the command
fails when a pass did not succeed completely.`,
		Example: `  # Render a page
  toolbox render -c toolbox.yaml --page page.yaml

  # Render two pages and journal the payloads
  toolbox render -c toolbox.yaml --page home.yaml --page about.yaml \
    --journal ./data/journal.db

  # Use script normalizers and export traces to a collector
  toolbox render -c toolbox.yaml --page page.yaml --scripts ./normalizers \
    --otlp-endpoint localhost:4317

  # Dump the render metrics for the node_exporter textfile collector
  toolbox render -c toolbox.yaml --page page.yaml \
    --metrics-file /var/lib/node_exporter/toolbox.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			telOpts.metrics = metricsFile != ""
			tel, err := newTelemetry(telOpts)
			if err != nil {
				return fmt.Errorf("failed to set up telemetry: %w", err)
			}
			defer func() {
				if err := tel.Shutdown(context.Background()); err != nil {
					log.Warn().Err(err).Msg("Telemetry shutdown failed")
				}
			}()
			ctx = tel.WithContext(ctx)

			jobs := make([]engine.Job, 0, len(pages))
			for _, path := range pages {
				page, err := headless.LoadPage(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, engine.Job{Name: path, Page: page})
			}

			parsed, err := loadConfig(ctx, config.ModeLenient)
			if err != nil {
				return err
			}
			registry, err := newRegistry(scripts)
			if err != nil {
				return err
			}

			opts := []engine.Option{engine.WithMaxParallel(parallel)}
			if journalPath != "" {
				journal, err := openJournal(ctx, journalPath)
				if err != nil {
					return err
				}
				defer journal.Close()
				opts = append(opts, engine.WithRecorder(stores.NewRecorder(journal)))
			}

			sched := engine.NewScheduler(parsed.Config, registry, tel.Logger.Zerolog(), opts...)
			outcomes, summary := sched.Run(ctx, jobs, engine.ScheduleOptions{FailFast: failFast})

			if metricsFile != "" {
				if err := tel.Metrics.WriteTextfile(metricsFile); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}

			reports := make([]renderReport, 0, len(outcomes))
			for _, o := range outcomes {
				reports = append(reports, newRenderReport(o))
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := printJSON(out, reports); err != nil {
					return err
				}
			} else {
				printRenderReports(out, reports, summary)
			}

			if !summary.OK() {
				return fmt.Errorf("%d of %d pass(es) did not succeed", summary.Total-summary.Succeeded, summary.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&pages, "page", nil, "page fixture (YAML, repeatable)")
	cmd.Flags().StringVar(&journalPath, "journal", "", "SQLite payload journal to record the passes in")
	cmd.Flags().StringVar(&scripts, "scripts", "", "directory of Starlark normalizer scripts (*.star)")
	cmd.Flags().StringVar(&telOpts.otlpEndpoint, "otlp-endpoint", "", "export traces to an OTLP collector")
	cmd.Flags().BoolVar(&telOpts.traceStderr, "trace-stderr", false, "print finished spans to stderr")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write the render metrics in Prometheus text format to this file")
	cmd.Flags().IntVar(&parallel, "parallel", engine.DefaultMaxParallel, "maximum number of concurrent passes")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop starting passes after the first unsuccessful one")
	_ = cmd.MarkFlagRequired("page")

	return cmd
}

func openJournal(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return store, nil
}

func newRenderReport(o *engine.Outcome) renderReport {
	report := renderReport{Outcome: o}
	if o.Err != nil {
		report.Error = o.Err.Error()
	}
	if o.Result != nil {
		for _, f := range o.Result.Failures {
			report.Failures = append(report.Failures, renderFailure{
				Unit:      f.Unit,
				Namespace: f.Namespace,
				Error:     f.Err.Error(),
			})
		}
	}
	return report
}

func printRenderReports(w io.Writer, reports []renderReport, summary engine.Summary) {
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %s (pass %s)\n", r.Job, r.Status, r.PassID)
		if r.Error != "" {
			fmt.Fprintf(w, "  ✗  %s\n", r.Error)
		}
		for i, p := range r.Payloads {
			fmt.Fprintf(w, "%3d  %-10s %-16s %s  %s\n", i, p.ElementType, p.ElementSubType, p.ElementHash, p.ElementNamespace)
		}
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  ✗  %s (%s): %s\n", f.Unit, f.Namespace, f.Error)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d pass(es): %d succeeded, %d partial, %d failed, %d cancelled; %d payload(s) in %s\n",
		summary.Total, summary.Succeeded, summary.Partial, summary.Failed, summary.Cancelled,
		summary.Dispatched, summary.Duration)
}
