package commands

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/brickyard/toolbox/pkg/calculator"
	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/normalizer"
	"github.com/brickyard/toolbox/pkg/policy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type validateReport struct {
	Files    []string                 `json:"files"`
	Problems []config.ValidationError `json:"problems,omitempty"`
	Policy   *policy.Result           `json:"policy,omitempty"`
	Valid    bool                     `json:"valid"`
}

type validateOptions struct {
	strict      bool
	noLint      bool
	policies    []string
	scripts     string
	watch       bool
	metricsAddr string
}

func newValidateCommand() *cobra.Command {
	var opts validateOptions

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Validate toolbox configuration files",
		Long: `Validate toolbox configuration files.

This command checks:
  - YAML syntax and the structural schema (CUE)
  - Field rules
  - Schema contradictions (tabs, block children, merge settings)
  - Theme calculators
  - Lint policies (OPA/rego): element naming, normalizer references

Contradictions are warnings unless --strict is given. The command fails when
an error or a blocking policy violation is found.

With --watch the command keeps running and validates again whenever a
configuration file or a --policy file changes.`,
		Example: `  # Validate the configured files
  toolbox validate -c config/toolbox.yaml

  # Validate a directory in strict mode
  toolbox validate --strict ./config

  # Add custom lint policies and script normalizers
  toolbox validate --policy ./policies --scripts ./normalizers ./config

  # Re-validate on every change and expose reload metrics
  toolbox validate --watch --policy ./policies --metrics-addr :9090 ./config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := configPaths
			if len(args) > 0 {
				paths = args
			}
			if opts.metricsAddr != "" && !opts.watch {
				return fmt.Errorf("--metrics-addr requires --watch")
			}

			if opts.watch {
				return watchValidate(cmd, opts, paths)
			}

			ctx := cmd.Context()
			v, err := newValidator(opts, paths, log.Logger)
			if err != nil {
				return err
			}
			if len(opts.policies) > 0 && v.engine != nil {
				if err := v.engine.LoadPolicies(ctx, opts.policies); err != nil {
					return err
				}
			}

			report, loadErr, err := v.run(ctx)
			if err != nil {
				return err
			}
			if err := writeValidateReport(cmd.OutOrStdout(), report, loadErr); err != nil {
				return err
			}
			if !report.Valid {
				return fmt.Errorf("configuration is invalid")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat schema contradictions as errors")
	cmd.Flags().BoolVar(&opts.noLint, "no-lint", false, "skip the lint policies")
	cmd.Flags().StringSliceVar(&opts.policies, "policy", nil, "additional .rego policy file or directory (repeatable)")
	cmd.Flags().StringVar(&opts.scripts, "scripts", "", "directory of Starlark normalizer scripts (*.star)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "keep running and validate again when configuration or policy files change")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching (e.g. :9090)")

	return cmd
}

// validator runs validation passes. The registries and the policy engine
// are built once and shared by every pass.
type validator struct {
	paths       []string
	noLint      bool
	loader      *config.Loader
	calculators *calculator.Registry
	normalizers *normalizer.Registry
	engine      *policy.Engine
}

func newValidator(opts validateOptions, paths []string, logger zerolog.Logger) (*validator, error) {
	mode := config.ModeLenient
	if opts.strict {
		mode = config.ModeStrict
	}

	logger.Info().
		Strs("paths", paths).
		Bool("strict", opts.strict).
		Msg("Validating configuration")

	v := &validator{
		paths:       paths,
		noLint:      opts.noLint,
		loader:      config.NewLoader(logger, config.WithMode(mode)),
		calculators: calculator.NewDefaultRegistry(),
	}
	if opts.noLint {
		return v, nil
	}

	var err error
	if v.normalizers, err = newRegistry(opts.scripts); err != nil {
		return nil, err
	}
	if v.engine, err = policy.NewEngine(logger); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *validator) load(ctx context.Context) (*config.ParsedConfig, error) {
	if len(v.paths) == 0 {
		return nil, fmt.Errorf("no configuration given, use --config")
	}
	return v.loader.Load(ctx, v.paths...)
}

// run loads the configuration and evaluates it. loadErr is the load
// failure, which only makes the report invalid; err aborts the command.
func (v *validator) run(ctx context.Context) (report validateReport, loadErr, err error) {
	parsed, loadErr := v.load(ctx)
	report, err = v.evaluate(ctx, parsed, loadErr)
	return report, loadErr, err
}

func (v *validator) evaluate(ctx context.Context, parsed *config.ParsedConfig, loadErr error) (validateReport, error) {
	report := validateReport{Files: v.paths}
	if parsed != nil {
		report.Files = parsed.SourceFiles
		report.Problems = slices.Clone(parsed.Errors)
	}

	calculatorProblems := 0
	if loadErr == nil {
		problems := calculator.Validate(v.calculators, parsed.Config)
		calculatorProblems = len(problems)
		report.Problems = append(report.Problems, problems...)
	}

	if loadErr == nil && v.engine != nil {
		var err error
		report.Policy, err = v.engine.EvaluateConfig(ctx, parsed.Config, v.normalizers.Names())
		if err != nil {
			return report, err
		}
	}

	report.Valid = loadErr == nil && calculatorProblems == 0 && (report.Policy == nil || report.Policy.Allowed())
	return report, nil
}

// watchValidate validates once, then again on every configuration or policy
// change until the command context is done. Invalid results are reported
// but do not stop the watch.
func watchValidate(cmd *cobra.Command, opts validateOptions, paths []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	status := cmd.ErrOrStderr()

	tel, err := newTelemetry(telemetryOptions{metrics: opts.metricsAddr != ""})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()
	ctx = tel.WithContext(ctx)
	logger := cliLogger(ctx)

	v, err := newValidator(opts, paths, logger)
	if err != nil {
		return err
	}

	policyLoader := policy.NewLoader(logger)
	watchPolicies := v.engine != nil && len(opts.policies) > 0
	if watchPolicies {
		policies, err := policyLoader.LoadFromPaths(ctx, opts.policies)
		if err != nil {
			return fmt.Errorf("failed to load policies: %w", err)
		}
		if err := v.engine.ReplacePolicies(ctx, policies); err != nil {
			return err
		}
	}

	var mu sync.Mutex
	publish := func(parsed *config.ParsedConfig, loadErr error) {
		mu.Lock()
		defer mu.Unlock()

		report, err := v.evaluate(ctx, parsed, loadErr)
		if err != nil {
			logger.Error().Err(err).Msg("Validation failed")
			return
		}
		if err := writeValidateReport(out, report, loadErr); err != nil {
			logger.Error().Err(err).Msg("Failed to write report")
		}
	}

	parsed, loadErr := v.load(ctx)
	publish(parsed, loadErr)

	var current *config.Config
	if parsed != nil {
		current = parsed.Config
	}
	watcher := config.NewWatcher(v.loader, config.NewSnapshot(current), v.paths, logger)
	watcher.OnReload(publish)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Close()

	if watchPolicies {
		err := policyLoader.Watch(ctx, opts.policies, func(ctx context.Context, policies []policy.Policy) error {
			if err := v.engine.ReplacePolicies(ctx, policies); err != nil {
				return err
			}
			publish(v.load(ctx))
			return nil
		})
		if err != nil {
			return err
		}
	}

	if opts.metricsAddr != "" {
		addr, err := tel.Metrics.Serve(ctx, opts.metricsAddr)
		if err != nil {
			return err
		}
		fmt.Fprintf(status, "Serving metrics on http://%s/metrics\n", addr)
	}

	fmt.Fprintf(status, "Watching %d configuration and %d policy path(s) for changes, press Ctrl+C to stop\n",
		len(v.paths), len(opts.policies))

	<-ctx.Done()
	return nil
}

func writeValidateReport(w io.Writer, report validateReport, loadErr error) error {
	if jsonOutput {
		return printJSON(w, report)
	}
	printValidateReport(w, report, loadErr)
	return nil
}

func printValidateReport(w io.Writer, report validateReport, loadErr error) {
	for _, p := range report.Problems {
		location := p.File
		if p.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, p.Line)
		}
		switch {
		case p.Path == "":
		case location == "":
			location = p.Path
		default:
			location = fmt.Sprintf("%s (%s)", location, p.Path)
		}
		fmt.Fprintf(w, "%-7s %s: %s\n", p.Severity, location, p.Message)
	}
	if loadErr != nil && len(report.Problems) == 0 {
		fmt.Fprintf(w, "error   %v\n", loadErr)
	}

	if report.Policy != nil {
		for _, v := range report.Policy.Violations {
			scope := v.Area
			if v.Context != "" {
				scope = v.Context + "/" + v.Area
			}
			if v.Element != "" {
				scope += " " + v.Element
			}
			fmt.Fprintf(w, "%-7s [%s] %s: %s\n", v.Severity, v.Policy, scope, v.Message)
		}
		for _, warning := range report.Policy.Warnings {
			fmt.Fprintf(w, "warning %s\n", warning)
		}
	}

	if report.Valid {
		fmt.Fprintf(w, "✓ %d file(s) valid\n", len(report.Files))
	} else {
		fmt.Fprintf(w, "✗ configuration is invalid\n")
	}
}
