package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/normalizer"
	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loadConfig loads the files given with --config.
func loadConfig(ctx context.Context, mode config.Mode) (*config.ParsedConfig, error) {
	return loadConfigFrom(ctx, mode, configPaths)
}

func loadConfigFrom(ctx context.Context, mode config.Mode, paths []string) (*config.ParsedConfig, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration given, use --config")
	}

	loader := config.NewLoader(cliLogger(ctx), config.WithMode(mode))
	return loader.Load(ctx, paths...)
}

// cliLogger returns the telemetry logger when ctx carries telemetry and the
// global console logger otherwise.
func cliLogger(ctx context.Context) zerolog.Logger {
	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		return tel.Logger.Zerolog()
	}
	return log.Logger
}

type telemetryOptions struct {
	otlpEndpoint string
	traceStderr  bool
	metrics      bool
}

// newTelemetry sets up telemetry for one command run. Events are logged at
// debug level.
func newTelemetry(opts telemetryOptions) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = opts.metrics
	if verbose {
		cfg.Logging.Level = "debug"
	}
	switch {
	case opts.otlpEndpoint != "":
		cfg.Tracing.Exporter = "otlp"
		cfg.Tracing.Endpoint = opts.otlpEndpoint
	case opts.traceStderr:
		cfg.Tracing.Exporter = "stdout"
		cfg.Tracing.Endpoint = "stderr"
	}

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		return nil, err
	}

	events := tel.Logger.NewComponentLogger("events").Zerolog()
	tel.Events.Subscribe(func(e telemetry.Event) {
		events.Debug().
			Str("type", e.Type).
			Str("pass_id", e.PassID).
			Str("namespace", e.Namespace).
			Msg(e.Message)
	}, nil)

	return tel, nil
}

// newRegistry returns the default normalizers plus the Starlark scripts
// found in dir. Each *.star file registers under its base name.
func newRegistry(dir string) (*normalizer.Registry, error) {
	registry := normalizer.NewDefaultRegistry()
	if dir == "" {
		return registry, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	scripts := make(map[string]string, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", file, err)
		}
		scripts[strings.TrimSuffix(filepath.Base(file), ".star")] = string(data)
	}

	if err := normalizer.RegisterScripts(registry, scripts, normalizer.DefaultScriptTimeout); err != nil {
		return nil, err
	}

	log.Debug().Int("scripts", len(scripts)).Str("dir", dir).Msg("Registered script normalizers")
	return registry, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
