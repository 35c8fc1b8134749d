package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader reads toolbox configuration files, validates them and returns an
// immutable configuration.
type Loader struct {
	schemas   *SchemaRegistry
	validator *validator.Validate
	logger    zerolog.Logger
	mode      Mode
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMode sets how schema contradictions are handled.
func WithMode(mode Mode) LoaderOption {
	return func(l *Loader) {
		l.mode = mode
	}
}

// WithSchemaRegistry replaces the schema registry.
func WithSchemaRegistry(sr *SchemaRegistry) LoaderOption {
	return func(l *Loader) {
		l.schemas = sr
	}
}

// NewLoader creates a loader. Contradictions are lenient unless WithMode says otherwise.
func NewLoader(logger zerolog.Logger, opts ...LoaderOption) *Loader {
	l := &Loader{
		schemas:   NewSchemaRegistry(),
		validator: validator.New(),
		logger:    logger.With().Str("component", "config").Logger(),
		mode:      ModeLenient,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mode returns the contradiction mode.
func (l *Loader) Mode() Mode {
	return l.mode
}

// Load reads the given YAML files (or directories of *.yaml / *.yml files)
// in order and merges them into a single configuration.
//
// Structural errors are always fatal. Contradictions are reported as warnings
// in lenient mode and returned as a configuration error in strict mode. The
// ParsedConfig is returned even when err is non-nil so callers can print the
// collected problems.
func (l *Loader) Load(ctx context.Context, paths ...string) (*ParsedConfig, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no configuration sources provided")
	}

	files, err := expandSources(paths)
	if err != nil {
		return nil, err
	}

	sources := make([]source, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		sources = append(sources, source{name: file, data: data})
	}

	return l.load(ctx, sources)
}

// LoadBytes loads a single in-memory YAML document.
func (l *Loader) LoadBytes(ctx context.Context, name string, data []byte) (*ParsedConfig, error) {
	return l.load(ctx, []source{{name: name, data: data}})
}

// LoadReader loads a single YAML document from r.
func (l *Loader) LoadReader(ctx context.Context, name string, r io.Reader) (*ParsedConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return l.LoadBytes(ctx, name, data)
}

type source struct {
	name string
	data []byte
}

func (l *Loader) load(ctx context.Context, sources []source) (*ParsedConfig, error) {
	parsed := &ParsedConfig{ParsedAt: time.Now()}
	cfg := &Config{}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed.SourceFiles = append(parsed.SourceFiles, src.name)

		if len(bytes.TrimSpace(src.data)) == 0 {
			continue
		}

		if errs := l.schemas.ValidateYAML(ToolboxSchema, src.name, src.data); len(errs) > 0 {
			parsed.Errors = append(parsed.Errors, errs...)
			continue
		}

		var fileCfg Config
		if err := yaml.Unmarshal(src.data, &fileCfg); err != nil {
			parsed.Errors = append(parsed.Errors, ValidationError{
				File:     src.name,
				Message:  fmt.Sprintf("failed to decode: %v", err),
				Severity: SeverityError,
			})
			continue
		}

		cfg.Merge(&fileCfg)
	}

	if parsed.HasErrors() {
		return parsed, toolbox.NewConfigurationError(
			fmt.Sprintf("configuration has %d structural error(s)", len(parsed.Errors)), nil).
			WithCode(toolbox.ErrCodeInvalidConfig)
	}

	cfg.applyDefaults()

	var contradictions []Contradiction
	for _, s := range cfg.scopes() {
		for areaID, errs := range promoteScope(s.scope) {
			for _, err := range errs {
				contradictions = append(contradictions, Contradiction{
					Path:    s.prefix + "areas." + areaID + ".inline_config_elements",
					Message: err.Error(),
				})
			}
		}
	}

	if fieldErrs := checkFields(l.validator, cfg); len(fieldErrs) > 0 {
		parsed.Errors = append(parsed.Errors, fieldErrs...)
		return parsed, toolbox.NewConfigurationError(
			fmt.Sprintf("configuration has %d invalid field(s)", len(fieldErrs)), nil).
			WithCode(toolbox.ErrCodeInvalidConfig)
	}

	contradictions = append(contradictions, CheckContradictions(cfg)...)
	sort.SliceStable(contradictions, func(i, j int) bool {
		return contradictions[i].Path < contradictions[j].Path
	})

	severity := SeverityWarning
	if l.mode == ModeStrict {
		severity = SeverityError
	}
	for _, c := range contradictions {
		parsed.Errors = append(parsed.Errors, ValidationError{
			Path:     c.Path,
			Message:  c.Message,
			Severity: severity,
		})
		if l.mode != ModeStrict {
			l.logger.Warn().Str("path", c.Path).Msg(c.Message)
			telemetry.RecordSchemaWarning(ctx, scopeOf(c.Path), c.Path, c.Message)
		}
	}

	if l.mode == ModeStrict && len(contradictions) > 0 {
		return parsed, contradictionError(contradictions)
	}

	parsed.Config = cfg

	l.logger.Debug().
		Strs("files", parsed.SourceFiles).
		Int("areas", cfg.Areas.Len()).
		Int("contexts", cfg.Contexts.Len()).
		Int("warnings", len(parsed.Warnings())).
		Msg("Configuration loaded")

	return parsed, nil
}

// applyDefaults fills the root scope defaults.
func (c *Config) applyDefaults() {
	if c.Flags == nil {
		c.Flags = &Flags{}
	}
	if c.Theme == nil {
		c.Theme = &ThemeOptions{}
	}
	if c.Theme.Layout == "" {
		c.Theme.Layout = "Bootstrap4"
	}
	if c.Theme.Calculators.ColumnCalculator == "" {
		c.Theme.Calculators.ColumnCalculator = DefaultColumnCalculator
	}
	if c.Theme.Calculators.SlideCalculator == "" {
		c.Theme.Calculators.SlideCalculator = DefaultSlideCalculator
	}
	if c.Theme.Grid.GridSize == nil {
		size := DefaultGridSize
		c.Theme.Grid.GridSize = &size
	}
	if c.AreaBlockConfiguration == nil {
		c.AreaBlockConfiguration = &AreaBlockConfiguration{}
	}
	abc := c.AreaBlockConfiguration
	if abc.Toolbar.Width == 0 {
		abc.Toolbar.Width = DefaultToolbarWidth
	}
	if abc.Toolbar.ButtonWidth == 0 {
		abc.Toolbar.ButtonWidth = DefaultToolbarButtonWidth
	}
	if abc.Toolbar.ButtonMaxCharacters == 0 {
		abc.Toolbar.ButtonMaxCharacters = DefaultToolbarMaxChars
	}
	if abc.ControlsAlign == "" {
		abc.ControlsAlign = DefaultControlsAlign
	}
	if abc.ControlsTrigger == "" {
		abc.ControlsTrigger = DefaultControlsTrigger
	}
	if c.PropertyNormalizer == nil {
		c.PropertyNormalizer = &PropertyNormalizerConfig{}
	}
	if c.ContextResolver == "" {
		c.ContextResolver = DefaultContextResolverName
	}
	if c.Areas == nil {
		c.Areas = NewOrderedMap[*AreaSchema]()
	}
	if c.Contexts == nil {
		c.Contexts = NewOrderedMap[*ContextConfig]()
	}
}

// expandSources resolves directories to the YAML files they contain, sorted by name.
func expandSources(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var dirFiles []string
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", p, err)
			}
			dirFiles = append(dirFiles, matches...)
		}
		if len(dirFiles) == 0 {
			return nil, fmt.Errorf("no YAML files found in %s", p)
		}
		sort.Strings(dirFiles)
		files = append(files, dirFiles...)
	}
	return files, nil
}

// scopeOf returns the context a contradiction path belongs to, "root" for
// the root scope.
func scopeOf(path string) string {
	rest, ok := strings.CutPrefix(path, "context.")
	if !ok {
		return "root"
	}
	id, _, _ := strings.Cut(rest, ".")
	return id
}

// IsStructuralError reports whether err was caused by malformed configuration.
func IsStructuralError(err error) bool {
	return toolbox.HasCode(err, toolbox.ErrCodeInvalidConfig)
}
