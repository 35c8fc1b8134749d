package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how schema contradictions are reported.
type Mode string

const (
	// ModeLenient logs contradictions as warnings and keeps loading.
	ModeLenient Mode = "lenient"

	// ModeStrict rejects a configuration that contains contradictions.
	ModeStrict Mode = "strict"
)

// PromotionReference is the inline element value that copies the
// same-named config element into the inline set.
const PromotionReference = "<"

// Default values applied to the root scope after loading.
const (
	DefaultGridSize            = 12
	DefaultToolbarWidth        = 172
	DefaultToolbarButtonWidth  = 168
	DefaultToolbarMaxChars     = 20
	DefaultControlsAlign       = "top"
	DefaultControlsTrigger     = "hover"
	DefaultColumnCalculator    = "column_calculator"
	DefaultSlideCalculator     = "slide_calculator"
	DefaultContextResolverName = "default"
)

// ConfigElement is one declared editable field of an area.
type ConfigElement struct {
	// Type is the editable field type (input, select, block, ...).
	Type string `yaml:"type" json:"type" validate:"required"`

	// Title is the translation key of the field label.
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Description is shown next to the field.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// PropertyNormalizer names the normalizer applied to the field value.
	PropertyNormalizer string `yaml:"property_normalizer,omitempty" json:"property_normalizer,omitempty"`

	// Tab is the id of the tab the field is grouped into.
	Tab string `yaml:"tab,omitempty" json:"tab,omitempty"`

	// Config is the opaque field configuration passed to the editor.
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`

	// InlineRendered marks a config element that was promoted into the inline set.
	InlineRendered bool `yaml:"inline_rendered,omitempty" json:"inline_rendered,omitempty"`

	// Enabled defaults to true. Disabled elements are dropped while loading.
	Enabled *bool `yaml:"enabled,omitempty" json:"-"`

	// Children holds the nested fields of a block element.
	Children *ConfigElements `yaml:"children,omitempty" json:"children,omitempty"`

	reference bool
}

// UnmarshalYAML accepts either an element mapping or the promotion reference "<".
func (e *ConfigElement) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Value == PromotionReference {
		*e = ConfigElement{reference: true}
		return nil
	}

	type plain ConfigElement
	return node.Decode((*plain)(e))
}

// IsEnabled reports whether the element is enabled.
func (e *ConfigElement) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// IsReference reports whether the element is an unresolved promotion reference.
func (e *ConfigElement) IsReference() bool {
	return e.reference
}

// HasChildren reports whether the element declares nested fields.
func (e *ConfigElement) HasChildren() bool {
	return e.Children.Len() > 0
}

// Clone returns a deep copy of the element.
func (e *ConfigElement) Clone() *ConfigElement {
	if e == nil {
		return nil
	}
	out := *e
	out.Config = cloneMap(e.Config)
	if e.Enabled != nil {
		enabled := *e.Enabled
		out.Enabled = &enabled
	}
	out.Children = e.Children.clone((*ConfigElement).Clone)
	return &out
}

// AreaSchema is the declared configuration of one area brick.
type AreaSchema struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Tabs maps tab ids to tab titles in declaration order.
	Tabs *Tabs `yaml:"tabs,omitempty" json:"tabs,omitempty"`

	// ConfigElements are the fields of the area's edit dialog.
	ConfigElements *ConfigElements `yaml:"config_elements,omitempty" json:"config_elements,omitempty"`

	// InlineConfigElements are the fields rendered inline in the brick.
	InlineConfigElements *ConfigElements `yaml:"inline_config_elements,omitempty" json:"inline_config_elements,omitempty"`

	// AdditionalPropertyNormalizer maps additional data keys to normalizer names.
	AdditionalPropertyNormalizer map[string]string `yaml:"additional_property_normalizer,omitempty" json:"additional_property_normalizer,omitempty"`

	// ConfigParameter is opaque per-area configuration.
	ConfigParameter map[string]interface{} `yaml:"config_parameter,omitempty" json:"config_parameter,omitempty"`
}

// IsEnabled reports whether the area is enabled.
func (a *AreaSchema) IsEnabled() bool {
	return a != nil && (a.Enabled == nil || *a.Enabled)
}

// Clone returns a deep copy of the area schema.
func (a *AreaSchema) Clone() *AreaSchema {
	if a == nil {
		return nil
	}
	out := &AreaSchema{
		Tabs:                 a.Tabs.clone(func(s string) string { return s }),
		ConfigElements:       a.ConfigElements.clone((*ConfigElement).Clone),
		InlineConfigElements: a.InlineConfigElements.clone((*ConfigElement).Clone),
		ConfigParameter:      cloneMap(a.ConfigParameter),
	}
	if a.Enabled != nil {
		enabled := *a.Enabled
		out.Enabled = &enabled
	}
	if a.AdditionalPropertyNormalizer != nil {
		out.AdditionalPropertyNormalizer = make(map[string]string, len(a.AdditionalPropertyNormalizer))
		for k, v := range a.AdditionalPropertyNormalizer {
			out.AdditionalPropertyNormalizer[k] = v
		}
	}
	return out
}

// ContextSettings controls how a context relates to the root configuration.
type ContextSettings struct {
	// MergeWithRoot defaults to true.
	MergeWithRoot *bool `yaml:"merge_with_root,omitempty" json:"merge_with_root,omitempty"`

	// DisabledAreas are root areas hidden in this context.
	DisabledAreas []string `yaml:"disabled_areas,omitempty" json:"disabled_areas,omitempty"`

	// EnabledAreas are areas made available in this context.
	EnabledAreas []string `yaml:"enabled_areas,omitempty" json:"enabled_areas,omitempty"`
}

// Merges reports whether the context layers over the root configuration.
func (s ContextSettings) Merges() bool {
	return s.MergeWithRoot == nil || *s.MergeWithRoot
}

// Calculators names the services computing column and slide layouts.
type Calculators struct {
	ColumnCalculator string `yaml:"column_calculator,omitempty" json:"column_calculator,omitempty"`
	SlideCalculator  string `yaml:"slide_calculator,omitempty" json:"slide_calculator,omitempty"`
}

// Breakpoint is a responsive grid breakpoint.
type Breakpoint struct {
	Identifier  string `yaml:"identifier" json:"identifier" validate:"required"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Grid describes the theme's column grid.
type Grid struct {
	GridSize    *int                   `yaml:"grid_size,omitempty" json:"grid_size,omitempty" validate:"omitempty,gte=0"`
	ColumnStore map[string]interface{} `yaml:"column_store,omitempty" json:"column_store,omitempty"`
	Breakpoints []Breakpoint           `yaml:"breakpoints,omitempty" json:"breakpoints,omitempty" validate:"dive"`
}

// Size returns the grid size, DefaultGridSize when unset.
func (g Grid) Size() int {
	if g.GridSize == nil {
		return DefaultGridSize
	}
	return *g.GridSize
}

// ThemeOptions is the layout configuration of the active theme.
type ThemeOptions struct {
	Layout        string                 `yaml:"layout,omitempty" json:"layout,omitempty"`
	DefaultLayout string                 `yaml:"default_layout,omitempty" json:"default_layout,omitempty"`
	Calculators   Calculators            `yaml:"calculators,omitempty" json:"calculators"`
	Grid          Grid                   `yaml:"grid,omitempty" json:"grid"`
	Wrapper       map[string]interface{} `yaml:"wrapper,omitempty" json:"wrapper,omitempty"`
}

// PropertyNormalizerConfig holds the default normalizer per field type.
type PropertyNormalizerConfig struct {
	DefaultTypeMapping map[string]string `yaml:"default_type_mapping,omitempty" json:"default_type_mapping,omitempty"`
}

// Flags are feature switches.
type Flags struct {
	StrictColumnCounter bool `yaml:"strict_column_counter" json:"strict_column_counter"`
}

// Toolbar sizes the areablock toolbar.
type Toolbar struct {
	Width               int `yaml:"width,omitempty" json:"width" validate:"gte=0"`
	ButtonWidth         int `yaml:"buttonWidth,omitempty" json:"buttonWidth" validate:"gte=0"`
	ButtonMaxCharacters int `yaml:"buttonMaxCharacters,omitempty" json:"buttonMaxCharacters" validate:"gte=0"`
}

// AreaBlockConfiguration configures the areablock editor.
type AreaBlockConfiguration struct {
	Toolbar         Toolbar          `yaml:"toolbar,omitempty" json:"toolbar"`
	Groups          []AreaBlockGroup `yaml:"groups,omitempty" json:"groups,omitempty" validate:"dive"`
	ControlsAlign   string           `yaml:"controlsAlign,omitempty" json:"controlsAlign" validate:"omitempty,oneof=top right left"`
	ControlsTrigger string           `yaml:"controlsTrigger,omitempty" json:"controlsTrigger" validate:"omitempty,oneof=hover fixed"`
}

// AreaBlockGroup is a named group of bricks in the areablock toolbar.
type AreaBlockGroup struct {
	Title    string   `yaml:"title" json:"title" validate:"required"`
	Elements []string `yaml:"elements" json:"elements"`
}

// Restriction lists the bricks allowed or disallowed in an areablock.
type Restriction struct {
	Disallowed []string `yaml:"disallowed,omitempty" json:"disallowed,omitempty"`
	Allowed    []string `yaml:"allowed,omitempty" json:"allowed,omitempty"`
}

// Scope holds everything that can be configured at root level and per context.
type Scope struct {
	Flags                       *Flags                    `yaml:"flags,omitempty" json:"flags,omitempty"`
	Areas                       *OrderedMap[*AreaSchema]  `yaml:"areas,omitempty" json:"areas,omitempty"`
	Theme                       *ThemeOptions             `yaml:"theme,omitempty" json:"theme,omitempty"`
	PropertyNormalizer          *PropertyNormalizerConfig `yaml:"property_normalizer,omitempty" json:"property_normalizer,omitempty"`
	ImageThumbnails             map[string]string         `yaml:"image_thumbnails,omitempty" json:"image_thumbnails,omitempty"`
	AreaBlockConfiguration      *AreaBlockConfiguration   `yaml:"area_block_configuration,omitempty" json:"area_block_configuration,omitempty"`
	AreaBlockRestriction        map[string]Restriction    `yaml:"areablock_restriction,omitempty" json:"areablock_restriction,omitempty"`
	SnippetAreaBlockRestriction map[string]Restriction    `yaml:"snippet_areablock_restriction,omitempty" json:"snippet_areablock_restriction,omitempty"`
	WysiwygEditor               map[string]interface{}    `yaml:"wysiwyg_editor,omitempty" json:"wysiwyg_editor,omitempty"`
	DataAttributes              map[string]interface{}    `yaml:"data_attributes,omitempty" json:"data_attributes,omitempty"`
}

// ContextConfig is the configuration of one named context.
type ContextConfig struct {
	Settings ContextSettings `yaml:"settings,omitempty" json:"settings"`
	Scope    `yaml:",inline"`
}

// Config is the complete toolbox configuration.
type Config struct {
	Scope `yaml:",inline"`

	// EnabledCoreAreas lists the core bricks switched on.
	EnabledCoreAreas []string `yaml:"enabled_core_areas,omitempty" json:"enabled_core_areas,omitempty"`

	// ContextResolver names the resolver used to pick the active context.
	ContextResolver string `yaml:"context_resolver,omitempty" json:"context_resolver,omitempty"`

	// Contexts are the named configuration contexts.
	Contexts *OrderedMap[*ContextConfig] `yaml:"context,omitempty" json:"context,omitempty"`
}

// Context returns the named context configuration.
func (c *Config) Context(id string) (*ContextConfig, bool) {
	if c == nil {
		return nil, false
	}
	return c.Contexts.Get(id)
}

// ValidationError represents a configuration problem with its location.
type ValidationError struct {
	// File is the source file containing the problem.
	File string `json:"file,omitempty"`

	// Line is the line number, zero when unknown.
	Line int `json:"line,omitempty"`

	// Column is the column number, zero when unknown.
	Column int `json:"column,omitempty"`

	// Path is the configuration path (e.g. "areas.headline.config_elements.title").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is "error" or "warning".
	Severity string `json:"severity"`
}

// ParsedConfig is the result of loading configuration files.
type ParsedConfig struct {
	// Config is the loaded configuration, nil when loading failed.
	Config *Config `json:"config,omitempty"`

	// SourceFiles lists the files that were loaded.
	SourceFiles []string `json:"source_files"`

	// ParsedAt is when the configuration was loaded.
	ParsedAt time.Time `json:"parsed_at"`

	// Errors contains structural errors and contradiction reports.
	Errors []ValidationError `json:"errors,omitempty"`
}

// HasErrors reports whether any problem has error severity.
func (p *ParsedConfig) HasErrors() bool {
	for _, e := range p.Errors {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Warnings returns the problems with warning severity.
func (p *ParsedConfig) Warnings() []ValidationError {
	var out []ValidationError
	for _, e := range p.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Severity levels of a ValidationError.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
