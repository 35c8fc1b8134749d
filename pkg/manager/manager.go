package manager

import (
	"fmt"
	"slices"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/rs/zerolog"
)

// Availability describes whether an area can be used in the selected context.
type Availability int

const (
	// Available means the area is configured and usable.
	Available Availability = iota

	// Disabled means the area is switched off, by the area itself or by the
	// context's disabled_areas.
	Disabled

	// NotEnabled means the area exists but was not enabled for the context,
	// or is a core area missing from enabled_core_areas.
	NotEnabled

	// NotFound means no configuration exists for the area.
	NotFound
)

func (a Availability) String() string {
	switch a {
	case Available:
		return "available"
	case Disabled:
		return "disabled"
	case NotEnabled:
		return "not_enabled"
	case NotFound:
		return "not_found"
	default:
		return fmt.Sprintf("availability(%d)", int(a))
	}
}

// Config keys accepted by GetConfig.
const (
	KeyTheme                       = "theme"
	KeyPropertyNormalizer          = "property_normalizer"
	KeyImageThumbnails             = "image_thumbnails"
	KeyFlags                       = "flags"
	KeyAreaBlockConfiguration      = "area_block_configuration"
	KeyAreaBlockRestriction        = "areablock_restriction"
	KeySnippetAreaBlockRestriction = "snippet_areablock_restriction"
	KeyWysiwygEditor               = "wysiwyg_editor"
	KeyDataAttributes              = "data_attributes"
	KeyEnabledCoreAreas            = "enabled_core_areas"
)

// Manager resolves the effective configuration for one context. It is cheap
// to create and meant to be used by a single render pass; the underlying
// *config.Config is shared and never modified.
type Manager struct {
	cfg       *config.Config
	logger    zerolog.Logger
	contextID string
	settings  config.ContextSettings
	context   *config.ContextConfig
	scope     config.Scope
}

// New creates a manager with the root context selected.
func New(cfg *config.Config, logger zerolog.Logger) *Manager {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &Manager{
		cfg:    cfg,
		logger: logger.With().Str("component", "manager").Logger(),
		scope:  cfg.Scope,
	}
}

// SetContextNamespace selects a context. The empty id selects the root
// configuration; an unknown id is a not-found error and leaves the selection
// unchanged.
func (m *Manager) SetContextNamespace(id string) error {
	if id == "" {
		m.contextID = ""
		m.context = nil
		m.settings = config.ContextSettings{}
		m.scope = m.cfg.Scope
		return nil
	}

	ctxCfg, ok := m.cfg.Context(id)
	if !ok || ctxCfg == nil {
		return toolbox.NewNotFoundError(fmt.Sprintf("toolbox context %q is not configured", id), nil).
			WithCode(toolbox.ErrCodeContextNotFound).
			WithDetail("available", m.cfg.Contexts.Keys())
	}

	m.contextID = id
	m.context = ctxCfg
	m.settings = ctxCfg.Settings
	if ctxCfg.Settings.Merges() {
		m.scope = config.MergeScope(m.cfg.Scope, ctxCfg.Scope)
	} else {
		m.scope = ctxCfg.Scope
	}

	m.logger.Debug().
		Str("context", id).
		Bool("merge_with_root", ctxCfg.Settings.Merges()).
		Msg("Context selected")

	return nil
}

// ContextIdentifier returns the selected context id, empty for root.
func (m *Manager) ContextIdentifier() string {
	return m.contextID
}

// IsContextConfig reports whether a named context is selected.
func (m *Manager) IsContextConfig() bool {
	return m.contextID != ""
}

// ContextIDs returns the configured context ids in declaration order.
func (m *Manager) ContextIDs() []string {
	return m.cfg.Contexts.Keys()
}

// GetCurrentContextSettings returns the settings of the selected context.
// The root context merges with itself and has no area lists.
func (m *Manager) GetCurrentContextSettings() config.ContextSettings {
	if m.context == nil {
		merge := true
		return config.ContextSettings{MergeWithRoot: &merge}
	}
	return m.settings
}

// GetAreaConfig returns the effective schema of an area, or false when the
// area is not available in the selected context.
func (m *Manager) GetAreaConfig(brickID string) (*config.AreaSchema, bool) {
	if m.AreaAvailability(brickID) != Available {
		return nil, false
	}
	area, ok := m.scope.Areas.Get(brickID)
	if !ok || area == nil {
		return nil, false
	}
	return area, true
}

// AreaAvailability reports whether an area can be used in the selected
// context. Explicit enabled_areas win over disabled_areas.
func (m *Manager) AreaAvailability(brickID string) Availability {
	area, declared := m.scope.Areas.Get(brickID)

	if m.context != nil {
		if slices.Contains(m.settings.EnabledAreas, brickID) {
			if !declared {
				return NotFound
			}
			return Available
		}
		if slices.Contains(m.settings.DisabledAreas, brickID) {
			return Disabled
		}
		if !m.settings.Merges() {
			if _, own := m.context.Areas.Get(brickID); !own {
				if declared || m.rootDeclares(brickID) {
					return NotEnabled
				}
				return NotFound
			}
		}
	}

	if !declared || area == nil {
		if m.rootDeclares(brickID) {
			return NotEnabled
		}
		return NotFound
	}
	if !area.IsEnabled() {
		return Disabled
	}
	if toolbox.IsCoreArea(brickID) && len(m.cfg.EnabledCoreAreas) > 0 &&
		!slices.Contains(m.cfg.EnabledCoreAreas, brickID) {
		return NotEnabled
	}

	return Available
}

func (m *Manager) rootDeclares(brickID string) bool {
	return m.cfg.Areas.Has(brickID)
}

// AvailableAreas returns the ids of all areas available in the selected
// context, in declaration order.
func (m *Manager) AvailableAreas() []string {
	var out []string
	for id := range m.scope.Areas.All() {
		if m.AreaAvailability(id) == Available {
			out = append(out, id)
		}
	}
	return out
}

// Theme returns the effective theme options.
func (m *Manager) Theme() *config.ThemeOptions {
	if m.scope.Theme == nil {
		return &config.ThemeOptions{}
	}
	return m.scope.Theme
}

// DefaultNormalizer returns the normalizer configured for a field type.
func (m *Manager) DefaultNormalizer(fieldType string) (string, bool) {
	if m.scope.PropertyNormalizer == nil {
		return "", false
	}
	name, ok := m.scope.PropertyNormalizer.DefaultTypeMapping[fieldType]
	return name, ok && name != ""
}

// GetConfig returns a top-level configuration section of the selected context.
func (m *Manager) GetConfig(key string) (interface{}, bool) {
	switch key {
	case KeyTheme:
		return m.Theme(), true
	case KeyPropertyNormalizer:
		return m.scope.PropertyNormalizer, m.scope.PropertyNormalizer != nil
	case KeyImageThumbnails:
		return m.scope.ImageThumbnails, m.scope.ImageThumbnails != nil
	case KeyFlags:
		return m.scope.Flags, m.scope.Flags != nil
	case KeyAreaBlockConfiguration:
		return m.scope.AreaBlockConfiguration, m.scope.AreaBlockConfiguration != nil
	case KeyAreaBlockRestriction:
		return m.scope.AreaBlockRestriction, m.scope.AreaBlockRestriction != nil
	case KeySnippetAreaBlockRestriction:
		return m.scope.SnippetAreaBlockRestriction, m.scope.SnippetAreaBlockRestriction != nil
	case KeyWysiwygEditor:
		return m.scope.WysiwygEditor, m.scope.WysiwygEditor != nil
	case KeyDataAttributes:
		return m.scope.DataAttributes, m.scope.DataAttributes != nil
	case KeyEnabledCoreAreas:
		return m.cfg.EnabledCoreAreas, true
	default:
		return nil, false
	}
}

// ImageThumbnail returns the thumbnail name configured for an image key.
func (m *Manager) ImageThumbnail(key string) (string, bool) {
	name, ok := m.scope.ImageThumbnails[key]
	return name, ok
}
