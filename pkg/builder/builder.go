package builder

import (
	"context"
	"fmt"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/rs/zerolog"
)

const (
	columnsBrickID        = "columns"
	columnTypeElement     = "type"
	columnAdjusterLabel   = "Column adjuster"
	columnAdjusterElement = toolbox.NodeTypeColumnAdjuster
)

// BuildOptions controls one tree build.
type BuildOptions struct {
	// AllowTabs buckets the nodes into a tab panel when the area declares tabs.
	AllowTabs bool

	// InlineContext skips elements that are rendered inline by the brick.
	InlineContext bool
}

// DefaultBuildOptions returns the options of an edit dialog build.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{AllowTabs: true}
}

// Builder turns ordered config elements into editable trees.
type Builder struct {
	parsers    *ParserRegistry
	translator Translator
	logger     zerolog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithParsers replaces the default parser registry.
func WithParsers(r *ParserRegistry) Option {
	return func(b *Builder) {
		b.parsers = r
	}
}

// WithTranslator sets the label translator.
func WithTranslator(t Translator) Option {
	return func(b *Builder) {
		b.translator = t
	}
}

// New creates a builder with the standard field parsers and no translations.
func New(logger zerolog.Logger, opts ...Option) *Builder {
	b := &Builder{
		parsers:    NewDefaultParserRegistry(),
		translator: IdentityTranslator{},
		logger:     logger.With().Str("component", "builder").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Parsers returns the builder's parser registry.
func (b *Builder) Parsers() *ParserRegistry {
	return b.parsers
}

// Build resolves elements into an editable tree. The elements are expected
// to be validated already; tab references are not re-checked here and nodes
// pointing at an undeclared tab are left out of the tab panel.
func (b *Builder) Build(
	ctx context.Context,
	info *AreaInfo,
	brickID string,
	theme *config.ThemeOptions,
	elements *config.ConfigElements,
	tabs *config.Tabs,
	opts BuildOptions,
) (*toolbox.Tree, error) {
	var contextID string
	if info != nil {
		contextID = info.ContextID
	}

	var tree *toolbox.Tree
	err := telemetry.RecordBuild(ctx, contextID, brickID, func(context.Context) (int, error) {
		var err error
		tree, err = b.build(info, brickID, theme, elements, tabs, opts)
		if err != nil {
			return 0, err
		}
		return len(tree.Flatten()), nil
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug().
		Str("brick", brickID).
		Bool("tabbed", tree.IsTabbed()).
		Int("nodes", len(tree.Flatten())).
		Msg("Built editable tree")

	return tree, nil
}

// BuildArea builds the edit dialog tree of an area in the manager's
// selected context.
func (b *Builder) BuildArea(ctx context.Context, info *AreaInfo, m *manager.Manager, brickID string, opts BuildOptions) (*toolbox.Tree, error) {
	area, ok := m.GetAreaConfig(brickID)
	if !ok {
		availability := m.AreaAvailability(brickID)
		return nil, toolbox.NewNotFoundError(fmt.Sprintf("area %s is %s", brickID, availability), nil).
			WithCode(toolbox.ErrCodeAreaNotFound).
			WithArea(brickID).
			WithDetail("availability", availability.String())
	}

	if info == nil {
		info = &AreaInfo{}
	}
	if info.ContextID == "" {
		info.ContextID = m.ContextIdentifier()
	}
	if info.BrickID == "" {
		info.BrickID = brickID
	}

	return b.Build(ctx, info, brickID, m.Theme(), area.ConfigElements, area.Tabs, opts)
}

func (b *Builder) build(
	info *AreaInfo,
	brickID string,
	theme *config.ThemeOptions,
	elements *config.ConfigElements,
	tabs *config.Tabs,
	opts BuildOptions,
) (*toolbox.Tree, error) {
	if elements.Len() == 0 {
		return &toolbox.Tree{}, nil
	}

	var nodes []*toolbox.EditableNode
	acProcessed := false

	for name, el := range elements.All() {
		if opts.InlineContext && el.InlineRendered {
			continue
		}

		node, err := b.ParseElement(info, brickID, theme, name, el, acProcessed)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}

		nodes = append(nodes, node)

		if adjuster := b.columnAdjuster(brickID, name, el.Tab, theme); adjuster != nil {
			nodes = append(nodes, adjuster)
		}

		if el.Type == toolbox.FieldTypeAdditionalClasses {
			acProcessed = true
		}
	}

	nodes = partitionAdditionalClasses(nodes)

	if opts.AllowTabs && tabs.Len() > 0 {
		return &toolbox.Tree{TabPanel: b.bucketTabs(nodes, tabs)}, nil
	}
	return &toolbox.Tree{Nodes: nodes}, nil
}

// ParseElement parses one config element. Block elements with children get
// their children built as a flat tree without tabs.
func (b *Builder) ParseElement(
	info *AreaInfo,
	brickID string,
	theme *config.ThemeOptions,
	name string,
	el *config.ConfigElement,
	acProcessed bool,
) (*toolbox.EditableNode, error) {
	parser, err := b.parsers.Lookup(el.Type)
	if err != nil {
		return nil, annotate(err, brickID, name)
	}

	node, err := parser.Parse(ParseRequest{
		Info:                       info,
		Name:                       name,
		Element:                    el,
		AdditionalClassesProcessed: acProcessed,
		Translator:                 b.translator,
	})
	if err != nil {
		return nil, annotate(err, brickID, name)
	}
	if node == nil {
		return nil, nil
	}

	if el.Type == toolbox.FieldTypeBlock && el.HasChildren() {
		children, err := b.build(info, brickID, theme, el.Children, nil, DefaultBuildOptions())
		if err != nil {
			return nil, err
		}
		node.Children = children
	}

	return node, nil
}

// columnAdjuster returns the synthetic column adjuster that follows the
// "type" element of the columns brick when the theme has breakpoints.
func (b *Builder) columnAdjuster(brickID, name, tab string, theme *config.ThemeOptions) *toolbox.EditableNode {
	if brickID != columnsBrickID || name != columnTypeElement {
		return nil
	}
	if theme == nil || len(theme.Grid.Breakpoints) == 0 {
		return nil
	}
	return &toolbox.EditableNode{
		Type:   columnAdjusterElement,
		Name:   columnAdjusterElement,
		Tab:    tab,
		Label:  translate(b.translator, columnAdjusterLabel),
		Config: map[string]interface{}{},
	}
}

func (b *Builder) bucketTabs(nodes []*toolbox.EditableNode, tabs *config.Tabs) *toolbox.TabPanel {
	panel := &toolbox.TabPanel{Type: toolbox.NodeTypeTabPanel}
	for tabID, title := range tabs.All() {
		items := []*toolbox.EditableNode{}
		for _, node := range nodes {
			if node.Tab == tabID {
				items = append(items, node)
			}
		}
		panel.Items = append(panel.Items, toolbox.Panel{
			Type:  toolbox.NodeTypePanel,
			Title: translate(b.translator, title),
			Items: items,
		})
	}
	return panel
}

// partitionAdditionalClasses moves additional classes nodes behind all
// other nodes, keeping the relative order within both groups.
func partitionAdditionalClasses(nodes []*toolbox.EditableNode) []*toolbox.EditableNode {
	out := make([]*toolbox.EditableNode, 0, len(nodes))
	var classes []*toolbox.EditableNode
	for _, node := range nodes {
		if node.AdditionalClassesElement {
			classes = append(classes, node)
			continue
		}
		out = append(out, node)
	}
	return append(out, classes...)
}

func annotate(err error, brickID, name string) error {
	if terr, ok := err.(*toolbox.Error); ok {
		if terr.Area == "" {
			terr.Area = brickID
		}
		if terr.Element == "" {
			terr.Element = name
		}
		return terr
	}
	return fmt.Errorf("failed to parse element %s of %s: %w", name, brickID, err)
}
