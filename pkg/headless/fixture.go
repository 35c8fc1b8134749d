package headless

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	tagAsset  = "!asset"
	tagMarkup = "!markup"

	// markerKey carries a tagged scalar through plain YAML decoding.
	markerKey = "$toolbox_tag"
)

// Asset is a reference to a stored file, as held by an image or link editable.
type Asset struct {
	AssetPath string
}

// Path returns the public path of the asset.
func (a Asset) Path() string { return a.AssetPath }

// Data returns the asset as plain data.
func (a Asset) Data() interface{} {
	return map[string]interface{}{"path": a.AssetPath}
}

// Markup is a live editable that renders to its trimmed source.
type Markup struct {
	Source string
}

// Render implements Renderer.
func (m Markup) Render() (interface{}, error) {
	return strings.TrimSpace(m.Source), nil
}

// resolveTags replaces !asset and !markup scalars by marker mappings so they
// survive decoding into interface{} values.
func resolveTags(node *yaml.Node) error {
	switch node.Tag {
	case tagAsset, tagMarkup:
		if node.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %s expects a scalar", node.Line, node.Tag)
		}
		tag, value := node.Tag, node.Value
		*node = yaml.Node{
			Kind: yaml.MappingNode,
			Tag:  "!!map",
			Line: node.Line,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: markerKey},
				{Kind: yaml.ScalarNode, Tag: "!!str", Value: tag + " " + value},
			},
		}
		return nil
	}
	for _, child := range node.Content {
		if err := resolveTags(child); err != nil {
			return err
		}
	}
	return nil
}

// liveValue turns marker mappings back into live editables.
func liveValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		if marker, ok := val[markerKey].(string); ok && len(val) == 1 {
			tag, value, _ := strings.Cut(marker, " ")
			switch tag {
			case tagAsset:
				return Asset{AssetPath: value}
			case tagMarkup:
				return Markup{Source: value}
			}
		}
		for k, item := range val {
			val[k] = liveValue(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = liveValue(item)
		}
		return val
	default:
		return v
	}
}

func liveValues(values *Values) {
	for name, v := range values.All() {
		values.Set(name, liveValue(v))
	}
}

func (p *Page) resolveLiveValues() {
	for i := range p.AreaBlocks {
		p.AreaBlocks[i].resolveLiveValues()
	}
	for i := range p.Blocks {
		for j := range p.Blocks[i].Items {
			resolveEditables(p.Blocks[i].Items[j].Editables)
		}
	}
	resolveEditables(p.Editables)
}

func (ab *AreaBlock) resolveLiveValues() {
	for i := range ab.Bricks {
		b := &ab.Bricks[i]
		liveValues(b.ConfigElements)
		liveValues(b.InlineConfigElements)
		liveValues(b.Additional)
		for j := range b.AreaBlocks {
			b.AreaBlocks[j].resolveLiveValues()
		}
		resolveEditables(b.Editables)
		if b.Snippet != nil {
			b.Snippet.resolveLiveValues()
		}
	}
}

func resolveEditables(editables []PageEditable) {
	for i := range editables {
		liveValues(editables[i].Values)
	}
}
