package headless

import (
	"github.com/brickyard/toolbox/pkg/config"
)

// PropertyNormalizerKey is the editable configuration key naming an explicit normalizer.
const PropertyNormalizerKey = "property_normalizer"

// Values is an ordered set of rendered field values.
type Values = config.OrderedMap[interface{}]

// NewValues creates an empty value set.
func NewValues() *Values {
	return config.NewOrderedMap[interface{}]()
}

// Response is what the rendering host hands over for one rendered unit.
type Response struct {
	// Type is the element type of the payload, "brick" or "editable".
	Type string

	// BrickConfiguration is the static configuration of a brick.
	BrickConfiguration map[string]interface{}

	// ConfigElementData are the values of the brick's config elements.
	ConfigElementData *Values

	// InlineConfigElementData are the values rendered inline, or the values
	// of a plain editable.
	InlineConfigElementData *Values

	// AdditionalConfigData are values outside the schema that may have an
	// entry in the area's additional property normalizer map.
	AdditionalConfigData *Values

	// BrickParent is the area id of the brick a plain editable belongs to.
	BrickParent string

	// EditableConfiguration is the inline schema of a plain editable.
	EditableConfiguration map[string]interface{}

	// EditableType is the field type of a plain editable.
	EditableType string
}

// HasBrickParent reports whether a plain editable belongs to a brick.
func (r *Response) HasBrickParent() bool {
	return r.BrickParent != ""
}

// HasEditableConfiguration reports whether a plain editable carries its own schema.
func (r *Response) HasEditableConfiguration() bool {
	return r.EditableConfiguration != nil
}

// Renderer is a live editable that can render itself into a value.
type Renderer interface {
	Render() (interface{}, error)
}

// DataProvider is a live editable that exposes its plain data.
type DataProvider interface {
	Data() interface{}
}

// Editable identifies a plain editable.
type Editable interface {
	Name() string
	Type() string
}

type editableRef struct {
	name, typ string
}

func (e editableRef) Name() string { return e.name }
func (e editableRef) Type() string { return e.typ }

// NewEditable returns an Editable with the given name and type.
func NewEditable(name, typ string) Editable {
	return editableRef{name: name, typ: typ}
}

func valuesMap(v *Values) map[string]interface{} {
	out := make(map[string]interface{}, v.Len())
	for name, value := range v.All() {
		out[name] = value
	}
	return out
}
