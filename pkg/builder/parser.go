package builder

import (
	"fmt"
	"sort"
	"sync"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

// AreaInfo describes the brick instance being edited. It is supplied by the
// host and handed through to field parsers untouched; it may be nil.
type AreaInfo struct {
	// ContextID is the context namespace the brick is edited in.
	ContextID string

	// BrickID is the area id of the brick.
	BrickID string

	// Index is the position of the brick in its areablock.
	Index int

	// Params are host-specific parameters.
	Params map[string]interface{}
}

// ParseRequest is the input of one field parser call.
type ParseRequest struct {
	Info    *AreaInfo
	Name    string
	Element *config.ConfigElement

	// AdditionalClassesProcessed is true once an additionalClasses element
	// has been emitted earlier in the same build.
	AdditionalClassesProcessed bool

	Translator Translator
}

// FieldParser turns one config element into an editable node. A nil node
// means the field is not rendered.
type FieldParser interface {
	Parse(req ParseRequest) (*toolbox.EditableNode, error)
}

// ParserFunc adapts a function to FieldParser.
type ParserFunc func(req ParseRequest) (*toolbox.EditableNode, error)

// Parse implements FieldParser.
func (f ParserFunc) Parse(req ParseRequest) (*toolbox.EditableNode, error) {
	return f(req)
}

// StandardFieldTypes are the field types handled by the generic parser.
var StandardFieldTypes = []string{
	"additionalClasses",
	"additionalClassesChained",
	"areablock",
	"block",
	"checkbox",
	"columnadjuster",
	"date",
	"dynamicLink",
	"embed",
	"googlemap",
	"href",
	"image",
	"input",
	"link",
	"multihref",
	"multiselect",
	"numeric",
	"parallaximage",
	"relation",
	"relations",
	"renderlet",
	"select",
	"snippet",
	"table",
	"textarea",
	"vhs",
	"video",
	"wysiwyg",
}

// ParserRegistry maps field types to their parsers.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]FieldParser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{parsers: make(map[string]FieldParser)}
}

// NewDefaultParserRegistry creates a registry with the generic parser bound
// to every standard field type.
func NewDefaultParserRegistry() *ParserRegistry {
	r := NewParserRegistry()
	for _, t := range StandardFieldTypes {
		r.parsers[t] = ParserFunc(ParseGeneric)
	}
	return r
}

// Register binds a parser to a field type, replacing any earlier binding.
func (r *ParserRegistry) Register(fieldType string, p FieldParser) error {
	if fieldType == "" {
		return fmt.Errorf("field type is required")
	}
	if p == nil {
		return fmt.Errorf("parser for %s is nil", fieldType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[fieldType] = p
	return nil
}

// Lookup returns the parser of a field type.
func (r *ParserRegistry) Lookup(fieldType string) (FieldParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[fieldType]
	if !ok {
		return nil, toolbox.NewConfigurationError(fmt.Sprintf("unknown field type %q", fieldType), nil).
			WithCode(toolbox.ErrCodeUnknownFieldType)
	}
	return p, nil
}

// Types returns the registered field types, sorted.
func (r *ParserRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.parsers))
	for t := range r.parsers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ParseGeneric is the parser of the standard field types. Chained additional
// classes are only rendered after a plain additionalClasses field.
func ParseGeneric(req ParseRequest) (*toolbox.EditableNode, error) {
	el := req.Element

	if el.Type == toolbox.FieldTypeAdditionalClassesChained && !req.AdditionalClassesProcessed {
		return nil, nil
	}

	label := req.Name
	if el.Title != "" {
		label = translate(req.Translator, el.Title)
	}

	cfg := make(map[string]interface{}, len(el.Config))
	for k, v := range el.Config {
		cfg[k] = v
	}

	return &toolbox.EditableNode{
		Type:   el.Type,
		Name:   req.Name,
		Tab:    el.Tab,
		Label:  label,
		Config: cfg,
		AdditionalClassesElement: el.Type == toolbox.FieldTypeAdditionalClasses ||
			el.Type == toolbox.FieldTypeAdditionalClassesChained,
	}, nil
}

func translate(t Translator, key string) string {
	if t == nil {
		return key
	}
	return t.Trans(key, TranslationDomain)
}
