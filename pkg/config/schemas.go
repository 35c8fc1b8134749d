package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// ToolboxSchema is the name of the built-in structural schema.
const ToolboxSchema = "toolbox"

// toolboxDefinition is the definition every configuration file is checked against.
const toolboxDefinition = "#Toolbox"

// SchemaRegistry manages CUE schemas for structural validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with the built-in schema.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := sr.RegisterSchema(ToolboxSchema, builtinToolboxSchema); err != nil {
		panic(fmt.Sprintf("builtin schema: %v", err))
	}

	return sr
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ListSchemas returns all registered schema names, sorted.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateYAML checks a YAML document against the #Toolbox definition of the
// named schema. Positions in the returned errors refer to the YAML source.
//
// A cue.Context is not safe for concurrent use, so building and unifying
// the document holds the registry's write lock.
func (sr *SchemaRegistry) ValidateYAML(schemaName, filename string, data []byte) []ValidationError {
	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return convertCUEErrors(filename, err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	schema, ok := sr.schemas[schemaName]
	if !ok {
		return []ValidationError{{
			File:     filename,
			Message:  fmt.Sprintf("schema %s not found", schemaName),
			Severity: SeverityError,
		}}
	}

	def := schema.LookupPath(cue.ParsePath(toolboxDefinition))
	if !def.Exists() {
		return []ValidationError{{
			File:     filename,
			Message:  fmt.Sprintf("schema %s has no %s definition", schemaName, toolboxDefinition),
			Severity: SeverityError,
		}}
	}

	val := sr.ctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return convertCUEErrors(filename, err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return convertCUEErrors(filename, err)
	}

	return nil
}

// convertCUEErrors converts CUE errors to a ValidationError slice.
func convertCUEErrors(filename string, err error) []ValidationError {
	var validationErrors []ValidationError

	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			File:     filename,
			Path:     strings.Join(e.Path(), "."),
			Message:  errors.Details(e, nil),
			Severity: SeverityError,
		}

		// The first position inside the source file is the most useful one;
		// the others point into the schema.
		for _, pos := range errors.Positions(e) {
			if pos.Filename() == filename {
				ve.Line = pos.Line()
				ve.Column = pos.Column()
				break
			}
		}

		validationErrors = append(validationErrors, ve)
	}

	return validationErrors
}

// Built-in schema definitions

const builtinToolboxSchema = `
// A config element is one editable field of an area. type is optional here
// because a later file or a context may override single fields; the merged
// result is checked for it.
#ConfigElement: {
	type?:                string & !=""
	title?:               string | null
	description?:         string | null
	property_normalizer?: string | null
	tab?:                 string | number | null
	config?:              {...} | null
	inline_rendered?:     bool
	enabled?:             bool
	children?:            null | {[string]: #ConfigElement | null}
}

#Area: {
	enabled?: bool

	// Tab ids mapped to translatable titles.
	tabs?: null | {[string]: string | null}

	config_elements?: null | {[string]: #ConfigElement | null}

	// "<" copies the config element of the same name.
	inline_config_elements?: null | {[string]: #ConfigElement | "<" | null}

	additional_property_normalizer?: null | {[string]: string}
	config_parameter?:               null | {...}
}

#Breakpoint: {
	identifier:   string & !=""
	name?:        string | null
	description?: string | null
}

#Theme: {
	layout?:             string
	default_layout?:     string
	headless_documents?: _
	calculators?: {
		column_calculator?: string
		slide_calculator?:  string
	}
	grid?: {
		grid_size?:    int & >=0
		column_store?: {...}
		breakpoints?: [...#Breakpoint]
	}
	wrapper?: {...}
}

#Restriction: {
	disallowed?: [...string]
	allowed?: [...string]
}

#Scope: {
	flags?: {
		strict_column_counter?: bool
	}
	areas?: null | {[string]: #Area | null}
	wysiwyg_editor?: {...}
	image_thumbnails?: {[string]: string}
	areablock_restriction?: {[string]: #Restriction}
	snippet_areablock_restriction?: {[string]: #Restriction}
	area_block_configuration?: {
		toolbar?: {
			width?:               int
			buttonWidth?:         int
			buttonMaxCharacters?: int
		}
		groups?: [...{
			title: string
			elements: [...string]
		}]
		controlsAlign?:   "top" | "right" | "left"
		controlsTrigger?: "hover" | "fixed"
	}
	theme?: #Theme
	data_attributes?: {...}
	property_normalizer?: {
		default_type_mapping?: {[string]: string}
	}
}

#Context: {
	#Scope
	settings?: {
		merge_with_root?: bool
		disabled_areas?: [...string]
		enabled_areas?: [...string]
	}
}

#Toolbox: {
	#Scope
	enabled_core_areas?: [...string]
	context_resolver?:   string
	context?: {[string]: #Context}
}
`
