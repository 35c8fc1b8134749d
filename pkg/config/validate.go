package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/go-playground/validator/v10"
)

// Contradiction is a configuration that is well formed but inconsistent,
// such as an element referring to an undeclared tab.
type Contradiction struct {
	// Path locates the offending node (e.g. "context.blog.areas.teaser").
	Path string

	// Message describes the contradiction.
	Message string
}

func (c Contradiction) Error() string {
	if c.Path == "" {
		return c.Message
	}
	return c.Path + ": " + c.Message
}

// CheckContradictions reports every schema contradiction in cfg. It expects
// promotion to have already run; unresolved references are reported by
// PromoteInlineElements.
func CheckContradictions(cfg *Config) []Contradiction {
	var out []Contradiction

	for _, id := range cfg.EnabledCoreAreas {
		if !toolbox.IsCoreArea(id) {
			out = append(out, Contradiction{
				Path: "enabled_core_areas",
				Message: fmt.Sprintf("invalid core element %q in enabled_core_areas. Available types are: %s",
					id, strings.Join(toolbox.CoreAreaTypes(), ", ")),
			})
		}
	}

	out = append(out, checkScope("", &cfg.Scope)...)

	for id, ctxCfg := range cfg.Contexts.All() {
		path := "context." + id
		if ctxCfg == nil {
			continue
		}
		settings := ctxCfg.Settings
		if !settings.Merges() && len(settings.DisabledAreas) > 0 {
			out = append(out, Contradiction{
				Path:    path + ".settings",
				Message: `context conflict: "merge_with_root" is disabled but there are defined elements in "disabled_areas"`,
			})
		}
		if !settings.Merges() && len(settings.EnabledAreas) > 0 {
			out = append(out, Contradiction{
				Path:    path + ".settings",
				Message: `context conflict: "merge_with_root" is disabled but there are defined elements in "enabled_areas"`,
			})
		}
		if !settings.Merges() {
			out = append(out, checkScope(path+".", &ctxCfg.Scope)...)
			continue
		}
		// A merging context only overrides parts of root areas, so the
		// merged result is what has to be consistent.
		for areaID, area := range ctxCfg.Areas.All() {
			rootArea, _ := cfg.Areas.Get(areaID)
			out = append(out, CheckArea(path+".areas."+areaID, MergeArea(rootArea, area))...)
		}
	}

	return out
}

func checkScope(prefix string, scope *Scope) []Contradiction {
	var out []Contradiction
	for id, area := range scope.Areas.All() {
		out = append(out, CheckArea(prefix+"areas."+id, area)...)
	}
	return out
}

// CheckArea reports the contradictions of a single area schema.
func CheckArea(path string, area *AreaSchema) []Contradiction {
	if area == nil {
		return nil
	}

	var out []Contradiction

	if area.Tabs.Len() > 0 {
		for _, el := range area.ConfigElements.All() {
			if !area.Tabs.Has(el.Tab) {
				out = append(out, Contradiction{
					Path: path + ".config_elements",
					Message: fmt.Sprintf("missing or wrong area tab definition in config_elements. Available tabs are: %s",
						strings.Join(area.Tabs.Keys(), ", ")),
				})
				break
			}
		}
	} else {
		for _, el := range area.ConfigElements.All() {
			if el.Tab != "" {
				out = append(out, Contradiction{
					Path:    path + ".config_elements",
					Message: "unknown configured area tabs in config_elements. No tabs have been defined",
				})
				break
			}
		}
	}

	out = append(out, checkChildren(path+".config_elements", area.ConfigElements)...)
	out = append(out, checkChildren(path+".inline_config_elements", area.InlineConfigElements)...)

	return out
}

func checkChildren(path string, elements *ConfigElements) []Contradiction {
	var out []Contradiction
	for name, el := range elements.All() {
		if el.IsReference() {
			continue
		}
		if el.Type != toolbox.FieldTypeBlock && el.HasChildren() {
			out = append(out, Contradiction{
				Path:    path + "." + name,
				Message: fmt.Sprintf("type %q cannot have child elements", el.Type),
			})
		}
		out = append(out, checkChildren(path+"."+name+".children", el.Children)...)
	}
	return out
}

// checkFields runs the struct tag rules over every typed section. Contexts
// that merge with root are checked in their merged form, so a context may
// override single fields of a root element.
func checkFields(v *validator.Validate, cfg *Config) []ValidationError {
	var out []ValidationError

	check := func(path string, s interface{}) {
		err := v.Struct(s)
		if err == nil {
			return
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			out = append(out, ValidationError{Path: path, Message: err.Error(), Severity: SeverityError})
			return
		}
		for _, fe := range fieldErrs {
			out = append(out, ValidationError{
				Path:     path + "." + fieldPath(fe.Namespace()),
				Message:  fmt.Sprintf("failed on the %q rule", fe.Tag()),
				Severity: SeverityError,
			})
		}
	}

	for _, s := range cfg.effectiveScopes() {
		if s.scope.Theme != nil {
			check(s.prefix+"theme", s.scope.Theme)
		}
		if s.scope.AreaBlockConfiguration != nil {
			check(s.prefix+"area_block_configuration", s.scope.AreaBlockConfiguration)
		}
		for id, area := range s.scope.Areas.All() {
			if area == nil {
				continue
			}
			checkElementFields(check, s.prefix+"areas."+id+".config_elements", area.ConfigElements)
			checkElementFields(check, s.prefix+"areas."+id+".inline_config_elements", area.InlineConfigElements)
		}
	}

	return out
}

func checkElementFields(check func(string, interface{}), path string, elements *ConfigElements) {
	for name, el := range elements.All() {
		if el.IsReference() {
			continue
		}
		check(path+"."+name, el)
		checkElementFields(check, path+"."+name+".children", el.Children)
	}
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// contradictionError builds the strict-mode error for a set of contradictions.
func contradictionError(contradictions []Contradiction) error {
	msgs := make([]string, 0, len(contradictions))
	errs := make([]error, 0, len(contradictions))
	for _, c := range contradictions {
		msgs = append(msgs, c.Error())
		errs = append(errs, c)
	}
	sort.Strings(msgs)

	return toolbox.NewConfigurationError(
		fmt.Sprintf("%d schema contradiction(s): %s", len(contradictions), strings.Join(msgs, "; ")),
		errors.Join(errs...),
	)
}

// namedScope is a scope with the path prefix used in reports.
type namedScope struct {
	prefix string
	scope  *Scope
}

// scopes returns the root scope followed by every context scope.
func (c *Config) scopes() []namedScope {
	out := []namedScope{{prefix: "", scope: &c.Scope}}
	for id, ctxCfg := range c.Contexts.All() {
		if ctxCfg != nil {
			out = append(out, namedScope{prefix: "context." + id + ".", scope: &ctxCfg.Scope})
		}
	}
	return out
}

// effectiveScopes is like scopes but merges every merging context over root.
func (c *Config) effectiveScopes() []namedScope {
	out := []namedScope{{prefix: "", scope: &c.Scope}}
	for id, ctxCfg := range c.Contexts.All() {
		if ctxCfg == nil {
			continue
		}
		scope := ctxCfg.Scope
		if ctxCfg.Settings.Merges() {
			scope = MergeScope(c.Scope, ctxCfg.Scope)
		}
		out = append(out, namedScope{prefix: "context." + id + ".", scope: &scope})
	}
	return out
}
