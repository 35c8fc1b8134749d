package calculator

import (
	"fmt"
	"sync"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

type key struct {
	alias string
	typ   Type
}

// Registry holds calculators keyed by alias and type.
type Registry struct {
	mu          sync.RWMutex
	calculators map[key]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{calculators: make(map[key]interface{})}
}

// NewDefaultRegistry registers the Bootstrap 4 calculators under the
// default aliases.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.Register(config.DefaultColumnCalculator, TypeColumn, Bootstrap4Columns{}); err != nil {
		panic(err)
	}
	if err := r.Register(config.DefaultSlideCalculator, TypeSlide, Bootstrap4Slides{}); err != nil {
		panic(err)
	}
	return r
}

// Register adds a calculator. impl must implement the interface matching typ.
func (r *Registry) Register(alias string, typ Type, impl interface{}) error {
	if alias == "" {
		return fmt.Errorf("calculator alias is required")
	}
	switch typ {
	case TypeColumn:
		if _, ok := impl.(ColumnCalculator); !ok {
			return fmt.Errorf("calculator %s does not implement ColumnCalculator", alias)
		}
	case TypeSlide:
		if _, ok := impl.(SlideCalculator); !ok {
			return fmt.Errorf("calculator %s does not implement SlideCalculator", alias)
		}
	default:
		return fmt.Errorf("unknown calculator type %q", typ)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{alias, typ}
	if _, exists := r.calculators[k]; exists {
		return toolbox.NewConfigurationError(fmt.Sprintf("%s calculator %s already registered", typ, alias), nil).
			WithCode(toolbox.ErrCodeDuplicateCalculator)
	}
	r.calculators[k] = impl
	return nil
}

// Has reports whether alias is registered for typ.
func (r *Registry) Has(alias string, typ Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calculators[key{alias, typ}]
	return ok
}

// Get returns the calculator registered for alias and typ.
func (r *Registry) Get(alias string, typ Type) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	impl, ok := r.calculators[key{alias, typ}]
	if !ok {
		return nil, toolbox.NewNotFoundError(fmt.Sprintf("%s calculator %q is not registered", typ, alias), nil).
			WithCode(toolbox.ErrCodeCalculatorNotFound)
	}
	return impl, nil
}

// Column returns the column calculator registered as alias.
func (r *Registry) Column(alias string) (ColumnCalculator, error) {
	impl, err := r.Get(alias, TypeColumn)
	if err != nil {
		return nil, err
	}
	return impl.(ColumnCalculator), nil
}

// Slide returns the slide calculator registered as alias.
func (r *Registry) Slide(alias string) (SlideCalculator, error) {
	impl, err := r.Get(alias, TypeSlide)
	if err != nil {
		return nil, err
	}
	return impl.(SlideCalculator), nil
}

// Validate reports every theme calculator alias in cfg that r cannot
// resolve, for the root scope and each context with its own theme.
func Validate(r *Registry, cfg *config.Config) []config.ValidationError {
	var problems []config.ValidationError

	check := func(prefix string, theme *config.ThemeOptions) {
		if theme == nil {
			return
		}
		refs := []struct {
			field string
			alias string
			typ   Type
		}{
			{"column_calculator", theme.Calculators.ColumnCalculator, TypeColumn},
			{"slide_calculator", theme.Calculators.SlideCalculator, TypeSlide},
		}
		for _, ref := range refs {
			if ref.alias == "" || r.Has(ref.alias, ref.typ) {
				continue
			}
			problems = append(problems, config.ValidationError{
				Path:     prefix + "theme.calculators." + ref.field,
				Message:  fmt.Sprintf("%s calculator %q is not registered", ref.typ, ref.alias),
				Severity: "error",
			})
		}
	}

	check("", cfg.Theme)
	cfg.Contexts.Each(func(id string, c *config.ContextConfig) bool {
		if c != nil {
			check("context."+id+".", c.Theme)
		}
		return true
	})

	return problems
}
