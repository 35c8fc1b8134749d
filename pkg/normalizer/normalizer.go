package normalizer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/brickyard/toolbox/pkg/toolbox"
)

// Normalizer transforms a raw field value into its headless representation.
type Normalizer interface {
	Normalize(ctx context.Context, value interface{}, contextID string) (interface{}, error)
}

// Func adapts a plain function to the Normalizer interface.
type Func func(ctx context.Context, value interface{}, contextID string) (interface{}, error)

// Normalize calls f.
func (f Func) Normalize(ctx context.Context, value interface{}, contextID string) (interface{}, error) {
	return f(ctx, value, contextID)
}

// Registry maps normalizer names to implementations. It is safe for
// concurrent use; registration normally happens once at startup.
type Registry struct {
	mu          sync.RWMutex
	normalizers map[string]Normalizer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		normalizers: make(map[string]Normalizer),
	}
}

// NewDefaultRegistry creates a registry holding the built-in normalizers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for name, n := range builtins() {
		if err := r.Register(name, n); err != nil {
			panic(fmt.Sprintf("builtin normalizer %s: %v", name, err))
		}
	}
	return r
}

// Register adds a normalizer. Registering a name twice is an error.
func (r *Registry) Register(name string, n Normalizer) error {
	if name == "" {
		return fmt.Errorf("normalizer name is required")
	}
	if n == nil {
		return fmt.Errorf("normalizer %s is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.normalizers[name]; exists {
		return toolbox.NewConfigurationError(fmt.Sprintf("normalizer %s already registered", name), nil).
			WithCode(toolbox.ErrCodeDuplicateNormalizer)
	}

	r.normalizers[name] = n
	return nil
}

// Get returns the named normalizer. An unknown name is a not-found error.
func (r *Registry) Get(name string) (Normalizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.normalizers[name]
	if !ok {
		return nil, toolbox.NewNotFoundError(fmt.Sprintf("normalizer %q is not registered", name), nil).
			WithCode(toolbox.ErrCodeNormalizerNotFound)
	}
	return n, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.normalizers[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.normalizers))
	for name := range r.normalizers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize looks up name and applies it to value. Lookup failures are
// returned unchanged; failures of the normalizer itself are wrapped as
// normalization errors.
func (r *Registry) Normalize(ctx context.Context, name string, value interface{}, contextID string) (interface{}, error) {
	n, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	out, err := n.Normalize(ctx, value, contextID)
	if err != nil {
		return nil, toolbox.NewNormalizationError(fmt.Sprintf("normalizer %s failed", name), err).
			WithDetail("normalizer", name)
	}
	return out, nil
}
