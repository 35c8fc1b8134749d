package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"reflect"

	"gopkg.in/yaml.v3"
)

// OrderedMap is a name-keyed collection that keeps declaration order.
// Configuration order is significant: config elements render in the order
// they are declared and tabs are bucketed in declared order.
//
// A nil *OrderedMap behaves as an empty map for all read methods.
type OrderedMap[V any] struct {
	keys  []string
	items map[string]V

	// removed records entries declared as disabled (enabled: false or null).
	// They are invisible to readers but let an overlay remove a base entry.
	removed map[string]struct{}
}

// ConfigElements is the ordered set of config elements of an area or block.
type ConfigElements = OrderedMap[*ConfigElement]

// Tabs is the ordered set of tab id to tab title.
type Tabs = OrderedMap[string]

// NewOrderedMap creates an empty ordered map.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{items: make(map[string]V)}
}

// Len returns the number of visible entries.
func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Has reports whether name is present.
func (m *OrderedMap[V]) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.items[name]
	return ok
}

// Get returns the entry for name.
func (m *OrderedMap[V]) Get(name string) (V, bool) {
	var zero V
	if m == nil {
		return zero, false
	}
	v, ok := m.items[name]
	return v, ok
}

// Keys returns the entry names in declaration order.
func (m *OrderedMap[V]) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// All iterates entries in declaration order.
func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.items[k]) {
				return
			}
		}
	}
}

// Set stores v under name. An existing entry keeps its position; a new entry is appended.
func (m *OrderedMap[V]) Set(name string, v V) {
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, ok := m.items[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.items[name] = v
	delete(m.removed, name)
}

// Delete removes name and remembers the removal for overlays.
func (m *OrderedMap[V]) Delete(name string) {
	if m.items == nil {
		m.items = make(map[string]V)
	}
	if _, ok := m.items[name]; ok {
		delete(m.items, name)
		for i, k := range m.keys {
			if k == name {
				m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
				break
			}
		}
	}
	if m.removed == nil {
		m.removed = make(map[string]struct{})
	}
	m.removed[name] = struct{}{}
}

// Removed returns the names that were declared disabled.
func (m *OrderedMap[V]) Removed() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.removed))
	for name := range m.removed {
		names = append(names, name)
	}
	return names
}

// UnmarshalYAML decodes a YAML mapping preserving key order. A null value or a
// config element with enabled: false marks the entry as removed.
func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	m.keys = nil
	m.items = make(map[string]V)
	m.removed = nil

	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, node.ShortTag())
	}

	pointerValues := reflect.TypeFor[V]().Kind() == reflect.Pointer

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		name := key.Value

		var v V
		if val.ShortTag() == "!!null" {
			if pointerValues {
				m.Delete(name)
				continue
			}
			m.Set(name, v)
			continue
		}

		if err := val.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if el, ok := any(v).(*ConfigElement); ok && !el.IsEnabled() {
			m.Delete(name)
			continue
		}

		m.Set(name, v)
	}

	return nil
}

// MarshalJSON encodes the map as a JSON object in declaration order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.items[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// clone copies the map structure; values are copied with copyValue.
func (m *OrderedMap[V]) clone(copyValue func(V) V) *OrderedMap[V] {
	if m == nil {
		return nil
	}
	out := NewOrderedMap[V]()
	for _, k := range m.keys {
		out.Set(k, copyValue(m.items[k]))
	}
	for name := range m.removed {
		if out.removed == nil {
			out.removed = make(map[string]struct{})
		}
		out.removed[name] = struct{}{}
	}
	return out
}

// Each calls fn for every entry in declaration order until fn returns false.
func (m *OrderedMap[V]) Each(fn func(name string, v V) bool) {
	for k, v := range m.All() {
		if !fn(k, v) {
			return
		}
	}
}
