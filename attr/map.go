// Package attr provides the attribute model shared by the scanner and the
// detector pipeline: an ordered attribute map, spans over output text, and an
// attributed buffer that folds spans over base attributes.
//
// Offsets are UTF-8 byte offsets, so a span always reconstructs as
// text[s.Start:s.End()].
package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry is a single key/value pair of a Map.
type Entry struct {
	Key   string
	Value any
}

// Map is an ordered mapping from string keys to opaque values. Keys keep
// their insertion order. The zero value is an empty map ready to use.
//
// Map has value semantics: copies never observe each other's writes, and
// Merge and Clone always return fresh maps. Values themselves are never
// interpreted or copied.
type Map struct {
	entries []Entry
}

// Of builds a Map from alternating keys and values.
// Panics if a key is not a string or a value is missing.
//
// Example:
//
//	m := attr.Of("style", "bold", "weight", 700)
func Of(kv ...any) Map {
	if len(kv)%2 != 0 {
		panic("attr: Of called with odd number of arguments")
	}
	var m Map
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("attr: Of key %d is %T, not string", i/2, kv[i]))
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// FromMap converts a Go map. Keys are ordered lexically since Go maps carry
// no order.
func FromMap(src map[string]any) Map {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	m := Map{entries: make([]Entry, 0, len(keys))}
	for _, k := range keys {
		m.entries = append(m.entries, Entry{Key: k, Value: src[k]})
	}
	return m
}

// Len returns the number of keys.
func (m Map) Len() int {
	return len(m.entries)
}

// IsEmpty reports whether the map has no keys.
func (m Map) IsEmpty() bool {
	return len(m.entries) == 0
}

func (m Map) index(key string) int {
	for i, e := range m.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored for key.
func (m Map) Get(key string) (any, bool) {
	if i := m.index(key); i >= 0 {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Keys returns the keys in order.
func (m Map) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (m Map) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// Set stores value under key. An existing key keeps its position.
func (m *Map) Set(key string, value any) {
	if i := m.index(key); i >= 0 {
		entries := append([]Entry(nil), m.entries...)
		entries[i].Value = value
		m.entries = entries
		return
	}
	// full slice expression: never append into a backing array shared with a copy
	m.entries = append(m.entries[:len(m.entries):len(m.entries)], Entry{Key: key, Value: value})
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	i := m.index(key)
	if i < 0 {
		return
	}
	entries := make([]Entry, 0, len(m.entries)-1)
	entries = append(entries, m.entries[:i]...)
	entries = append(entries, m.entries[i+1:]...)
	m.entries = entries
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	if len(m.entries) == 0 {
		return Map{}
	}
	return Map{entries: append([]Entry(nil), m.entries...)}
}

// Merge returns m with the entries of over laid on top. Keys of over win on
// conflict and keep m's position; new keys are appended in over's order.
func (m Map) Merge(over Map) Map {
	out := Map{entries: make([]Entry, 0, len(m.entries)+len(over.entries))}
	out.entries = append(out.entries, m.entries...)
	for _, e := range over.entries {
		if i := out.index(e.Key); i >= 0 {
			out.entries[i].Value = e.Value
			continue
		}
		out.entries = append(out.entries, e)
	}
	return out
}

// Equal reports whether both maps hold the same keys with deeply equal
// values. Key order is ignored.
func (m Map) Equal(o Map) bool {
	if len(m.entries) != len(o.entries) {
		return false
	}
	for _, e := range m.entries {
		v, ok := o.Get(e.Key)
		if !ok || !reflect.DeepEqual(e.Value, v) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.
func (m Map) String() string {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", e.Key, e.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the map as a JSON object in key order.
func (m Map) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("attr: marshal %q: %w", e.Key, err)
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// MarshalYAML encodes the map as a YAML mapping in key order.
func (m Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range m.entries {
		var val yaml.Node
		if err := val.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("attr: marshal %q: %w", e.Key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Key},
			&val,
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping document key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("attr: line %d: expected mapping, got %v", node.Line, node.Tag)
	}
	out := Map{entries: make([]Entry, 0, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var val any
		if err := node.Content[i+1].Decode(&val); err != nil {
			return err
		}
		out.Set(node.Content[i].Value, val)
	}
	*m = out
	return nil
}
