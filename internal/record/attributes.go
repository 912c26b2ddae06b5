package record

import (
	"fmt"
	"strings"

	"github.com/roach88/revise/internal/value"
)

// Attributes is an ordered mapping from field name to proposed value.
// Insertion order is preserved; setting an existing key keeps its
// original position.
//
// The zero value is an empty, usable set.
type Attributes struct {
	keys   []string
	values map[string]value.Value
}

// NewAttributes builds an attribute set from pairs, in order.
func NewAttributes(pairs ...value.Pair) Attributes {
	var a Attributes
	for _, p := range pairs {
		a.Set(p.Key, p.Value)
	}
	return a
}

// Set assigns a proposed value.
func (a *Attributes) Set(key string, v value.Value) {
	if a.values == nil {
		a.values = make(map[string]value.Value)
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	if v == nil {
		v = value.Null{}
	}
	a.values[key] = v
}

// Get returns the proposed value for key.
func (a Attributes) Get(key string) (value.Value, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Has reports whether key is part of the set.
func (a Attributes) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a Attributes) Len() int {
	return len(a.keys)
}

// Object returns the attributes as an unordered value.Object.
func (a Attributes) Object() value.Object {
	obj := make(value.Object, len(a.keys))
	for _, k := range a.keys {
		obj[k] = a.values[k]
	}
	return obj
}

// ParseAssignments parses "field=literal" pairs (as given to --set) into
// an attribute set. Literals are decoded with value.ParseLiteral.
func ParseAssignments(assignments []string) (Attributes, error) {
	var a Attributes
	for _, raw := range assignments {
		key, lit, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Attributes{}, fmt.Errorf("invalid assignment %q: expected field=value", raw)
		}
		a.Set(key, value.ParseLiteral(lit))
	}
	return a, nil
}
