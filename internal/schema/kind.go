package schema

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/value"
)

// Valid field type names.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
}

// Field is one declared field of a kind.
type Field struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Required  bool     `json:"required,omitempty"`
	Unique    bool     `json:"unique,omitempty"`
	Readonly  bool     `json:"readonly,omitempty"`
	MaxLength *int64   `json:"max_length,omitempty"`
	Min       *int64   `json:"min,omitempty"`
	Max       *int64   `json:"max,omitempty"`
	Enum      []string `json:"enum,omitempty"`
}

// Kind is a compiled record kind. It implements record.Schema.
type Kind struct {
	name   string
	fields []Field
	index  map[string]int
}

// NewKind builds a kind from fields in declaration order.
func NewKind(name string, fields ...Field) *Kind {
	k := &Kind{
		name:   name,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		k.index[f.Name] = i
	}
	return k
}

var _ record.Schema = (*Kind)(nil)

// Name implements record.Schema.
func (k *Kind) Name() string { return k.name }

// Fields returns the declared fields in order.
func (k *Kind) Fields() []Field {
	return slices.Clone(k.fields)
}

// Field returns the declaration of name.
func (k *Kind) Field(name string) (Field, bool) {
	i, ok := k.index[name]
	if !ok {
		return Field{}, false
	}
	return k.fields[i], true
}

// HasField implements record.Schema.
func (k *Kind) HasField(name string) bool {
	_, ok := k.index[name]
	return ok
}

// FieldNames implements record.Schema.
func (k *Kind) FieldNames() []string {
	names := make([]string, len(k.fields))
	for i, f := range k.fields {
		names[i] = f.Name
	}
	return names
}

// UniqueFields implements record.Schema.
func (k *Kind) UniqueFields() []string {
	var out []string
	for _, f := range k.fields {
		if f.Unique {
			out = append(out, f.Name)
		}
	}
	return out
}

// Writable reports whether callers may propose a value for name.
func (k *Kind) Writable(name string) bool {
	f, ok := k.Field(name)
	return ok && !f.Readonly
}

// Validate implements record.Schema. Messages follow the
// "can't be blank" / "is too long" phrasing callers render verbatim.
func (k *Kind) Validate(fields value.Object, errs *record.Errors) {
	for _, f := range k.fields {
		validateField(f, fields[f.Name], errs)
	}
}

func validateField(f Field, v value.Value, errs *record.Errors) {
	if value.IsNull(v) {
		if f.Required {
			errs.Add(f.Name, "can't be blank")
		}
		return
	}

	if got := value.TypeName(v); got != f.Type {
		errs.Add(f.Name, fmt.Sprintf("must be a %s, got %s", f.Type, got))
		return
	}

	switch val := v.(type) {
	case value.String:
		if f.Required && val == "" {
			errs.Add(f.Name, "can't be blank")
		}
		if f.MaxLength != nil && int64(utf8.RuneCountInString(string(val))) > *f.MaxLength {
			errs.Add(f.Name, fmt.Sprintf("is too long (maximum is %d characters)", *f.MaxLength))
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, string(val)) {
			errs.Add(f.Name, "is not included in the list")
		}
	case value.Int:
		if f.Min != nil && int64(val) < *f.Min {
			errs.Add(f.Name, fmt.Sprintf("must be greater than or equal to %d", *f.Min))
		}
		if f.Max != nil && int64(val) > *f.Max {
			errs.Add(f.Name, fmt.Sprintf("must be less than or equal to %d", *f.Max))
		}
	case value.Array:
		if f.MaxLength != nil && int64(len(val)) > *f.MaxLength {
			errs.Add(f.Name, fmt.Sprintf("is too long (maximum is %d items)", *f.MaxLength))
		}
	}
}

// Registry holds compiled kinds by name, in declaration order.
type Registry struct {
	kinds map[string]*Kind
	order []string
}

// NewRegistry creates a registry. Duplicate names are rejected.
func NewRegistry(kinds ...*Kind) (*Registry, error) {
	r := &Registry{kinds: make(map[string]*Kind, len(kinds))}
	for _, k := range kinds {
		if _, exists := r.kinds[k.name]; exists {
			return nil, fmt.Errorf("duplicate kind %q", k.name)
		}
		r.kinds[k.name] = k
		r.order = append(r.order, k.name)
	}
	return r, nil
}

// Lookup returns the kind named name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	if r == nil {
		return nil, false
	}
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns all kinds in declaration order.
func (r *Registry) Kinds() []*Kind {
	out := make([]*Kind, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.kinds[name])
	}
	return out
}
