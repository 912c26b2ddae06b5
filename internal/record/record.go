package record

import "github.com/roach88/revise/internal/value"

// Record is the mutable domain entity being updated.
//
// The update workflow borrows a Record for the duration of one call and
// never retains it. Valid and Errors must reflect the outcome of the last
// persistence attempt once the persistence strategy returns.
type Record interface {
	// Kind names the record type. It prefixes error keys ("widget.not_found").
	Kind() string

	// ID is the record's identity.
	ID() string

	// Field returns the current value of a field and whether the record
	// has that field at all.
	Field(name string) (value.Value, bool)

	// Fields returns a copy of all current field values.
	Fields() value.Object

	// Valid reports whether the record currently passes validation.
	Valid() bool

	// Errors returns the record's validation error collection.
	Errors() *Errors
}

// Loader is implemented by records that can report a failed or partial
// load. A record whose Loaded returns false is treated as absent.
type Loader interface {
	Loaded() bool
}

// Present reports whether r exists and loaded completely.
func Present(r Record) bool {
	if r == nil {
		return false
	}
	if l, ok := r.(Loader); ok {
		return l.Loaded()
	}
	return true
}
