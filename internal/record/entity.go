package record

import (
	"context"
	"fmt"

	"github.com/roach88/revise/internal/value"
)

// Schema describes the fields a kind of Entity may hold and validates
// a full field set. schema.Kind implements it.
type Schema interface {
	Name() string
	HasField(name string) bool
	FieldNames() []string
	UniqueFields() []string
	Validate(fields value.Object, errs *Errors)
}

// Saver persists entities. store.Store implements it.
type Saver interface {
	// IsTaken reports whether another record of kind already holds v in field.
	IsTaken(ctx context.Context, kind, field string, v value.Value, exceptID string) (bool, error)

	// SaveRecord writes the entity's current fields.
	SaveRecord(ctx context.Context, e *Entity) error
}

// Entity is a schema-backed Record.
type Entity struct {
	schema   Schema
	saver    Saver
	id       string
	fields   value.Object
	revision int64
	errs     Errors
	loaded   bool
}

// NewEntity creates a loaded entity. Fields the schema does not declare
// are dropped; declared fields without a value read as Null.
func NewEntity(schema Schema, saver Saver, id string, fields value.Object, revision int64) *Entity {
	e := &Entity{
		schema:   schema,
		saver:    saver,
		id:       id,
		fields:   make(value.Object),
		revision: revision,
		loaded:   schema != nil,
	}
	if schema == nil {
		return e
	}
	for _, name := range schema.FieldNames() {
		if v, ok := fields[name]; ok {
			e.fields[name] = value.Clone(v)
		} else {
			e.fields[name] = value.Null{}
		}
	}
	return e
}

// Kind implements Record.
func (e *Entity) Kind() string {
	if e.schema == nil {
		return ""
	}
	return e.schema.Name()
}

// ID implements Record.
func (e *Entity) ID() string { return e.id }

// Revision is the number of successful saves.
func (e *Entity) Revision() int64 { return e.revision }

// SetRevision is called by the Saver after a successful write.
func (e *Entity) SetRevision(rev int64) { e.revision = rev }

// Loaded implements Loader.
func (e *Entity) Loaded() bool { return e.loaded }

// MarkUnloaded flags the entity as failed to load, e.g. when its stored
// digest does not match its fields.
func (e *Entity) MarkUnloaded() { e.loaded = false }

// Schema returns the entity's schema.
func (e *Entity) Schema() Schema { return e.schema }

// Field implements Record.
func (e *Entity) Field(name string) (value.Value, bool) {
	if e.schema == nil || !e.schema.HasField(name) {
		return nil, false
	}
	v, ok := e.fields[name]
	if !ok {
		return value.Null{}, true
	}
	return v, true
}

// Fields implements Record.
func (e *Entity) Fields() value.Object {
	return e.fields.Clone()
}

// Valid implements Record.
func (e *Entity) Valid() bool {
	return e.errs.Empty()
}

// Errors implements Record.
func (e *Entity) Errors() *Errors {
	return &e.errs
}

// Assign copies attrs into the entity's fields without validating or
// saving. Keys the schema does not declare are ignored.
func (e *Entity) Assign(attrs Attributes) {
	for _, key := range attrs.Keys() {
		if e.schema == nil || !e.schema.HasField(key) {
			continue
		}
		v, _ := attrs.Get(key)
		e.fields[key] = value.Clone(v)
	}
}

// Validate re-runs schema and uniqueness validation, replacing the
// current error collection.
func (e *Entity) Validate(ctx context.Context) error {
	e.errs.Clear()
	if e.schema == nil {
		e.errs.Add("base", "has no schema")
		return nil
	}
	e.schema.Validate(e.fields, &e.errs)

	if e.saver == nil {
		return nil
	}
	for _, field := range e.schema.UniqueFields() {
		v := e.fields[field]
		if value.IsNull(v) || len(e.errs.On(field)) > 0 {
			continue
		}
		taken, err := e.saver.IsTaken(ctx, e.Kind(), field, v, e.id)
		if err != nil {
			return fmt.Errorf("check uniqueness of %s: %w", field, err)
		}
		if taken {
			e.errs.Add(field, "has already been taken")
		}
	}
	return nil
}

// AssignAndSave is the conventional persistence method: assign attrs,
// validate, and save when valid. Validation failures are reported through
// Valid and Errors; the returned error is reserved for storage failures.
func (e *Entity) AssignAndSave(ctx context.Context, attrs Attributes) error {
	e.Assign(attrs)
	if err := e.Validate(ctx); err != nil {
		return err
	}
	if !e.Valid() {
		return nil
	}
	if e.saver == nil {
		return fmt.Errorf("save %s %s: no saver configured", e.Kind(), e.id)
	}
	return e.saver.SaveRecord(ctx, e)
}
