package update

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/revise/internal/record"
)

// DefaultMethod is the conventional persistence method name.
const DefaultMethod = "AssignAndSave"

// Persister applies attrs to rec and saves it. After Persist returns,
// rec.Valid and rec.Errors must reflect the result. A returned error
// means an unexpected failure, not a validation failure.
type Persister[R record.Record] interface {
	Persist(ctx context.Context, rec R, attrs record.Attributes) error
}

// PersistFunc adapts a two-argument callable to Persister.
type PersistFunc[R record.Record] func(ctx context.Context, rec R, attrs record.Attributes) error

// Persist implements Persister.
func (f PersistFunc[R]) Persist(ctx context.Context, rec R, attrs record.Attributes) error {
	return f(ctx, rec, attrs)
}

// MethodPersister invokes a named method on the record. The method must
// have one of these signatures:
//
//	func(context.Context, record.Attributes) error
//	func(record.Attributes) error
//	func(record.Attributes)
type MethodPersister[R record.Record] struct {
	Name string
}

// Method returns a MethodPersister for name, or DefaultMethod if name is empty.
func Method[R record.Record](name string) MethodPersister[R] {
	if name == "" {
		name = DefaultMethod
	}
	return MethodPersister[R]{Name: name}
}

// Persist implements Persister.
func (p MethodPersister[R]) Persist(ctx context.Context, rec R, attrs record.Attributes) error {
	m := reflect.ValueOf(rec).MethodByName(p.Name)
	if !m.IsValid() {
		return p.unknown(rec.Kind(), "not defined on "+reflect.TypeOf(rec).String())
	}
	switch fn := m.Interface().(type) {
	case func(context.Context, record.Attributes) error:
		return fn(ctx, attrs)
	case func(record.Attributes) error:
		return fn(attrs)
	case func(record.Attributes):
		fn(attrs)
		return nil
	default:
		return p.unknown(rec.Kind(), "has signature "+m.Type().String())
	}
}

// check verifies the method statically when R is a concrete type.
// Interface types are checked on each call instead.
func (p MethodPersister[R]) check(kind string) error {
	t := reflect.TypeFor[R]()
	if t.Kind() == reflect.Interface {
		return nil
	}
	m, ok := t.MethodByName(p.Name)
	if !ok {
		return p.unknown(kind, "not defined on "+t.String())
	}
	// Drop the receiver.
	in := make([]reflect.Type, 0, m.Type.NumIn()-1)
	for i := 1; i < m.Type.NumIn(); i++ {
		in = append(in, m.Type.In(i))
	}
	out := make([]reflect.Type, 0, m.Type.NumOut())
	for i := 0; i < m.Type.NumOut(); i++ {
		out = append(out, m.Type.Out(i))
	}
	sig := reflect.FuncOf(in, out, false)
	for _, want := range methodSignatures {
		if sig == want {
			return nil
		}
	}
	return p.unknown(kind, "has signature "+sig.String())
}

func (p MethodPersister[R]) unknown(kind, detail string) *ConfigurationError {
	return &ConfigurationError{
		Code:    ErrCodeUnknownMethod,
		Kind:    kind,
		Message: fmt.Sprintf("persistence method %q %s", p.Name, detail),
	}
}

var methodSignatures = []reflect.Type{
	reflect.TypeFor[func(context.Context, record.Attributes) error](),
	reflect.TypeFor[func(record.Attributes) error](),
	reflect.TypeFor[func(record.Attributes)](),
}
