package update

import (
	"context"
	"errors"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/testutil"
	"github.com/roach88/revise/internal/value"
)

// widget is a minimal in-memory record. A name of "taken" fails
// uniqueness; a blank name fails presence.
type widget struct {
	id       string
	fields   value.Object
	errs     record.Errors
	unloaded bool
	saves    int
}

func newWidget(name string) *widget {
	return &widget{
		id:     "w1",
		fields: value.ObjectOf(value.P("name", value.String(name)), value.P("color", value.String("red"))),
	}
}

func (w *widget) Kind() string           { return "widget" }
func (w *widget) ID() string             { return w.id }
func (w *widget) Fields() value.Object   { return w.fields.Clone() }
func (w *widget) Valid() bool            { return w.errs.Empty() }
func (w *widget) Errors() *record.Errors { return &w.errs }
func (w *widget) Loaded() bool           { return !w.unloaded }

func (w *widget) Field(name string) (value.Value, bool) {
	v, ok := w.fields[name]
	return v, ok
}

func (w *widget) assign(attrs record.Attributes) {
	for _, k := range attrs.Keys() {
		if _, ok := w.fields[k]; ok {
			v, _ := attrs.Get(k)
			w.fields[k] = v
		}
	}
}

func (w *widget) AssignAndSave(_ context.Context, attrs record.Attributes) error {
	w.errs.Clear()
	w.assign(attrs)
	switch name, _ := w.fields["name"].(value.String); name {
	case "":
		w.errs.Add("name", "can't be blank")
	case "taken":
		w.errs.Add("name", "has already been taken")
	}
	if w.Valid() {
		w.saves++
	}
	return nil
}

// Rename has a signature MethodPersister cannot call.
func (w *widget) Rename(name string) {}

// Touch is a context-free persistence method.
func (w *widget) Touch(attrs record.Attributes) { w.assign(attrs) }

var errDisk = errors.New("disk full")

func allow() Authorizer[*widget] {
	return AuthorizerFunc[*widget](func(context.Context, *widget, Actor) bool { return true })
}

func deny() Authorizer[*widget] {
	return AuthorizerFunc[*widget](func(context.Context, *widget, Actor) bool { return false })
}

func failing(err error) Persister[*widget] {
	return PersistFunc[*widget](func(ctx context.Context, w *widget, attrs record.Attributes) error {
		w.assign(attrs)
		return err
	})
}

func mustNew(auth Authorizer[*widget], p Persister[*widget], hooks Hooks[*widget]) *Workflow[*widget] {
	w, err := New("widget", auth, p, hooks, WithIDGenerator(testutil.NewSequenceGenerator("call")))
	if err != nil {
		panic(err)
	}
	return w
}

func attrs(pairs ...value.Pair) record.Attributes {
	return record.NewAttributes(pairs...)
}

// tracer records hook firings in order.
type tracer struct {
	events []string
}

func (tr *tracer) hook(name string) Hook[*widget] {
	return func(_ context.Context, c *Call[*widget]) {
		tr.events = append(tr.events, name)
	}
}

func (tr *tracer) hooks() Hooks[*widget] {
	return Hooks[*widget]{
		BeforeUpdate:       []Hook[*widget]{tr.hook("before_update")},
		AfterUpdate:        []Hook[*widget]{tr.hook("after_update")},
		BeforeUpdateRecord: []Hook[*widget]{tr.hook("before_update_record")},
		AfterUpdateRecord:  []Hook[*widget]{tr.hook("after_update_record")},
		OnUpdateRecordError: func(_ context.Context, c *Call[*widget], err error) error {
			tr.events = append(tr.events, "on_update_record_error")
			return EscalateRecordError(context.Background(), c, err)
		},
	}
}
