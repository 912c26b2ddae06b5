package record

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/value"
)

// fakeSchema declares fields in order; "name" is required and unique.
type fakeSchema struct {
	name   string
	fields []string
}

func (s fakeSchema) Name() string          { return s.name }
func (s fakeSchema) FieldNames() []string  { return s.fields }
func (s fakeSchema) UniqueFields() []string { return []string{"name"} }
func (s fakeSchema) HasField(n string) bool {
	for _, f := range s.fields {
		if f == n {
			return true
		}
	}
	return false
}
func (s fakeSchema) Validate(fields value.Object, errs *Errors) {
	if value.IsNull(fields["name"]) {
		errs.Add("name", "can't be blank")
	}
}

type fakeSaver struct {
	taken   map[string]bool
	saved   []value.Object
	saveErr error
}

func (f *fakeSaver) IsTaken(_ context.Context, _, _ string, v value.Value, _ string) (bool, error) {
	s, _ := v.(value.String)
	return f.taken[string(s)], nil
}

func (f *fakeSaver) SaveRecord(_ context.Context, e *Entity) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, e.Fields())
	e.SetRevision(e.Revision() + 1)
	return nil
}

var widgetSchema = fakeSchema{name: "widget", fields: []string{"name", "color", "stock"}}

func TestAttributes_PreservesInsertionOrder(t *testing.T) {
	var a Attributes
	a.Set("stock", value.Int(1))
	a.Set("name", value.String("x"))
	a.Set("stock", value.Int(2))

	assert.Equal(t, []string{"stock", "name"}, a.Keys())
	v, ok := a.Get("stock")
	require.True(t, ok)
	assert.Equal(t, value.Int(2), v)
	assert.Equal(t, 2, a.Len())
}

func TestAttributes_NilBecomesNull(t *testing.T) {
	a := NewAttributes(value.P("color", nil))
	v, ok := a.Get("color")
	require.True(t, ok)
	assert.Equal(t, value.Null{}, v)
}

func TestParseAssignments(t *testing.T) {
	a, err := ParseAssignments([]string{"name=New", "stock=4", "color=null"})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "stock", "color"}, a.Keys())
	assert.Equal(t, value.Object{
		"name":  value.String("New"),
		"stock": value.Int(4),
		"color": value.Null{},
	}, a.Object())

	a, err = ParseAssignments([]string{"stock=5 units", "name=true story"})
	require.NoError(t, err)
	assert.Equal(t, value.Object{
		"stock": value.String("5 units"),
		"name":  value.String("true story"),
	}, a.Object())

	_, err = ParseAssignments([]string{"novalue"})
	require.Error(t, err)
	_, err = ParseAssignments([]string{"=x"})
	require.Error(t, err)
}

func TestErrors_OrderAndEntries(t *testing.T) {
	var errs Errors
	assert.True(t, errs.Empty())

	errs.Add("name", "can't be blank")
	errs.Add("stock", "must be >= 0")
	errs.Add("name", "is too short")

	assert.False(t, errs.Empty())
	assert.Equal(t, 3, errs.Len())
	assert.Equal(t, []string{"can't be blank", "is too short"}, errs.On("name"))
	assert.Equal(t, []FieldError{
		{Field: "name", Message: "can't be blank"},
		{Field: "name", Message: "is too short"},
		{Field: "stock", Message: "must be >= 0"},
	}, errs.Entries())

	errs.Clear()
	assert.True(t, errs.Empty())
}

func TestPresent(t *testing.T) {
	assert.False(t, Present(nil))
	assert.True(t, Present(NewEntity(widgetSchema, nil, "w1", nil, 0)))
	assert.False(t, Present(NewEntity(nil, nil, "w1", nil, 0)))
}

func TestSnapshot_IsolatedFromRecord(t *testing.T) {
	e := NewEntity(widgetSchema, nil, "w1", value.Object{"name": value.String("Old")}, 0)
	snap := TakeSnapshot(e, []string{"name", "missing"})

	e.Assign(NewAttributes(value.P("name", value.String("New"))))

	prev, ok := snap.Get("name")
	require.True(t, ok)
	assert.Equal(t, value.String("Old"), prev)

	prev, ok = snap.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, value.Null{}, prev)
}

func TestDiff_KeyMembershipNotValueEquality(t *testing.T) {
	e := NewEntity(widgetSchema, nil, "w1", value.Object{
		"name":  value.String("Old"),
		"stock": value.Int(5),
	}, 0)
	attrs := NewAttributes(
		value.P("stock", value.Int(5)),
		value.P("unknown", value.String("x")),
		value.P("name", value.String("New")),
	)

	snap := TakeSnapshot(e, attrs.Keys())
	e.Assign(attrs)
	// A side effect outside attrs must not be reported.
	e.fields["color"] = value.String("red")

	changes := Diff(snap, e, attrs)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Field: "stock", Previous: value.Int(5), Current: value.Int(5)}, changes[0])
	assert.Equal(t, Change{Field: "name", Previous: value.String("Old"), Current: value.String("New")}, changes[1])
	assert.False(t, changes[0].Changed())
	assert.True(t, changes[1].Changed())
}

func TestEntity_AssignAndSave_Valid(t *testing.T) {
	saver := &fakeSaver{}
	e := NewEntity(widgetSchema, saver, "w1", value.Object{"name": value.String("Old")}, 1)

	err := e.AssignAndSave(context.Background(), NewAttributes(value.P("name", value.String("New"))))
	require.NoError(t, err)

	assert.True(t, e.Valid())
	require.Len(t, saver.saved, 1)
	assert.Equal(t, value.String("New"), saver.saved[0]["name"])
	assert.Equal(t, int64(2), e.Revision())
}

func TestEntity_AssignAndSave_InvalidDoesNotSave(t *testing.T) {
	saver := &fakeSaver{taken: map[string]bool{"Taken": true}}
	e := NewEntity(widgetSchema, saver, "w1", value.Object{"name": value.String("Old")}, 1)

	err := e.AssignAndSave(context.Background(), NewAttributes(value.P("name", value.String("Taken"))))
	require.NoError(t, err)

	assert.False(t, e.Valid())
	assert.Equal(t, []string{"has already been taken"}, e.Errors().On("name"))
	assert.Empty(t, saver.saved)
}

func TestEntity_AssignAndSave_BlankSkipsUniqueness(t *testing.T) {
	saver := &fakeSaver{}
	e := NewEntity(widgetSchema, saver, "w1", value.Object{"name": value.String("Old")}, 1)

	require.NoError(t, e.AssignAndSave(context.Background(), NewAttributes(value.P("name", value.Null{}))))
	assert.Equal(t, []string{"can't be blank"}, e.Errors().On("name"))
}

func TestEntity_AssignAndSave_StorageError(t *testing.T) {
	boom := errors.New("disk full")
	e := NewEntity(widgetSchema, &fakeSaver{saveErr: boom}, "w1", nil, 0)

	err := e.AssignAndSave(context.Background(), NewAttributes(value.P("name", value.String("A"))))
	assert.ErrorIs(t, err, boom)
}

func TestEntity_FieldsDropUndeclared(t *testing.T) {
	e := NewEntity(widgetSchema, nil, "w1", value.Object{"name": value.String("A"), "bogus": value.Int(1)}, 0)

	_, ok := e.Field("bogus")
	assert.False(t, ok)

	v, ok := e.Field("color")
	assert.True(t, ok)
	assert.Equal(t, value.Null{}, v)
	assert.Equal(t, "widget", e.Kind())
}
