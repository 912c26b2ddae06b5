package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/value"
)

func TestHooks_RegionsNestAndUnwindLIFO(t *testing.T) {
	tr := &tracer{}
	hooks := tr.hooks()
	hooks.BeforeUpdate = append(hooks.BeforeUpdate, tr.hook("before_update_2"))
	hooks.AfterUpdate = append(hooks.AfterUpdate, tr.hook("after_update_2"))
	w := mustNew(allow(), Method[*widget](""), hooks)

	res, err := w.Execute(context.Background(), newWidget("Old"), attrs(value.P("name", value.String("New"))), Actor{})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, res.Outcome.Status)

	assert.Equal(t, []string{
		"before_update",
		"before_update_2",
		"before_update_record",
		"after_update_record",
		"after_update",
		"after_update_2",
	}, tr.events)
}

func TestHooks_BeforeHookFailureSkipsStageButRunsAfterHooks(t *testing.T) {
	rec := newWidget("Old")
	tr := &tracer{}
	hooks := tr.hooks()
	hooks.BeforeUpdateRecord = []Hook[*widget]{
		func(_ context.Context, c *Call[*widget]) {
			tr.events = append(tr.events, "before_update_record")
			c.Fail(StatusForbidden, ErrorEntry{Key: "widget.locked", Message: "Widget is locked"})
		},
		tr.hook("never"),
	}
	w := mustNew(allow(), Method[*widget](""), hooks)

	res, err := w.Execute(context.Background(), rec, attrs(value.P("name", value.String("New"))), Actor{})
	require.NoError(t, err)

	assert.Equal(t, StatusForbidden, res.Outcome.Status)
	assert.Equal(t, StateHalted, res.State)
	assert.Equal(t, []ErrorEntry{{Key: "widget.locked", Message: "Widget is locked"}}, res.Outcome.Errors)
	assert.Equal(t, 0, rec.saves, "persistence skipped")
	assert.Equal(t, value.String("Old"), rec.fields["name"])
	assert.Equal(t, []string{"before_update", "before_update_record", "after_update_record", "after_update"}, tr.events)
}

func TestHooks_FailureRecordedBeforeClassificationWins(t *testing.T) {
	hooks := Hooks[*widget]{
		AfterUpdateRecord: []Hook[*widget]{func(_ context.Context, c *Call[*widget]) {
			c.Fail(StatusValidationFailed)
		}},
	}
	w := mustNew(allow(), Method[*widget](""), hooks)

	res, err := w.Execute(context.Background(), newWidget("Old"), attrs(value.P("name", value.String("New"))), Actor{})
	require.NoError(t, err)

	assert.Equal(t, StatusValidationFailed, res.Outcome.Status)
	assert.Equal(t, []ErrorEntry{{Key: "widget.invalid", Message: "Widget is invalid"}}, res.Outcome.Errors)
	assert.Empty(t, res.ChangedAttributes())
}

func TestHooks_AfterHooksObserveTerminalOutcome(t *testing.T) {
	var observed []Status
	observe := func(_ context.Context, c *Call[*widget]) {
		o, ok := c.Outcome()
		if ok {
			observed = append(observed, o.Status)
		}
	}
	hooks := Hooks[*widget]{
		AfterUpdateRecord: []Hook[*widget]{observe},
		AfterUpdate:       []Hook[*widget]{observe},
	}
	w := mustNew(allow(), failing(errDisk), hooks)

	_, err := w.Execute(context.Background(), newWidget("Old"), attrs(), Actor{})
	require.Error(t, err)
	assert.Equal(t, []Status{StatusPersistenceError, StatusPersistenceError}, observed)
}

func TestHooks_AfterUpdateSeesChanges(t *testing.T) {
	var changes []record.Change
	hooks := Hooks[*widget]{
		AfterUpdate: []Hook[*widget]{func(_ context.Context, c *Call[*widget]) {
			changes = c.ChangedAttributes()
		}},
	}
	w := mustNew(allow(), Method[*widget](""), hooks)

	_, err := w.Execute(context.Background(), newWidget("Old"), attrs(value.P("name", value.String("New"))), Actor{})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, value.String("New"), changes[0].Current)
}

func TestHooks_AfterUpdateRecordSeesMutatedRecord(t *testing.T) {
	var name value.Value
	hooks := Hooks[*widget]{
		AfterUpdateRecord: []Hook[*widget]{func(_ context.Context, c *Call[*widget]) {
			name, _ = c.Record().Field("name")
			assert.Equal(t, StateMutationAttempted, c.State())
		}},
	}
	w := mustNew(allow(), Method[*widget](""), hooks)

	_, err := w.Execute(context.Background(), newWidget("Old"), attrs(value.P("name", value.String("New"))), Actor{})
	require.NoError(t, err)
	assert.Equal(t, value.String("New"), name)
}

func TestCall_Fail(t *testing.T) {
	c := &Call[*widget]{kind: "widget", msgs: staticMessages{}}

	assert.False(t, c.Fail(StatusSuccess), "success is not a failure")
	assert.False(t, c.Failed())

	assert.True(t, c.Fail(StatusNotFound))
	assert.True(t, c.Failed())
	o, ok := c.Outcome()
	require.True(t, ok)
	assert.Equal(t, []ErrorEntry{{Key: "widget.not_found", Message: "msg:widget.not_found"}}, o.Errors)

	assert.False(t, c.Fail(StatusForbidden), "outcome is terminal")
	o, _ = c.Outcome()
	assert.Equal(t, StatusNotFound, o.Status)
}

func TestHooks_ErrorHookSeesCall(t *testing.T) {
	var gotState State
	var gotErr error
	hooks := Hooks[*widget]{
		OnUpdateRecordError: func(_ context.Context, c *Call[*widget], err error) error {
			gotState = c.State()
			gotErr = err
			return err
		},
	}
	w := mustNew(allow(), failing(errDisk), hooks)

	_, err := w.Execute(context.Background(), newWidget("Old"), attrs(), Actor{})
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, IsRecordError(err), "custom hook decides what escalates")
	assert.Equal(t, StateMutationAttempted, gotState)
	assert.Equal(t, errDisk, gotErr)
}
