package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/testutil"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

func newWidgetWorkflow(t *testing.T, p update.Persister[*record.Entity]) *update.Workflow[*record.Entity] {
	t.Helper()
	auth := update.AuthorizerFunc[*record.Entity](func(context.Context, *record.Entity, update.Actor) bool { return true })
	w, err := update.New("widget", auth, p, update.Hooks[*record.Entity]{},
		update.WithIDGenerator(testutil.NewSequenceGenerator("call")))
	require.NoError(t, err)
	return w
}

func TestLogResult_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertWidget(t, s, "w1", "Old")

	w := newWidgetWorkflow(t, update.Method[*record.Entity](""))
	actor := update.Actor{UserID: "u1", Permissions: []string{"widget:update"}}

	e, err := s.LoadRecord(ctx, widgetKind, "w1")
	require.NoError(t, err)
	res, err := w.Execute(ctx, e, record.NewAttributes(value.P("name", value.String("New"))), actor)
	require.NoError(t, err)

	entry, err := s.LogResult(ctx, res, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Seq)
	assert.Equal(t, "log-1", entry.ID)

	entries, err := s.ReadUpdateLog(ctx, "widget", "w1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, "call-1", got.CallID)
	assert.Equal(t, update.StatusSuccess, got.Status)
	assert.Equal(t, actor, got.Actor)
	assert.Empty(t, got.Errors)
	assert.Equal(t, testutil.Epoch, got.RecordedAt)
	assert.Equal(t, []record.Change{
		{Field: "name", Previous: value.String("Old"), Current: value.String("New")},
	}, got.Changes)
}

func TestLogResult_RejectedCallsAreLogged(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertWidget(t, s, "w1", "Taken")
	insertWidget(t, s, "w2", "Free")

	w := newWidgetWorkflow(t, update.Method[*record.Entity](""))
	e, err := s.LoadRecord(ctx, widgetKind, "w2")
	require.NoError(t, err)

	res, err := w.Execute(ctx, e, record.NewAttributes(value.P("name", value.String("Taken"))), update.Actor{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, update.StatusValidationFailed, res.Outcome.Status)

	_, err = s.LogResult(ctx, res, update.Actor{UserID: "u1"})
	require.NoError(t, err)

	entries, err := s.ReadUpdateLog(ctx, "widget", "w2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, update.StatusValidationFailed, entries[0].Status)
	assert.Equal(t, []update.ErrorEntry{{Key: "name", Message: "has already been taken"}}, entries[0].Errors)
	assert.Empty(t, entries[0].Changes)
}

func TestWorkflow_StorageConstraintEscalates(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertWidget(t, s, "w1", "Sprocket")
	insertWidget(t, s, "w2", "Cog")

	// Skips validation, so only the storage constraint can reject it.
	blind := update.PersistFunc[*record.Entity](func(ctx context.Context, e *record.Entity, attrs record.Attributes) error {
		e.Assign(attrs)
		return s.SaveRecord(ctx, e)
	})
	w := newWidgetWorkflow(t, blind)

	e, err := s.LoadRecord(ctx, widgetKind, "w2")
	require.NoError(t, err)
	res, err := w.Execute(ctx, e, record.NewAttributes(value.P("name", value.String("Sprocket"))), update.Actor{})
	require.Error(t, err)
	assert.True(t, update.IsRecordError(err))
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Equal(t, update.StatusPersistenceError, res.Outcome.Status)
}

func TestReadUpdateLog_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, status := range []update.Status{update.StatusForbidden, update.StatusSuccess, update.StatusNotFound} {
		_, err := s.WriteUpdateLog(ctx, LogEntry{
			ID:         []string{"c", "a", "b"}[i],
			CallID:     "call",
			Kind:       "widget",
			RecordID:   "w1",
			Status:     status,
			RecordedAt: testutil.Epoch,
		})
		require.NoError(t, err)
	}

	entries, err := s.ReadUpdateLog(ctx, "widget", "w1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(t, update.StatusForbidden, entries[0].Status)
	assert.Equal(t, []update.ErrorEntry{}, entries[0].Errors)
	assert.Equal(t, []record.Change{}, entries[0].Changes)
}

func TestWriteUpdateLog_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	entry := LogEntry{ID: "same", CallID: "call", Kind: "widget", RecordID: "w1", Status: update.StatusSuccess, RecordedAt: testutil.Epoch}

	seq1, err := s.WriteUpdateLog(ctx, entry)
	require.NoError(t, err)
	seq2, err := s.WriteUpdateLog(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, seq1, seq2)

	entries, err := s.ReadUpdateLog(ctx, "widget", "w1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadUpdateLog_Empty(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadUpdateLog(context.Background(), "widget", "none")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
