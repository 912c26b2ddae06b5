package update

import (
	"context"
	"log/slog"
	"reflect"

	"github.com/roach88/revise/internal/i18n"
	"github.com/roach88/revise/internal/record"
)

// Messages resolves error keys to human-readable messages.
// *i18n.Printer implements it.
type Messages interface {
	Message(key string) string
}

type settings struct {
	logger *slog.Logger
	ids    IDGenerator
	msgs   Messages
}

// Option configures a Workflow.
type Option func(*settings)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator sets the call ID generator. Default: UUIDv7Generator.
// Use a fixed generator in tests for deterministic output.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *settings) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithMessages sets the message resolver. Default: i18n.Default().
func WithMessages(m Messages) Option {
	return func(s *settings) {
		if m != nil {
			s.msgs = m
		}
	}
}

// Workflow runs updates for one kind of record.
//
// Thread-safety: immutable after New; Execute may be called concurrently
// for independent records.
type Workflow[R record.Record] struct {
	kind      string
	auth      Authorizer[R]
	persister Persister[R]
	hooks     Hooks[R]
	settings
}

// New creates a Workflow for kind.
//
// auth and persister are required; a missing one is a
// *ConfigurationError. A MethodPersister is checked against R here when
// R is a concrete type.
func New[R record.Record](
	kind string,
	auth Authorizer[R],
	persister Persister[R],
	hooks Hooks[R],
	opts ...Option,
) (*Workflow[R], error) {
	w := &Workflow[R]{
		kind:      kind,
		auth:      auth,
		persister: persister,
		hooks: Hooks[R]{
			BeforeUpdate:        append([]Hook[R](nil), hooks.BeforeUpdate...),
			AfterUpdate:         append([]Hook[R](nil), hooks.AfterUpdate...),
			BeforeUpdateRecord:  append([]Hook[R](nil), hooks.BeforeUpdateRecord...),
			AfterUpdateRecord:   append([]Hook[R](nil), hooks.AfterUpdateRecord...),
			OnUpdateRecordError: hooks.OnUpdateRecordError,
		},
		settings: settings{
			logger: slog.Default(),
			ids:    UUIDv7Generator{},
			msgs:   i18n.Default(),
		},
	}
	for _, opt := range opts {
		opt(&w.settings)
	}

	if err := w.configured(); err != nil {
		return nil, err
	}
	if mp, ok := persister.(MethodPersister[R]); ok {
		if err := mp.check(kind); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Kind returns the record kind.
func (w *Workflow[R]) Kind() string { return w.kind }

// Execute runs one update of rec with attrs on behalf of actor.
//
// Expected results (Success, NotFound, Forbidden, ValidationFailed) are
// reported in Result.Outcome with a nil error. A *ConfigurationError is
// returned with a nil Result. An escalated persistence failure returns
// both the Result, with Outcome PersistenceError, and a *RecordError.
func (w *Workflow[R]) Execute(ctx context.Context, rec R, attrs record.Attributes, actor Actor) (*Result, error) {
	if err := w.configured(); err != nil {
		return nil, err
	}

	c := &Call[R]{
		id:     w.ids.Generate(),
		kind:   w.kind,
		record: rec,
		attrs:  attrs,
		actor:  actor,
		msgs:   w.msgs,
		state:  StateStart,
	}

	// Precondition, outside every hook region.
	if isAbsent(rec) {
		c.finish(StatusNotFound, StateNotFound, []ErrorEntry{c.entry(i18n.ReasonNotFound)})
		w.logOutcome(ctx, c)
		return c.result(), nil
	}

	err := w.around(ctx, c, w.hooks.BeforeUpdate, w.hooks.AfterUpdate, func() error {
		return w.update(ctx, c)
	})
	if IsConfigurationError(err) {
		return nil, err
	}
	w.logOutcome(ctx, c)
	return c.result(), err
}

func (w *Workflow[R]) update(ctx context.Context, c *Call[R]) error {
	if !w.auth.CanUpdate(ctx, c.record, c.actor) {
		// An invalid record reads as missing, whatever the permission.
		if c.record.Valid() {
			c.finish(StatusForbidden, StateForbidden, []ErrorEntry{c.entry(i18n.ReasonCantUpdate)})
		} else {
			c.finish(StatusNotFound, StateNotFound, []ErrorEntry{c.entry(i18n.ReasonNotFound)})
		}
		return nil
	}

	c.state = StateProceeding
	c.snapshot = record.TakeSnapshot(c.record, c.attrs.Keys())

	err := w.around(ctx, c, w.hooks.BeforeUpdateRecord, w.hooks.AfterUpdateRecord, func() error {
		return w.mutate(ctx, c)
	})
	if err != nil || c.outcome != nil {
		return err
	}

	w.classify(c)
	return nil
}

func (w *Workflow[R]) mutate(ctx context.Context, c *Call[R]) error {
	c.state = StateMutationAttempted

	err := w.persist(ctx, c.record, c.attrs)
	if err == nil {
		return nil
	}
	if IsConfigurationError(err) {
		return err
	}

	onError := w.hooks.OnUpdateRecordError
	if onError == nil {
		onError = EscalateRecordError[R]
	}
	escalated := onError(ctx, c, err)
	if escalated == nil {
		w.logger.Warn("persistence error swallowed",
			"kind", c.kind,
			"id", c.record.ID(),
			"call_id", c.id,
			"error", err,
		)
		return nil
	}

	c.finish(StatusPersistenceError, StateErrorEscalated, []ErrorEntry{c.entry(i18n.ReasonRecordError)})
	return escalated
}

// persist converts a panicking Persister into an error.
func (w *Workflow[R]) persist(ctx context.Context, rec R, attrs record.Attributes) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return w.persister.Persist(ctx, rec, attrs)
}

func (w *Workflow[R]) classify(c *Call[R]) {
	if c.record.Valid() {
		c.changes = record.Diff(c.snapshot, c.record, c.attrs)
		c.finish(StatusSuccess, StateSuccess, nil)
		return
	}

	var entries []ErrorEntry
	if errs := c.record.Errors(); errs != nil {
		for _, fe := range errs.Entries() {
			entries = append(entries, ErrorEntry{Key: fe.Field, Message: fe.Message})
		}
	}
	if len(entries) == 0 {
		entries = []ErrorEntry{c.entry(i18n.ReasonInvalid)}
	}
	c.finish(StatusValidationFailed, StateValidationFailed, entries)
}

// around runs before-hooks, then body unless the call has failed, then
// after-hooks on every exit path. A failing before-hook stops the rest.
func (w *Workflow[R]) around(ctx context.Context, c *Call[R], before, after []Hook[R], body func() error) error {
	defer func() {
		for _, h := range after {
			h(ctx, c)
		}
	}()
	for _, h := range before {
		if c.Failed() {
			break
		}
		h(ctx, c)
	}
	if c.Failed() {
		return nil
	}
	return body()
}

func (w *Workflow[R]) configured() error {
	if w == nil || w.kind == "" {
		return &ConfigurationError{Code: ErrCodeMissingKind, Message: "workflow has no record kind"}
	}
	if isNil(w.auth) {
		return missingAuthorizer(w.kind)
	}
	if isNil(w.persister) {
		return missingPersister(w.kind)
	}
	if w.ids == nil || w.msgs == nil || w.logger == nil {
		return &ConfigurationError{Code: ErrCodeUninitialized, Kind: w.kind, Message: "workflow was not built with New"}
	}
	return nil
}

func (w *Workflow[R]) logOutcome(ctx context.Context, c *Call[R]) {
	attrs := []any{
		"kind", c.kind,
		"call_id", c.id,
		"state", string(c.state),
	}
	if !isAbsent(c.record) {
		attrs = append(attrs, "id", c.record.ID())
	}
	if c.outcome != nil {
		attrs = append(attrs, "status", string(c.outcome.Status))
	}

	switch {
	case c.state == StateErrorEscalated:
		w.logger.ErrorContext(ctx, "update escalated", attrs...)
	case c.outcome != nil && c.outcome.Succeeded():
		attrs = append(attrs, "changed", len(c.changes))
		w.logger.InfoContext(ctx, "update succeeded", attrs...)
	default:
		if c.outcome != nil {
			attrs = append(attrs, "errors", len(c.outcome.Errors))
		}
		w.logger.InfoContext(ctx, "update rejected", attrs...)
	}
}

// isAbsent reports whether rec is nil (including a typed nil) or
// reports itself as not loaded.
func isAbsent[R record.Record](rec R) bool {
	if isNil(rec) {
		return true
	}
	return !record.Present(rec)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
