package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/roach88/revise/internal/access"
	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/schema"
	"github.com/roach88/revise/internal/store"
	"github.com/roach88/revise/internal/testutil"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

// Harness is the scenario execution engine.
// It runs scenarios with deterministic IDs and a stepping clock.
type Harness struct {
	store   *store.Store
	kinds   *schema.Registry
	callIDs *testutil.SequenceGenerator
	logger  *slog.Logger
	seq     int64
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the CUE kinds
// 2. Insert setup records
// 3. Run each flow step through an update.Workflow, tracing hook regions
// 4. Evaluate assertions against the trace and the store
func Run(scenario *Scenario) (*Result, error) {
	kinds, err := loadKinds(scenario.Kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to load kinds: %w", err)
	}

	clock := testutil.NewSteppingClock()
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequenceGenerator("log")),
		store.WithClock(clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		kinds:   kinds,
		callIDs: testutil.NewSequenceGenerator("call"),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		result:  NewResult(),
	}

	ctx := context.Background()

	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	if err := h.executeFlow(ctx, scenario.Flow); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, h.result, scenario.Assertions, st, kinds) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

func loadKinds(path string) (*schema.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return schema.LoadDir(path)
	}
	return schema.LoadFile(path)
}

func (h *Harness) trace(e TraceEvent) {
	h.seq++
	e.Seq = h.seq
	h.result.Trace = append(h.result.Trace, e)
}

func (h *Harness) kind(name string) (*schema.Kind, error) {
	k, ok := h.kinds.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", name)
	}
	return k, nil
}

// executeSetup inserts every setup record. Setup records must be valid.
func (h *Harness) executeSetup(ctx context.Context, setup []SetupStep) error {
	for i, step := range setup {
		kind, err := h.kind(step.Create)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}

		fields, err := value.FromAny(step.Fields)
		if err != nil {
			return fmt.Errorf("setup step %d: failed to convert fields: %w", i, err)
		}

		entity := record.NewEntity(kind, h.store, step.ID, fields.(value.Object), 0)
		if err := entity.Validate(ctx); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if !entity.Valid() {
			return fmt.Errorf("setup step %d: %s %s is invalid: %v", i, step.Create, step.ID, entity.Errors().Entries())
		}
		if err := h.store.InsertRecord(ctx, entity); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}

		h.trace(TraceEvent{Type: EventSetup, Step: i, Kind: step.Create, ID: step.ID})
		h.logger.Info("setup step completed", "step", i, "kind", step.Create, "id", step.ID)
	}
	return nil
}

// executeFlow runs every flow step through a real workflow and checks
// its expect clause against the observed outcome.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep) error {
	for i, step := range flow {
		kind, err := h.kind(step.Update)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		entity, err := h.store.LoadRecord(ctx, kind, step.ID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		workflow, err := update.New(
			kind.Name(),
			access.Policy{},
			h.persister(step),
			h.hooks(i, step),
			update.WithLogger(h.logger),
			update.WithIDGenerator(h.callIDs),
		)
		if err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		actor := step.Actor.Actor()
		res, execErr := workflow.Execute(ctx, entity, step.Attrs.Attributes(), actor)
		if res == nil {
			return fmt.Errorf("flow step %d: %w", i, execErr)
		}
		if res.ID == "" {
			res.ID = step.ID
		}
		if _, err := h.store.LogResult(ctx, res, actor); err != nil {
			return fmt.Errorf("flow step %d: %w", i, err)
		}

		event := TraceEvent{
			Type:      EventOutcome,
			Step:      i,
			CallID:    res.CallID,
			Status:    res.Outcome.Status,
			Errors:    res.Outcome.Errors,
			Changes:   res.ChangedAttributes(),
			Escalated: execErr != nil,
		}
		h.trace(event)
		h.checkExpect(i, step.Expect, event)

		h.logger.Info("flow step completed",
			"step", i,
			"kind", step.Update,
			"id", step.ID,
			"call_id", res.CallID,
			"status", res.Outcome.Status,
		)
	}
	return nil
}

func (h *Harness) checkExpect(i int, expect *ExpectClause, got TraceEvent) {
	if expect == nil {
		return
	}
	if got.Status != expect.Status {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected status %s, got %s", i, expect.Status, got.Status))
	}
	if got.Escalated != expect.Escalated {
		h.result.AddError(fmt.Sprintf("flow[%d]: expected escalated=%t, got %t", i, expect.Escalated, got.Escalated))
	}
	if expect.Keys != nil {
		keys := make([]string, 0, len(got.Errors))
		for _, e := range got.Errors {
			keys = append(keys, e.Key)
		}
		if !slices.Equal(keys, expect.Keys) {
			h.result.AddError(fmt.Sprintf("flow[%d]: expected error keys %v, got %v", i, expect.Keys, keys))
		}
	}
}

// persister returns the conventional method, or a failing strategy when
// the step injects a persistence error.
func (h *Harness) persister(step FlowStep) update.Persister[*record.Entity] {
	if step.Fail == "" {
		return update.Method[*record.Entity](update.DefaultMethod)
	}
	return update.PersistFunc[*record.Entity](func(_ context.Context, e *record.Entity, attrs record.Attributes) error {
		e.Assign(attrs)
		return errors.New(step.Fail)
	})
}

// hooks trace every region boundary of step i.
func (h *Harness) hooks(i int, step FlowStep) update.Hooks[*record.Entity] {
	trace := func(region string) []update.Hook[*record.Entity] {
		return []update.Hook[*record.Entity]{func(_ context.Context, c *update.Call[*record.Entity]) {
			h.trace(TraceEvent{Type: EventRegion, Step: i, Region: region, State: c.State()})
		}}
	}
	onError := update.EscalateRecordError[*record.Entity]
	if step.Swallow {
		onError = update.SwallowRecordError[*record.Entity]
	}
	return update.Hooks[*record.Entity]{
		BeforeUpdate:       trace("before_update"),
		AfterUpdate:        trace("after_update"),
		BeforeUpdateRecord: trace("before_update_record"),
		AfterUpdateRecord:  trace("after_update_record"),
		OnUpdateRecordError: func(ctx context.Context, c *update.Call[*record.Entity], err error) error {
			h.trace(TraceEvent{Type: EventRegion, Step: i, Region: RegionOnError, State: c.State()})
			return onError(ctx, c, err)
		},
	}
}
