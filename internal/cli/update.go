package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/access"
	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Set         []string
	Actor       string
	Tenant      string
	Permissions []string
}

// UpdateReport is the JSON payload of a completed update.
type UpdateReport struct {
	CallID  string          `json:"call_id"`
	Kind    string          `json:"kind"`
	ID      string          `json:"id"`
	Status  update.Status   `json:"status"`
	Changes []record.Change `json:"changes"`
	Dropped []string        `json:"dropped,omitempty"`
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <kind> <id>",
		Short: "Update a record through the update workflow",
		Long: `Update a record through the update workflow.

Assignments to undeclared or readonly fields are dropped. The actor needs
the "<kind>:update" permission (or "*"). Every call, accepted or not, is
appended to the update log.

Exit codes: 0 success, 1 rejected (not found, forbidden, invalid),
2 command error or persistence failure.

Example:
  revise update widget w1 --set name=New --actor alice --perm widget:update`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field=value assignment (repeatable)")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "acting user ID")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "acting tenant ID")
	cmd.Flags().StringArrayVar(&opts.Permissions, "perm", nil, "permission held by the actor (repeatable)")

	return cmd
}

func runUpdate(ctx context.Context, opts *UpdateOptions, kindName, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	kind, err := e.kind(kindName)
	if err != nil {
		return err
	}

	raw, err := record.ParseAssignments(opts.Set)
	if err != nil {
		return commandError(e.formatter, ErrCodeInvalidInput, "invalid --set", err)
	}
	attrs, dropped := access.Whitelist(kind, raw)
	for _, field := range dropped {
		e.formatter.VerboseLog("Dropped %s: not a writable field of %s", field, kindName)
	}

	entity, err := e.store.LoadRecord(ctx, kind, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return commandError(e.formatter, ErrCodeStore, "failed to load record", err)
	}

	workflowOpts := []update.Option{
		update.WithLogger(e.logger),
		update.WithMessages(e.messages),
	}
	if opts.callIDs != nil {
		workflowOpts = append(workflowOpts, update.WithIDGenerator(opts.callIDs))
	}
	workflow, err := update.New(
		kind.Name(),
		access.Policy{TenantField: e.cfg.TenantField},
		update.Method[*record.Entity](e.cfg.UpdateMethod),
		traceHooks(e.formatter),
		workflowOpts...,
	)
	if err != nil {
		return commandError(e.formatter, ErrCodeConfig, "invalid update workflow", err)
	}

	actor := update.Actor{UserID: opts.Actor, TenantID: opts.Tenant, Permissions: opts.Permissions}
	res, execErr := workflow.Execute(ctx, entity, attrs, actor)
	if res == nil {
		return commandError(e.formatter, ErrCodeConfig, "invalid update workflow", execErr)
	}
	if res.ID == "" {
		res.ID = id
	}

	if _, err := e.store.LogResult(ctx, res, actor); err != nil {
		return commandError(e.formatter, ErrCodeStore, "failed to write update log", err)
	}

	if execErr != nil {
		return commandError(e.formatter, ErrCodeRecordError, fmt.Sprintf("%s %s could not be saved", kindName, id), execErr)
	}
	if !res.Outcome.Succeeded() {
		return outputRejected(e.formatter, res.Outcome, fmt.Sprintf("%s %s", kindName, id))
	}

	return outputUpdated(e.formatter, UpdateReport{
		CallID:  res.CallID,
		Kind:    res.Kind,
		ID:      res.ID,
		Status:  res.Outcome.Status,
		Changes: res.ChangedAttributes(),
		Dropped: dropped,
	})
}

// traceHooks report region boundaries in verbose mode.
func traceHooks(formatter *OutputFormatter) update.Hooks[*record.Entity] {
	trace := func(name string) []update.Hook[*record.Entity] {
		return []update.Hook[*record.Entity]{func(_ context.Context, c *update.Call[*record.Entity]) {
			formatter.VerboseLog("[%s] %s (state=%s)", c.ID(), name, c.State())
		}}
	}
	return update.Hooks[*record.Entity]{
		BeforeUpdate:       trace("before update"),
		AfterUpdate:        trace("after update"),
		BeforeUpdateRecord: trace("before update_record"),
		AfterUpdateRecord:  trace("after update_record"),
		OnUpdateRecordError: func(ctx context.Context, c *update.Call[*record.Entity], err error) error {
			formatter.VerboseLog("[%s] update_record failed: %v", c.ID(), err)
			return update.EscalateRecordError(ctx, c, err)
		},
	}
}
