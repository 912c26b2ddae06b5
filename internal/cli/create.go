package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/store"
	"github.com/roach88/revise/internal/update"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Set []string
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <kind> <id>",
		Short: "Insert a new record",
		Long: `Insert a new record of a declared kind.

Every declared field may be set, including readonly ones. The record is
validated against its kind before it is stored.

Example:
  revise create widget w1 --set name=Sprocket --set stock=3`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field=value assignment (repeatable)")

	return cmd
}

func runCreate(ctx context.Context, opts *CreateOptions, kindName, id string, cmd *cobra.Command) error {
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

	attrs, err := record.ParseAssignments(opts.Set)
	if err != nil {
		return commandError(e.formatter, ErrCodeInvalidInput, "invalid --set", err)
	}
	for _, key := range attrs.Keys() {
		if !kind.HasField(key) {
			return commandError(e.formatter, ErrCodeInvalidInput, fmt.Sprintf("%s has no field %q", kindName, key), nil)
		}
	}

	entity := record.NewEntity(kind, e.store, id, attrs.Object(), 0)
	if err := entity.Validate(ctx); err != nil {
		return commandError(e.formatter, ErrCodeStore, "failed to validate record", err)
	}
	if !entity.Valid() {
		var entries []update.ErrorEntry
		for _, fe := range entity.Errors().Entries() {
			entries = append(entries, update.ErrorEntry{Key: fe.Field, Message: fe.Message})
		}
		return outputRejected(e.formatter, update.Outcome{Status: update.StatusValidationFailed, Errors: entries},
			fmt.Sprintf("%s %s", kindName, id))
	}

	if err := e.store.InsertRecord(ctx, entity); err != nil {
		if errors.Is(err, store.ErrExists) {
			return commandError(e.formatter, ErrCodeExists, fmt.Sprintf("%s %s already exists", kindName, id), nil)
		}
		return commandError(e.formatter, ErrCodeStore, "failed to insert record", err)
	}
	e.logger.Info("record created", "kind", kindName, "id", id)

	return outputRecord(e.formatter, "Created", entity)
}
