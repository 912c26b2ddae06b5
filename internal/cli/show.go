package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/update"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <kind> <id>",
		Short:         "Print a stored record",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runShow(ctx context.Context, opts *RootOptions, kindName, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	kind, err := e.kind(kindName)
	if err != nil {
		return err
	}

	entity, err := e.store.LoadRecord(ctx, kind, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !entity.Loaded()) {
		key := kindName + ".not_found"
		return outputRejected(e.formatter, update.Outcome{
			Status: update.StatusNotFound,
			Errors: []update.ErrorEntry{{Key: key, Message: e.messages.Message(key)}},
		}, fmt.Sprintf("%s %s", kindName, id))
	}
	if err != nil {
		return commandError(e.formatter, ErrCodeStore, "failed to load record", err)
	}

	return outputRecord(e.formatter, "", entity)
}
