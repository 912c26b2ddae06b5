package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/store"
	"github.com/roach88/revise/internal/value"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <kind> <id>",
		Short: "Print the update log of a record",
		Long: `Print every update call made against a record, oldest first,
including rejected and failed calls.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runHistory(ctx context.Context, opts *RootOptions, kindName, id string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if _, err := e.kind(kindName); err != nil {
		return err
	}

	entries, err := e.store.ReadUpdateLog(ctx, kindName, id)
	if err != nil {
		return commandError(e.formatter, ErrCodeStore, "failed to read update log", err)
	}

	if e.formatter.Format == "json" {
		return e.formatter.Success(entries)
	}
	outputHistory(e.formatter, kindName, id, entries)
	return nil
}

func outputHistory(formatter *OutputFormatter, kindName, id string, entries []store.LogEntry) {
	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintf(w, "No updates recorded for %s %s\n", kindName, id)
		return
	}

	fmt.Fprintf(w, "%d update(s) for %s %s:\n\n", len(entries), kindName, id)
	for _, entry := range entries {
		actor := entry.Actor.UserID
		if actor == "" {
			actor = "(anonymous)"
		}
		fmt.Fprintf(w, "#%d %s %s by %s\n", entry.Seq, entry.RecordedAt.Format("2006-01-02T15:04:05Z07:00"), entry.Status, actor)
		for _, c := range entry.Changes {
			fmt.Fprintf(w, "  %s: %s → %s\n", c.Field, value.Format(c.Previous), value.Format(c.Current))
		}
		for _, e := range entry.Errors {
			fmt.Fprintf(w, "  %s: %s\n", e.Key, e.Message)
		}
	}
}
