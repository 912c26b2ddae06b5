package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/query"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Where []string
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List record IDs of a kind",
		Long: `List the IDs of stored records of a kind, optionally filtered by
field values. Filters are ANDed; "field=null" matches null fields.

Example:
  revise list widget --where color=red --where stock=0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value filter (repeatable)")

	return cmd
}

func runList(ctx context.Context, opts *ListOptions, kindName string, cmd *cobra.Command) error {
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

	filter, err := query.ParseFilters(opts.Where)
	if err != nil {
		return commandError(e.formatter, ErrCodeInvalidInput, "invalid --where", err)
	}
	if err := query.Validate(filter, kind); err != nil {
		return commandError(e.formatter, ErrCodeInvalidInput, "invalid --where", err)
	}

	ids, err := e.store.FindRecords(ctx, kindName, filter)
	if err != nil {
		return commandError(e.formatter, ErrCodeStore, "failed to list records", err)
	}
	e.formatter.VerboseLog("Found %d %s record(s)", len(ids), kindName)

	if e.formatter.Format == "json" {
		return e.formatter.Success(ListResult{Kind: kindName, IDs: ids})
	}

	fmt.Fprintf(e.formatter.Writer, "%d %s record(s)\n", len(ids), kindName)
	for _, id := range ids {
		fmt.Fprintf(e.formatter.Writer, "  %s\n", id)
	}
	return nil
}
