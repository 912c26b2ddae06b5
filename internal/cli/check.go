package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/schema"
)

// KindSummary describes one compiled kind.
type KindSummary struct {
	Name   string         `json:"name"`
	Fields []schema.Field `json:"fields"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <kinds-dir>",
		Short: "Compile CUE kind declarations and report errors",
		Long: `Compile the CUE kind declarations in a directory without opening
the database. Useful as a pre-commit check.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	reg, err := schema.LoadDir(dir)
	if err != nil {
		var compileErr *schema.CompileError
		if errors.As(err, &compileErr) && formatter.Format != "json" && compileErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				compileErr.Pos.Filename(), compileErr.Pos.Line(), compileErr.Pos.Column())
		}
		return commandError(formatter, ErrCodeSchema, fmt.Sprintf("failed to compile kinds in %s", dir), err)
	}

	kinds := reg.Kinds()
	summaries := make([]KindSummary, 0, len(kinds))
	for _, k := range kinds {
		formatter.VerboseLog("Compiled kind: %s", k.Name())
		summaries = append(summaries, KindSummary{Name: k.Name(), Fields: k.Fields()})
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d kind(s)\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "  %s: %d field(s)\n", s.Name, len(s.Fields))
	}
	return nil
}
