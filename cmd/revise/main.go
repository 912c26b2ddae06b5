// Command revise creates, updates and inspects records declared in CUE.
package main

import (
	"os"

	"github.com/roach88/revise/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
