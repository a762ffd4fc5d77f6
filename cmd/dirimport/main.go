// dirimport is the standalone one-shot import binary for cron jobs and
// deploy pipelines. Exit codes: 0 = clean run, 2 = completed with
// record errors, 3 = credential or connectivity failure.
package main

import (
	"fmt"
	"os"

	"github.com/doctordir/importer/internal/cli"
)

func main() {
	cmd := cli.NewImportCommand()
	if err := cmd.ParseFlags(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", cli.Describe(err))
		os.Exit(cli.ExitCode(err))
	}
}
