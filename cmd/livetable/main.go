// Command livetable compiles entity definitions and indexes chain inputs
// into SQLite tables. Programs that bind their own handler methods build
// their own main around cli.NewRootCommand.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/livetable/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
