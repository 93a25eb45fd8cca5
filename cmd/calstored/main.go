// Command calstored runs the calendar store daemon and its client tools.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/calstore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
