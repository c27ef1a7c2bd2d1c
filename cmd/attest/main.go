package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/attest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors were already rendered by their command; anything else
		// (flag parsing, usage) still needs printing.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
