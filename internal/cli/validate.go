package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/suite"
)

// NewValidateCommand creates the "validate" subcommand: schema-check suite
// files without touching any external store.
func NewValidateCommand(opts *RootOptions) *cobra.Command {
	var failFast bool

	cmd := &cobra.Command{
		Use:   "validate <suite.yaml|dir>",
		Short: "Validate suite files against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			info, err := os.Stat(args[0])
			if err != nil {
				out.Error("E_LOAD", err.Error())
				return &ExitError{Code: ExitCommandError, Message: "cannot stat path", Err: err}
			}

			var errs []error
			var count int
			if info.IsDir() {
				mode := suite.LoadModeCollectAll
				if failFast {
					mode = suite.LoadModeFailFast
				}
				suites, loadErrs := suite.LoadDir(args[0], mode)
				count, errs = len(suites), loadErrs
			} else {
				count = 1
				if _, err := suite.Load(args[0]); err != nil {
					count, errs = 0, []error{err}
				}
			}

			if len(errs) > 0 {
				for _, e := range errs {
					out.Error("E_VALIDATE", e.Error())
				}
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d suite file(s) invalid", len(errs))}
			}

			return out.OK(fmt.Sprintf("%d suite file(s) valid", count))
		},
	}

	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first invalid suite")
	return cmd
}
