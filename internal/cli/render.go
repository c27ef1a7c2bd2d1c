package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/verdict"
)

// NewRenderCommand creates the "render" subcommand: pretty-print a report
// previously stored with --format json, without touching any external store.
// Exit codes mirror "run" so a stored report can be re-adjudicated.
func NewRenderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "render <report.json>",
		Short: "Render a stored JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			data, err := os.ReadFile(args[0])
			if err != nil {
				out.Error("E_LOAD", err.Error())
				return &ExitError{Code: ExitCommandError, Message: "cannot read report", Err: err}
			}

			var payload reportPayload
			if err := json.Unmarshal(data, &payload); err != nil {
				out.Error("E_PARSE", err.Error())
				return &ExitError{Code: ExitCommandError, Message: "report is not valid JSON", Err: err}
			}

			report := &verdict.Report{RunID: payload.RunID, Checks: payload.Checks}
			if err := out.Report(payload.Suite, report); err != nil {
				return err
			}

			switch {
			case report.Broken():
				return &ExitError{Code: ExitCommandError, Message: "verification infrastructure failure"}
			case !report.Passed():
				_, msg := report.Result()
				return &ExitError{Code: ExitFailure, Message: msg}
			}
			return nil
		},
	}
}
