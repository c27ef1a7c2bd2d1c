package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/motif"
	"github.com/roach88/attest/internal/notion"
	"github.com/roach88/attest/internal/relational"
	"github.com/roach88/attest/internal/snapshot"
	"github.com/roach88/attest/internal/suite"
)

// Environment variables supplying credentials. Reading them here keeps the
// engine itself free of environment access.
const (
	EnvNotionToken = "ATTEST_NOTION_TOKEN"
	EnvDatabaseDSN = "ATTEST_DATABASE_DSN"
)

// NewRunCommand creates the "run" subcommand: execute one suite file and
// exit 0 (all passed), 1 (a check failed), or 2 (verification broken).
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a verification suite against live state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			s, err := suite.Load(args[0])
			if err != nil {
				out.Error("E_LOAD", err.Error())
				return &ExitError{Code: ExitCommandError, Message: "suite load failed", Err: err}
			}

			runner, cleanup, err := buildRunner(cmd, s, maxDepth)
			if err != nil {
				out.Error("E_SETUP", err.Error())
				return &ExitError{Code: ExitCommandError, Message: "runner setup failed", Err: err}
			}
			defer cleanup()

			report := runner.Run(cmd.Context(), s)
			if err := out.Report(s.Name, report); err != nil {
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

	cmd.Flags().IntVar(&maxDepth, "max-depth", snapshot.DefaultMaxDepth, "tree traversal depth ceiling")
	return cmd
}

// buildRunner wires the collaborators the suite's targets need. The
// returned cleanup releases the database handle on every path.
func buildRunner(cmd *cobra.Command, s *suite.Suite, maxDepth int) (*suite.Runner, func(), error) {
	runner := &suite.Runner{Log: slog.Default()}
	cleanup := func() {}

	if s.Notion != nil {
		token := os.Getenv(EnvNotionToken)
		if token == "" {
			return nil, cleanup, fmt.Errorf("%s not set", EnvNotionToken)
		}
		client := notion.New(notion.Config{Token: token})
		runner.Resolver = notion.NewResolver(client, nil)
		runner.Snapshots = snapshot.NewReader(client, snapshot.Options{MaxDepth: maxDepth})
		runner.Matcher = motif.NewMatcher(runner.Snapshots)
	}

	if s.Database != nil {
		dsn := os.Getenv(EnvDatabaseDSN)
		if dsn == "" {
			return nil, cleanup, fmt.Errorf("%s not set", EnvDatabaseDSN)
		}
		db, err := relational.Open(cmd.Context(), s.Database.Driver, dsn)
		if err != nil {
			return nil, cleanup, err
		}
		runner.DB = db
		cleanup = func() { db.Close() }
	}

	return runner, cleanup, nil
}
