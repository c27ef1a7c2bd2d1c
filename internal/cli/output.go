package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/attest/internal/verdict"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Every check passed
	ExitFailure      = 1 // One or more checks failed
	ExitCommandError = 2 // Command error (bad suite file, broken infrastructure)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) for errors that carry no code: an error
// reaching main without classification means the command itself broke.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// OutputFormatter renders reports and errors as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// reportPayload is the JSON shape of one rendered report.
type reportPayload struct {
	Suite  string          `json:"suite"`
	Passed bool            `json:"passed"`
	Broken bool            `json:"broken,omitempty"`
	RunID  string          `json:"run_id"`
	Checks []verdict.Check `json:"checks"`
}

// Report renders one suite's report.
func (f *OutputFormatter) Report(suiteName string, r *verdict.Report) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(reportPayload{
			Suite:  suiteName,
			Passed: r.Passed(),
			Broken: r.Broken(),
			RunID:  r.RunID,
			Checks: r.Checks,
		})
	}

	status := "PASS"
	switch {
	case r.Broken():
		status = "ERROR"
	case !r.Passed():
		status = "FAIL"
	}
	fmt.Fprintf(f.Writer, "%s %s\n", status, suiteName)
	fmt.Fprint(f.Writer, r.Render())
	return nil
}

// OK renders a non-report success message.
func (f *OutputFormatter) OK(message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(map[string]any{
			"status":  "ok",
			"message": message,
		})
	}
	fmt.Fprintln(f.Writer, message)
	return nil
}

// Error renders a command-level error.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(map[string]any{
			"status": "error",
			"error":  map[string]string{"code": code, "message": message},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return nil
}
