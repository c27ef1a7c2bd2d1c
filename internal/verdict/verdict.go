// Package verdict defines the terminal artifact of every check - a
// (passed, message) pair - and the Report that aggregates them.
//
// Verdicts compose by logical AND with first-failure-wins short-circuiting
// for the terminal result, but a Report keeps every diagnostic it saw so a
// caller asking for full output still gets the complete picture after the
// first failure.
package verdict

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Verdict is the outcome of one structural or relational check.
type Verdict struct {
	// Passed indicates the check succeeded.
	Passed bool `json:"passed"`

	// Message describes exactly which expectation failed. Empty on success
	// unless the check chose to report a summary.
	Message string `json:"message,omitempty"`
}

// Pass returns a passing Verdict with an optional summary message.
func Pass(format string, args ...any) Verdict {
	return Verdict{Passed: true, Message: fmt.Sprintf(format, args...)}
}

// Fail returns a failing Verdict. The message must name the specific
// expectation that failed - never a generic "failed".
func Fail(format string, args ...any) Verdict {
	return Verdict{Passed: false, Message: fmt.Sprintf(format, args...)}
}

// FromError converts a check error into a failing Verdict.
func FromError(err error) Verdict {
	return Verdict{Passed: false, Message: err.Error()}
}

// Check is a named verdict inside a Report.
type Check struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`

	// Infrastructure marks failures of the verification machinery itself
	// (fetch/connection/query/timeout) rather than of the task under test.
	Infrastructure bool `json:"infrastructure,omitempty"`
}

// Report accumulates check verdicts for one verification run.
//
// The terminal verdict is the AND of all checks; the first failure decides
// the terminal message. Checks recorded after a failure are still kept for
// diagnostics.
type Report struct {
	// RunID correlates log lines and rendered output for one run.
	RunID string `json:"run_id"`

	// Checks holds every recorded check in order.
	Checks []Check `json:"checks"`
}

// NewReport creates an empty report with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

// Record adds a named verdict to the report.
func (r *Report) Record(name string, v Verdict) {
	r.Checks = append(r.Checks, Check{Name: name, Verdict: v})
}

// RecordError adds a failing check derived from an error, tagging it as an
// infrastructure failure when the error kind says so.
func (r *Report) RecordError(name string, err error) {
	r.Checks = append(r.Checks, Check{
		Name:           name,
		Verdict:        FromError(err),
		Infrastructure: IsInfrastructure(err),
	})
}

// Passed reports whether every recorded check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Verdict.Passed {
			return false
		}
	}
	return true
}

// FirstFailure returns the first failing check, if any.
func (r *Report) FirstFailure() (Check, bool) {
	for _, c := range r.Checks {
		if !c.Verdict.Passed {
			return c, true
		}
	}
	return Check{}, false
}

// Broken reports whether any failure was an infrastructure failure, meaning
// the run says nothing about whether the agent performed the task.
func (r *Report) Broken() bool {
	for _, c := range r.Checks {
		if !c.Verdict.Passed && c.Infrastructure {
			return true
		}
	}
	return false
}

// Result collapses the report into the (passed, message) pair the process
// boundary expects. On failure the message is the first failing check's
// diagnostic; the remaining diagnostics stay available on the Report.
func (r *Report) Result() (bool, string) {
	first, failed := r.FirstFailure()
	if !failed {
		return true, ""
	}
	return false, fmt.Sprintf("%s: %s", first.Name, first.Verdict.Message)
}

// Render produces a human-readable multi-line summary of every check.
func (r *Report) Render() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "run %s\n", r.RunID)
	for _, c := range r.Checks {
		status := "PASS"
		if !c.Verdict.Passed {
			status = "FAIL"
			if c.Infrastructure {
				status = "ERROR"
			}
		}
		fmt.Fprintf(&buf, "  [%s] %s", status, c.Name)
		if c.Verdict.Message != "" {
			fmt.Fprintf(&buf, ": %s", c.Verdict.Message)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
