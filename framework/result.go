package framework

import (
	"fmt"
	"io"
	"strings"
)

// Results is the outcome of a whole test run.
type Results struct {
	RunID    string
	Tests    []TestResult
	Failures []TestResult
}

// TestResult is the outcome of a single testcase within a run.
type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// TestID identifies a testcase by its path within the run, for instance
// ["uboot", "build"].
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// TestFailure associates an error with the testcase that produced it.
type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

// PrintResults writes a human-readable summary of the run to dest.
func PrintResults(dest io.Writer, results Results) {
	if results.OK() {
		fmt.Fprintf(dest, "All tests passed (run %s, %d tests)\n", results.RunID, len(results.Tests))
		return
	}
	fmt.Fprintf(dest, "FAILED TESTS (%d/%d):\n", len(results.Failures), len(results.Tests))
	for _, f := range results.Failures {
		if len(f.Errors) == 0 {
			fmt.Fprintf(dest, "  * %s\n", f.TestID)
			continue
		}
		for _, err := range f.Errors {
			fmt.Fprintf(dest, "  * %s\n", TestFailure{ID: f.TestID, Err: err})
		}
	}
}
