package framework

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCollectsResults(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("first", func(c *Context) {})
		c.Run("second", func(c *Context) {
			c.Errorf("broke: %s", "badly")
		})
	})

	assert.False(t, results.OK())
	assert.NotEmpty(t, results.RunID)
	// The root context contributes one result of its own.
	require.Len(t, results.Tests, 3)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "second", results.Failures[0].TestID.String())
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "broke: badly", results.Failures[0].Errors[0].Error())
}

func TestFailNowStopsTheTestcaseOnly(t *testing.T) {
	var reachedAfter, ranNext bool
	results := Run(nil, nil, func(c *Context) {
		c.Run("fails fast", func(c *Context) {
			c.Errorf("first problem")
			c.FailNow()
			reachedAfter = true
		})
		c.Run("still runs", func(c *Context) {
			ranNext = true
		})
	})

	assert.False(t, reachedAfter)
	assert.True(t, ranNext)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "fails fast", results.Failures[0].TestID.String())
}

func TestFailNowWithoutMessage(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("silent", func(c *Context) {
			c.FailNow()
		})
	})
	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "no failure message")
}

func TestUnexpectedPanicBecomesFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("explodes", func(c *Context) {
			panic("kaboom")
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "kaboom")
}

func TestFilterExcludesTestcases(t *testing.T) {
	var ran []string
	filter := func(id TestID) bool { return id.String() != "skipped one" }
	results := Run(filter, nil, func(c *Context) {
		c.Run("kept one", func(c *Context) { ran = append(ran, "kept one") })
		c.Run("skipped one", func(c *Context) { ran = append(ran, "skipped one") })
	})

	assert.Equal(t, []string{"kept one"}, ran)
	assert.True(t, results.OK())
	// Filtered testcases do not appear in the results at all.
	require.Len(t, results.Tests, 2)
}

func TestSkipIsNotAFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("opts out", func(c *Context) {
			c.SkipWithReason("hardware not present")
			c.Errorf("never reached")
		})
	})
	assert.True(t, results.OK())
}

func TestSubtestPathsDoNotAlias(t *testing.T) {
	var seen []string
	results := Run(nil, nil, func(c *Context) {
		c.Run("parent", func(c *Context) {
			c.Run("a", func(c *Context) { seen = append(seen, c.ID().String()) })
			c.Run("b", func(c *Context) { seen = append(seen, c.ID().String()) })
		})
	})
	assert.Equal(t, []string{"parent/a", "parent/b"}, seen)
	assert.True(t, results.OK())
}

func TestRunIDIsVisibleToTestcases(t *testing.T) {
	var inner string
	results := Run(nil, nil, func(c *Context) {
		c.Run("reads id", func(c *Context) { inner = c.RunID() })
	})
	assert.Equal(t, results.RunID, inner)
	assert.NotEmpty(t, inner)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, Results{RunID: "r1", Tests: make([]TestResult, 4)})
	assert.Contains(t, buf.String(), "All tests passed")
	assert.Contains(t, buf.String(), "4 tests")

	buf.Reset()
	failed := TestResult{
		TestID: TestID{Path: []string{"uboot", "build"}},
		Errors: []error{errors.New("make exited with status 2")},
	}
	PrintResults(&buf, Results{Tests: []TestResult{failed}, Failures: []TestResult{failed}})
	assert.Contains(t, buf.String(), "FAILED TESTS (1/1)")
	assert.Contains(t, buf.String(), "[uboot/build]: make exited with status 2")
}

func TestMultiLineErrorsAreIndentedForTheLogger(t *testing.T) {
	var logged []error
	logger := testLoggerFuncs{
		errored: func(id TestID, err error) { logged = append(logged, err) },
	}
	results := Run(nil, logger, func(c *Context) {
		c.Run("fails", func(c *Context) {
			c.Errorf("expected: %s\nactual: %s", "on", "off")
		})
	})

	require.Len(t, logged, 1)
	assert.Equal(t, "expected: on\n    actual: off", logged[0].Error())
	// The recorded result keeps the original message.
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "expected: on\nactual: off", results.Failures[0].Errors[0].Error())
}

func TestCapturingLoggerReceivesDebugOutput(t *testing.T) {
	var captured []CapturedOutput
	logger := testLoggerFuncs{
		finished: func(id TestID, failed bool, debugOutput CapturedOutput) {
			captured = append(captured, debugOutput)
		},
	}
	Run(nil, logger, func(c *Context) {
		c.Run("logs", func(c *Context) {
			c.Debug("built %s", "u-boot.bin")
		})
	})
	require.Len(t, captured, 1)
	require.Len(t, captured[0], 1)
	assert.Equal(t, "built u-boot.bin", captured[0][0].Message)
}

// testLoggerFuncs adapts plain funcs to the TestLogger interface.
type testLoggerFuncs struct {
	finished func(TestID, bool, CapturedOutput)
	errored  func(TestID, error)
}

func (l testLoggerFuncs) TestStarted(TestID) {}
func (l testLoggerFuncs) TestError(id TestID, err error) {
	if l.errored != nil {
		l.errored(id, err)
	}
}
func (l testLoggerFuncs) TestSkipped(TestID, string) {}
func (l testLoggerFuncs) TestFinished(id TestID, failed bool, debugOutput CapturedOutput) {
	if l.finished != nil {
		l.finished(id, failed, debugOutput)
	}
}
