// Package selftests exercises the harness against itself: a local shell
// machine and fake board controllers stand in for a real lab, so the suite
// runs anywhere without hardware.
package selftests

import (
	"github.com/benchlab/bench/framework"
)

// RunSuite executes the self-test suite and returns its results.
func RunSuite(
	filter framework.Filter,
	testLogger framework.TestLogger,
	events framework.EventLogger,
) framework.Results {
	if events == nil {
		events = framework.NullEventLogger()
	}
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, events)

		t.Run("local shell", DoLocalShellTests)
		t.Run("board lifecycle", DoBoardLifecycleTests)
		t.Run("channel cleanup", DoChannelCleanupTests)
	})
}
