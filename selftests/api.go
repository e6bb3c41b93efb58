package selftests

import (
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine"
)

// T represents a test or subtest in the self-test suite.
//
// It implements the same basic functionality as Go's testing.T, but outside
// of the Go test runner, so the assert and require packages can be used with
// it directly. It also hands out the machines the self-tests run against.
type T struct {
	context *framework.Context
	events  framework.EventLogger
	local   *machine.Local
}

func newTestScope(context *framework.Context, events framework.EventLogger) *T {
	return &T{context: context, events: events}
}

func (t *T) close() {
	if t.local != nil {
		_ = t.local.Destroy()
		t.local = nil
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an
// immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately
// exit. The methods in the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. The specified function receives a new T instance with
// its own machines.
func (t *T) Run(name string, action func(*T)) {
	var t1 *T
	t.context.Run(name, func(c *framework.Context) {
		t1 = newTestScope(c, t.events)
		action(t1)
	})
	if t1 != nil {
		t1.close()
	}
}

// Debug logs debug output for the test, shown by the test logger on failure.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// LocalMachine returns a local shell machine for this test scope, creating it
// on first use. The test fails immediately if the shell cannot be started.
func (t *T) LocalMachine() *machine.Local {
	if t.local == nil {
		local, err := machine.NewLocal()
		require.NoError(t, err)
		local.SetLogger(t.events)
		t.local = local
	}
	return t.local
}
