package selftests

import (
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/machine"
)

// DoLocalShellTests verifies the exec contracts against a real local shell.
func DoLocalShellTests(t *T) {
	t.Run("exec returns status and output", func(t *T) {
		m := t.LocalMachine()
		status, output, err := machine.Exec(m, "echo hello", machine.DefaultExecOptions())
		require.NoError(t, err)
		assert.Equal(t, 0, status)
		assert.Equal(t, "hello", strings.TrimSpace(output))
	})

	t.Run("exec reports nonzero status", func(t *T) {
		m := t.LocalMachine()
		status, _, err := machine.Exec(m, "(exit 3)", machine.DefaultExecOptions())
		require.NoError(t, err)
		assert.Equal(t, 3, status)
	})

	t.Run("exec0 succeeds on status zero", func(t *T) {
		m := t.LocalMachine()
		output, err := machine.Exec0(m, "echo ok", machine.DefaultExecOptions())
		require.NoError(t, err)
		assert.Equal(t, "ok", strings.TrimSpace(output))
	})

	t.Run("exec0 fails with command and output", func(t *T) {
		m := t.LocalMachine()
		_, err := machine.Exec0(m, "echo oops; false", machine.DefaultExecOptions())
		require.Error(t, err)
		var cmdErr *machine.CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, "echo oops; false", cmdErr.Command)
		assert.Contains(t, cmdErr.Output, "oops")
	})

	t.Run("combined output includes stderr", func(t *T) {
		m := t.LocalMachine()
		output, err := machine.Exec0(m, "echo to-stderr 1>&2", machine.DefaultExecOptions())
		require.NoError(t, err)
		assert.Contains(t, output, "to-stderr")
	})
}
