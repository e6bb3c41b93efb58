// Package machine defines the uniform command-execution contract shared by
// every kind of machine (lab host, board console, local shell), and the
// Manager that creates and caches machine instances for a test run.
//
// Testcases never talk to transports directly; they call Exec and Exec0
// against a Machine and get back an exit status and the combined output,
// regardless of what the machine is backed by.
package machine

import (
	"strings"
	"time"

	"github.com/benchlab/bench/framework"
)

// Machine is any command-execution endpoint.
//
// CommonName is shared by a class of machines ("build", "board"); UniqueName
// identifies the instance ("build-1", "board-taurus"). The unique name,
// split on "-", becomes the event path of every command executed on the
// machine.
type Machine interface {
	CommonName() string
	UniqueName() string

	// SetLogger attaches the structured event sink. A machine holds at most
	// one logger reference at a time; the logger is injected, never owned.
	SetLogger(logger framework.EventLogger)
	Logger() framework.EventLogger

	// RunCommand is the channel-specific execution primitive. Callers should
	// normally use Exec/Exec0 instead, which add event logging on top.
	RunCommand(command string, timeout time.Duration) (exitStatus int, output string, err error)

	// Destroy releases the machine's resources.
	Destroy() error
}

// ExecOptions adjusts a single Exec call. The Show flags are presentation
// hints passed through to the log event; they never affect the returned exit
// status or output.
type ExecOptions struct {
	ShowCommand bool
	ShowOutput  bool
	Timeout     time.Duration
}

// DefaultExecOptions shows both the command and its output and uses the
// channel's default timeout.
func DefaultExecOptions() ExecOptions {
	return ExecOptions{ShowCommand: true, ShowOutput: true}
}

// Exec runs a command on a machine and returns its exit status and combined
// output. A command event is emitted to the machine's logger (when one is
// attached) before execution and finalized with the exit status after.
func Exec(m Machine, command string, opts ExecOptions) (int, string, error) {
	ev := framework.NewCommandEvent(
		strings.Split(m.UniqueName(), "-"),
		command,
		opts.ShowCommand,
		opts.ShowOutput,
	)
	logger := m.Logger()
	if logger != nil {
		logger.LogEvent(ev)
	}
	status, output, err := m.RunCommand(command, opts.Timeout)
	if err != nil {
		return 0, output, err
	}
	ev.Finished(status, output)
	return status, output, nil
}

// Exec0 runs a command and requires it to exit with status zero, returning
// the combined output. A nonzero status yields a *CommandError carrying the
// exact command text and the captured output.
func Exec0(m Machine, command string, opts ExecOptions) (string, error) {
	status, output, err := Exec(m, command, opts)
	if err != nil {
		return output, err
	}
	if status != 0 {
		return output, &CommandError{
			Machine:    m.UniqueName(),
			Command:    command,
			ExitStatus: status,
			Output:     output,
		}
	}
	return output, nil
}
