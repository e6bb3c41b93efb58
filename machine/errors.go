package machine

import "fmt"

// CommandError is the exec0 contract violation: a command exited with a
// nonzero status. The message carries the command text and the captured
// output so that a failing testcase is diagnosable from the error alone.
type CommandError struct {
	Machine    string
	Command    string
	ExitStatus int
	Output     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed on %s with status %d:\n%s",
		e.Command, e.Machine, e.ExitStatus, e.Output)
}
