package channel

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/charmbracelet/log"
)

// NewLocal starts a local sh process and returns a channel driving it. This
// backend is used by the local machine kind and by the selftests; it speaks
// the exact same execution protocol as the remote backends.
func NewLocal(name string) (*Channel, error) {
	cmd := exec.Command("sh")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("starting local shell: %w", err)
	}
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting local shell: %w", err)
	}
	log.Debug("local shell started", "channel", name, "pid", cmd.Process.Pid)

	closeTransport := func() error {
		stdin.Close()
		err := cmd.Wait()
		pw.Close()
		// The shell inherits the status of its last command; that is not a
		// transport failure. A closed-pipe error means the channel tore down
		// its read side while the shell was still producing output, which is
		// normal after a timed-out command.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	}
	return New(name, pr, stdin, closeTransport), nil
}
