package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/machine"
	"github.com/benchlab/bench/machine/channel"
	"github.com/benchlab/bench/machine/lab"
)

// RemotePower is a board variant whose power switch and serial console are
// both reached through the lab host: power transitions run configured shell
// commands there, and the console is a terminal emulator started on a fresh
// lab channel.
type RemotePower struct {
	BoardName  string
	OnCommand  string
	OffCommand string
	Console    []string // argv of the console command, e.g. picocom -b 115200 /dev/tty-taurus
	Wait       time.Duration

	lh *lab.Host
}

// FromConfig builds a RemotePower controller from the "board.*" keys:
// board.name, board.poweron, board.poweroff, board.console (list or string)
// and board.connect_wait.
func FromConfig(cfg *config.Config) (*RemotePower, error) {
	name, err := cfg.GetString("board.name")
	if err != nil {
		return nil, err
	}
	onCmd, err := cfg.GetString("board.poweron")
	if err != nil {
		return nil, err
	}
	offCmd, err := cfg.GetString("board.poweroff")
	if err != nil {
		return nil, err
	}
	ctrl := &RemotePower{
		BoardName:  name,
		OnCommand:  onCmd,
		OffCommand: offCmd,
		Wait:       cfg.TryGetDuration("board.connect_wait"),
	}
	if console, ok := cfg.TryGetString("board.console").Get(); ok {
		ctrl.Console = strings.Fields(console)
	}
	return ctrl, nil
}

func (r *RemotePower) Name() string { return r.BoardName }

func (r *RemotePower) ConnectWait() time.Duration { return r.Wait }

func (r *RemotePower) Connect(lh *lab.Host) (*channel.Channel, error) {
	r.lh = lh
	if len(r.Console) == 0 {
		return nil, nil
	}
	return lh.CommandChannel("console-"+r.BoardName, r.Console...)
}

func (r *RemotePower) ConsoleCheck() error { return nil }

func (r *RemotePower) PowerOn() error {
	_, err := machine.Exec0(r.lh, r.OnCommand, machine.DefaultExecOptions())
	return err
}

func (r *RemotePower) PowerOff() error {
	_, err := machine.Exec0(r.lh, r.OffCommand, machine.DefaultExecOptions())
	return err
}

// Cleanup removes the console lock file some terminal emulators leave behind
// when their channel is killed rather than exited.
func (r *RemotePower) Cleanup() error {
	if len(r.Console) == 0 || r.lh == nil {
		return nil
	}
	dev := r.Console[len(r.Console)-1]
	lock := "/var/lock/LCK.." + strings.TrimPrefix(dev, "/dev/")
	cmd := fmt.Sprintf("rm -f %s", shellescape.Quote(lock))
	_, err := machine.Exec0(r.lh, cmd, machine.ExecOptions{Timeout: 30 * time.Second})
	return err
}
