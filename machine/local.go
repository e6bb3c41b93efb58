package machine

import (
	"fmt"
	"sync"
	"time"

	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine/channel"
)

// Local is a machine backed by a local shell process. It exists mostly for
// the selftests and for build steps that should not leave the machine running
// the harness.
type Local struct {
	unique string
	ch     *channel.Channel

	mu     sync.Mutex
	logger framework.EventLogger
}

var localCounter struct {
	mu sync.Mutex
	n  int
}

// NewLocal starts a local shell machine. Instances are numbered so that their
// unique names ("local-1", "local-2") stay distinct within a run.
func NewLocal() (*Local, error) {
	localCounter.mu.Lock()
	localCounter.n++
	unique := fmt.Sprintf("local-%d", localCounter.n)
	localCounter.mu.Unlock()

	ch, err := channel.NewLocal(unique)
	if err != nil {
		return nil, err
	}
	return &Local{unique: unique, ch: ch}, nil
}

func (l *Local) CommonName() string { return "local" }

func (l *Local) UniqueName() string { return l.unique }

func (l *Local) SetLogger(logger framework.EventLogger) {
	l.mu.Lock()
	l.logger = logger
	l.mu.Unlock()
}

func (l *Local) Logger() framework.EventLogger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

func (l *Local) RunCommand(command string, timeout time.Duration) (int, string, error) {
	return l.ch.Run(command, timeout)
}

// Channel exposes the underlying channel, mainly for cleanup registration.
func (l *Local) Channel() *channel.Channel { return l.ch }

func (l *Local) Destroy() error {
	return l.ch.Close()
}
