// Package board implements the reference-counted power lifecycle of a device
// under test.
//
// A Board is layered on top of a channel provided by the lab host (typically
// a serial console). Nested acquisitions share one power-on session: only the
// outermost Enter powers the board on and only the matching last release
// powers it off.
package board

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine/channel"
	"github.com/benchlab/bench/machine/lab"
)

// Controller is the capability contract a board variant fulfills. The
// lifecycle state machine lives in Board; the controller supplies the
// hardware-specific pieces.
type Controller interface {
	// Name of the board ("taurus").
	Name() string

	// Connect opens the board's console channel through the lab host. A nil
	// channel is valid for consoleless boards.
	Connect(lh *lab.Host) (*channel.Channel, error)

	// ConnectWait is how long to wait after connecting before the channel is
	// verified open and the board may be powered. Zero means no wait.
	ConnectWait() time.Duration

	// ConsoleCheck runs before the first power-on of a session. It returns an
	// error if another party occupies the console; the acquisition then fails
	// instead of silently interfering.
	ConsoleCheck() error

	// PowerOn and PowerOff switch the board. The state machine guarantees
	// each is invoked exactly once per session regardless of nesting depth.
	PowerOn() error
	PowerOff() error

	// Cleanup runs exactly once when the console channel closes, however it
	// closed. Useful for removing lock files a console program leaves behind.
	Cleanup() error
}

// ErrConsoleOccupied is reported when the console check of a board fails
// because another party holds the console. Acquisition fails instead of
// interfering with them.
var ErrConsoleOccupied = errors.New("board console is occupied")

// ConnectionError is returned when the board's channel did not come up within
// the connect wait. Construction fails entirely; there is no partial Board.
type ConnectionError struct {
	Board string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not connect to board %s", e.Board)
}

// Board drives a Controller through the power lifecycle and exposes the
// board's console as a machine.
//
// Boards are meant for a single logical thread of control. The reference
// count is mutex-guarded so sharing cannot corrupt it, but power transitions
// themselves are not designed for concurrent acquisition.
type Board struct {
	ctrl   Controller
	lh     *lab.Host
	ch     *channel.Channel
	unique string

	mu     sync.Mutex
	rc     int
	on     bool
	logger framework.EventLogger
}

// New connects to the board and returns it in the powered-off state. If the
// controller produced a channel, New waits the controller's connect wait and
// then requires the channel to be open; otherwise construction fails with a
// ConnectionError. The controller's Cleanup is registered on the channel so
// it runs exactly once when the channel closes.
func New(lh *lab.Host, ctrl Controller, logger framework.EventLogger) (*Board, error) {
	b := &Board{
		ctrl:   ctrl,
		lh:     lh,
		unique: "board-" + ctrl.Name(),
		logger: logger,
	}

	ch, err := ctrl.Connect(lh)
	if err != nil {
		return nil, fmt.Errorf("connecting to board %s: %w", ctrl.Name(), err)
	}
	if ch != nil {
		if wait := ctrl.ConnectWait(); wait > 0 {
			log.Debug("waiting for board console", "board", ctrl.Name(), "wait", wait)
			time.Sleep(wait)
		}
		if !ch.Open() {
			ch.Close()
			return nil, &ConnectionError{Board: ctrl.Name()}
		}
		ch.RegisterCleanup(func(*channel.Channel) error {
			return ctrl.Cleanup()
		})
	}
	b.ch = ch
	return b, nil
}

// Enter acquires the board and returns a release guard. The first acquisition
// of a session runs the console check, emits the power-on event and calls the
// controller's PowerOn; nested acquisitions share that session and only bump
// the reference count.
//
// If ConsoleCheck or PowerOn fails, the reference count stays incremented and
// the board stays marked off. The caller must treat the board as failed; no
// automatic power-off compensation happens, so the board is left inspectable.
func (b *Board) Enter() (*Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rc++
	if b.rc > 1 {
		return &Session{board: b}, nil
	}

	if err := b.ctrl.ConsoleCheck(); err != nil {
		return nil, fmt.Errorf("board %s: %w: %v", b.ctrl.Name(), ErrConsoleOccupied, err)
	}
	if b.logger != nil {
		b.logger.LogEvent(framework.PowerEvent{Board: b.ctrl.Name(), On: true})
	}
	if err := b.ctrl.PowerOn(); err != nil {
		return nil, fmt.Errorf("powering on board %s: %w", b.ctrl.Name(), err)
	}
	b.on = true
	return &Session{board: b}, nil
}

// Session is the scoped acquisition guard returned by Enter. Close releases
// the acquisition; it is idempotent, so deferring it is always safe.
type Session struct {
	board *Board
	once  sync.Once
	err   error
}

// Close decrements the board's reference count. When the count reaches zero
// the power-off event is emitted and the controller's PowerOff runs.
func (s *Session) Close() error {
	s.once.Do(func() {
		b := s.board
		b.mu.Lock()
		defer b.mu.Unlock()

		b.rc--
		if b.rc > 0 {
			return
		}
		if b.logger != nil {
			b.logger.LogEvent(framework.PowerEvent{Board: b.ctrl.Name(), On: false})
		}
		s.err = b.ctrl.PowerOff()
		b.on = false
	})
	return s.err
}

// On reports whether the board is currently powered.
func (b *Board) On() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

func (b *Board) CommonName() string { return "board" }

func (b *Board) UniqueName() string { return b.unique }

func (b *Board) SetLogger(logger framework.EventLogger) {
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

func (b *Board) Logger() framework.EventLogger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logger
}

// Channel returns the board's console channel, or nil for consoleless boards.
func (b *Board) Channel() *channel.Channel { return b.ch }

// RunCommand executes a command on the board's console.
func (b *Board) RunCommand(command string, timeout time.Duration) (int, string, error) {
	if b.ch == nil {
		return 0, "", fmt.Errorf("board %s has no console channel", b.ctrl.Name())
	}
	return b.ch.Run(command, timeout)
}

// Destroy closes the console channel, which runs the controller's Cleanup.
func (b *Board) Destroy() error {
	if b.ch == nil {
		return nil
	}
	return b.ch.Close()
}
