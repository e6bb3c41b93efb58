// Package channel implements the duplex byte-stream session used for command
// execution and console interaction.
//
// A Channel is built from a transport (an SSH session, a serial console
// command running on the lab host, or a local shell process) and adds three
// things on top of the raw streams: open/closed state, an ordered cleanup
// registry that runs exactly once at close, and a serialized line-oriented
// command execution protocol with exit-status retrieval.
package channel

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultRunTimeout bounds command execution when the caller does not supply
// a timeout. Builds can be slow, so this is generous.
const DefaultRunTimeout = 10 * time.Minute

// CleanupFunc is a hook invoked when the channel closes. It receives the
// channel itself.
type CleanupFunc func(ch *Channel) error

// Channel is a duplex byte-stream session.
//
// Command execution via Run is serialized: a single channel must never be
// driven by two concurrent executions, because interleaved reads would
// corrupt the status-marker matching. Distinct channels are independent.
type Channel struct {
	name   string
	marker string

	r              io.Reader
	w              io.WriteCloser
	closeTransport func() error

	incoming chan []byte
	closed   chan struct{}

	execMu  sync.Mutex // serializes Run
	pending []byte     // bytes read past the last status marker

	stateMu  sync.Mutex
	open     bool
	broken   bool // transport reached EOF or a read error
	cleanups []CleanupFunc
}

// New builds a Channel over a transport. Reads come from r, writes go to w,
// and closeTransport (optional) tears the transport down when the channel is
// closed. When r also implements io.Closer, Close closes it, so transports
// built on pipes must not require r to outlive the channel. The returned
// channel is open.
func New(name string, r io.Reader, w io.WriteCloser, closeTransport func() error) *Channel {
	c := &Channel{
		name:           name,
		marker:         "BENCH-" + uuid.NewString()[:13],
		r:              r,
		w:              w,
		closeTransport: closeTransport,
		incoming:       make(chan []byte, 16),
		closed:         make(chan struct{}),
		open:           true,
	}
	go c.readLoop(r)
	return c
}

func (c *Channel) readLoop(r io.Reader) {
	defer close(c.incoming)
	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case c.incoming <- buf[:n]:
			case <-c.closed:
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Debug("channel read ended", "channel", c.name, "err", err)
			}
			c.stateMu.Lock()
			c.broken = true
			c.stateMu.Unlock()
			return
		}
	}
}

// Name returns the identifier the channel was created with.
func (c *Channel) Name() string { return c.name }

// Open reports whether the channel can still be used. It returns false after
// Close and after the transport has died, and never panics.
func (c *Channel) Open() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.open && !c.broken
}

// RegisterCleanup appends a hook to run when the channel closes. Hooks run in
// registration order; registering the same hook twice runs it twice.
func (c *Channel) RegisterCleanup(fn CleanupFunc) {
	c.stateMu.Lock()
	c.cleanups = append(c.cleanups, fn)
	c.stateMu.Unlock()
}

// Write sends raw bytes to the transport, for callers that need to interact
// with a console below the command-execution level.
func (c *Channel) Write(p []byte) (int, error) {
	if !c.Open() {
		return 0, ErrClosed
	}
	return c.w.Write(p)
}

// Close transitions the channel to closed, tears down the transport, and then
// runs every registered cleanup hook exactly once, in registration order. A
// failing hook never prevents the remaining hooks from running; all failures
// are aggregated into a *CleanupError. Closing an already-closed channel is a
// no-op.
func (c *Channel) Close() error {
	c.stateMu.Lock()
	if !c.open {
		c.stateMu.Unlock()
		return nil
	}
	c.open = false
	cleanups := c.cleanups
	c.cleanups = nil
	c.stateMu.Unlock()

	close(c.closed)

	// Closing the read side first fails any writer still blocked on an
	// undrained pipe, so the transport teardown below cannot wedge on it.
	if rc, ok := c.r.(io.Closer); ok {
		rc.Close()
	}

	cerr := &CleanupError{Channel: c.name}
	if c.w != nil {
		if err := c.w.Close(); err != nil {
			log.Debug("channel writer close", "channel", c.name, "err", err)
		}
	}
	if c.closeTransport != nil {
		if err := c.closeTransport(); err != nil {
			cerr.Errors = append(cerr.Errors, fmt.Errorf("closing transport: %w", err))
		}
	}
	for _, fn := range cleanups {
		if err := runCleanup(fn, c); err != nil {
			cerr.Errors = append(cerr.Errors, err)
		}
	}
	if len(cerr.Errors) > 0 {
		return cerr
	}
	return nil
}

func runCleanup(fn CleanupFunc, c *Channel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	return fn(c)
}

// Run executes a command on the remote end of the channel and blocks until
// the remote shell reports its exit status, returning the status and the
// combined output produced before it. A timeout of zero means
// DefaultRunTimeout. Closing the channel from another goroutine unblocks an
// in-flight Run, which then fails with ErrClosed.
func (c *Channel) Run(command string, timeout time.Duration) (int, string, error) {
	c.execMu.Lock()
	defer c.execMu.Unlock()

	if !c.Open() {
		return 0, "", ErrClosed
	}
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	// The marker is split in the echo arguments so that a remote shell that
	// echoes its input can never produce the contiguous marker by accident.
	half := len(c.marker) / 2
	trailer := fmt.Sprintf("; echo \"%s\"\"%s $?\"\n", c.marker[:half], c.marker[half:])

	// The write can block for as long as the remote refuses to consume its
	// stdin, so it runs aside, bounded by the same deadline as the read loop
	// below. Close unblocks the writer by tearing the transport down.
	written := make(chan error, 1)
	go func() {
		_, err := c.w.Write([]byte(command + trailer))
		written <- err
	}()
	select {
	case err := <-written:
		if err != nil {
			return 0, "", fmt.Errorf("sending command on channel %s: %w", c.name, err)
		}
	case <-c.closed:
		return 0, "", fmt.Errorf("channel %s: %w", c.name, ErrClosed)
	case <-deadline.C:
		// Stdin is jammed mid-command; the protocol state is unknown.
		c.stateMu.Lock()
		c.broken = true
		c.stateMu.Unlock()
		return 0, "", &TimeoutError{Channel: c.name, Command: command, Timeout: timeout}
	}

	var buf bytes.Buffer
	buf.Write(c.pending)
	c.pending = nil
	for {
		if status, output, rest, ok := c.scanStatus(buf.Bytes()); ok {
			c.pending = rest
			return status, output, nil
		}
		select {
		case chunk, ok := <-c.incoming:
			if !ok {
				return 0, buf.String(), fmt.Errorf("channel %s: %w", c.name, ErrClosed)
			}
			buf.Write(chunk)
		case <-c.closed:
			return 0, buf.String(), fmt.Errorf("channel %s: %w", c.name, ErrClosed)
		case <-deadline.C:
			return 0, buf.String(), &TimeoutError{Channel: c.name, Command: command, Timeout: timeout}
		}
	}
}

// scanStatus looks for a line of the form "<marker> <status>" in data. When
// found it returns the parsed status, everything before that line, and any
// bytes after it.
func (c *Channel) scanStatus(data []byte) (status int, output string, rest []byte, ok bool) {
	idx := bytes.Index(data, []byte(c.marker))
	if idx < 0 {
		return 0, "", nil, false
	}
	lineEnd := bytes.IndexByte(data[idx:], '\n')
	if lineEnd < 0 {
		// Marker seen but the status digits may still be in flight.
		return 0, "", nil, false
	}
	line := string(data[idx : idx+lineEnd])
	fields := strings.Fields(strings.TrimPrefix(line, c.marker))
	if len(fields) == 0 {
		return 0, "", nil, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", nil, false
	}
	return n, string(data[:idx]), append([]byte(nil), data[idx+lineEnd+1:]...), true
}
