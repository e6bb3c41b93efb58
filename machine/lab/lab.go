// Package lab implements the SSH lab host: the always-reachable remote
// environment from which boards are powered and their consoles reached.
package lab

import (
	"fmt"
	"io"
	"os/user"
	"sync"
	"time"

	"github.com/alessio/shellescape"
	"github.com/charmbracelet/log"
	"golang.org/x/crypto/ssh"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine/channel"
)

const defaultPort = 22

// DialFunc establishes the SSH transport. Tests inject a fake to observe the
// client configuration without a live server.
type DialFunc func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)

// ConnectParams are the control-plane connection settings, usually resolved
// from the "lab.*" configuration keys. Optional fields that were absent from
// the configuration stay undefined here and are then simply not applied: an
// undefined password means no password auth method is offered at all.
type ConnectParams struct {
	Hostname string
	Port     ldvalue.OptionalInt
	Username ldvalue.OptionalString
	Password ldvalue.OptionalString
	KeyFile  ldvalue.OptionalString
}

// Authenticator resolves the credential variant for these parameters: a
// password when one is present, otherwise a configured private key, otherwise
// the default key location.
func (p ConnectParams) Authenticator() Authenticator {
	if pw, ok := p.Password.Get(); ok {
		return PasswordAuth{Password: pw}
	}
	if kf, ok := p.KeyFile.Get(); ok {
		return PrivateKeyAuth{KeyFile: kf}
	}
	return DefaultAuthenticator()
}

// Host is a connected lab host. It is a machine (commands run over its
// primary channel) and a channel factory for boards.
//
// The primary channel stays valid for the host's entire lifetime; channels
// minted by NewChannel and CommandChannel are independently closable.
type Host struct {
	unique   string
	username string
	hostname string
	port     int

	client  *ssh.Client
	primary *channel.Channel

	mu     sync.Mutex
	logger framework.EventLogger
}

var hostCounter struct {
	mu sync.Mutex
	n  int
}

// Connect authenticates against the lab host and opens the primary channel.
// A nil dial uses the real SSH dialer.
func Connect(params ConnectParams, dial DialFunc) (*Host, error) {
	if dial == nil {
		dial = ssh.Dial
	}

	username := params.Username.StringValue()
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}
	port := params.Port.OrElse(defaultPort)

	auth := params.Authenticator()
	methods, err := auth.methods()
	if err != nil {
		return nil, fmt.Errorf("lab host auth: %w", err)
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", params.Hostname, port)
	log.Debug("connecting to lab host", "addr", addr, "user", username, "auth", auth.describe())
	client, err := dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to lab host %s: %w", addr, err)
	}

	hostCounter.mu.Lock()
	hostCounter.n++
	unique := fmt.Sprintf("labhost-%d", hostCounter.n)
	hostCounter.mu.Unlock()

	h := &Host{
		unique:   unique,
		username: username,
		hostname: params.Hostname,
		port:     port,
		client:   client,
	}
	primary, err := h.shellChannel(unique + "-primary")
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening primary channel: %w", err)
	}
	h.primary = primary
	log.Info("lab host connected", "host", h.String())
	return h, nil
}

// String identifies the host for diagnostics. It never contains credential
// material.
func (h *Host) String() string {
	return fmt.Sprintf("<SSHLabHost %s@%s:%d>", h.username, h.hostname, h.port)
}

func (h *Host) CommonName() string { return "labhost" }

func (h *Host) UniqueName() string { return h.unique }

func (h *Host) SetLogger(logger framework.EventLogger) {
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

func (h *Host) Logger() framework.EventLogger {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.logger
}

// RunCommand executes a command over the primary channel.
func (h *Host) RunCommand(command string, timeout time.Duration) (int, string, error) {
	return h.primary.Run(command, timeout)
}

// NewChannel opens an independent session channel on the already
// authenticated transport. No re-authentication happens per channel.
func (h *Host) NewChannel() (*channel.Channel, error) {
	return h.shellChannel(fmt.Sprintf("%s-ch", h.unique))
}

// shellChannel opens a session, starts a remote shell on it without a PTY
// (so the shell does not echo input back), and wraps it as a channel.
func (h *Host) shellChannel(name string) (*channel.Channel, error) {
	sess, err := h.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session on %s: %w", h.String(), err)
	}
	ch, err := wrapSession(name, sess, func(s *ssh.Session) error { return s.Shell() })
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// CommandChannel runs a command on the lab host (for example a terminal
// emulator attached to a board's serial port) and returns a channel speaking
// to that command's stdio. A PTY is requested because console programs
// usually insist on one.
func (h *Host) CommandChannel(name string, argv ...string) (*channel.Channel, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("command channel %s: empty command", name)
	}
	sess, err := h.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("opening session on %s: %w", h.String(), err)
	}
	if err := sess.RequestPty("xterm", 40, 120, ssh.TerminalModes{
		ssh.ECHO: 0,
	}); err != nil {
		sess.Close()
		return nil, fmt.Errorf("requesting pty on %s: %w", h.String(), err)
	}
	cmdline := shellescape.QuoteCommand(argv)
	log.Debug("starting command channel", "channel", name, "command", cmdline)
	return wrapSession(name, sess, func(s *ssh.Session) error { return s.Start(cmdline) })
}

func wrapSession(name string, sess *ssh.Session, start func(*ssh.Session) error) (*channel.Channel, error) {
	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("channel %s stdin: %w", name, err)
	}
	// Stdout and stderr are merged: the exec contract returns combined output.
	pr, pw := io.Pipe()
	sess.Stdout = pw
	sess.Stderr = pw

	if err := start(sess); err != nil {
		sess.Close()
		return nil, fmt.Errorf("starting channel %s: %w", name, err)
	}
	go func() {
		sess.Wait()
		pw.Close()
	}()
	closeTransport := func() error {
		if err := sess.Close(); err != nil && err != io.EOF {
			return err
		}
		return nil
	}
	return channel.New(name, pr, stdin, closeTransport), nil
}

// Destroy closes the primary channel (running its cleanup hooks) and then the
// transport, returning the host to the disconnected state.
func (h *Host) Destroy() error {
	err := h.primary.Close()
	if cerr := h.client.Close(); cerr != nil && err == nil {
		err = cerr
	}
	log.Debug("lab host destroyed", "host", h.String())
	return err
}
