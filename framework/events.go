package framework

import (
	"sync"
)

// Verbosity controls how prominently an event should be rendered. Lower
// values are more important.
type Verbosity int

const (
	// VerbosityQuiet events are shown even in quiet mode (power transitions).
	VerbosityQuiet Verbosity = iota
	// VerbosityInfo events are shown by default (commands).
	VerbosityInfo
	// VerbosityDebug events are shown only when debugging (command output).
	VerbosityDebug
)

// Event is a structured log event emitted by the machine layer. Sinks receive
// events as they happen; some events (command executions) are updated once
// more when they finish.
type Event interface {
	// EventPath identifies the source of the event, for instance
	// ["board", "on", "taurus"] or ["labhost", "1"].
	EventPath() []string
	// EventText is a human-readable summary.
	EventText() string
	// EventVerbosity is the rendering priority of the event.
	EventVerbosity() Verbosity
}

// EventLogger is a sink for structured log events. The machine layer emits
// events; it never renders them itself.
type EventLogger interface {
	LogEvent(ev Event)
}

type nullEventLogger struct{}

func (n nullEventLogger) LogEvent(Event) {}

func NullEventLogger() EventLogger { return nullEventLogger{} }

// PowerEvent reports a board power transition.
type PowerEvent struct {
	Board string
	On    bool
}

func (e PowerEvent) EventPath() []string {
	state := "off"
	if e.On {
		state = "on"
	}
	return []string{"board", state, e.Board}
}

func (e PowerEvent) EventText() string {
	if e.On {
		return "POWERON (" + e.Board + ")"
	}
	return "POWEROFF (" + e.Board + ")"
}

func (e PowerEvent) EventVerbosity() Verbosity { return VerbosityQuiet }

// CommandEvent reports a shell command execution on some machine. It is
// emitted before the command runs and finalized with the exit status after.
type CommandEvent struct {
	path        []string
	command     string
	showCommand bool
	showOutput  bool

	lock       sync.Mutex
	output     string
	exitStatus int
	finished   bool
}

// NewCommandEvent creates a CommandEvent for a command about to run on the
// machine identified by path. The show flags are presentation hints only;
// they never affect execution or capture.
func NewCommandEvent(path []string, command string, showCommand, showOutput bool) *CommandEvent {
	return &CommandEvent{
		path:        path,
		command:     command,
		showCommand: showCommand,
		showOutput:  showOutput,
	}
}

func (e *CommandEvent) EventPath() []string { return e.path }

func (e *CommandEvent) EventText() string { return e.command }

func (e *CommandEvent) EventVerbosity() Verbosity {
	if e.showCommand {
		return VerbosityInfo
	}
	return VerbosityDebug
}

func (e *CommandEvent) Command() string { return e.command }

func (e *CommandEvent) ShowCommand() bool { return e.showCommand }

func (e *CommandEvent) ShowOutput() bool { return e.showOutput }

// Finished records the outcome of the command once it has run.
func (e *CommandEvent) Finished(exitStatus int, output string) {
	e.lock.Lock()
	e.exitStatus = exitStatus
	e.output = output
	e.finished = true
	e.lock.Unlock()
}

// Result returns the exit status and output of the command, and whether the
// command has finished at all.
func (e *CommandEvent) Result() (exitStatus int, output string, finished bool) {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.exitStatus, e.output, e.finished
}

// CapturingEventLogger remembers every event it receives, in order. It is
// used by tests and by sinks that render a run after the fact.
type CapturingEventLogger struct {
	lock   sync.Mutex
	events []Event
}

func (l *CapturingEventLogger) LogEvent(ev Event) {
	l.lock.Lock()
	l.events = append(l.events, ev)
	l.lock.Unlock()
}

func (l *CapturingEventLogger) Events() []Event {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]Event(nil), l.events...)
}
