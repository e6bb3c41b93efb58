package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/benchlab/bench/framework"
)

type consoleTestLogger struct {
	debugOutputOnFailure bool
	debugOutputOnSuccess bool
}

func (c *consoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Printf("[%s]\n", id)
}

func (c *consoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Printf("  %s\n", line)
	}
}

func (c *consoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput framework.CapturedOutput) {
	if failed {
		color.New(color.FgRed).Printf("  FAILED: %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.debugOutputOnFailure) || (!failed && c.debugOutputOnSuccess)) {
		debugOutput.Dump(os.Stdout, "    DEBUG ")
	}
}

func (c *consoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		fmt.Printf("  SKIPPED: %s\n", id)
	} else {
		fmt.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}

// consoleEventLogger renders the structured machine events (commands, power
// transitions) to the console as they happen.
type consoleEventLogger struct {
	dest      io.Writer
	threshold framework.Verbosity
	bold      *color.Color
	dim       *color.Color
}

func newConsoleEventLogger(dest io.Writer, quiet, debug bool) *consoleEventLogger {
	threshold := framework.VerbosityInfo
	if quiet {
		threshold = framework.VerbosityQuiet
	}
	if debug {
		threshold = framework.VerbosityDebug
	}
	return &consoleEventLogger{
		dest:      dest,
		threshold: threshold,
		bold:      color.New(color.Bold),
		dim:       color.New(color.Faint),
	}
}

func (l *consoleEventLogger) LogEvent(ev framework.Event) {
	if ev.EventVerbosity() > l.threshold {
		return
	}
	switch e := ev.(type) {
	case framework.PowerEvent:
		fmt.Fprintf(l.dest, "%s\n", l.bold.Sprint(e.EventText()))
	case *framework.CommandEvent:
		path := strings.Join(e.EventPath(), "/")
		fmt.Fprintf(l.dest, "%s %s\n", l.dim.Sprintf("[%s] $", path), e.Command())
	default:
		fmt.Fprintf(l.dest, "[%s] %s\n", strings.Join(ev.EventPath(), "/"), ev.EventText())
	}
}
