package framework

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger is the printf-style sink testcases write their debug output to.
type Logger interface {
	Printf(message string, args ...interface{})
}

// CapturedMessage is one debug line together with the time it was logged.
type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// Dump writes the captured messages to dest, one line each, prefixed. The
// console test logger uses this to show a failed testcase's debug output.
func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n", prefix, m.Time.Format("15:04:05.000"), m.Message)
	}
}

// CapturingLogger buffers debug output in memory. The run engine gives every
// testcase one of these and hands the buffer to the test logger when the
// testcase finishes, so output is only ever shown with its testcase's verdict.
type CapturingLogger struct {
	mu     sync.Mutex
	output CapturedOutput
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.mu.Lock()
	l.output = append(l.output, CapturedMessage{
		Time:    time.Now(),
		Message: fmt.Sprintf(message, args...),
	})
	l.mu.Unlock()
}

// Output returns a copy of everything captured so far.
func (l *CapturingLogger) Output() CapturedOutput {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append(CapturedOutput(nil), l.output...)
}
