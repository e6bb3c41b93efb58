package channel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrClosed is returned when an operation is attempted on a closed channel,
// or when a channel is closed while a command is in flight.
var ErrClosed = errors.New("channel is closed")

// TimeoutError is returned by Run when the remote end did not report an exit
// status within the timeout.
type TimeoutError struct {
	Channel string
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q on channel %s timed out after %s", e.Command, e.Channel, e.Timeout)
}

// CleanupError aggregates failures from cleanup hooks that ran at close.
// Every hook runs regardless of earlier failures; this error surfaces all of
// them afterwards.
type CleanupError struct {
	Channel string
	Errors  []error
}

func (e *CleanupError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d cleanup failure(s) on channel %s: %s",
		len(e.Errors), e.Channel, strings.Join(msgs, "; "))
}
