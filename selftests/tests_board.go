package selftests

import (
	"errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/framework"
	"github.com/benchlab/bench/machine/board"
)

type countingController struct {
	board.NopController
	name        string
	powerOns    int
	powerOffs   int
	powerOnErr  error
	consoleErr  error
}

func (c *countingController) Name() string { return c.name }

func (c *countingController) ConsoleCheck() error { return c.consoleErr }

func (c *countingController) PowerOn() error {
	if c.powerOnErr != nil {
		return c.powerOnErr
	}
	c.powerOns++
	return nil
}

func (c *countingController) PowerOff() error {
	c.powerOffs++
	return nil
}

// DoBoardLifecycleTests verifies the reference-counted power state machine
// with a consoleless fake board.
func DoBoardLifecycleTests(t *T) {
	t.Run("nested sessions power exactly once", func(t *T) {
		ctrl := &countingController{name: "fake"}
		b, err := board.New(nil, ctrl, t.events)
		require.NoError(t, err)

		outer, err := b.Enter()
		require.NoError(t, err)
		inner, err := b.Enter()
		require.NoError(t, err)
		assert.Equal(t, 1, ctrl.powerOns)
		assert.True(t, b.On())

		require.NoError(t, inner.Close())
		assert.Equal(t, 0, ctrl.powerOffs, "inner release must not power off")

		require.NoError(t, outer.Close())
		assert.Equal(t, 1, ctrl.powerOffs)
		assert.False(t, b.On())
	})

	t.Run("power events are emitted", func(t *T) {
		var captured framework.CapturingEventLogger
		ctrl := &countingController{name: "fake"}
		b, err := board.New(nil, ctrl, &captured)
		require.NoError(t, err)

		session, err := b.Enter()
		require.NoError(t, err)
		require.NoError(t, session.Close())

		events := captured.Events()
		require.Len(t, events, 2)
		assert.Equal(t, []string{"board", "on", "fake"}, events[0].EventPath())
		assert.Equal(t, []string{"board", "off", "fake"}, events[1].EventPath())
	})

	t.Run("occupied console vetoes power on", func(t *T) {
		ctrl := &countingController{name: "fake", consoleErr: errors.New("someone is using the console")}
		b, err := board.New(nil, ctrl, t.events)
		require.NoError(t, err)

		_, err = b.Enter()
		require.Error(t, err)
		assert.Equal(t, 0, ctrl.powerOns)
		assert.False(t, b.On())
	})
}
