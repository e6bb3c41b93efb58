package selftests

import (
	"errors"
	"io"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/machine/channel"
)

func pipeChannel(name string) *channel.Channel {
	r, w := io.Pipe()
	return channel.New(name, r, w, nil)
}

// DoChannelCleanupTests verifies the cleanup registry contract on a channel
// over an in-memory pipe.
func DoChannelCleanupTests(t *T) {
	t.Run("cleanups run once in order", func(t *T) {
		ch := pipeChannel("selftest")
		var order []string
		ch.RegisterCleanup(func(*channel.Channel) error {
			order = append(order, "first")
			return nil
		})
		ch.RegisterCleanup(func(*channel.Channel) error {
			order = append(order, "second")
			return nil
		})

		require.NoError(t, ch.Close())
		assert.Equal(t, []string{"first", "second"}, order)

		require.NoError(t, ch.Close(), "second close must be a no-op")
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("failing cleanup does not stop the rest", func(t *T) {
		ch := pipeChannel("selftest")
		ran := false
		ch.RegisterCleanup(func(*channel.Channel) error {
			return errors.New("cleanup exploded")
		})
		ch.RegisterCleanup(func(*channel.Channel) error {
			ran = true
			return nil
		})

		err := ch.Close()
		require.Error(t, err)
		var cleanupErr *channel.CleanupError
		require.ErrorAs(t, err, &cleanupErr)
		assert.Len(t, cleanupErr.Errors, 1)
		assert.True(t, ran)
	})

	t.Run("open is false after close", func(t *T) {
		ch := pipeChannel("selftest")
		assert.True(t, ch.Open())
		require.NoError(t, ch.Close())
		assert.False(t, ch.Open())
	})
}
