package board

import (
	"time"

	"github.com/benchlab/bench/machine/channel"
	"github.com/benchlab/bench/machine/lab"
)

// NopController provides no-op defaults for the optional controller hooks.
// Board variants embed it and override what their hardware needs.
type NopController struct{}

func (NopController) Connect(*lab.Host) (*channel.Channel, error) { return nil, nil }

func (NopController) ConnectWait() time.Duration { return 0 }

func (NopController) ConsoleCheck() error { return nil }

func (NopController) Cleanup() error { return nil }
