package machine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchlab/bench/config"
	"github.com/benchlab/bench/framework"
)

func TestConnectParamsFromConfigRequiresHostname(t *testing.T) {
	cfg := config.New()
	_, err := ConnectParamsFromConfig(cfg)
	require.Error(t, err)
	var missing *config.MissingKeyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "lab.hostname", missing.Key)
}

func TestConnectParamsFiltersAbsentOptionals(t *testing.T) {
	cfg := config.New()
	cfg.Set("lab.hostname", "host1")
	cfg.Set("lab.keyfile", "/k")

	params, err := ConnectParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "host1", params.Hostname)
	assert.Equal(t, "/k", params.KeyFile.StringValue())
	assert.False(t, params.Password.IsDefined(), "absent password must stay undefined")
	assert.False(t, params.Port.IsDefined())
	assert.False(t, params.Username.IsDefined())
}

func TestConnectParamsPasswordOnly(t *testing.T) {
	cfg := config.New()
	cfg.Set("lab.hostname", "host1")
	cfg.Set("lab.user", "hws")
	cfg.Set("lab.port", 2222)
	cfg.Set("lab.password", "hunter2")

	params, err := ConnectParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", params.Password.StringValue())
	assert.False(t, params.KeyFile.IsDefined(), "absent keyfile must stay undefined")
	assert.Equal(t, 2222, params.Port.IntValue())
	assert.Equal(t, "hws", params.Username.StringValue())
}

func TestManagerCachesMachinesByKind(t *testing.T) {
	mgr := NewLocalManager(framework.NullEventLogger())
	defer mgr.Close()

	created := 0
	factory := func(*Manager) (Machine, error) {
		created++
		return &scriptedMachine{}, nil
	}

	first, err := mgr.Get("build", factory)
	require.NoError(t, err)
	second, err := mgr.Get("build", factory)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, created, "factory must run once per kind")

	_, err = mgr.Get("other", factory)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestManagerAttachesLoggerOnCreate(t *testing.T) {
	var captured framework.CapturingEventLogger
	mgr := NewLocalManager(&captured)
	defer mgr.Close()

	m, err := mgr.Get("scripted", func(*Manager) (Machine, error) {
		return &scriptedMachine{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, framework.EventLogger(&captured), m.Logger())
}

func TestManagerGetPropagatesFactoryError(t *testing.T) {
	mgr := NewLocalManager(framework.NullEventLogger())
	defer mgr.Close()

	wantErr := errors.New("no such machine")
	_, err := mgr.Get("broken", func(*Manager) (Machine, error) {
		return nil, wantErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)

	// The failure must not be cached.
	m, err := mgr.Get("broken", func(*Manager) (Machine, error) {
		return &scriptedMachine{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, m)
}
