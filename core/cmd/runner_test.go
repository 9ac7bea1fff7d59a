package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/refbot/core/config"
	coretelegram "github.com/m3rciful/refbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	closed bool
	hooks  []string
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.hooks = append(a.hooks, "start"); return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.hooks = append(a.hooks, "stop"); return nil },
	}, nil
}

func (a *fakeApp) Close() error { a.closed = true; return nil }

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("REFBOT_TEST_CONFIG", "from-env.yaml")

	p, err := ResolveConfigPath(Options{ConfigPath: "flag.yaml", ConfigEnvVar: "REFBOT_TEST_CONFIG"})
	require.NoError(t, err)
	assert.Equal(t, "flag.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "REFBOT_TEST_CONFIG", DefaultConfigPath: "default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", p)

	p, err = ResolveConfigPath(Options{ConfigEnvVar: "REFBOT_TEST_UNSET", DefaultConfigPath: "default.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "default.yaml", p)

	_, err = ResolveConfigPath(Options{ConfigEnvVar: "REFBOT_TEST_UNSET"})
	assert.Error(t, err)
}

func TestRunWrapsHooksAndClosesApp(t *testing.T) {
	app := &fakeApp{}
	err := Run(Options{
		ConfigPath:     "cfg.yaml",
		LoadConfig:     func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "stop"}, app.hooks)
	assert.True(t, app.closed)
}

func TestRunReportsBootstrapFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		ConfigPath: "cfg.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	assert.ErrorIs(t, err, boom)
}
