package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, cfg *Config, args ...string) error {
	t.Helper()
	var ran bool
	cmd := NewCommand(cfg, func(context.Context, *Config) error {
		ran = true
		return nil
	})
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		assert.True(t, ran)
	}
	return err
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, execute(t, cfg, "--jwt-secret", "s"))

	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Minute, cfg.RoomIdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "http://0.0.0.0:8080", cfg.BaseURL())
}

func TestFlagsOverrideDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, execute(t, cfg,
		"--jwt-secret", "s",
		"--bind", "127.0.0.1",
		"--port", "9000",
		"--public-url", "https://play.example.com/",
		"--room-idle-timeout", "1m",
		"--verbose",
	))

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr())
	assert.Equal(t, "https://play.example.com", cfg.BaseURL())
	assert.Equal(t, time.Minute, cfg.RoomIdleTimeout)
	assert.True(t, cfg.Verbose)
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("WORDCLASH_JWT_SECRET", "from-env")
	t.Setenv("WORDCLASH_PORT", "9999")

	cfg := &Config{}
	require.NoError(t, execute(t, cfg))

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 9999, cfg.Port)
}

func TestValidation(t *testing.T) {
	cfg := &Config{}
	err := execute(t, cfg, "--port", "70000", "--jwt-secret", "s")
	assert.Error(t, err)

	cfg = &Config{}
	err = execute(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session secret")
}
