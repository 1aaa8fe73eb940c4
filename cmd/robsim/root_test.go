package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robsim/internal/config"
)

func TestListCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"list"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "sensors:\n")
	assert.Contains(t, out.String(), "  border_detect\n")
	assert.Contains(t, out.String(), "  waypoints\n")
}

func TestRunUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: error
simulation:
  width: 200
  height: 200
scene:
  robots:
    - x: 100
      y: 100
      sensors: [{type: border_detect}]
      program: {name: wander}
`), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "--rate", "200", "--listen", "127.0.0.1:0"})
	require.NoError(t, cmd.ExecuteContext(ctx))
}

func TestOverridesApplyOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nrate = 5\nwidth = 300\n"), 0o600))

	v := config.NewViper()
	v.Set(config.KeyRate, 50)
	cfg, err := loadConfig(path, v)
	require.NoError(t, err)
	assert.Equal(t, 50.0, cfg.Simulation.Rate)
	assert.Equal(t, 300.0, cfg.Simulation.Width)

	v.Set(config.KeyRate, -1)
	_, err = loadConfig(path, v)
	assert.ErrorContains(t, err, "simulation.rate")
}

func TestInvalidConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, cmd.Execute())
}
