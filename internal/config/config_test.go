package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
log:
  level: debug
simulation:
  width: 800
  rate: 60
  report_load: true
render:
  listen: ":8089"
scene:
  seed: 7
  random_landmarks: 3
  waypoints:
    - {x: 100, y: 100}
    - {x: 75, y: 400}
  robots:
    - x: 50
      y: 50
      heading: 90
      sensors:
        - type: gps
        - type: landmarks
          params: {accuracy: 5}
      program:
        name: waypoints
        params:
          max_speed: 20
`

const sceneTOML = `
[simulation]
height = 500
rate = 10

[[scene.landmarks]]
x = 1
y = 2

[[scene.robots]]
x = 10
y = 20
speed = 3

[scene.robots.program]
name = "cruise"

[scene.robots.program.params]
duration = 2
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1280.0, cfg.Simulation.Width)
	assert.Equal(t, 720.0, cfg.Simulation.Height)
	assert.Equal(t, 30.0, cfg.Simulation.Rate)
	assert.Equal(t, "/ws", cfg.Render.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(write(t, "scene.yaml", sceneYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, 800.0, cfg.Simulation.Width)
	assert.Equal(t, 720.0, cfg.Simulation.Height)
	assert.Equal(t, 60.0, cfg.Simulation.Rate)
	assert.True(t, cfg.Simulation.ReportLoad)
	assert.Equal(t, ":8089", cfg.Render.Listen)
	assert.Equal(t, uint64(7), cfg.Scene.Seed)
	assert.Equal(t, 3, cfg.Scene.RandomLandmarks)
	assert.Equal(t, []Point{{X: 100, Y: 100}, {X: 75, Y: 400}}, cfg.Scene.Waypoints)

	require.Len(t, cfg.Scene.Robots, 1)
	r := cfg.Scene.Robots[0]
	assert.Equal(t, 90.0, r.HeadingDeg)
	require.Len(t, r.Sensors, 2)
	assert.Equal(t, "landmarks", r.Sensors[1].Type)
	assert.Equal(t, 5, r.Sensors[1].Params["accuracy"])
	require.NotNil(t, r.Program)
	assert.Equal(t, "waypoints", r.Program.Name)
	assert.Equal(t, 20, r.Program.Params["max_speed"])
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(write(t, "scene.toml", sceneTOML))
	require.NoError(t, err)

	assert.Equal(t, 1280.0, cfg.Simulation.Width)
	assert.Equal(t, 500.0, cfg.Simulation.Height)
	assert.Equal(t, 10.0, cfg.Simulation.Rate)
	assert.Equal(t, []Point{{X: 1, Y: 2}}, cfg.Scene.Landmarks)
	require.Len(t, cfg.Scene.Robots, 1)
	assert.Equal(t, 3.0, cfg.Scene.Robots[0].Speed)
	require.NotNil(t, cfg.Scene.Robots[0].Program)
	assert.Equal(t, "cruise", cfg.Scene.Robots[0].Program.Name)
	assert.Equal(t, int64(2), cfg.Scene.Robots[0].Program.Params["duration"])
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(write(t, "empty.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.yaml", "simulation: [1, 2"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.yaml", "simulation:\n  rate: 0\n"))
	assert.ErrorContains(t, err, "simulation.rate")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Simulation.Rate = -1
	cfg.Simulation.Width = 0
	cfg.Render.MaxFPS = -2
	cfg.Render.Listen = ":0"
	cfg.Render.Path = "ws"
	cfg.Scene.RandomLandmarks = -1
	cfg.Scene.Robots = []Robot{{Sensors: []Sensor{{}}, Program: &Program{}}}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"simulation.rate", "bounds", "max_fps", "render.path",
		"random_landmarks", "sensors[0]", "program: missing name",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "toml", Format("a/b.TOML"))
	assert.Equal(t, "yaml", Format("a/b.yaml"))
	assert.Equal(t, "yaml", Format("noext"))
	assert.Error(t, Decode(nil, "ini", &Config{}))
}

func TestOverride(t *testing.T) {
	v := viper.New()
	v.Set(KeyRate, 120)
	v.Set(KeyReportLoad, true)
	v.Set(KeyListen, "127.0.0.1:9000")
	v.Set(KeyLogLevel, "warn")
	v.Set(KeySeed, 99)

	cfg := Default()
	cfg.Override(v)
	assert.Equal(t, 120.0, cfg.Simulation.Rate)
	assert.True(t, cfg.Simulation.ReportLoad)
	assert.Equal(t, "127.0.0.1:9000", cfg.Render.Listen)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, uint64(99), cfg.Scene.Seed)
	assert.Equal(t, 1280.0, cfg.Simulation.Width)
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("ROBSIM_SIMULATION_WIDTH", "640")

	v := NewViper()
	cfg := Default()
	cfg.Override(v)
	assert.Equal(t, 640.0, cfg.Simulation.Width)
}

func TestExampleScenesLoad(t *testing.T) {
	for _, name := range []string{"path.yaml", "swarm.toml"} {
		cfg, err := Load(filepath.Join("..", "..", "examples", name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, cfg.Scene.Robots, name)
	}
}
