package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zeusync/robsim/internal/config"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/core/world"
	"github.com/zeusync/robsim/internal/programs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newBuilder() *Builder {
	sensors := sensor.NewRegistry()
	sensor.RegisterBuiltins(sensors)
	return &Builder{IDs: ident.NewIssuer(), Sensors: sensors, Programs: programs.Builtins()}
}

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.New(400, 300)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestBuild(t *testing.T) {
	w := newWorld(t)
	sc, err := newBuilder().Build(config.Scene{
		Seed:            3,
		RandomLandmarks: 4,
		Landmarks:       []config.Point{{X: 10, Y: 20}},
		Waypoints:       []config.Point{{X: 100, Y: 100}, {X: 200, Y: 50}},
		Robots: []config.Robot{
			{
				X: 50, Y: 60, HeadingDeg: 180, Speed: 2,
				Sensors: []config.Sensor{{Type: sensor.NameGPS}, {Type: sensor.NameLandmarks}},
				Program: &config.Program{Name: programs.NameWaypoints},
			},
			{X: 5, Y: 5},
		},
	}, w)
	require.NoError(t, err)
	assert.Equal(t, Scene{Landmarks: 5, Waypoints: 2, Robots: 2, Controlled: 1}, sc)

	assert.Len(t, w.Bodies(), 9)
	assert.Equal(t, physics.V(10, 20), w.Landmarks()[0].Position())
	for _, l := range w.Landmarks() {
		p := l.Position()
		assert.True(t, p.X >= 0 && p.X <= 400 && p.Y >= 0 && p.Y <= 300, "landmark %v out of bounds", p)
	}

	r := w.Robots()[0]
	assert.Equal(t, physics.V(50, 60), r.Position())
	assert.InDelta(t, 3.14159265, r.Heading(), 1e-6)
	assert.Equal(t, 2.0, r.Speed())
	_, ok := r.Sensor(sensor.NameLandmarks)
	assert.True(t, ok)
	require.NotNil(t, r.Controller())
	assert.Nil(t, w.Robots()[1].Controller())

	require.NoError(t, w.Step(0.1))
	assert.NoError(t, r.Controller().Err())
}

func TestRandomLandmarksAreReproducible(t *testing.T) {
	positions := func(seed uint64) []physics.Vec2 {
		w := newWorld(t)
		_, err := newBuilder().Build(config.Scene{Seed: seed, RandomLandmarks: 3}, w)
		require.NoError(t, err)
		return w.LandmarkPositions()
	}
	assert.Equal(t, positions(11), positions(11))
	assert.NotEqual(t, positions(11), positions(12))
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]config.Robot{
		"unknown sensor":   {Sensors: []config.Sensor{{Type: "lidar"}}},
		"duplicate sensor": {Sensors: []config.Sensor{{Type: sensor.NameGPS}, {Type: sensor.NameGPS}}},
		"unknown program":  {Program: &config.Program{Name: "teleport"}},
		"bad params":       {Program: &config.Program{Name: programs.NameCruise, Params: map[string]any{"duration": "x"}}},
	}
	for name, rc := range cases {
		t.Run(name, func(t *testing.T) {
			w := newWorld(t)
			_, err := newBuilder().Build(config.Scene{Robots: []config.Robot{rc}}, w)
			assert.ErrorContains(t, err, "robot 0")
			assert.Empty(t, w.Robots())
		})
	}
}

func TestLandmarkSeedParamIsNotMutated(t *testing.T) {
	params := map[string]any{"accuracy": 1}
	w := newWorld(t)
	_, err := newBuilder().Build(config.Scene{
		Seed:   5,
		Robots: []config.Robot{{Sensors: []config.Sensor{{Type: sensor.NameLandmarks, Params: params}}}},
	}, w)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"accuracy": 1}, params)
}
