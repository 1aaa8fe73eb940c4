package world

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zeusync/robsim/internal/core/body"
	"github.com/zeusync/robsim/internal/core/controller"
	"github.com/zeusync/robsim/internal/core/events"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/render"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newWorld(t *testing.T, w, h float64, opts ...Option) *World {
	t.Helper()
	wd := New(w, h, opts...)
	t.Cleanup(func() { _ = wd.Close() })
	return wd
}

func robotAt(ids *ident.Issuer, x, y, headingRad, speed float64) *body.Robot {
	r := body.NewRobot(ids)
	r.SetPosition(physics.V(x, y))
	r.SetHeading(headingRad)
	r.SetSpeed(speed)
	return r
}

func TestBoundsFloor(t *testing.T) {
	w := newWorld(t, 3, 120.9)
	assert.Equal(t, 10.0, w.Width())
	assert.Equal(t, 120.0, w.Height())

	w = newWorld(t, math.NaN(), -5)
	assert.Equal(t, 10.0, w.Width())
	assert.Equal(t, 10.0, w.Height())
}

func TestAddBindsWorld(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	r := body.NewRobot(ids)
	l := body.NewLandmark(ids, physics.V(1, 2))
	p := body.NewWaypoint(ids, physics.V(3, 4))

	require.NoError(t, w.AddRobot(r))
	require.NoError(t, w.AddLandmark(l))
	require.NoError(t, w.AddWaypoint(p))

	assert.Same(t, w, r.World())
	assert.Len(t, w.Bodies(), 3)
	assert.Equal(t, []physics.Vec2{{X: 1, Y: 2}}, w.LandmarkPositions())
	assert.Equal(t, []physics.Vec2{{X: 3, Y: 4}}, w.WaypointPositions())

	other := newWorld(t, 100, 100)
	assert.ErrorIs(t, other.AddRobot(r), body.ErrWorldAlreadySet)
	assert.Len(t, other.Bodies(), 0)
	assert.ErrorIs(t, w.AddRobot(nil), ErrNilBody)
	assert.ErrorIs(t, w.AddLandmark(nil), ErrNilBody)
	assert.ErrorIs(t, w.AddWaypoint(nil), ErrNilBody)
}

type fixedClock float64

func (c fixedClock) Time() float64 { return float64(c) }

func TestBindClock(t *testing.T) {
	w := newWorld(t, 100, 100)
	require.NoError(t, w.Step(0.5))
	assert.Equal(t, 0.5, w.Time())

	assert.ErrorIs(t, w.BindClock(nil), ErrNilClock)
	require.NoError(t, w.BindClock(fixedClock(42)))
	assert.Equal(t, 42.0, w.Time())
	assert.ErrorIs(t, w.BindClock(fixedClock(1)), ErrClockAlreadySet)
}

func TestStepRejectsBadDT(t *testing.T) {
	w := newWorld(t, 100, 100)
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, w.Step(dt), ErrInvalidStep, "dt=%v", dt)
	}
	assert.Zero(t, w.Steps())
}

func TestStraightLineMotion(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 1000, 1000)
	r := robotAt(ids, 100, 100, math.Pi/6, 4)
	require.NoError(t, w.AddRobot(r))

	require.NoError(t, w.Step(0.25))
	assert.InDelta(t, 100+0.25*4*math.Cos(math.Pi/6), r.Position().X, 1e-12)
	assert.InDelta(t, 100+0.25*4*math.Sin(math.Pi/6), r.Position().Y, 1e-12)
	assert.Equal(t, 4.0, r.Speed())
	assert.InDelta(t, math.Pi/6, r.Heading(), 1e-12)
}

func TestAccelerateThenCoast(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	r := robotAt(ids, 50, 50, 0, 0)
	require.NoError(t, w.AddRobot(r))

	c := controller.New(ids, func(c *controller.Controller) error {
		for range 10 {
			c.SetAcceleration(1)
			c.WaitNextTick()
		}
		c.SetAcceleration(0)
		for {
			c.WaitNextTick()
		}
	})
	require.NoError(t, r.SetController(c))

	// The command set during tick 1 drives ticks 2 through 11.
	for range 11 {
		require.NoError(t, w.Step(1))
	}
	assert.InDelta(t, 95, r.Position().X, 1e-9)
	assert.InDelta(t, 50, r.Position().Y, 1e-9)
	assert.InDelta(t, 10, r.Speed(), 1e-9)
	assert.Zero(t, r.Accelerator().Cmd())
	assert.True(t, c.Alive())

	// Coasting into the right wall.
	require.NoError(t, w.Step(1))
	assert.Equal(t, 100.0, r.Position().X)
	assert.InDelta(t, 5, r.Speed(), 1e-9)
}

func TestClampRecomputesSpeed(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	r := robotAt(ids, 99, 50, 0, 10)
	require.NoError(t, w.AddRobot(r))

	require.NoError(t, w.Step(1))
	assert.Equal(t, 100.0, r.Position().X)
	assert.InDelta(t, 50, r.Position().Y, 1e-12)
	assert.InDelta(t, 1, r.Speed(), 1e-12)

	require.NoError(t, w.Step(1))
	assert.Equal(t, 100.0, r.Position().X)
	assert.Zero(t, r.Speed())
}

func TestClampBothAxes(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 50, 50)
	r := robotAt(ids, 1, 1, 5*math.Pi/4, 10)
	require.NoError(t, w.AddRobot(r))

	require.NoError(t, w.Step(1))
	assert.Equal(t, physics.V(0, 0), r.Position())
	assert.InDelta(t, math.Sqrt2, r.Speed(), 1e-12)
}

func TestControllersSeePostMotionState(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	a := robotAt(ids, 10, 10, 0, 0)
	b := robotAt(ids, 20, 20, 0, 1)
	require.NoError(t, a.AddSensor(sensor.NewGPS()))
	require.NoError(t, w.AddRobot(a))
	require.NoError(t, w.AddRobot(b))

	var seenB []physics.Vec2
	var seenSelf []physics.Vec2
	ca := controller.New(ids, func(c *controller.Controller) error {
		for {
			seenB = append(seenB, b.Position())
			p, err := controller.SensorAs[physics.Vec2](c, sensor.NameGPS)
			if err != nil {
				return err
			}
			seenSelf = append(seenSelf, p)
			c.WaitNextTick()
		}
	})
	require.NoError(t, a.SetController(ca))

	require.NoError(t, w.Step(1))
	require.NoError(t, w.Step(1))
	assert.Equal(t, []physics.Vec2{{X: 21, Y: 20}, {X: 22, Y: 20}}, seenB)
	assert.Equal(t, []physics.Vec2{{X: 10, Y: 10}, {X: 10, Y: 10}}, seenSelf)
	assert.NoError(t, ca.Err())
}

func TestControllerOrderIsInsertionOrder(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	var order []string
	for range 3 {
		r := body.NewRobot(ids)
		require.NoError(t, w.AddRobot(r))
		id := r.ID()
		require.NoError(t, r.SetController(controller.New(ids, func(c *controller.Controller) error {
			for {
				order = append(order, id)
				c.WaitNextTick()
			}
		})))
	}
	require.NoError(t, w.Step(0.1))
	require.NoError(t, w.Step(0.1))

	rs := w.Robots()
	want := []string{rs[0].ID(), rs[1].ID(), rs[2].ID(), rs[0].ID(), rs[1].ID(), rs[2].ID()}
	assert.Equal(t, want, order)
}

func TestFailingProgramIsIsolated(t *testing.T) {
	ids := ident.NewIssuer()
	bus := events.New()
	var got []events.Event
	_, err := bus.Subscribe(events.Wildcard, func(e events.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	w := newWorld(t, 100, 100, WithEvents(bus))
	bad := body.NewRobot(ids)
	good := body.NewRobot(ids)
	require.NoError(t, w.AddRobot(bad))
	require.NoError(t, w.AddRobot(good))

	boom := errors.New("boom")
	require.NoError(t, bad.SetController(controller.New(ids, func(*controller.Controller) error {
		return boom
	})))
	ticks := 0
	require.NoError(t, good.SetController(controller.New(ids, func(c *controller.Controller) error {
		for {
			ticks++
			c.WaitNextTick()
		}
	})))

	for range 3 {
		require.NoError(t, w.Step(0.1))
	}
	assert.Equal(t, 3, ticks)
	assert.Equal(t, body.StyleIdle, bad.Style)
	assert.ErrorIs(t, bad.Controller().Err(), boom)

	require.Len(t, got, 1)
	assert.Equal(t, events.ControllerFailed, got[0].Type)
	assert.Equal(t, bad.Controller().ID(), got[0].Source)
	assert.Equal(t, uint64(1), got[0].Tick)
}

func TestFinishedProgramPublishesOnce(t *testing.T) {
	ids := ident.NewIssuer()
	bus := events.New()
	count := 0
	_, _ = bus.Subscribe(events.ControllerFinished, func(events.Event) error {
		count++
		return nil
	})
	w := newWorld(t, 100, 100, WithEvents(bus))
	r := body.NewRobot(ids)
	require.NoError(t, w.AddRobot(r))
	require.NoError(t, r.SetController(controller.New(ids, func(c *controller.Controller) error {
		c.WaitNextTick()
		return nil
	})))

	for range 5 {
		require.NoError(t, w.Step(1))
	}
	assert.Equal(t, 1, count)
	assert.False(t, r.Controller().Alive())
}

func TestUncontrolledRobotIsIdle(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	r := body.NewRobot(ids)
	require.NoError(t, w.AddRobot(r))
	require.NoError(t, w.Step(1))
	assert.Equal(t, body.StyleIdle, r.Style)
}

func TestDraw(t *testing.T) {
	ids := ident.NewIssuer()
	rec := render.NewRecorder()
	w := newWorld(t, 64, 48, WithRenderer(rec))
	l := body.NewLandmark(ids, physics.V(5, 6))
	require.NoError(t, w.AddLandmark(l))

	require.NoError(t, w.Draw())
	require.NoError(t, w.Draw())
	assert.Equal(t, 1, rec.Opened())

	frames := rec.Frames()
	require.Len(t, frames, 2)
	want := []render.Command{
		{Op: render.OpOpen, X: 64, Y: 48},
		{Op: render.OpRemove, ID: l.ID()},
		{Op: render.OpPoint, ID: l.ID(), X: 5, Y: 6, Radius: 10, Style: body.StyleLandmark},
	}
	if diff := cmp.Diff(want, frames[0].Commands); diff != "" {
		t.Errorf("first frame mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want[1:], frames[1].Commands); diff != "" {
		t.Errorf("second frame mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, w.Close())
	assert.True(t, rec.Closed())
}

func TestNaNCommandKeepsRobotInBounds(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	r := robotAt(ids, 40, 60, 0, 0)
	require.NoError(t, w.AddRobot(r))
	r.Accelerator().SetCmd(math.NaN())

	for range 3 {
		require.NoError(t, w.Step(1))
		p := r.Position()
		assert.Equal(t, physics.V(40, 60), p)
		assert.True(t, p.X >= 0 && p.X <= w.Width() && p.Y >= 0 && p.Y <= w.Height())
	}
}

func TestRejectedControllerDoesNotStarveOthers(t *testing.T) {
	ids := ident.NewIssuer()
	w := newWorld(t, 100, 100)
	a := robotAt(ids, 10, 10, 0, 0)
	b := robotAt(ids, 20, 20, 0, 0)
	require.NoError(t, w.AddRobot(a))
	require.NoError(t, w.AddRobot(b))

	assert.ErrorIs(t, a.SetController(controller.New(ids, nil)), controller.ErrNoProgram)
	ran := 0
	require.NoError(t, b.SetController(controller.New(ids, func(c *controller.Controller) error {
		for {
			ran++
			c.WaitNextTick()
		}
	})))

	require.NoError(t, w.Step(1))
	require.NoError(t, w.Step(1))
	assert.Equal(t, 2, ran)
}
