package programs

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robsim/internal/core/controller"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/render"
)

const (
	NameIdle      = "idle"
	NameCruise    = "cruise"
	NameWander    = "wander"
	NameWaypoints = "waypoints"
	NameSquare    = "square"

	// StyleEstimate is the style of the position estimate box.
	StyleEstimate = "K[M]"

	LocalizeGPS       = "gps"
	LocalizeLandmarks = "landmarks"
)

var ErrNoWaypoints = errors.New("no waypoints to follow")

// idle keeps the robot under control without ever commanding it.
func newIdle(map[string]any, Env) (Program, error) {
	return Program{Main: func(c *controller.Controller) error {
		for {
			c.WaitNextTick()
		}
	}}, nil
}

// cruise accelerates for a while, then releases the throttle and finishes.
func newCruise(params map[string]any, _ Env) (Program, error) {
	accel, err := floatParam(params, "acceleration", 1)
	if err != nil {
		return Program{}, err
	}
	duration, err := floatParam(params, "duration", 1)
	if err != nil {
		return Program{}, err
	}
	return Program{Main: func(c *controller.Controller) error {
		c.SetAcceleration(accel)
		c.Wait(duration)
		c.SetAcceleration(0)
		return nil
	}}, nil
}

// wander holds a cruising speed and turns away from any border closer than
// margin that lies ahead of the robot.
func newWander(params map[string]any, _ Env) (Program, error) {
	speed, err := positiveParam(params, "speed", 20)
	if err != nil {
		return Program{}, err
	}
	margin, err := positiveParam(params, "margin", 30)
	if err != nil {
		return Program{}, err
	}
	turn, err := positiveParam(params, "turn_rate", 1.5)
	if err != nil {
		return Program{}, err
	}
	gain, err := positiveParam(params, "gain", 2)
	if err != nil {
		return Program{}, err
	}

	return Program{Main: func(c *controller.Controller) error {
		for {
			border, err := controller.SensorAs[sensor.BorderReading](c, sensor.NameBorderDetect)
			if err != nil {
				return err
			}
			c.SetAcceleration(gain * (speed - c.Robot().Speed()))
			if border.Distance < margin && math.Abs(border.Bearing) < math.Pi/2 {
				// Steer away from the side the wall is on.
				c.SetRotation(-math.Copysign(turn, border.Bearing))
			} else {
				c.SetRotation(0)
			}
			c.WaitNextTick()
		}
	}}, nil
}

// square drives timed straight legs separated by quarter turns on the spot.
func newSquare(params map[string]any, _ Env) (Program, error) {
	speed, err := positiveParam(params, "speed", 10)
	if err != nil {
		return Program{}, err
	}
	side, err := positiveParam(params, "side", 3)
	if err != nil {
		return Program{}, err
	}
	ramp, err := positiveParam(params, "ramp", 1)
	if err != nil {
		return Program{}, err
	}
	turn, err := positiveParam(params, "turn", 1)
	if err != nil {
		return Program{}, err
	}

	return Program{Main: func(c *controller.Controller) error {
		for {
			c.SetAcceleration(speed / ramp)
			c.Wait(ramp)
			c.SetAcceleration(0)
			c.Wait(side)
			c.SetAcceleration(-speed / ramp)
			c.Wait(ramp)
			c.SetAcceleration(0)

			c.SetRotation(math.Pi / 2 / turn)
			c.Wait(turn)
			c.SetRotation(0)
		}
	}}, nil
}

// follower steers around a closed circuit of waypoints: rotate while the
// target is off by more than tolerance, accelerate once aligned, advance to
// the next waypoint within reach.
type follower struct {
	points    []physics.Vec2
	next      int
	localize  string
	reach     float64
	tolerance float64
	turn      float64
	accel     float64
	maxSpeed  float64
	minSpeed  float64

	estimate struct {
		min, max physics.Vec2
		ok       bool
	}
}

func newWaypoints(params map[string]any, env Env) (Program, error) {
	points, err := pointsParam(params, "points")
	if err != nil {
		return Program{}, err
	}
	if len(points) == 0 && env != nil {
		points = env.WaypointPositions()
	}
	if len(points) == 0 {
		return Program{}, fmt.Errorf("%s: %w", NameWaypoints, ErrNoWaypoints)
	}

	f := &follower{points: points}
	if f.localize, err = stringParam(params, "localize", LocalizeGPS); err != nil {
		return Program{}, err
	}
	if f.localize != LocalizeGPS && f.localize != LocalizeLandmarks {
		return Program{}, fmt.Errorf("%s: unknown localization %q", NameWaypoints, f.localize)
	}
	for _, p := range []struct {
		key string
		def float64
		dst *float64
	}{
		{"reach", 5, &f.reach},
		{"tolerance", 0.3, &f.tolerance},
		{"turn_rate", 0.5, &f.turn},
		{"acceleration", 1, &f.accel},
		{"max_speed", 30, &f.maxSpeed},
		{"min_speed", 2, &f.minSpeed},
	} {
		if *p.dst, err = positiveParam(params, p.key, p.def); err != nil {
			return Program{}, err
		}
	}
	return Program{Main: f.run, Draw: f.draw}, nil
}

func (f *follower) run(c *controller.Controller) error {
	for {
		pos, ok, err := f.observe(c)
		if err != nil {
			return err
		}
		if ok {
			f.control(c, pos)
		}
		c.WaitNextTick()
	}
}

func (f *follower) observe(c *controller.Controller) (physics.Vec2, bool, error) {
	if f.localize == LocalizeGPS {
		p, err := controller.SensorAs[physics.Vec2](c, sensor.NameGPS)
		return p, err == nil, err
	}

	readings, err := controller.SensorAs[[]sensor.RangeReading](c, sensor.NameLandmarks)
	if err != nil {
		return physics.Vec2{}, false, err
	}
	if lo, hi, ok := EstimateFromRanges(readings); ok {
		f.estimate.min, f.estimate.max, f.estimate.ok = lo, hi, true
	}
	if !f.estimate.ok {
		return physics.Vec2{}, false, nil
	}
	return f.estimate.min.Add(f.estimate.max).Scale(0.5), true, nil
}

func (f *follower) control(c *controller.Controller, pos physics.Vec2) {
	if pos.Distance(f.points[f.next]) <= f.reach {
		f.next = (f.next + 1) % len(f.points)
	}

	bearing := f.points[f.next].Sub(pos).Angle()
	diff := physics.WrapPi(bearing - c.Robot().Heading())
	speed := c.Robot().Speed()

	if math.Abs(diff) > f.tolerance {
		c.SetRotation(math.Copysign(f.turn, diff))
		if speed > f.minSpeed {
			c.SetAcceleration(-f.accel)
		} else {
			c.SetAcceleration(0)
		}
		return
	}
	c.SetRotation(0)
	if speed < f.maxSpeed {
		c.SetAcceleration(f.accel)
	} else {
		c.SetAcceleration(0)
	}
}

func (f *follower) draw(c *controller.Controller, r render.Renderer) {
	if !f.estimate.ok {
		return
	}
	r.Remove(c.ID())
	r.DrawBox(c.ID(), f.estimate.min, f.estimate.max, StyleEstimate)
}

// EstimateFromRanges bounds the robot position by intersecting, for every
// reading, the square that encloses the outer range circle around its
// landmark. It reports false when there are no readings or the squares do
// not overlap.
func EstimateFromRanges(readings []sensor.RangeReading) (physics.Vec2, physics.Vec2, bool) {
	if len(readings) == 0 {
		return physics.Vec2{}, physics.Vec2{}, false
	}
	lo := physics.V(math.Inf(-1), math.Inf(-1))
	hi := physics.V(math.Inf(1), math.Inf(1))
	for _, rd := range readings {
		r := math.Max(rd.Max, 0)
		lo.X = math.Max(lo.X, rd.Landmark.X-r)
		lo.Y = math.Max(lo.Y, rd.Landmark.Y-r)
		hi.X = math.Min(hi.X, rd.Landmark.X+r)
		hi.Y = math.Min(hi.Y, rd.Landmark.Y+r)
	}
	if lo.X > hi.X || lo.Y > hi.Y {
		return physics.Vec2{}, physics.Vec2{}, false
	}
	return lo, hi, true
}
