// Package world owns the bodies of a simulation and advances them one tick
// at a time.
//
// A tick runs in two phases. First every body moves and is clamped into the
// world bounds. Then, robot by robot, sensors refresh and the controller gets
// one slice. Controllers therefore always observe post-motion, post-clamp
// state for every robot. Bodies are processed in insertion order.
package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robsim/internal/core/body"
	"github.com/zeusync/robsim/internal/core/events"
	"github.com/zeusync/robsim/internal/core/observability/log"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/render"
)

const MinSize = 10

var (
	ErrNilBody         = errors.New("body is nil")
	ErrNilClock        = errors.New("clock is nil")
	ErrClockAlreadySet = errors.New("world already has a clock")
	ErrInvalidStep     = errors.New("step duration must be positive")
)

// Clock supplies simulated time. The simulator binds itself as the clock.
type Clock interface {
	Time() float64
}

type Option func(*World)

func WithLogger(l log.Log) Option {
	return func(w *World) { w.logger = l }
}

func WithEvents(b *events.Bus) Option {
	return func(w *World) { w.bus = b }
}

func WithRenderer(r render.Renderer) Option {
	return func(w *World) { w.renderer = r }
}

type World struct {
	width, height float64

	bodies    []body.Body
	robots    []*body.Robot
	landmarks []*body.Landmark
	waypoints []*body.Waypoint

	clock   Clock
	dt      float64
	steps   uint64
	elapsed float64

	renderer render.Renderer
	opened   bool
	logger   log.Log
	bus      *events.Bus
}

var _ body.Environment = (*World)(nil)

// New returns an empty world. Each bound is truncated and floored at MinSize.
func New(width, height float64, opts ...Option) *World {
	w := &World{
		width:    bound(width),
		height:   bound(height),
		renderer: render.Nop{},
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func bound(v float64) float64 {
	if math.IsNaN(v) {
		return MinSize
	}
	return math.Max(MinSize, math.Trunc(v))
}

func (w *World) Width() float64  { return w.width }
func (w *World) Height() float64 { return w.height }

// DT is the duration of the last (or current) tick.
func (w *World) DT() float64 { return w.dt }

// Steps counts completed ticks.
func (w *World) Steps() uint64 { return w.steps }

// Time is the clock's time, or the accumulated step time when no clock is
// bound.
func (w *World) Time() float64 {
	if w.clock != nil {
		return w.clock.Time()
	}
	return w.elapsed
}

func (w *World) BindClock(c Clock) error {
	if c == nil {
		return ErrNilClock
	}
	if w.clock != nil {
		return ErrClockAlreadySet
	}
	w.clock = c
	return nil
}

func (w *World) Renderer() render.Renderer { return w.renderer }

func (w *World) AddRobot(r *body.Robot) error {
	if r == nil {
		return ErrNilBody
	}
	if err := w.add(r); err != nil {
		return err
	}
	w.robots = append(w.robots, r)
	return nil
}

func (w *World) AddLandmark(l *body.Landmark) error {
	if l == nil {
		return ErrNilBody
	}
	if err := w.add(l); err != nil {
		return err
	}
	w.landmarks = append(w.landmarks, l)
	return nil
}

func (w *World) AddWaypoint(p *body.Waypoint) error {
	if p == nil {
		return ErrNilBody
	}
	if err := w.add(p); err != nil {
		return err
	}
	w.waypoints = append(w.waypoints, p)
	return nil
}

func (w *World) add(b body.Body) error {
	if err := b.BindWorld(w); err != nil {
		return err
	}
	w.bodies = append(w.bodies, b)
	return nil
}

// Bodies returns every body in insertion order. The slice is shared.
func (w *World) Bodies() []body.Body         { return w.bodies }
func (w *World) Robots() []*body.Robot       { return w.robots }
func (w *World) Landmarks() []*body.Landmark { return w.landmarks }
func (w *World) Waypoints() []*body.Waypoint { return w.waypoints }

func (w *World) LandmarkPositions() []physics.Vec2 {
	out := make([]physics.Vec2, len(w.landmarks))
	for i, l := range w.landmarks {
		out[i] = l.Position()
	}
	return out
}

func (w *World) WaypointPositions() []physics.Vec2 {
	out := make([]physics.Vec2, len(w.waypoints))
	for i, p := range w.waypoints {
		out[i] = p.Position()
	}
	return out
}

// Step advances the world by dt seconds.
//
// A failing program only finishes its own controller; Step reports it
// through the logger and the event bus and carries on. The returned error
// is reserved for misuse, such as a non-positive dt or a controller that
// cannot run; every other robot still gets its slice.
func (w *World) Step(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}
	w.dt = dt

	for _, b := range w.bodies {
		prev := b.Position()
		b.Step(dt)
		moved := b.Position()
		clamped := physics.V(
			confine(moved.X, prev.X, w.width),
			confine(moved.Y, prev.Y, w.height),
		)
		if !clamped.Equal(moved) {
			b.SetPosition(clamped)
			b.SetSpeed(prev.Distance(clamped) / dt)
		}
	}

	w.steps++
	w.elapsed += dt

	var errs []error
	for _, r := range w.robots {
		r.UpdateSensors()
		finished, err := r.RunController()
		if err != nil {
			errs = append(errs, fmt.Errorf("robot %s: %w", r.ID(), err))
			continue
		}
		if finished {
			w.controllerDone(r)
		}
	}
	return errors.Join(errs...)
}

// confine clamps a coordinate into [0, hi]. A NaN coordinate falls back to
// where the body was before the step, or to 0 if that was NaN as well.
func confine(v, prev, hi float64) float64 {
	if math.IsNaN(v) {
		v = prev
	}
	if math.IsNaN(v) {
		return 0
	}
	return physics.Clamp(v, 0, hi)
}

func (w *World) controllerDone(r *body.Robot) {
	c := r.Controller()
	e := events.Event{
		Source: c.ID(),
		Tick:   w.steps,
		Time:   w.Time(),
		Data:   map[string]any{"robot": r.ID()},
	}
	fields := []log.Field{
		log.String("controller", c.ID()),
		log.String("robot", r.ID()),
		log.Float64("time", e.Time),
	}

	if err := c.Err(); err != nil {
		e.Type = events.ControllerFailed
		e.Data = map[string]any{"robot": r.ID(), "error": err.Error()}
		w.logger.Warn("controller failed", append(fields, log.Error(err))...)
	} else {
		e.Type = events.ControllerFinished
		w.logger.Info("controller finished", fields...)
	}
	w.publish(e)
}

func (w *World) publish(e events.Event) {
	if w.bus == nil {
		return
	}
	if err := w.bus.Publish(e); err != nil {
		w.logger.Warn("event handler failed", log.String("event", e.Type), log.Error(err))
	}
}

// Draw issues one frame: every body in insertion order, then a flush. The
// renderer is opened on the first call.
func (w *World) Draw() error {
	if !w.opened {
		if err := w.renderer.Open(w.width, w.height); err != nil {
			return fmt.Errorf("open renderer: %w", err)
		}
		w.opened = true
	}
	for _, b := range w.bodies {
		b.Draw(w.renderer)
	}
	return w.renderer.Flush()
}

// Close releases the render surface and every controller task.
func (w *World) Close() error {
	var errs []error
	for _, r := range w.robots {
		if c := r.Controller(); c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := w.renderer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close renderer: %w", err))
	}
	return errors.Join(errs...)
}
