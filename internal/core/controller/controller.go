// Package controller runs robot control programs as cooperative tasks.
//
// A program is ordinary sequential Go code. It suspends itself only through
// WaitNextTick (directly, or through Wait) and is resumed exactly once per
// call to Run, with its stack and locals intact. Everything runs on the
// caller's logical thread of control: Run does not return until the program
// yields or finishes. A program that never yields stalls the whole
// simulation; there is no preemption.
package controller

import (
	"errors"
	"fmt"
	"iter"

	"github.com/zeusync/robsim/internal/core/actuator"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/render"
)

var (
	ErrNoRobot         = errors.New("controller has not been assigned a robot")
	ErrNilRobot        = errors.New("robot is nil")
	ErrRobotAlreadySet = errors.New("controller was already assigned a robot")
	ErrNoProgram       = errors.New("controller has no program")
	ErrReentrant       = errors.New("controller task is running")
	ErrNotRunning      = errors.New("controller task is not running")
	ErrUnknownSensor   = errors.New("no sensor with that name")
	ErrSensorType      = errors.New("unexpected sensor value type")
)

// State of the cooperative task.
type State uint8

const (
	Unstarted State = iota
	Suspended
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Robot is what a controller drives.
type Robot interface {
	ID() string
	Position() physics.Vec2
	Heading() float64
	Speed() float64
	Sensor(name string) (sensor.Sensor, bool)
	Accelerator() *actuator.Actuator
	Rotator() *actuator.Actuator
	// Time is the simulated time of the world the robot lives in.
	Time() float64
}

// Program is the author-supplied control routine. Returning, with or
// without an error, finishes the controller.
type Program func(c *Controller) error

// DrawFunc renders controller-specific overlays next to its robot.
type DrawFunc func(c *Controller, r render.Renderer)

// ProgramError records why a program terminated abnormally. Err is also
// set when the panic value is an error.
type ProgramError struct {
	ControllerID string
	Err          error
	Panic        any
}

func (e *ProgramError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("controller %s: program panicked: %v", e.ControllerID, e.Panic)
	}
	return fmt.Sprintf("controller %s: program failed: %v", e.ControllerID, e.Err)
}

func (e *ProgramError) Unwrap() error { return e.Err }

// stopSignal unwinds a suspended program when its task is discarded.
type stopSignal struct{}

type Option func(*Controller)

// WithDraw installs a draw hook called when the owning robot is drawn.
func WithDraw(fn DrawFunc) Option {
	return func(c *Controller) { c.draw = fn }
}

// Controller binds one program to one robot.
type Controller struct {
	id      string
	program Program
	draw    DrawFunc
	robot   Robot

	state State
	err   error
	next  func() (struct{}, bool)
	stop  func()
	yield func(struct{}) bool
}

func New(ids *ident.Issuer, program Program, opts ...Option) *Controller {
	c := &Controller{id: ids.NewID(), program: program}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) ID() string   { return c.id }
func (c *Controller) State() State { return c.state }

// Err returns the *ProgramError that finished the task, if any.
func (c *Controller) Err() error { return c.err }

// Alive reports whether the task has started and not finished.
func (c *Controller) Alive() bool { return c.state == Suspended || c.state == Running }

// BindRobot assigns the controlled robot. It can only be called once.
func (c *Controller) BindRobot(r Robot) error {
	if r == nil {
		return fmt.Errorf("controller %s: %w", c.id, ErrNilRobot)
	}
	if c.robot != nil {
		return fmt.Errorf("controller %s: %w (robot %s)", c.id, ErrRobotAlreadySet, c.robot.ID())
	}
	c.robot = r
	return nil
}

// HasProgram reports whether the controller was given a program.
func (c *Controller) HasProgram() bool { return c.program != nil }

// Robot returns the bound robot, or nil.
func (c *Controller) Robot() Robot { return c.robot }

// Run gives the task one slice: it starts the program on first use, or
// resumes it where it last yielded, and returns as soon as the program
// yields again or finishes. Running a finished controller does nothing.
func (c *Controller) Run() error {
	if c.robot == nil {
		return fmt.Errorf("controller %s: %w", c.id, ErrNoRobot)
	}
	if c.program == nil {
		return fmt.Errorf("controller %s: %w", c.id, ErrNoProgram)
	}
	switch c.state {
	case Finished:
		return nil
	case Running:
		return fmt.Errorf("controller %s: %w", c.id, ErrReentrant)
	case Unstarted:
		c.next, c.stop = iter.Pull(c.task)
	}

	c.state = Running
	if _, ok := c.next(); ok {
		c.state = Suspended
		return nil
	}
	c.release()
	c.state = Finished
	return nil
}

// Restart discards the task and everything the program accumulated. The
// next Run starts the program again from its entry point.
func (c *Controller) Restart() error {
	if c.state == Running {
		return fmt.Errorf("controller %s: %w", c.id, ErrReentrant)
	}
	c.release()
	c.state = Unstarted
	c.err = nil
	return nil
}

// Close discards the task and leaves the controller finished.
func (c *Controller) Close() error {
	if c.state == Running {
		return fmt.Errorf("controller %s: %w", c.id, ErrReentrant)
	}
	c.release()
	c.state = Finished
	return nil
}

// Draw runs the draw hook, if any.
func (c *Controller) Draw(r render.Renderer) {
	if c.draw != nil {
		c.draw(c, r)
	}
}

func (c *Controller) task(yield func(struct{}) bool) {
	c.yield = yield
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(stopSignal); ok {
				return
			}
			perr := &ProgramError{ControllerID: c.id, Panic: r}
			if err, ok := r.(error); ok {
				perr.Err = err
			}
			c.err = perr
		}
	}()
	if err := c.program(c); err != nil {
		c.err = &ProgramError{ControllerID: c.id, Err: err}
	}
}

func (c *Controller) release() {
	if c.stop != nil {
		c.stop()
	}
	c.next, c.stop, c.yield = nil, nil, nil
}
