package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robsim/internal/core/actuator"
	"github.com/zeusync/robsim/internal/core/controller"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/render"
)

var (
	ErrNilSensor            = errors.New("sensor is nil")
	ErrDuplicateSensor      = errors.New("a sensor with that name is already set")
	ErrNilController        = errors.New("controller is nil")
	ErrControllerAlreadySet = errors.New("robot already has a controller")
)

const (
	StyleRobot      = "k[y]"
	StyleFirstRobot = "k[r]"
	// StyleIdle marks robots that are not (or no longer) controlled.
	StyleIdle = "k[darkGray]"

	defaultRobotLength = 20
)

var (
	_ Body             = (*Robot)(nil)
	_ sensor.Mount     = (*Robot)(nil)
	_ controller.Robot = (*Robot)(nil)
)

// Robot is a unicycle driven by an accelerator and a rotator.
type Robot struct {
	Base
	Length float64
	Style  string
	Num    int

	acc        *actuator.Actuator
	rot        *actuator.Actuator
	sensors    map[string]sensor.Sensor
	order      []string
	controller *controller.Controller
	liveStyle  string
}

func NewRobot(ids *ident.Issuer) *Robot {
	r := &Robot{
		Base:    NewBase(ids.NewID()),
		Length:  defaultRobotLength,
		Style:   StyleRobot,
		Num:     ids.Sequence(ident.KindRobot),
		acc:     actuator.NewAccelerator(),
		rot:     actuator.NewRotator(),
		sensors: make(map[string]sensor.Sensor),
	}
	if r.Num == 0 {
		r.Style = StyleFirstRobot
	}
	return r
}

func (r *Robot) Accelerator() *actuator.Actuator { return r.acc }
func (r *Robot) Rotator() *actuator.Actuator     { return r.rot }

// Step integrates the unicycle model over dt.
func (r *Robot) Step(dt float64) {
	h := r.Heading()
	v := r.Speed()
	r.SetPosition(r.Position().Add(physics.V(dt*v*math.Cos(h), dt*v*math.Sin(h))))
	r.SetHeading(h + dt*r.rot.Cmd())
	r.SetSpeed(v + dt*r.acc.Cmd())
}

func (r *Robot) Draw(rn render.Renderer) {
	rn.Remove(r.ID())
	if r.controller != nil {
		r.controller.Draw(rn)
	}
	rn.DrawVehicle(r.ID(), r.Position(), r.Heading()*180/math.Pi, r.Length, r.Style)
}

// AddSensor attaches s to the robot under s.Name().
func (r *Robot) AddSensor(s sensor.Sensor) error {
	if s == nil {
		return fmt.Errorf("robot %s: %w", r.ID(), ErrNilSensor)
	}
	if _, ok := r.sensors[s.Name()]; ok {
		return fmt.Errorf("robot %s: sensor %q: %w", r.ID(), s.Name(), ErrDuplicateSensor)
	}
	if err := s.Attach(r); err != nil {
		return err
	}
	r.sensors[s.Name()] = s
	r.order = append(r.order, s.Name())
	return nil
}

func (r *Robot) Sensor(name string) (sensor.Sensor, bool) {
	s, ok := r.sensors[name]
	return s, ok
}

// Sensors returns the attached sensors in the order they were added.
func (r *Robot) Sensors() []sensor.Sensor {
	out := make([]sensor.Sensor, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.sensors[n])
	}
	return out
}

// UpdateSensors refreshes every sensor in insertion order.
func (r *Robot) UpdateSensors() {
	for _, n := range r.order {
		r.sensors[n].Update()
	}
}

// SetController binds c to the robot and the robot to c. Both sides can
// only be bound once.
func (r *Robot) SetController(c *controller.Controller) error {
	if c == nil {
		return fmt.Errorf("robot %s: %w", r.ID(), ErrNilController)
	}
	if !c.HasProgram() {
		return fmt.Errorf("robot %s: controller %s: %w", r.ID(), c.ID(), controller.ErrNoProgram)
	}
	if r.controller != nil {
		return fmt.Errorf("robot %s: %w (controller %s)", r.ID(), ErrControllerAlreadySet, r.controller.ID())
	}
	if err := c.BindRobot(r); err != nil {
		return err
	}
	r.controller = c
	return nil
}

func (r *Robot) Controller() *controller.Controller { return r.controller }

// RunController gives the controller its slice for this tick. It reports
// whether the controller finished during that slice. A robot without a
// controller, or whose controller finished, is styled idle.
func (r *Robot) RunController() (bool, error) {
	if r.controller == nil {
		r.markIdle()
		return false, nil
	}
	wasLive := r.controller.State() != controller.Finished
	if err := r.controller.Run(); err != nil {
		return false, err
	}
	if r.controller.Alive() {
		r.markLive()
		return false, nil
	}
	r.markIdle()
	return wasLive, nil
}

func (r *Robot) markIdle() {
	if r.Style != StyleIdle {
		r.liveStyle = r.Style
	}
	r.Style = StyleIdle
}

// markLive restores the style the robot had before it went idle.
func (r *Robot) markLive() {
	if r.Style == StyleIdle && r.liveStyle != "" {
		r.Style = r.liveStyle
	}
}

// Time is the simulated time of the owning world, 0 before registration.
func (r *Robot) Time() float64 {
	if w := r.World(); w != nil {
		return w.Time()
	}
	return 0
}

func (r *Robot) Bounds() (float64, float64) {
	if w := r.World(); w != nil {
		return w.Width(), w.Height()
	}
	return 0, 0
}

func (r *Robot) DT() float64 {
	if w := r.World(); w != nil {
		return w.DT()
	}
	return 0
}

func (r *Robot) LandmarkPositions() []physics.Vec2 {
	if w := r.World(); w != nil {
		return w.LandmarkPositions()
	}
	return nil
}
