package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/render"
)

var (
	ErrNilWorld        = errors.New("world is nil")
	ErrWorldAlreadySet = errors.New("body already belongs to a world")
)

// Environment is the view of the owning world a body needs.
type Environment interface {
	Width() float64
	Height() float64
	// DT is the duration of the tick being processed.
	DT() float64
	// Time is the simulated time.
	Time() float64
	LandmarkPositions() []physics.Vec2
}

// Body is anything with a pose that takes part in world stepping.
type Body interface {
	ID() string
	Position() physics.Vec2
	SetPosition(p physics.Vec2)
	Heading() float64
	SetHeading(a float64)
	Speed() float64
	SetSpeed(v float64)

	// Step advances the body by one time slice of dt seconds.
	Step(dt float64)
	// Draw issues the body's shapes for the current frame.
	Draw(r render.Renderer)

	// BindWorld registers the owning world. It can only be called once.
	BindWorld(w Environment) error
	World() Environment
}

// Base holds the pose and world binding shared by all bodies. Concrete
// bodies embed it and implement Step and Draw.
type Base struct {
	id      string
	pos     physics.Vec2
	heading float64
	speed   float64
	world   Environment
}

// NewBase returns a body at the origin, facing +y, at rest.
func NewBase(id string) Base {
	return Base{id: id, heading: math.Pi / 2}
}

func (b *Base) ID() string                 { return b.id }
func (b *Base) Position() physics.Vec2     { return b.pos }
func (b *Base) SetPosition(p physics.Vec2) { b.pos = p }
func (b *Base) Heading() float64           { return b.heading }
func (b *Base) Speed() float64             { return b.speed }
func (b *Base) SetSpeed(v float64)         { b.speed = v }
func (b *Base) World() Environment         { return b.world }

// SetHeading stores a in radians, normalized into [0, 2pi).
func (b *Base) SetHeading(a float64) { b.heading = physics.WrapAngle(a, 2*math.Pi) }

func (b *Base) SetHeadingDeg(a float64) { b.SetHeading(a * math.Pi / 180) }

func (b *Base) BindWorld(w Environment) error {
	if w == nil {
		return fmt.Errorf("body %s: %w", b.id, ErrNilWorld)
	}
	if b.world != nil {
		return fmt.Errorf("body %s: %w", b.id, ErrWorldAlreadySet)
	}
	b.world = w
	return nil
}
