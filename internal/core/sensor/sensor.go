package sensor

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"

	"github.com/zeusync/robsim/internal/core/physics"
)

var (
	ErrAlreadyAttached = errors.New("sensor already attached to a robot")
	ErrNilMount        = errors.New("sensor mount is nil")
)

// sameReading compares unexported fields too, so custom reading types need
// no Equal method.
var sameReading = cmp.Exporter(func(reflect.Type) bool { return true })

// Mount is the robot-side view a sensor computes its reading from.
type Mount interface {
	ID() string
	Position() physics.Vec2
	Heading() float64
	Speed() float64
	Bounds() (width, height float64)
	DT() float64
	LandmarkPositions() []physics.Vec2
}

// Sensor holds the last reading computed from its mount and tracks whether
// that reading changed since it was last consumed.
type Sensor interface {
	// Name is the stable key the sensor is looked up by.
	Name() string
	// Attach binds the sensor to its robot. It can only be called once.
	Attach(m Mount) error
	// Update recomputes the reading.
	Update()
	// Value returns the reading and clears the changed flag.
	Value() any
	// Changed reports whether the reading differs from the one before it
	// and has not been consumed yet.
	Changed() bool
	// Read returns the reading together with the changed flag, then clears it.
	Read() (any, bool)
}

// Base implements the value/dirty-flag bookkeeping shared by all sensors.
// Concrete sensors embed it and provide Update.
type Base struct {
	name    string
	mount   Mount
	value   any
	changed bool
}

func NewBase(name string) Base { return Base{name: name} }

func (b *Base) Name() string { return b.name }
func (b *Base) Mount() Mount { return b.mount }

func (b *Base) Attach(m Mount) error {
	if m == nil {
		return fmt.Errorf("%s: %w", b.name, ErrNilMount)
	}
	if b.mount != nil {
		return fmt.Errorf("%s on robot %s: %w", b.name, b.mount.ID(), ErrAlreadyAttached)
	}
	b.mount = m
	return nil
}

// Set stores a freshly computed reading. The changed flag is raised only
// when v differs from the stored reading. A reading type with an
// Equal(T) bool method is compared through it.
func (b *Base) Set(v any) {
	if equalReadings(b.value, v) {
		return
	}
	b.value = v
	b.changed = true
}

// equalReadings treats readings cmp cannot compare as different.
func equalReadings(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return cmp.Equal(a, b, sameReading)
}

func (b *Base) Value() any {
	b.changed = false
	return b.value
}

func (b *Base) Changed() bool { return b.changed }

func (b *Base) Read() (any, bool) {
	ch := b.changed
	return b.Value(), ch
}
