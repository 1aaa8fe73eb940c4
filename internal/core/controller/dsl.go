package controller

import (
	"fmt"

	"github.com/zeusync/robsim/internal/core/actuator"
	"github.com/zeusync/robsim/internal/core/sensor"
)

// timeEpsilon absorbs the rounding of tick*dt when comparing simulated times.
const timeEpsilon = 1e-9

// WaitNextTick suspends the program until the next Run.
// It must only be called from inside the program.
func (c *Controller) WaitNextTick() {
	if c.state != Running || c.yield == nil {
		panic(fmt.Errorf("controller %s: wait outside of its program: %w", c.id, ErrNotRunning))
	}
	if !c.yield(struct{}{}) {
		panic(stopSignal{})
	}
}

// Wait suspends the program for at least d simulated seconds. It always
// yields at least once, even for d <= 0.
func (c *Controller) Wait(d float64) {
	wake := c.Time() + d
	for {
		c.WaitNextTick()
		if c.Time() >= wake-timeEpsilon {
			return
		}
	}
}

// Time is the current simulated time.
func (c *Controller) Time() float64 { return c.mustRobot().Time() }

func (c *Controller) SensorValue(name string) (any, error) {
	s, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return s.Value(), nil
}

func (c *Controller) SensorChanged(name string) (bool, error) {
	s, err := c.lookup(name)
	if err != nil {
		return false, err
	}
	return s.Changed(), nil
}

// SensorRead returns the reading and whether it changed, consuming the
// changed flag.
func (c *Controller) SensorRead(name string) (any, bool, error) {
	s, err := c.lookup(name)
	if err != nil {
		return nil, false, err
	}
	v, changed := s.Read()
	return v, changed, nil
}

// SensorAs reads a sensor value with a concrete type.
func SensorAs[T any](c *Controller, name string) (T, error) {
	var zero T
	v, err := c.SensorValue(name)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("sensor %q holds %T: %w", name, v, ErrSensorType)
	}
	return tv, nil
}

func (c *Controller) Accelerator() *actuator.Actuator { return c.mustRobot().Accelerator() }
func (c *Controller) Rotator() *actuator.Actuator     { return c.mustRobot().Rotator() }

func (c *Controller) Acceleration() float64     { return c.Accelerator().Cmd() }
func (c *Controller) SetAcceleration(v float64) { c.Accelerator().SetCmd(v) }
func (c *Controller) Rotation() float64         { return c.Rotator().Cmd() }
func (c *Controller) SetRotation(v float64)     { c.Rotator().SetCmd(v) }

func (c *Controller) lookup(name string) (sensor.Sensor, error) {
	s, ok := c.mustRobot().Sensor(name)
	if !ok {
		return nil, fmt.Errorf("sensor %q: %w", name, ErrUnknownSensor)
	}
	return s, nil
}

func (c *Controller) mustRobot() Robot {
	if c.robot == nil {
		panic(fmt.Errorf("controller %s: %w", c.id, ErrNoRobot))
	}
	return c.robot
}
