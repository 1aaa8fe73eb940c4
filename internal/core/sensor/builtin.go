package sensor

import (
	"math"

	"github.com/zeusync/robsim/internal/core/physics"
)

// Names of the built-in sensors.
const (
	NameGPS           = "gps"
	NameSpeedometer   = "speedometer"
	NameCompass       = "compass"
	NameOdometer      = "odometer"
	NameAccelerometer = "accelerometer"
	NameGyroscope     = "gyroscope"
	NameBorderDetect  = "border_detect"
	NameLandmarks     = "landmarks"
)

// GPS reads the robot position as a physics.Vec2.
type GPS struct{ Base }

func NewGPS() *GPS { return &GPS{Base: NewBase(NameGPS)} }

func (s *GPS) Update() {
	if m := s.Mount(); m != nil {
		s.Set(m.Position())
	}
}

// Speedometer reads the scalar speed.
type Speedometer struct{ Base }

func NewSpeedometer() *Speedometer { return &Speedometer{Base: NewBase(NameSpeedometer)} }

func (s *Speedometer) Update() {
	if m := s.Mount(); m != nil {
		s.Set(m.Speed())
	}
}

// Compass reads a bearing in [-pi, pi) measured clockwise from north.
type Compass struct{ Base }

func NewCompass() *Compass { return &Compass{Base: NewBase(NameCompass)} }

func (s *Compass) Update() {
	if m := s.Mount(); m != nil {
		s.Set(physics.WrapAngle(3*math.Pi/2-m.Heading(), 2*math.Pi) - math.Pi)
	}
}

// Odometer integrates the distance actually travelled.
type Odometer struct {
	Base
	last  physics.Vec2
	init  bool
	total float64
}

func NewOdometer() *Odometer { return &Odometer{Base: NewBase(NameOdometer)} }

func (s *Odometer) Update() {
	m := s.Mount()
	if m == nil {
		return
	}
	p := m.Position()
	if !s.init {
		s.last, s.init = p, true
	}
	s.total += p.Sub(s.last).Length()
	s.last = p
	s.Set(s.total)
}

// Accelerometer differentiates the achieved speed over one tick.
type Accelerometer struct {
	Base
	lastPos physics.Vec2
	lastV   float64
	init    bool
}

func NewAccelerometer() *Accelerometer { return &Accelerometer{Base: NewBase(NameAccelerometer)} }

func (s *Accelerometer) Update() {
	m := s.Mount()
	if m == nil || m.DT() <= 0 {
		return
	}
	dt := m.DT()
	p := m.Position()
	if !s.init {
		s.lastPos = p
	}
	v := p.Sub(s.lastPos).Length() / dt
	s.lastPos = p
	if !s.init {
		s.lastV, s.init = v, true
	}
	a := (v - s.lastV) / dt
	s.lastV = v
	s.Set(a)
}

// Gyroscope reads the angular rate from consecutive headings.
type Gyroscope struct {
	Base
	last float64
	init bool
}

func NewGyroscope() *Gyroscope { return &Gyroscope{Base: NewBase(NameGyroscope)} }

func (s *Gyroscope) Update() {
	m := s.Mount()
	if m == nil || m.DT() <= 0 {
		return
	}
	h := m.Heading()
	if !s.init {
		s.last, s.init = h, true
	}
	g := physics.WrapPi(h-s.last) / m.DT()
	s.last = h
	s.Set(g)
}

// BorderReading is the distance to the nearest world edge, the bearing of
// that edge relative to the robot heading, and the closest edge point.
type BorderReading struct {
	Distance float64
	Bearing  float64
	Point    physics.Vec2
}

// BorderDetect reports the closest world boundary.
type BorderDetect struct{ Base }

func NewBorderDetect() *BorderDetect { return &BorderDetect{Base: NewBase(NameBorderDetect)} }

func (s *BorderDetect) Update() {
	m := s.Mount()
	if m == nil {
		return
	}
	w, h := m.Bounds()
	s.Set(NearestBorder(m.Position(), m.Heading(), w, h))
}

// NearestBorder computes the BorderReading for a pose inside a
// width x height rectangle.
func NearestBorder(p physics.Vec2, heading, width, height float64) BorderReading {
	var (
		npx, npy physics.Vec2
		ax, ay   float64
	)
	if p.X < width/2 {
		npx, ax = physics.V(0, p.Y), math.Pi-heading
	} else {
		npx, ax = physics.V(width, p.Y), -heading
	}
	if p.Y < height/2 {
		npy, ay = physics.V(p.X, 0), -math.Pi/2-heading
	} else {
		npy, ay = physics.V(p.X, height), math.Pi/2-heading
	}

	np, a := npy, ay
	if p.Distance(npx) < p.Distance(npy) {
		np, a = npx, ax
	}
	return BorderReading{
		Distance: p.Distance(np),
		Bearing:  physics.WrapPi(a),
		Point:    np,
	}
}
