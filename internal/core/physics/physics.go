package physics

import "math"

// Vec2 is a 2D point or vector. All arithmetic returns a new value.
type Vec2 struct{ X, Y float64 }

// V is shorthand for Vec2{x, y}.
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{v.X * o.X, v.Y * o.Y} }
func (v Vec2) Div(o Vec2) Vec2 { return Vec2{v.X / o.X, v.Y / o.Y} }
func (v Vec2) Neg() Vec2       { return Vec2{-v.X, -v.Y} }

func (v Vec2) AddScalar(s float64) Vec2 { return Vec2{v.X + s, v.Y + s} }
func (v Vec2) SubScalar(s float64) Vec2 { return Vec2{v.X - s, v.Y - s} }
func (v Vec2) Scale(s float64) Vec2     { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) DivScalar(s float64) Vec2 { return Vec2{v.X / s, v.Y / s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// Length is the Euclidean norm. Non-finite results are reported as 0.
func (v Vec2) Length() float64 {
	l := math.Sqrt(v.X*v.X + v.Y*v.Y)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return 0
	}
	return l
}

// Angle is the polar angle of v in radians. Non-finite results are reported as 0.
func (v Vec2) Angle() float64 {
	a := math.Atan2(v.Y, v.X)
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return 0
	}
	return a
}

// Distance computes the Euclidean distance between two points.
func (v Vec2) Distance(o Vec2) float64 { return o.Sub(v).Length() }

func (v Vec2) Equal(o Vec2) bool { return v.X == o.X && v.Y == o.Y }

// FromAngle returns the vector of the given magnitude pointing along angle.
func FromAngle(angle, magnitude float64) Vec2 {
	return Vec2{magnitude * math.Cos(angle), magnitude * math.Sin(angle)}
}

// WrapAngle is a floored modulo: the result always lies in [0, m) for m > 0,
// including for negative a.
func WrapAngle(a, m float64) float64 {
	r := math.Mod(a, m)
	if r < 0 {
		r += m
	}
	// -tiny + m may round up to m
	if r >= m {
		r = 0
	}
	return r
}

// WrapPi maps an angle into [-pi, pi).
func WrapPi(a float64) float64 { return WrapAngle(a+math.Pi, 2*math.Pi) - math.Pi }

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
