package body

import (
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/render"
)

const (
	StyleLandmark = "k[g]"
	StyleWaypoint = "k[b]"

	defaultMarkerRadius = 10
)

// Marker is a fixed round shape. It never moves.
type Marker struct {
	Base
	Radius float64
	Style  string
	Num    int
}

func (m *Marker) Step(float64) {}

func (m *Marker) Draw(r render.Renderer) {
	r.Remove(m.ID())
	r.DrawPoint(m.ID(), m.Position(), m.Radius, m.Style)
}

// Landmark is a marker robots can range against.
type Landmark struct{ Marker }

func NewLandmark(ids *ident.Issuer, at physics.Vec2) *Landmark {
	return &Landmark{Marker: newMarker(ids, at, StyleLandmark, ident.KindLandmark)}
}

// Waypoint is a marker used as a navigation target.
type Waypoint struct{ Marker }

func NewWaypoint(ids *ident.Issuer, at physics.Vec2) *Waypoint {
	return &Waypoint{Marker: newMarker(ids, at, StyleWaypoint, ident.KindWaypoint)}
}

func newMarker(ids *ident.Issuer, at physics.Vec2, style, kind string) Marker {
	m := Marker{
		Base:   NewBase(ids.NewID()),
		Radius: defaultMarkerRadius,
		Style:  style,
		Num:    ids.Sequence(kind),
	}
	m.SetPosition(at)
	return m
}
