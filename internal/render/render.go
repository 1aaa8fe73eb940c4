package render

import (
	"sync"

	"github.com/zeusync/robsim/internal/core/physics"
)

// Renderer is the opaque 2D figure surface the world draws on. Shapes are
// tagged by the owning body ID; the simulation never reads anything back.
type Renderer interface {
	// Open sizes the surface to the world bounds. It is called once, lazily,
	// before the first frame.
	Open(width, height float64) error
	// Remove drops the previous shape tagged with id, if any.
	Remove(id string)
	DrawPoint(id string, at physics.Vec2, radius float64, style string)
	DrawVehicle(id string, at physics.Vec2, headingDeg, length float64, style string)
	DrawBox(id string, min, max physics.Vec2, style string)
	// Flush ends the frame for the current tick.
	Flush() error
	Close() error
}

// Op names a draw command.
type Op string

const (
	OpOpen    Op = "open"
	OpRemove  Op = "remove"
	OpPoint   Op = "point"
	OpVehicle Op = "vehicle"
	OpBox     Op = "box"
)

// Command is one serialized draw call. Unused fields stay zero.
type Command struct {
	Op      Op      `json:"op"`
	ID      string  `json:"id,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	X2      float64 `json:"x2,omitempty"`
	Y2      float64 `json:"y2,omitempty"`
	Radius  float64 `json:"r,omitempty"`
	Heading float64 `json:"heading,omitempty"`
	Length  float64 `json:"len,omitempty"`
	Style   string  `json:"style,omitempty"`
}

// Frame is every command issued during one tick.
type Frame struct {
	Seq      uint64    `json:"seq"`
	Commands []Command `json:"commands"`
}

// Nop discards everything.
type Nop struct{}

func (Nop) Open(float64, float64) error                                { return nil }
func (Nop) Remove(string)                                              {}
func (Nop) DrawPoint(string, physics.Vec2, float64, string)            {}
func (Nop) DrawVehicle(string, physics.Vec2, float64, float64, string) {}
func (Nop) DrawBox(string, physics.Vec2, physics.Vec2, string)         {}
func (Nop) Flush() error                                               { return nil }
func (Nop) Close() error                                               { return nil }

// Recorder keeps flushed frames in memory.
type Recorder struct {
	mu      sync.Mutex
	pending []Command
	frames  []Frame
	opened  int
	closed  bool
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Open(width, height float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
	r.pending = append(r.pending, Command{Op: OpOpen, X: width, Y: height})
	return nil
}

func (r *Recorder) Remove(id string) {
	r.add(Command{Op: OpRemove, ID: id})
}

func (r *Recorder) DrawPoint(id string, at physics.Vec2, radius float64, style string) {
	r.add(Command{Op: OpPoint, ID: id, X: at.X, Y: at.Y, Radius: radius, Style: style})
}

func (r *Recorder) DrawVehicle(id string, at physics.Vec2, headingDeg, length float64, style string) {
	r.add(Command{Op: OpVehicle, ID: id, X: at.X, Y: at.Y, Heading: headingDeg, Length: length, Style: style})
}

func (r *Recorder) DrawBox(id string, min, max physics.Vec2, style string) {
	r.add(Command{Op: OpBox, ID: id, X: min.X, Y: min.Y, X2: max.X, Y2: max.Y, Style: style})
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, Frame{Seq: uint64(len(r.frames) + 1), Commands: r.pending})
	r.pending = nil
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Frames returns a copy of the flushed frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Opened reports how many times Open was called.
func (r *Recorder) Opened() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.pending = append(r.pending, c)
	r.mu.Unlock()
}
