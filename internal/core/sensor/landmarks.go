package sensor

import (
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/robsim/internal/core/physics"
)

// RangeReading bounds the distance to one landmark.
type RangeReading struct {
	Landmark physics.Vec2
	Min      float64
	Max      float64
}

// LandmarkRange measures the distance to every landmark of the world with a
// bounded error: the true range lies in [Min, Max], each side widened by a
// uniform draw in [0, accuracy].
type LandmarkRange struct {
	Base
	accuracy float64
	seed     uint64
	rng      *rand.Rand
}

func NewLandmarkRange(accuracy float64, seed uint64) *LandmarkRange {
	return &LandmarkRange{Base: NewBase(NameLandmarks), accuracy: accuracy, seed: seed}
}

func (s *LandmarkRange) Accuracy() float64 { return s.accuracy }

// Attach binds the sensor and derives its noise stream from the seed and the
// robot identity, so two robots sharing a seed still draw independent noise.
func (s *LandmarkRange) Attach(m Mount) error {
	if err := s.Base.Attach(m); err != nil {
		return err
	}
	s.rng = rand.New(rand.NewPCG(s.seed, xxhash.Sum64String(m.ID()+"/"+s.Name())))
	return nil
}

func (s *LandmarkRange) Update() {
	m := s.Mount()
	if m == nil {
		return
	}
	p := m.Position()
	marks := m.LandmarkPositions()
	readings := make([]RangeReading, 0, len(marks))
	for _, lm := range marks {
		d := lm.Sub(p).Length()
		readings = append(readings, RangeReading{
			Landmark: lm,
			Min:      d - s.noise(),
			Max:      d + s.noise(),
		})
	}
	s.Set(readings)
}

func (s *LandmarkRange) noise() float64 {
	if s.accuracy <= 0 {
		return 0
	}
	return s.rng.Float64() * s.accuracy
}
