// Package simulator paces a world at a fixed tick rate.
//
// Simulated time is tick*dt and never depends on the wall clock. The pacing
// loop sleeps whatever is left of each tick after stepping and drawing; when
// a tick overruns it does not sleep and simply falls behind real time.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/robsim/internal/core/events"
	"github.com/zeusync/robsim/internal/core/observability/log"
	"github.com/zeusync/robsim/internal/core/world"
)

const (
	DefaultRate = 30
	// LoadWindow is the minimum simulated span of one load report, seconds.
	LoadWindow = 5.0

	timeEpsilon = 1e-9
)

var (
	ErrNilWorld    = errors.New("world is nil")
	ErrInvalidRate = errors.New("tick rate must be positive")
)

// LoadReport is the share of wall time spent stepping and drawing over one
// reporting window, as a percentage.
type LoadReport struct {
	Tick uint64        `json:"tick"`
	Time float64       `json:"time"`
	Load float64       `json:"load"`
	Busy time.Duration `json:"busy"`
	Wall time.Duration `json:"wall"`
}

type Option func(*Simulator)

func WithRate(ticksPerSecond float64) Option {
	return func(s *Simulator) { s.rate = ticksPerSecond }
}

func WithReportLoad(enabled bool) Option {
	return func(s *Simulator) { s.reportLoad = enabled }
}

func WithLogger(l log.Log) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithEvents(b *events.Bus) Option {
	return func(s *Simulator) { s.bus = b }
}

// WithClock replaces the wall clock and the sleep used for pacing.
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

type Simulator struct {
	world      *world.World
	rate       float64
	dt         float64
	period     time.Duration
	tick       uint64
	reportLoad bool
	runID      string

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	last    LoadReport
	hasLoad bool

	logger log.Log
	bus    *events.Bus
}

// New creates a simulator for w and binds it as the world's clock.
func New(w *world.World, opts ...Option) (*Simulator, error) {
	if w == nil {
		return nil, ErrNilWorld
	}
	s := &Simulator{
		world:  w,
		rate:   DefaultRate,
		runID:  uuid.NewString(),
		now:    time.Now,
		sleep:  sleepContext,
		logger: log.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !(s.rate > 0) || math.IsInf(s.rate, 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRate, s.rate)
	}
	s.dt = math.Abs(1 / s.rate)
	s.period = time.Duration(s.dt * float64(time.Second))

	if err := w.BindClock(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulator) World() *world.World { return s.world }
func (s *Simulator) DT() float64         { return s.dt }
func (s *Simulator) Rate() float64       { return s.rate }
func (s *Simulator) Tick() uint64        { return s.tick }
func (s *Simulator) RunID() string       { return s.runID }

// Time is the simulated time, tick*dt.
func (s *Simulator) Time() float64 { return float64(s.tick) * s.dt }

// LastLoad returns the most recent load report, if one was produced.
func (s *Simulator) LastLoad() (LoadReport, bool) { return s.last, s.hasLoad }

// Step runs one tick: the world advances by dt, then draws.
func (s *Simulator) Step() error {
	s.tick++
	if err := s.world.Step(s.dt); err != nil {
		return fmt.Errorf("tick %d: %w", s.tick, err)
	}
	if err := s.world.Draw(); err != nil {
		return fmt.Errorf("tick %d: draw: %w", s.tick, err)
	}
	return nil
}

// Run paces the world until ctx is done or a step fails. Cancellation is
// the normal way to stop and returns nil after the render surface and the
// controllers are released.
func (s *Simulator) Run(ctx context.Context) (err error) {
	lg := s.logger.With(log.String("run", s.runID))
	lg.Info("simulation started",
		log.Float64("rate", s.rate),
		log.Float64("width", s.world.Width()),
		log.Float64("height", s.world.Height()),
		log.Int("robots", len(s.world.Robots())),
	)
	s.publish(events.Event{Type: events.SimulationStarted, Source: s.runID, Tick: s.tick, Time: s.Time()})

	defer func() {
		if cerr := s.world.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		lg.Info("simulation stopped", log.Float64("time", s.Time()), log.Uint64("ticks", s.tick))
		s.publish(events.Event{Type: events.SimulationStopped, Source: s.runID, Tick: s.tick, Time: s.Time()})
	}()

	windowStart := s.Time()
	windowWall := s.now()
	var busy time.Duration

	for {
		if ctx.Err() != nil {
			return nil
		}

		start := s.now()
		if err := s.Step(); err != nil {
			lg.Error("step failed", log.Error(err))
			return err
		}
		elapsed := s.now().Sub(start)
		busy += elapsed

		if s.reportLoad && s.Time()-windowStart >= LoadWindow-timeEpsilon {
			wall := s.now().Sub(windowWall)
			s.report(lg, busy, wall)
			windowStart = s.Time()
			windowWall = s.now()
			busy = 0
		}

		if wait := s.period - elapsed; wait > 0 {
			if err := s.sleep(ctx, wait); err != nil {
				return nil
			}
		}
	}
}

func (s *Simulator) report(lg log.Log, busy, wall time.Duration) {
	load := 100.0
	if wall > 0 {
		load = 100 * float64(busy) / float64(wall)
	}
	s.last = LoadReport{Tick: s.tick, Time: s.Time(), Load: load, Busy: busy, Wall: wall}
	s.hasLoad = true

	lg.Info("load", log.Float64("time", s.last.Time), log.Float64("load_pct", load))
	s.publish(events.Event{Type: events.SimulationLoad, Source: s.runID, Tick: s.tick, Time: s.last.Time, Data: s.last})
}

func (s *Simulator) publish(e events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(e); err != nil {
		s.logger.Warn("event handler failed", log.String("event", e.Type), log.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
