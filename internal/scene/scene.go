// Package scene populates a world from a config.Scene.
package scene

import (
	"fmt"
	"maps"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/robsim/internal/config"
	"github.com/zeusync/robsim/internal/core/body"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/core/world"
	"github.com/zeusync/robsim/internal/programs"
)

// Scene summarizes what Build added to the world.
type Scene struct {
	Landmarks  int
	Waypoints  int
	Robots     int
	Controlled int
}

// Builder turns scene descriptions into bodies.
type Builder struct {
	IDs      *ident.Issuer
	Sensors  *sensor.Registry
	Programs *programs.Registry
}

// Build adds landmarks, then waypoints, then robots, so programs built for
// the robots already see every marker.
func (b *Builder) Build(cfg config.Scene, w *world.World) (Scene, error) {
	var out Scene

	for _, p := range cfg.Landmarks {
		if err := w.AddLandmark(body.NewLandmark(b.IDs, physics.V(p.X, p.Y))); err != nil {
			return out, err
		}
		out.Landmarks++
	}
	if cfg.RandomLandmarks > 0 {
		rng := rand.New(rand.NewPCG(cfg.Seed, xxhash.Sum64String("scene/landmarks")))
		for range cfg.RandomLandmarks {
			at := physics.V(rng.Float64()*w.Width(), rng.Float64()*w.Height())
			if err := w.AddLandmark(body.NewLandmark(b.IDs, at)); err != nil {
				return out, err
			}
			out.Landmarks++
		}
	}

	for _, p := range cfg.Waypoints {
		if err := w.AddWaypoint(body.NewWaypoint(b.IDs, physics.V(p.X, p.Y))); err != nil {
			return out, err
		}
		out.Waypoints++
	}

	for i, rc := range cfg.Robots {
		r, err := b.robot(rc, cfg.Seed, w)
		if err != nil {
			return out, fmt.Errorf("scene: robot %d: %w", i, err)
		}
		if err := w.AddRobot(r); err != nil {
			return out, fmt.Errorf("scene: robot %d: %w", i, err)
		}
		out.Robots++
		if r.Controller() != nil {
			out.Controlled++
		}
	}
	return out, nil
}

func (b *Builder) robot(rc config.Robot, seed uint64, env programs.Env) (*body.Robot, error) {
	r := body.NewRobot(b.IDs)
	r.SetPosition(physics.V(rc.X, rc.Y))
	r.SetHeadingDeg(rc.HeadingDeg)
	r.SetSpeed(rc.Speed)

	for _, sc := range rc.Sensors {
		params := sc.Params
		if sc.Type == sensor.NameLandmarks {
			if _, ok := params["seed"]; !ok {
				params = maps.Clone(params)
				if params == nil {
					params = make(map[string]any, 1)
				}
				params["seed"] = seed
			}
		}
		s, err := b.Sensors.New(sc.Type, params)
		if err != nil {
			return nil, err
		}
		if err := r.AddSensor(s); err != nil {
			return nil, err
		}
	}

	if rc.Program != nil {
		c, err := b.Programs.Controller(b.IDs, rc.Program.Name, rc.Program.Params, env)
		if err != nil {
			return nil, err
		}
		if err := r.SetController(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}
