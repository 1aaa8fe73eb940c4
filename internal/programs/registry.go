// Package programs holds the named controller programs a scene file can
// refer to.
package programs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zeusync/robsim/internal/core/controller"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/physics"
)

// Env is what a program factory may learn about the world at build time.
type Env interface {
	WaypointPositions() []physics.Vec2
}

// Program is a built program plus its optional draw hook.
type Program struct {
	Main controller.Program
	Draw controller.DrawFunc
}

// Factory builds a Program from free-form parameters.
type Factory func(params map[string]any, env Env) (Program, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtins returns a registry with every built-in program registered.
func Builtins() *Registry {
	r := NewRegistry()
	r.Register(NameIdle, newIdle)
	r.Register(NameCruise, newCruise)
	r.Register(NameWander, newWander)
	r.Register(NameWaypoints, newWaypoints)
	r.Register(NameSquare, newSquare)
	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

func (r *Registry) New(name string, params map[string]any, env Env) (Program, error) {
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()
	if f == nil {
		return Program{}, fmt.Errorf("unknown program: %s", name)
	}
	return f(params, env)
}

// Controller builds the named program and wraps it in a new controller.
func (r *Registry) Controller(ids *ident.Issuer, name string, params map[string]any, env Env) (*controller.Controller, error) {
	p, err := r.New(name, params, env)
	if err != nil {
		return nil, err
	}
	var opts []controller.Option
	if p.Draw != nil {
		opts = append(opts, controller.WithDraw(p.Draw))
	}
	return controller.New(ids, p.Main, opts...), nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
