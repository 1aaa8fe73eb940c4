package sensor

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a sensor from free-form parameters, typically decoded from
// a scene file.
type Factory func(params map[string]any) (Sensor, error)

// Registry maps sensor type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

func (r *Registry) New(name string, params map[string]any) (Sensor, error) {
	r.mu.RLock()
	f := r.factories[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("unknown sensor: %s", name)
	}
	return f(params)
}

// Names returns the registered type names, sorted.
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

// RegisterBuiltins registers every built-in sensor under its reading name.
func RegisterBuiltins(r *Registry) {
	simple := map[string]func() Sensor{
		NameGPS:           func() Sensor { return NewGPS() },
		NameSpeedometer:   func() Sensor { return NewSpeedometer() },
		NameCompass:       func() Sensor { return NewCompass() },
		NameOdometer:      func() Sensor { return NewOdometer() },
		NameAccelerometer: func() Sensor { return NewAccelerometer() },
		NameGyroscope:     func() Sensor { return NewGyroscope() },
		NameBorderDetect:  func() Sensor { return NewBorderDetect() },
	}
	for name, ctor := range simple {
		r.Register(name, func(map[string]any) (Sensor, error) { return ctor(), nil })
	}

	r.Register(NameLandmarks, func(params map[string]any) (Sensor, error) {
		acc, ok := Float(params, "accuracy")
		if !ok {
			acc = 20
		}
		if acc < 0 {
			return nil, fmt.Errorf("%s: accuracy must be >= 0, got %v", NameLandmarks, acc)
		}
		seed, _ := Float(params, "seed")
		return NewLandmarkRange(acc, uint64(seed)), nil
	})
}

// Float reads a numeric parameter regardless of how the decoder typed it.
func Float(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case uint64:
		return float64(tv), true
	default:
		return 0, false
	}
}
