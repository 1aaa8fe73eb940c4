package programs

import (
	"fmt"

	"github.com/zeusync/robsim/internal/core/physics"
	"github.com/zeusync/robsim/internal/core/sensor"
)

func floatParam(params map[string]any, key string, def float64) (float64, error) {
	if _, ok := params[key]; !ok {
		return def, nil
	}
	v, ok := sensor.Float(params, key)
	if !ok {
		return 0, fmt.Errorf("parameter %q: expected a number, got %T", key, params[key])
	}
	return v, nil
}

func positiveParam(params map[string]any, key string, def float64) (float64, error) {
	v, err := floatParam(params, key, def)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, fmt.Errorf("parameter %q: must be > 0, got %v", key, v)
	}
	return v, nil
}

func stringParam(params map[string]any, key, def string) (string, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q: expected a string, got %T", key, v)
	}
	return s, nil
}

// pointsParam reads a list of points written either as [x, y] pairs or as
// {x: .., y: ..} maps.
func pointsParam(params map[string]any, key string) ([]physics.Vec2, error) {
	raw, ok := params[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q: expected a list, got %T", key, raw)
	}
	out := make([]physics.Vec2, 0, len(list))
	for i, item := range list {
		p, err := point(item)
		if err != nil {
			return nil, fmt.Errorf("parameter %q[%d]: %w", key, i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func point(item any) (physics.Vec2, error) {
	switch v := item.(type) {
	case physics.Vec2:
		return v, nil
	case []any:
		if len(v) != 2 {
			return physics.Vec2{}, fmt.Errorf("expected [x, y], got %d values", len(v))
		}
		xy := map[string]any{"x": v[0], "y": v[1]}
		return point(xy)
	case map[string]any:
		x, okx := sensor.Float(v, "x")
		y, oky := sensor.Float(v, "y")
		if !okx || !oky {
			return physics.Vec2{}, fmt.Errorf("expected numeric x and y")
		}
		return physics.V(x, y), nil
	default:
		return physics.Vec2{}, fmt.Errorf("unsupported point %T", item)
	}
}
