// Package config describes a simulation run: logging, pacing, the render
// stream and the scene to build.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/robsim/internal/core/observability/log"
)

type Config struct {
	Log        log.Config `yaml:"log" toml:"log" mapstructure:"log"`
	Simulation Simulation `yaml:"simulation" toml:"simulation" mapstructure:"simulation"`
	Render     Render     `yaml:"render" toml:"render" mapstructure:"render"`
	Scene      Scene      `yaml:"scene" toml:"scene" mapstructure:"scene"`
}

type Simulation struct {
	Width  float64 `yaml:"width" toml:"width" mapstructure:"width"`
	Height float64 `yaml:"height" toml:"height" mapstructure:"height"`
	// Rate is the target number of ticks per second.
	Rate       float64 `yaml:"rate" toml:"rate" mapstructure:"rate"`
	ReportLoad bool    `yaml:"report_load" toml:"report_load" mapstructure:"report_load"`
}

// Render configures the websocket frame stream. An empty Listen disables it.
type Render struct {
	Listen string  `yaml:"listen" toml:"listen" mapstructure:"listen"`
	Path   string  `yaml:"path" toml:"path" mapstructure:"path"`
	MaxFPS float64 `yaml:"max_fps" toml:"max_fps" mapstructure:"max_fps"`
}

type Scene struct {
	// Seed drives random landmark placement and sensor noise.
	Seed            uint64  `yaml:"seed" toml:"seed" mapstructure:"seed"`
	RandomLandmarks int     `yaml:"random_landmarks" toml:"random_landmarks" mapstructure:"random_landmarks"`
	Landmarks       []Point `yaml:"landmarks" toml:"landmarks" mapstructure:"landmarks"`
	Waypoints       []Point `yaml:"waypoints" toml:"waypoints" mapstructure:"waypoints"`
	Robots          []Robot `yaml:"robots" toml:"robots" mapstructure:"robots"`
}

type Point struct {
	X float64 `yaml:"x" toml:"x" mapstructure:"x"`
	Y float64 `yaml:"y" toml:"y" mapstructure:"y"`
}

type Robot struct {
	X          float64  `yaml:"x" toml:"x" mapstructure:"x"`
	Y          float64  `yaml:"y" toml:"y" mapstructure:"y"`
	HeadingDeg float64  `yaml:"heading" toml:"heading" mapstructure:"heading"`
	Speed      float64  `yaml:"speed" toml:"speed" mapstructure:"speed"`
	Sensors    []Sensor `yaml:"sensors" toml:"sensors" mapstructure:"sensors"`
	Program    *Program `yaml:"program" toml:"program" mapstructure:"program"`
}

type Sensor struct {
	Type   string         `yaml:"type" toml:"type" mapstructure:"type"`
	Params map[string]any `yaml:"params" toml:"params" mapstructure:"params"`
}

type Program struct {
	Name   string         `yaml:"name" toml:"name" mapstructure:"name"`
	Params map[string]any `yaml:"params" toml:"params" mapstructure:"params"`
}

func Default() Config {
	return Config{
		Log: log.Config{
			Level:    "info",
			Encoding: "console",
		},
		Simulation: Simulation{
			Width:  1280,
			Height: 720,
			Rate:   30,
		},
		Render: Render{
			Path:   "/ws",
			MaxFPS: 30,
		},
	}
}

// Load reads a yaml or toml file (chosen by extension) over Default and
// validates the result. A leading ~ in path is expanded.
func Load(path string) (Config, error) {
	cfg := Default()
	full, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config: expand %q: %w", path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Decode(data, Format(full), &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", full, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Format maps a file name to "toml" or "yaml".
func Format(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// Decode overlays data onto cfg. Keys absent from data keep their value.
func Decode(data []byte, format string, cfg *Config) error {
	switch format {
	case "toml":
		_, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		return err
	case "yaml", "yml":
		err := yaml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Simulation.Rate <= 0 {
		errs = append(errs, fmt.Errorf("simulation.rate must be > 0, got %v", c.Simulation.Rate))
	}
	if c.Simulation.Width <= 0 || c.Simulation.Height <= 0 {
		errs = append(errs, fmt.Errorf("simulation bounds must be positive, got %vx%v", c.Simulation.Width, c.Simulation.Height))
	}
	if c.Render.MaxFPS < 0 {
		errs = append(errs, fmt.Errorf("render.max_fps must be >= 0, got %v", c.Render.MaxFPS))
	}
	if c.Render.Listen != "" && !strings.HasPrefix(c.Render.Path, "/") {
		errs = append(errs, fmt.Errorf("render.path must start with /, got %q", c.Render.Path))
	}
	if c.Scene.RandomLandmarks < 0 {
		errs = append(errs, fmt.Errorf("scene.random_landmarks must be >= 0, got %d", c.Scene.RandomLandmarks))
	}
	for i, r := range c.Scene.Robots {
		for j, s := range r.Sensors {
			if s.Type == "" {
				errs = append(errs, fmt.Errorf("scene.robots[%d].sensors[%d]: missing type", i, j))
			}
		}
		if r.Program != nil && r.Program.Name == "" {
			errs = append(errs, fmt.Errorf("scene.robots[%d].program: missing name", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}
