package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Keys that may be overridden from flags or ROBSIM_* environment variables.
const (
	KeyLogLevel    = "log.level"
	KeyLogEncoding = "log.encoding"
	KeyLogFile     = "log.file"
	KeyWidth       = "simulation.width"
	KeyHeight      = "simulation.height"
	KeyRate        = "simulation.rate"
	KeyReportLoad  = "simulation.report_load"
	KeyListen      = "render.listen"
	KeyMaxFPS      = "render.max_fps"
	KeySeed        = "scene.seed"
)

// EnvPrefix namespaces environment overrides: simulation.rate is read from
// ROBSIM_SIMULATION_RATE.
const EnvPrefix = "ROBSIM"

// NewViper returns a viper instance that resolves every key from
// ROBSIM_* environment variables as well as from whatever gets bound to it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Override copies every key set in v onto c. Keys v does not know about
// leave c untouched.
func (c *Config) Override(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}

	str(KeyLogLevel, &c.Log.Level)
	str(KeyLogEncoding, &c.Log.Encoding)
	str(KeyLogFile, &c.Log.File)
	num(KeyWidth, &c.Simulation.Width)
	num(KeyHeight, &c.Simulation.Height)
	num(KeyRate, &c.Simulation.Rate)
	if v.IsSet(KeyReportLoad) {
		c.Simulation.ReportLoad = v.GetBool(KeyReportLoad)
	}
	str(KeyListen, &c.Render.Listen)
	num(KeyMaxFPS, &c.Render.MaxFPS)
	if v.IsSet(KeySeed) {
		c.Scene.Seed = v.GetUint64(KeySeed)
	}
}
