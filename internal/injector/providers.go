package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/robsim/internal/config"
	"github.com/zeusync/robsim/internal/core/events"
	"github.com/zeusync/robsim/internal/core/ident"
	"github.com/zeusync/robsim/internal/core/observability/log"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/core/simulator"
	"github.com/zeusync/robsim/internal/core/world"
	"github.com/zeusync/robsim/internal/programs"
	"github.com/zeusync/robsim/internal/render"
	"github.com/zeusync/robsim/internal/render/stream"
	"github.com/zeusync/robsim/internal/scene"
)

// App is a fully wired simulation, ready to Run.
type App struct {
	Config    config.Config
	Logger    *log.Logger
	Events    *events.Bus
	World     *world.World
	Simulator *simulator.Simulator
	Scene     scene.Scene
	// Stream is nil when the render stream is disabled.
	Stream *stream.Hub
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ident.NewIssuer,
	events.New,
	ProvideSensors,
	programs.Builtins,
	ProvideStream,
	ProvideRenderer,
	ProvideWorld,
	ProvideScene,
	ProvideSimulator,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(cfg config.Config) (*log.Logger, func(), error) {
	l, err := log.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return l, func() { _ = l.Sync() }, nil
}

func ProvideSensors() *sensor.Registry {
	r := sensor.NewRegistry()
	sensor.RegisterBuiltins(r)
	return r
}

func ProvideStream(cfg config.Config, logger *log.Logger) *stream.Hub {
	if cfg.Render.Listen == "" {
		return nil
	}
	return stream.New(
		stream.WithMaxFPS(cfg.Render.MaxFPS),
		stream.WithLogger(logger.Named("stream")),
	)
}

func ProvideRenderer(hub *stream.Hub) render.Renderer {
	if hub == nil {
		return render.Nop{}
	}
	return hub
}

func ProvideWorld(cfg config.Config, logger *log.Logger, bus *events.Bus, r render.Renderer) *world.World {
	return world.New(cfg.Simulation.Width, cfg.Simulation.Height,
		world.WithLogger(logger.Named("world")),
		world.WithEvents(bus),
		world.WithRenderer(r),
	)
}

func ProvideScene(cfg config.Config, w *world.World, ids *ident.Issuer, sensors *sensor.Registry, progs *programs.Registry) (scene.Scene, error) {
	b := &scene.Builder{IDs: ids, Sensors: sensors, Programs: progs}
	return b.Build(cfg.Scene, w)
}

// ProvideSimulator takes the built scene so the world is populated before
// the simulator exists.
func ProvideSimulator(cfg config.Config, w *world.World, logger *log.Logger, bus *events.Bus, _ scene.Scene) (*simulator.Simulator, error) {
	return simulator.New(w,
		simulator.WithRate(cfg.Simulation.Rate),
		simulator.WithReportLoad(cfg.Simulation.ReportLoad),
		simulator.WithLogger(logger.Named("simulator")),
		simulator.WithEvents(bus),
	)
}
