package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/robsim/internal/config"
	"github.com/zeusync/robsim/internal/core/observability/log"
	"github.com/zeusync/robsim/internal/core/sensor"
	"github.com/zeusync/robsim/internal/injector"
	"github.com/zeusync/robsim/internal/programs"
)

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "robsim",
		Short:         "Run a 2D mobile robot simulation",
		Long:          "robsim steps a world of unicycle robots at a fixed rate until interrupted.\nSettings come from --config, then ROBSIM_* environment variables, then flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile, v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfgFile, "config", "c", "", "scene and settings file (yaml or toml)")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-file", "", "also write logs to this rotated file")
	f.Float64("width", 0, "world width")
	f.Float64("height", 0, "world height")
	f.Float64("rate", 0, "ticks per second")
	f.Bool("report-load", false, "log the duty cycle every 5 simulated seconds")
	f.String("listen", "", "serve the render stream on this address")
	f.Float64("max-fps", 0, "cap on streamed frames per second")
	f.Uint64("seed", 0, "seed for random landmarks and sensor noise")

	for key, flag := range map[string]string{
		config.KeyLogLevel:   "log-level",
		config.KeyLogFile:    "log-file",
		config.KeyWidth:      "width",
		config.KeyHeight:     "height",
		config.KeyRate:       "rate",
		config.KeyReportLoad: "report-load",
		config.KeyListen:     "listen",
		config.KeyMaxFPS:     "max-fps",
		config.KeySeed:       "seed",
	} {
		cobra.CheckErr(v.BindPFlag(key, f.Lookup(flag)))
	}

	cmd.AddCommand(newListCmd())
	return cmd
}

func loadConfig(path string, v *viper.Viper) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	cfg.Override(v)
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg config.Config) error {
	app, cleanup, err := injector.Initialize(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	app.Logger.Info("scene loaded",
		log.Int("landmarks", app.Scene.Landmarks),
		log.Int("waypoints", app.Scene.Waypoints),
		log.Int("robots", app.Scene.Robots),
		log.Int("controlled", app.Scene.Controlled),
	)

	g, gctx := errgroup.WithContext(ctx)
	if app.Stream != nil {
		ln, err := net.Listen("tcp", cfg.Render.Listen)
		if err != nil {
			_ = app.World.Close()
			return fmt.Errorf("render stream: %w", err)
		}
		g.Go(func() error { return app.Stream.Serve(gctx, ln, cfg.Render.Path) })
	}
	g.Go(func() error { return app.Simulator.Run(gctx) })
	return g.Wait()
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in sensors and programs",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			sensors := sensor.NewRegistry()
			sensor.RegisterBuiltins(sensors)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "sensors:")
			for _, n := range sensors.Names() {
				fmt.Fprintln(out, "  "+n)
			}
			fmt.Fprintln(out, "programs:")
			for _, n := range programs.Builtins().Names() {
				fmt.Fprintln(out, "  "+n)
			}
		},
	}
}
