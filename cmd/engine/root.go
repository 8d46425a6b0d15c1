package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/injector"
)

type options struct {
	configPath string
	frames     uint64
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "engine",
		Short:         "Run the demo scene",
		Long:          "Loads the engine configuration, spawns the demo scene on loader goroutines and runs the frame loop until interrupted or the frame limit is reached.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a .yaml, .yml or .toml config file")
	flags.Uint64VarP(&opts.frames, "frames", "n", 0, "stop after this many frames (overrides engine.max_frames)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	return cmd
}

func run(parent context.Context, opts *options) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := newLogRenderer()
	game, cleanup, err := injector.InitializeGame(opts.configPath, renderer)
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
		return err
	}
	defer cleanup()

	cfg := game.Config()
	if opts.frames > 0 {
		cfg.Engine.MaxFrames = opts.frames
	}
	logger := log.Log(log.NewNop())
	if l, ok := registry.Get[log.Log](game.Registry()); ok {
		logger = l.Named("engine")
	}
	if opts.logLevel != "" {
		level, err := log.ParseLevel(opts.logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
	}
	renderer.logger = logger.Named("renderer")

	if err = setupDemo(game, logger); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return game.Run(groupCtx)
	})
	group.Go(func() error {
		return loadDemo(groupCtx, game, logger)
	})

	err = group.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Engine.ShutdownTimeout)
	defer cancel()
	err = errors.Join(err, game.Shutdown(shutdownCtx))

	logger.Info("engine stopped",
		log.Uint64("frames", game.Frame()),
		log.Int("live_objects", game.Query().Count()),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "engine:", err)
	}
	return err
}
