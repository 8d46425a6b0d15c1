// Package engine drives the frame loop: it owns the registry, the lifecycle
// signals and the built-in systems, and ticks every registered system in
// phase order once per frame.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/engine/internal/config"
	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/render"
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/internal/core/systems"
	"github.com/zeusync/engine/pkg/concurrent"
	"github.com/zeusync/engine/pkg/sequence"
)

var ErrNotStarted = errors.New("game is not started")

// Loader produces a blueprint off the update goroutine. It must not touch
// live game objects.
type Loader func(ctx context.Context) (scene.Blueprint, error)

type Game struct {
	cfg    *config.Config
	logger log.Log

	signals  *scene.Signals
	trace    *signalTrace
	registry *registry.Registry
	query    *systems.QuerySystem
	sync     *systems.SyncHelper
	sweep    *render.Sweep

	started bool
	frame   uint64
}

// New wires the built-in systems into a fresh registry. renderer may be nil,
// in which case the render sweep only collects statistics.
func New(cfg *config.Config, logger log.Log, renderer render.Renderer) (*Game, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.NewNop()
	}

	events := bus.New()
	trace := &signalTrace{logger: logger.Named("signals")}
	events.AddObserver(trace)
	signals := scene.NewSignals(events, logger.Named("scene"))
	query, err := systems.NewQuerySystem(signals, logger, cfg.Engine.QueryShards)
	if err != nil {
		return nil, fmt.Errorf("query system: %w", err)
	}

	g := &Game{
		cfg:      cfg,
		logger:   logger.Named("game"),
		signals:  signals,
		trace:    trace,
		registry: registry.New(),
		query:    query,
		sync:     systems.NewSyncHelper(logger),
		sweep:    render.NewSweep(query, renderer, logger),
	}

	for _, s := range []registry.System{g.sync, g.query, g.sweep} {
		if err = g.registry.Register(s); err != nil {
			return nil, err
		}
	}
	if err = registry.Provide(g.registry, signals); err != nil {
		return nil, err
	}
	if err = registry.Provide[log.Log](g.registry, logger); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) Config() *config.Config          { return g.cfg }
func (g *Game) Registry() *registry.Registry    { return g.registry }
func (g *Game) Signals() *scene.Signals         { return g.signals }
func (g *Game) Query() *systems.QuerySystem     { return g.query }
func (g *Game) SyncHelper() *systems.SyncHelper { return g.sync }
func (g *Game) Sweep() *render.Sweep            { return g.sweep }
func (g *Game) Frame() uint64                   { return g.frame }

// SignalMetrics reports lifecycle signal traffic since New.
func (g *Game) SignalMetrics() bus.EventBusMetrics { return g.signals.Bus().GetMetrics() }

// Register adds a user system. Systems registered after Start are not
// initialized.
func (g *Game) Register(s registry.System) error { return g.registry.Register(s) }

// NewObject creates a game object wired to this game's signals and registry.
func (g *Game) NewObject(name string) *scene.GameObject {
	return scene.New(append(g.options(), scene.WithName(name))...)
}

func (g *Game) options() []scene.Option {
	return []scene.Option{scene.WithSignals(g.signals), scene.WithRegistry(g.registry)}
}

// Instantiate builds b inside this game.
func (g *Game) Instantiate(b scene.Blueprint) (*scene.GameObject, error) {
	return b.Instantiate(g.options()...)
}

// Start initializes every registered system.
func (g *Game) Start(ctx context.Context) error {
	if g.started {
		return nil
	}
	if err := g.registry.Initialize(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	g.started = true
	g.logger.Info("game started",
		log.Int("systems", g.registry.Len()),
		log.Int("tick_rate", g.cfg.Engine.TickRate),
	)
	return nil
}

// Tick advances one frame: every system runs in phase order with dt. A
// failing system is logged and the frame continues; the failures are
// returned joined.
func (g *Game) Tick(dt time.Duration) error {
	if !g.started {
		return ErrNotStarted
	}
	g.frame++

	var errs error
	for _, s := range g.registry.Systems() {
		if err := s.Update(dt); err != nil {
			g.logger.Warn("system update failed",
				log.String("system", s.Name()),
				log.String("phase", s.Phase().String()),
				log.Uint64("frame", g.frame),
				log.Error(err),
			)
			errs = errors.Join(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errs
}

// RunFrames ticks n frames back to back with the configured frame interval
// as dt.
func (g *Game) RunFrames(n int) error {
	dt := g.cfg.FrameInterval()
	var errs error
	for range n {
		errs = errors.Join(errs, g.Tick(dt))
	}
	return errs
}

// Run starts the game and ticks at the configured rate until ctx is done or
// Engine.MaxFrames frames have run. System errors do not stop the loop.
func (g *Game) Run(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(g.cfg.FrameInterval())
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("game loop stopped", log.Uint64("frames", g.frame))
			return nil
		case now := <-ticker.C:
			_ = g.Tick(now.Sub(last))
			last = now
			if limit := g.cfg.Engine.MaxFrames; limit > 0 && g.frame >= limit {
				g.logger.Info("frame limit reached", log.Uint64("frames", g.frame))
				return nil
			}
		}
	}
}

// Shutdown stops every system in reverse phase order.
func (g *Game) Shutdown(ctx context.Context) error {
	if !g.started {
		return nil
	}
	g.started = false

	events := g.signals.Bus()
	m := events.GetMetrics()
	fields := []log.Field{
		log.Uint64("signals_published", m.Published),
		log.Uint64("signals_delivered", m.DeliveredHandlers),
		log.Uint64("signals_failed", m.Errors),
	}
	for _, topic := range events.GetTopics() {
		if topic.Name != "" {
			fields = append(fields, log.Int(topic.Name+".subscribers", topic.Subs))
		}
	}

	err := g.registry.Shutdown(ctx)
	events.RemoveObserver(g.trace)
	g.logger.Info("game stopped", fields...)
	return err
}

// LoadConcurrent runs loaders on up to Loader.Workers goroutines and queues
// the resulting blueprints for instantiation on the next frame, in loader
// order. Nothing is queued when any loader fails.
func (g *Game) LoadConcurrent(ctx context.Context, loaders []Loader, onLoaded func(*scene.GameObject)) error {
	blueprints, err := concurrent.ParallelMap(ctx, sequence.From(loaders), g.cfg.Loader.Workers,
		func(ctx context.Context, load Loader) (scene.Blueprint, error) {
			return load(ctx)
		})
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	for _, b := range blueprints {
		g.sync.QueueMainThreadAction(func() {
			obj, err := g.Instantiate(b)
			if err != nil {
				g.logger.Error("instantiate loaded blueprint", log.String("name", b.Name), log.Error(err))
				return
			}
			if onLoaded != nil {
				onLoaded(obj)
			}
		})
	}
	g.logger.Debug("blueprints queued", log.Int("count", len(blueprints)))
	return nil
}
