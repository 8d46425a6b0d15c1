// Package systems holds the engine-side systems that keep the scene in
// shape between frames: the live object index with its end-of-frame destroy
// sweep, and the main-thread action queue.
package systems

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
	"github.com/zeusync/engine/internal/core/scene"
	"github.com/zeusync/engine/pkg/sequence"
)

const QuerySystemName = "gameobject-query"

var (
	_ registry.System      = (*QuerySystem)(nil)
	_ registry.Initializer = (*QuerySystem)(nil)
	_ registry.Shutdowner  = (*QuerySystem)(nil)
)

// QuerySystem mirrors the live object population through the lifecycle
// signals, hands the registry to every object it sees, and commits pending
// destructions once per frame during PhaseCleanup.
type QuerySystem struct {
	logger log.Log
	index  *liveIndex

	regMu sync.RWMutex
	reg   *registry.Registry

	pendingMu sync.Mutex
	pending   []*scene.GameObject

	subs []bus.Subscription
}

// NewQuerySystem subscribes to signals (DefaultSignals when nil) right
// away, so objects constructed before the registry is initialized are still
// tracked.
func NewQuerySystem(signals *scene.Signals, logger log.Log, shardCount int) (*QuerySystem, error) {
	if signals == nil {
		signals = scene.DefaultSignals()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	q := &QuerySystem{
		logger: logger.Named(QuerySystemName),
		index:  newLiveIndex(shardCount),
	}

	var err error
	q.subs, err = subscribeAll(
		func() (bus.Subscription, error) { return signals.OnConstructed(q.onConstructed) },
		func() (bus.Subscription, error) { return signals.OnDestroyRequested(q.onDestroyRequested) },
		func() (bus.Subscription, error) { return signals.OnDestroyCommitted(q.onDestroyCommitted) },
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func subscribeAll(fns ...func() (bus.Subscription, error)) ([]bus.Subscription, error) {
	subs := make([]bus.Subscription, 0, len(fns))
	for _, fn := range fns {
		sub, err := fn()
		if err != nil {
			for _, s := range subs {
				_ = s.Cancel()
			}
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (q *QuerySystem) Name() string          { return QuerySystemName }
func (q *QuerySystem) Phase() registry.Phase { return registry.PhaseCleanup }

// Initialize remembers the registry and hands it to objects tracked so far
// that have none.
func (q *QuerySystem) Initialize(_ context.Context, r *registry.Registry) error {
	q.regMu.Lock()
	q.reg = r
	q.regMu.Unlock()

	for _, g := range q.index.snapshot() {
		if g.Registry() == nil {
			g.SetRegistry(r)
		}
	}
	return nil
}

// Update commits every destruction requested since the previous sweep.
// Objects torn down as part of an ancestor's commit are skipped.
func (q *QuerySystem) Update(time.Duration) error {
	q.pendingMu.Lock()
	batch := q.pending
	q.pending = nil
	q.pendingMu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var errs error
	committed := 0
	for _, g := range batch {
		if g.State() == scene.StateDestroyed {
			continue
		}
		if err := g.CommitDestroy(); err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		committed++
	}

	q.logger.Debug("destroy sweep",
		log.Int("requested", len(batch)),
		log.Int("committed", committed),
		log.Int("live", q.index.len()),
	)
	return errs
}

func (q *QuerySystem) Shutdown(context.Context) error {
	var errs error
	for _, s := range q.subs {
		errs = errors.Join(errs, s.Cancel())
	}
	q.subs = nil
	return errs
}

// FindByID returns a live object.
func (q *QuerySystem) FindByID(id uint64) (*scene.GameObject, bool) {
	return q.index.get(id)
}

// FindByName returns the oldest live object carrying name.
func (q *QuerySystem) FindByName(name string) (*scene.GameObject, bool) {
	return sequence.From(q.index.snapshot()).Find(func(g *scene.GameObject) bool {
		return g.Name() == name
	})
}

// Objects returns the live objects in construction order.
func (q *QuerySystem) Objects() []*scene.GameObject {
	return q.index.snapshot()
}

func (q *QuerySystem) Count() int {
	return q.index.len()
}

// PendingDestroy reports how many requests wait for the next sweep.
func (q *QuerySystem) PendingDestroy() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return len(q.pending)
}

// ComponentsOf iterates every component implementing or typed as T across
// the live objects, in construction order.
func ComponentsOf[T any](q *QuerySystem) *sequence.Iterator[T] {
	return sequence.FromSeq(func(yield func(T) bool) {
		for _, g := range q.index.snapshot() {
			for c := range scene.GetComponentsByInterface[T](g) {
				if !yield(c) {
					return
				}
			}
		}
	})
}

func (q *QuerySystem) onConstructed(g *scene.GameObject) {
	q.regMu.RLock()
	r := q.reg
	q.regMu.RUnlock()

	if r != nil && g.Registry() == nil {
		g.SetRegistry(r)
	}
	q.index.add(g)
}

func (q *QuerySystem) onDestroyRequested(g *scene.GameObject) {
	q.pendingMu.Lock()
	q.pending = append(q.pending, g)
	q.pendingMu.Unlock()
}

func (q *QuerySystem) onDestroyCommitted(g *scene.GameObject) {
	q.index.remove(g.ID())
}
