package scene

import (
	"fmt"
	"sync"

	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
)

// Lifecycle events are published on LifecycleTopic with the *GameObject as
// event data.
const (
	LifecycleTopic = "scene.lifecycle"

	EventConstructed      = "gameobject.constructed"
	EventDestroyRequested = "gameobject.destroy_requested"
	EventDestroyCommitted = "gameobject.destroy_committed"
)

// Signals is the construction/destruction notification channel. External
// indexes subscribe here to mirror the live object population without the
// scene depending on them.
//
// Handlers must not commit destruction of the object they are being told
// about.
type Signals struct {
	bus    bus.EventBus
	logger log.Log
}

// NewSignals builds a Signals instance on top of b. A nil bus gets a fresh
// one; a nil logger discards delivery errors.
func NewSignals(b bus.EventBus, logger log.Log) *Signals {
	if b == nil {
		b = bus.New()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	_ = b.CreateTopic(LifecycleTopic, bus.TopicConfig{})
	return &Signals{bus: b, logger: logger}
}

var defaultSignals = sync.OnceValue(func() *Signals {
	return NewSignals(bus.New(), log.Provide().Named("scene"))
})

// DefaultSignals is used by game objects created without WithSignals.
func DefaultSignals() *Signals {
	return defaultSignals()
}

func (s *Signals) Bus() bus.EventBus { return s.bus }

// OnConstructed fires after the object has its id and transform.
func (s *Signals) OnConstructed(fn func(*GameObject)) (bus.Subscription, error) {
	return s.subscribe(EventConstructed, fn)
}

// OnDestroyRequested fires from Destroy.
func (s *Signals) OnDestroyRequested(fn func(*GameObject)) (bus.Subscription, error) {
	return s.subscribe(EventDestroyRequested, fn)
}

// OnDestroyCommitted fires at the end of CommitDestroy, after the whole
// subtree has been torn down.
func (s *Signals) OnDestroyCommitted(fn func(*GameObject)) (bus.Subscription, error) {
	return s.subscribe(EventDestroyCommitted, fn)
}

func (s *Signals) subscribe(eventType string, fn func(*GameObject)) (bus.Subscription, error) {
	if fn == nil {
		return nil, bus.ErrNilHandler
	}
	return s.bus.SubscribeTopic(LifecycleTopic, eventType, func(e bus.Event) error {
		g, ok := e.Data().(*GameObject)
		if !ok || g == nil {
			return fmt.Errorf("%w: %T", ErrUnexpectedPayload, e.Data())
		}
		fn(g)
		return nil
	})
}

func (s *Signals) publish(eventType string, g *GameObject) {
	if err := s.bus.PublishToTopic(LifecycleTopic, bus.NewEvent(eventType, "scene", g)); err != nil {
		s.logger.Error("lifecycle signal delivery failed",
			log.String("event", eventType),
			log.Uint64("id", g.ID()),
			log.String("name", g.Name()),
			log.Error(err),
		)
	}
}
