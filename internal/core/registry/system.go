package registry

import (
	"context"
	"time"
)

// Phase defines execution ordering within a single frame.
type Phase uint8

const (
	PhasePreUpdate  Phase = iota // main-thread actions queued by other goroutines
	PhaseUpdate                  // game logic
	PhasePostUpdate              // late logic that reads what Update produced
	PhaseRender                  // render collection
	PhaseCleanup                 // commit destruction requested during the frame
)

func (p Phase) String() string {
	switch p {
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseRender:
		return "render"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is an engine subsystem driven once per frame.
type System interface {
	Name() string
	Phase() Phase
	Update(dt time.Duration) error
}

// Initializer is implemented by systems that need setup once every system
// has been registered.
type Initializer interface {
	Initialize(ctx context.Context, r *Registry) error
}

// Shutdowner is implemented by systems that release resources on shutdown.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}
