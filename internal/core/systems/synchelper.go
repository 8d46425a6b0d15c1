package systems

import (
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/engine/internal/core/observability/log"
	"github.com/zeusync/engine/internal/core/registry"
)

const SyncHelperName = "sync-helper"

var _ registry.System = (*SyncHelper)(nil)

// SyncHelper lets other goroutines hand work to the update goroutine. Actions
// are double-buffered: queueing only touches the back buffer, and each
// PhasePreUpdate swaps the buffers and drains the front one. Actions queued
// while draining run on the next frame.
type SyncHelper struct {
	logger log.Log

	mu    sync.Mutex
	back  []func()
	front []func()
}

func NewSyncHelper(logger log.Log) *SyncHelper {
	if logger == nil {
		logger = log.NewNop()
	}
	return &SyncHelper{logger: logger.Named(SyncHelperName)}
}

func (s *SyncHelper) Name() string          { return SyncHelperName }
func (s *SyncHelper) Phase() registry.Phase { return registry.PhasePreUpdate }

// QueueMainThreadAction schedules fn for the next update. Safe for
// concurrent use.
func (s *SyncHelper) QueueMainThreadAction(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.back = append(s.back, fn)
	s.mu.Unlock()
}

// Pending reports how many actions wait for the next update.
func (s *SyncHelper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.back)
}

// Update drains the actions queued before the call. A panicking action is
// reported and does not stop the rest of the batch.
func (s *SyncHelper) Update(time.Duration) error {
	s.mu.Lock()
	s.front, s.back = s.back, s.front[:0]
	batch := s.front
	s.mu.Unlock()

	var failed int
	for i, fn := range batch {
		if err := run(fn); err != nil {
			failed++
			s.logger.Error("main thread action failed", log.Int("index", i), log.Error(err))
		}
		batch[i] = nil
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d main thread actions panicked", failed, len(batch))
	}
	return nil
}

func run(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	fn()
	return nil
}
