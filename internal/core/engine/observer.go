package engine

import (
	"time"

	"github.com/zeusync/engine/internal/core/events/bus"
	"github.com/zeusync/engine/internal/core/observability/log"
)

// signalTrace writes every lifecycle delivery to the debug log. Registering
// it also turns on the bus metrics reported by Game.SignalMetrics.
type signalTrace struct {
	logger log.Log
}

func (o *signalTrace) OnPublish(string, string, bus.Event) {}

func (o *signalTrace) OnDelivered(topic, eventType string, handlers int, err error, d time.Duration) {
	o.logger.Debug("signal delivered",
		log.String("topic", topic),
		log.String("event", eventType),
		log.Int("handlers", handlers),
		log.Bool("failed", err != nil),
		log.Duration("took", d),
	)
}
