package events

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carrel-io/ferry/pkg/log"
	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/types"
)

// HandlerFunc processes one admitted event
type HandlerFunc func(ctx context.Context, e *Event)

// ListenerPool consumes a broker subscription with a bounded set of
// workers, one pool per entity type. Events attributed to the
// configured self agent are dropped before dispatch, as are events for
// entity types or event types the pool does not handle.
type ListenerPool struct {
	broker     *Broker
	sub        Subscriber
	entityType types.EntityType
	workers    int
	selfAgent  string
	handler    HandlerFunc
	logger     zerolog.Logger
}

// NewListenerPool creates a pool of workers handling events for one
// entity type. The broker subscription is registered here, so events
// published between construction and Run buffer instead of being lost.
func NewListenerPool(broker *Broker, entityType types.EntityType, workers int, selfAgent string, handler HandlerFunc) *ListenerPool {
	if workers < 1 {
		workers = 1
	}
	return &ListenerPool{
		broker:     broker,
		sub:        broker.Subscribe(),
		entityType: entityType,
		workers:    workers,
		selfAgent:  selfAgent,
		handler:    handler,
		logger:     log.WithComponent("listener").With().Str("entity_type", string(entityType)).Logger(),
	}
}

// Run consumes events until ctx is cancelled. A worker occupies its
// slot for the duration of the handler's network activity; there is no
// hidden yielding.
func (p *ListenerPool) Run(ctx context.Context) error {
	defer p.broker.Unsubscribe(p.sub)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case event, ok := <-p.sub:
					if !ok {
						return nil
					}
					p.dispatch(ctx, event)
				}
			}
		})
	}
	return g.Wait()
}

func (p *ListenerPool) dispatch(ctx context.Context, e *Event) {
	if e.EntityType != p.entityType {
		return
	}
	metrics.EventsReceivedTotal.WithLabelValues(string(e.EntityType)).Inc()

	if e.EventType != EventCreation && e.EventType != EventModification {
		metrics.EventsDroppedTotal.WithLabelValues("event_type").Inc()
		p.logger.Debug().Str("event", e.ID).Str("event_type", string(e.EventType)).Msg("unhandled event type")
		return
	}
	if e.AttributedTo(p.selfAgent) {
		metrics.EventsDroppedTotal.WithLabelValues("self_loop").Inc()
		p.logger.Debug().Str("event", e.ID).Str("entity", e.EntityID).Msg("dropping self-attributed event")
		return
	}

	p.handler(ctx, e)
}
