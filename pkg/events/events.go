package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carrel-io/ferry/pkg/metrics"
	"github.com/carrel-io/ferry/pkg/types"
)

// EventType represents the kind of change an event reports
type EventType string

const (
	EventCreation     EventType = "CREATION"
	EventModification EventType = "MODIFICATION"
)

// Payload keys carrying change attribution
const (
	PayloadUserAgent     = "user-agent"
	PayloadSoftwareAgent = "software-agent"
)

// Event is a normalized notification that an entity changed upstream
type Event struct {
	ID         string
	EntityType types.EntityType
	EventType  EventType
	EntityID   string
	Payload    map[string]string
	Timestamp  time.Time
}

// AttributedTo reports whether the event's payload attributes the
// change to the named agent. Events Ferry caused itself are dropped on
// ingress to avoid self-looping.
func (e *Event) AttributedTo(agent string) bool {
	if agent == "" || e.Payload == nil {
		return false
	}
	return e.Payload[PayloadUserAgent] == agent || e.Payload[PayloadSoftwareAgent] == agent
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			metrics.EventsDroppedTotal.WithLabelValues("backpressure").Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
