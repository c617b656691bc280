package api

import (
	"context"
	"sync"
)

// Event is one solve progress notification, fanned out by solve id.
type Event struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

const (
	EventSolveStarted    = "solve.started"
	EventSolveImproved   = "solve.improved"
	EventSolveCompleted  = "solve.completed"
	EventSolveInfeasible = "solve.infeasible"
	EventSolveFailed     = "solve.failed"
)

// EventBroker fans solve events out to subscribers of a topic, see
// eventTopic.
type EventBroker interface {
	Subscribe(topic string) chan Event
	Unsubscribe(topic string, ch chan Event)
	Publish(topic string, evt Event)
	Ping(ctx context.Context) error
}

// eventTopic scopes a solve id to its tenant so solve ids chosen by one
// tenant never reach another tenant's subscribers.
func eventTopic(tenant, solveID string) string {
	return tenant + "/" + solveID
}

// Broker is the in-process EventBroker. Slow subscribers miss events rather
// than block the publisher.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan Event {
	ch := make(chan Event, 8)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan Event]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[topic]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

func (b *Broker) Publish(topic string, evt Event) {
	b.mu.Lock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *Broker) Ping(context.Context) error { return nil }
