package bus

import (
	"context"
	"sync"

	"github.com/bolsagame/bolsa/go/internal/room/events"
)

// Sink receives events on the delivery side of the bus. The gateway's
// connection manager implements it.
type Sink interface {
	Deliver(event *events.RoomEvent)
}

// Loopback delivers events straight to the sink, skipping NATS. Used
// for single-process deployments and tests; with one registry per room
// the ordering guarantee is identical.
type Loopback struct {
	mu   sync.RWMutex
	sink Sink
}

// NewLoopback creates an in-process publisher. The sink is bound later
// because the gateway is constructed after the registry.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Bind attaches the delivery sink. Events published before Bind are
// dropped; nothing is connected yet to receive them.
func (l *Loopback) Bind(sink Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Publish hands the event to the sink synchronously.
func (l *Loopback) Publish(ctx context.Context, event *events.RoomEvent) error {
	l.mu.RLock()
	sink := l.sink
	l.mu.RUnlock()

	if sink != nil {
		sink.Deliver(event)
	}
	return nil
}
