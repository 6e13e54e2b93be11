// Package events fans game events and client messages out from the vote
// controllers to the transports that deliver them.
package events

import (
	"github.com/mathieu-neron/callvote/internal/model"
)

// Sink receives everything the bus carries. Sinks are called on the game loop
// goroutine and must not block.
type Sink interface {
	HandleEvent(event model.GameEvent)
	HandleMessage(msg model.ClientMessage, to model.Recipients)
}

// Bus implements the vote messenger by forwarding to every sink in order.
type Bus struct {
	sinks []Sink
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks}
}

// Add registers a sink. Call before the game loop starts.
func (b *Bus) Add(s Sink) {
	b.sinks = append(b.sinks, s)
}

func (b *Bus) FireEvent(event model.GameEvent) {
	for _, s := range b.sinks {
		s.HandleEvent(event)
	}
}

// Send forwards msg to every sink, including when no client receives it, so
// counters still see ballots nobody was shown.
func (b *Bus) Send(msg model.ClientMessage, to model.Recipients) {
	for _, s := range b.sinks {
		s.HandleMessage(msg, to)
	}
}
