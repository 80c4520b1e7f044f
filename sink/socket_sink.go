package sink

import (
	"context"

	"teamchat/contract"
	"teamchat/domain/event"
	"teamchat/observability"
)

// SocketSink hands routed events over to one connection's write pump.
// Consume is called by the fanout worker; the websocket handler drains
// Events and turns them into wire frames.
type SocketSink struct {
	Events  chan event.DomainEvent
	monitor *observability.Monitor
}

func NewSocketSink(bufferSize int, monitor *observability.Monitor) *SocketSink {
	return &SocketSink{
		Events:  make(chan event.DomainEvent, bufferSize),
		monitor: monitor,
	}
}

// Consume forwards the event into the connection's buffer. A full
// buffer blocks only until the caller's delivery deadline, then the
// event is dropped for this connection and counted; backpressure from
// one slow client never stalls the room beyond that deadline.
func (s *SocketSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		s.monitor.IncrDelivered()
		return nil
	case <-ctx.Done():
		s.monitor.IncrDropped()
		return ctx.Err()
	}
}

var _ contract.EventSink = (*SocketSink)(nil)
