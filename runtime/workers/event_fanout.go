package workers

import (
	"context"
	"log/slog"
	"time"

	"teamchat/contract"
	"teamchat/domain/event"
)

// EventFanout broadcasts persisted-message events to every connection
// currently joined to the event's team room, plus the permanent sinks
// (monitoring, projections).
//
// Delivery order across subscribers for a single event is unspecified;
// delivery of two events to the same sink preserves channel order
// because a single fanout goroutine drains the event channel. Each sink
// gets the event at most once per broadcast: the membership snapshot
// lists every connection exactly once.
type EventFanout struct {
	log            *slog.Logger
	rooms          contract.IRoomManager
	permanentSinks []contract.EventSink
	events         chan event.DomainEvent
	sinkTimeout    time.Duration
}

func NewEventFanout(log *slog.Logger, rooms contract.IRoomManager,
	events chan event.DomainEvent, sinkTimeout time.Duration) *EventFanout {
	return &EventFanout{
		log:         log,
		rooms:       rooms,
		events:      events,
		sinkTimeout: sinkTimeout,
	}
}

func (w *EventFanout) Add(sinks ...contract.EventSink) *EventFanout {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout pushes one event to the room's current sinks. A slow sink only
// burns its own delivery timeout; it cannot stall the room, and a full
// sink buffer drops for that connection only.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.rooms.GetSinksForRoom(evt.Team())
	sinks = append(sinks, w.permanentSinks...)

	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deliveryCtx, evt); err != nil {
			w.log.Warn("Sink delivery failed", "team", evt.Team(), "error", err)
		}
		cancel()
	}
}
