package sink

import (
	"context"

	"teamchat/domain/event"
	"teamchat/observability"
)

// MonitorSink is a permanent sink that counts every routed message.
type MonitorSink struct {
	monitor *observability.Monitor
}

func NewMonitorSink(monitor *observability.Monitor) MonitorSink {
	return MonitorSink{monitor: monitor}
}

func (s MonitorSink) Consume(_ context.Context, e event.DomainEvent) error {
	if _, ok := e.(event.MessageCreated); ok {
		s.monitor.IncrRouted()
	}
	return nil
}
