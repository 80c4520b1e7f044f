package observability

import (
	"sync/atomic"
)

// Stats is a point-in-time snapshot of the gateway's counters, exposed
// on the health endpoint and logged by the health worker.
type Stats struct {
	ActiveConnections int64  `json:"active_connections"`
	JoinCount         uint64 `json:"join_count"`
	LeaveCount        uint64 `json:"leave_count"`
	MessagesRouted    uint64 `json:"messages_routed"`
	Deliveries        uint64 `json:"deliveries"`
	DroppedDeliveries uint64 `json:"dropped_deliveries"`
	RejectedSends     uint64 `json:"rejected_sends"`
}

// Monitor aggregates real-time counters. All methods are safe for
// concurrent use; everything is a plain atomic.
type Monitor struct {
	activeConnections int64
	joinCount         uint64
	leaveCount        uint64
	messagesRouted    uint64
	deliveries        uint64
	droppedDeliveries uint64
	rejectedSends     uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) ConnOpened() { atomic.AddInt64(&m.activeConnections, 1) }
func (m *Monitor) ConnClosed() { atomic.AddInt64(&m.activeConnections, -1) }
func (m *Monitor) IncrJoin() { atomic.AddUint64(&m.joinCount, 1) }
func (m *Monitor) IncrLeave() { atomic.AddUint64(&m.leaveCount, 1) }
func (m *Monitor) IncrRouted() { atomic.AddUint64(&m.messagesRouted, 1) }
func (m *Monitor) IncrDelivered() { atomic.AddUint64(&m.deliveries, 1) }
func (m *Monitor) IncrDropped() { atomic.AddUint64(&m.droppedDeliveries, 1) }
func (m *Monitor) IncrRejected() { atomic.AddUint64(&m.rejectedSends, 1) }

func (m *Monitor) Snapshot() Stats {
	return Stats{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		JoinCount:         atomic.LoadUint64(&m.joinCount),
		LeaveCount:        atomic.LoadUint64(&m.leaveCount),
		MessagesRouted:    atomic.LoadUint64(&m.messagesRouted),
		Deliveries:        atomic.LoadUint64(&m.deliveries),
		DroppedDeliveries: atomic.LoadUint64(&m.droppedDeliveries),
		RejectedSends:     atomic.LoadUint64(&m.rejectedSends),
	}
}
