package sink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"teamchat/domain"
	"teamchat/domain/event"
	"teamchat/observability"
)

func Test_Consume_Delivers_While_Buffer_Has_Room(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	s := NewSocketSink(2, monitor)
	evt := event.MessageCreated{Message: domain.Message{TeamID: "team-1"}}

	req.NoError(s.Consume(context.Background(), evt))
	req.NoError(s.Consume(context.Background(), evt))
	req.Equal(uint64(2), monitor.Snapshot().Deliveries)
}

// A full buffer holds the delivery until the caller's deadline, then
// drops for this connection only.
func Test_Consume_Drops_At_Deadline_When_Buffer_Full(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	s := NewSocketSink(1, monitor)
	evt := event.MessageCreated{Message: domain.Message{TeamID: "team-1"}}

	req.NoError(s.Consume(context.Background(), evt))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Consume(ctx, evt)
	req.ErrorIs(err, context.DeadlineExceeded)
	req.Equal(uint64(1), monitor.Snapshot().DroppedDeliveries)
}

// The deadline bounds the wait; a drain that happens inside it means
// the event still goes out.
func Test_Consume_Waits_For_A_Draining_Reader(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	s := NewSocketSink(1, monitor)
	evt := event.MessageCreated{Message: domain.Message{TeamID: "team-1"}}

	req.NoError(s.Consume(context.Background(), evt))
	go func() {
		time.Sleep(10 * time.Millisecond)
		<-s.Events
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(s.Consume(ctx, evt))
	req.Equal(uint64(2), monitor.Snapshot().Deliveries)
}
