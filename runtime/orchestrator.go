package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"teamchat/contract"
	"teamchat/domain"
	"teamchat/domain/event"
	apperrors "teamchat/errors"
	"teamchat/repositories"
	"teamchat/runtime/workers"
)

// Orchestrator wires rooms, the fanout pipeline, and the message log
// behind one entry point. Each team gets its own command channel and
// room worker, created lazily on the first send and supervised from
// then on.
type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     *workers.Supervisor
	rooms          *RoomManager
	roomCommands   map[domain.TeamID]chan domain.Command
	domainEvents   chan event.DomainEvent
	permanentSinks []contract.EventSink
	repository     repositories.IMessageRepository
	bufferSize     int
	sinkTimeout    time.Duration
	supervisedCtx  context.Context
}

func NewOrchestrator(log *slog.Logger, supervisor *workers.Supervisor,
	rooms *RoomManager, repository repositories.IMessageRepository,
	bufferSize int, sinkTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		log:          log,
		supervisor:   supervisor,
		rooms:        rooms,
		roomCommands: make(map[domain.TeamID]chan domain.Command),
		domainEvents: make(chan event.DomainEvent, bufferSize),
		repository:   repository,
		bufferSize:   bufferSize,
		sinkTimeout:  sinkTimeout,
	}
}

// Add registers permanent sinks that receive every routed event
// regardless of room membership (monitoring, projections). Must be
// called before Start.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start launches the fanout worker under supervision and remembers the
// supervision context so room workers created later share its lifetime.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fanout := workers.NewEventFanout(o.log, o.rooms, o.domainEvents, o.sinkTimeout).
		Add(o.permanentSinks...)
	o.supervisor.Add(fanout)

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	o.supervisedCtx = o.supervisor.Context()
}

// PostMessage routes a send to its team's room worker and waits for the
// persistence ack. The ctx bounds the wait only: once the worker has
// taken the command past persistence, the broadcast completes even if
// this caller is gone.
func (o *Orchestrator) PostMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	commands, err := o.roomFor(cmd.TeamID)
	if err != nil {
		return domain.Message{}, err
	}

	select {
	case commands <- cmd:
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}

	select {
	case res := <-cmd.Reply:
		return res.Message, res.Err
	case <-ctx.Done():
		return domain.Message{}, ctx.Err()
	}
}

// GetMessages reads one history page straight from the log; no room
// worker is involved, reads never serialize behind writes.
func (o *Orchestrator) GetMessages(query domain.HistoryQuery) ([]domain.Message, *string, bool, error) {
	stored, cursor, hasMore, err := o.repository.GetMessages(query.TeamID, query.Cursor, query.Limit)
	if err != nil {
		return nil, nil, false, err
	}
	messages := lo.Map(stored, func(item repositories.StoredMessage, _ int) domain.Message {
		return repositories.ToDomain(item)
	})
	return messages, cursor, hasMore, nil
}

// roomFor returns the team's command channel, creating the room worker
// on first use.
func (o *Orchestrator) roomFor(teamID domain.TeamID) (chan domain.Command, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if commands, ok := o.roomCommands[teamID]; ok {
		return commands, nil
	}

	if o.supervisedCtx == nil {
		// Not started yet; a worker created now would never drain.
		o.log.Error("Orchestrator used before Start", "team", teamID)
		return nil, apperrors.ErrStoreUnavailable
	}

	commands := make(chan domain.Command, o.bufferSize)
	o.roomCommands[teamID] = commands

	worker := workers.NewRoomWorker(teamID, commands, o.domainEvents, o.repository, o.log)
	o.supervisor.Start(o.supervisedCtx, worker)
	o.log.Info("Room worker started", "team", teamID)
	return commands, nil
}

// Stop initiates a graceful shutdown: cancel supervision, wait for all
// workers to drain.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
