package workers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"teamchat/domain"
	"teamchat/domain/event"
	apperrors "teamchat/errors"
	"teamchat/repositories"
)

// RoomWorker is the single writer for one team's message log. Every
// send for the team flows through its command channel, which is what
// guarantees the append-order invariant: persistence order equals the
// order commands are drained, and cross-team workers run in parallel.
type RoomWorker struct {
	teamID     domain.TeamID
	commands   chan domain.Command
	events     chan event.DomainEvent
	repository repositories.IMessageRepository
	log        *slog.Logger
}

func NewRoomWorker(teamID domain.TeamID, commands chan domain.Command,
	events chan event.DomainEvent, repository repositories.IMessageRepository,
	log *slog.Logger) *RoomWorker {
	return &RoomWorker{
		teamID:     teamID,
		commands:   commands,
		events:     events,
		repository: repository,
		log:        log,
	}
}

func (w *RoomWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping room worker", "team", w.teamID)
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				return nil
			}
			if sendCmd, ok := cmd.(domain.SendMessageCommand); ok {
				w.handleSend(ctx, sendCmd)
			}
		}
	}
}

// handleSend persists the message, acks the sender, then emits the
// broadcast event. A send that made it past persistence always
// completes its broadcast: the emit uses the worker's supervision
// context, never the request context, so a sender disconnecting right
// after the write cannot leave a half-committed message.
func (w *RoomWorker) handleSend(ctx context.Context, cmd domain.SendMessageCommand) {
	message, err := w.persist(cmd)

	if cmd.Reply != nil {
		select {
		case cmd.Reply <- domain.SendResult{Message: message, Err: err}:
		default:
			// Caller gave up; the message is still committed and broadcast.
			w.log.Debug("Send reply dropped, caller gone", "team", w.teamID)
		}
	}

	if err != nil {
		w.log.Warn("Message rejected", "team", w.teamID, "error", err)
		return
	}

	select {
	case <-ctx.Done():
	case w.events <- event.MessageCreated{Message: message}:
	}
}

func (w *RoomWorker) persist(cmd domain.SendMessageCommand) (domain.Message, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return domain.Message{}, apperrors.ErrEmptyContent
	}

	message := domain.Message{
		ID:        uuid.New(),
		TeamID:    w.teamID,
		Sender:    cmd.Sender,
		Content:   cmd.Content,
		CreatedAt: cmd.CreatedAt,
		UpdatedAt: cmd.CreatedAt,
	}
	if err := w.repository.StoreMessage(repositories.FromDomain(message)); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}
