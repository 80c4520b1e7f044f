//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"teamchat/auth"
	"teamchat/contract"
	"teamchat/domain"
	apperrors "teamchat/errors"
	"teamchat/observability"
	"teamchat/runtime"
)

var validate = validator.New()

// SendRequest is the validated shape of a send call, REST or socket.
type SendRequest struct {
	TeamID  string `validate:"required"`
	Content string `validate:"required"`
}

type IChatService interface {
	Connect(connID contract.ConnID, identity auth.Identity, sink contract.EventSink)
	Disconnect(connID contract.ConnID)
	Join(connID contract.ConnID, identity auth.Identity, teamID domain.TeamID) error
	Leave(connID contract.ConnID, teamID domain.TeamID)
	Send(ctx context.Context, identity auth.Identity, req SendRequest) (domain.Message, error)
	History(identity auth.Identity, query domain.HistoryQuery) ([]domain.Message, *string, bool, error)
}

// ChatService is the protocol gateway: it owns authorization and
// validation, then drives the registry, room manager, and orchestrator.
type ChatService struct {
	log          *slog.Logger
	registry     *runtime.Registry
	rooms        *runtime.RoomManager
	orchestrator *runtime.Orchestrator
	directory    contract.ITeamDirectory
	monitor      *observability.Monitor
}

func NewChatService(log *slog.Logger, registry *runtime.Registry,
	rooms *runtime.RoomManager, orchestrator *runtime.Orchestrator,
	directory contract.ITeamDirectory, monitor *observability.Monitor) *ChatService {
	return &ChatService{
		log:          log,
		registry:     registry,
		rooms:        rooms,
		orchestrator: orchestrator,
		directory:    directory,
		monitor:      monitor,
	}
}

// Connect binds an already-authenticated transport session to its
// identity and delivery sink.
func (s *ChatService) Connect(connID contract.ConnID, identity auth.Identity, sink contract.EventSink) {
	s.registry.Register(connID, identity.UserID, sink)
	s.monitor.ConnOpened()
	s.log.Info("Connection registered", "conn", connID, "user", identity.UserID)
}

// Disconnect enforces the cleanup invariant: the connection leaves
// every room it was a member of, then its session is dropped.
func (s *ChatService) Disconnect(connID contract.ConnID) {
	s.rooms.LeaveAll(connID)
	s.registry.Unregister(connID)
	s.monitor.ConnClosed()
	s.log.Info("Connection cleaned up", "conn", connID)
}

// Join subscribes the connection to a team's live stream. The identity
// must be a member of the team; a rejected join never alters room
// state. Joining twice is a no-op.
func (s *ChatService) Join(connID contract.ConnID, identity auth.Identity, teamID domain.TeamID) error {
	if err := s.authorize(identity.UserID, teamID); err != nil {
		return err
	}
	s.rooms.Join(connID, teamID)
	s.monitor.IncrJoin()
	s.log.Info("Joined room", "conn", connID, "team", teamID)
	return nil
}

// Leave is idempotent; leaving a room never joined is a no-op.
func (s *ChatService) Leave(connID contract.ConnID, teamID domain.TeamID) {
	s.rooms.Leave(connID, teamID)
	s.monitor.IncrLeave()
	s.log.Info("Left room", "conn", connID, "team", teamID)
}

// Send persists one message and returns it once the append is durable;
// the broadcast to room members (sender included) happens through the
// fanout pipeline. Sending requires team membership but not a prior
// join: the room is a delivery subscription, not an authorization
// boundary.
func (s *ChatService) Send(ctx context.Context, identity auth.Identity, req SendRequest) (domain.Message, error) {
	if err := validate.Struct(req); err != nil {
		s.monitor.IncrRejected()
		return domain.Message{}, apperrors.ErrInvalidRequest
	}
	if strings.TrimSpace(req.Content) == "" {
		s.monitor.IncrRejected()
		return domain.Message{}, apperrors.ErrEmptyContent
	}

	teamID := domain.TeamID(req.TeamID)
	if err := s.authorize(identity.UserID, teamID); err != nil {
		s.monitor.IncrRejected()
		return domain.Message{}, err
	}

	cmd := domain.SendMessageCommand{
		TeamID:    teamID,
		Sender:    identity.Sender(),
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
		Reply:     make(chan domain.SendResult, 1),
	}
	message, err := s.orchestrator.PostMessage(ctx, cmd)
	if err != nil {
		s.monitor.IncrRejected()
		return domain.Message{}, err
	}
	return message, nil
}

// History pages the team's log, newest first. Membership-checked like
// any other read of team data.
func (s *ChatService) History(identity auth.Identity, query domain.HistoryQuery) ([]domain.Message, *string, bool, error) {
	if err := s.authorize(identity.UserID, query.TeamID); err != nil {
		return nil, nil, false, err
	}
	return s.orchestrator.GetMessages(query)
}

func (s *ChatService) authorize(userID string, teamID domain.TeamID) error {
	exists, err := s.directory.TeamExists(teamID)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrTeamNotFound
	}
	member, err := s.directory.IsMember(userID, teamID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrNotTeamMember
	}
	return nil
}
