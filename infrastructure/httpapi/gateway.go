package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"teamchat/auth"
	"teamchat/contract"
	"teamchat/domain"
	"teamchat/domain/event"
	apperrors "teamchat/errors"
	"teamchat/observability"
	"teamchat/services"
	"teamchat/sink"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Gateway upgrades authenticated connections to websockets and runs
// the per-connection protocol loop: join-team / leave-team inbound,
// new-message pushes outbound.
type Gateway struct {
	log           *slog.Logger
	authenticator *auth.TokenAuthenticator
	chatService   services.IChatService
	monitor       *observability.Monitor
	upgrader      websocket.Upgrader
	sinkBuffer    int
}

func NewGateway(log *slog.Logger, authenticator *auth.TokenAuthenticator,
	chatService services.IChatService, monitor *observability.Monitor,
	sinkBuffer int) *Gateway {
	return &Gateway{
		log:           log,
		authenticator: authenticator,
		chatService:   chatService,
		monitor:       monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is the reverse proxy's job in this deployment.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sinkBuffer: sinkBuffer,
	}
}

// Handle authenticates the upgrade request, registers the connection,
// and blocks until the client disconnects or its credential expires.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		WriteError(w, apperrors.ErrUnauthorized)
		return
	}
	identity, err := g.authenticator.Verify(token)
	if err != nil {
		WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	connID := contract.ConnID(uuid.NewString())
	connSink := sink.NewSocketSink(g.sinkBuffer, g.monitor)
	g.chatService.Connect(connID, identity, connSink)

	session := &socketSession{
		log:      g.log,
		conn:     conn,
		connID:   connID,
		identity: identity,
		sink:     connSink,
		service:  g.chatService,
		outbound: make(chan Envelope, 8),
		done:     make(chan struct{}),
	}
	defer session.close()

	go session.writePump()
	session.readLoop()
}

// socketSession is one live connection's state. The read loop is the
// only reader, the write pump the only writer; they meet on channels.
type socketSession struct {
	log       *slog.Logger
	conn      *websocket.Conn
	connID    contract.ConnID
	identity  auth.Identity
	sink      *sink.SocketSink
	service   services.IChatService
	outbound  chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// close tears the session down exactly once: room cleanup, session
// unregistration, socket close. Both pumps race to call it, so the
// guard must be atomic.
func (s *socketSession) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.service.Disconnect(s.connID)
		_ = s.conn.Close()
	})
}

// readLoop consumes client frames until the transport drops. Join and
// leave failures are reported on the error event without closing the
// socket; a failed join never alters room state.
func (s *socketSession) readLoop() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var envelope Envelope
		if err := s.conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("Connection dropped", "conn", s.connID, "error", err)
			}
			return
		}
		s.handleEvent(envelope)
	}
}

func (s *socketSession) handleEvent(envelope Envelope) {
	switch envelope.Event {
	case EventJoinTeam, EventLeaveTeam:
		var payload RoomPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.TeamID == "" {
			s.reportError(apperrors.ErrInvalidRequest)
			return
		}
		teamID := domain.TeamID(payload.TeamID)
		if envelope.Event == EventJoinTeam {
			if err := s.service.Join(s.connID, s.identity, teamID); err != nil {
				s.reportError(err)
			}
			return
		}
		s.service.Leave(s.connID, teamID)
	default:
		s.log.Debug("Unknown socket event", "conn", s.connID, "event", envelope.Event)
	}
}

func (s *socketSession) reportError(err error) {
	envelope, marshalErr := NewEnvelope(EventError, ErrorPayload{
		Code:    apperrors.Code(err),
		Message: err.Error(),
	})
	if marshalErr != nil {
		return
	}
	select {
	case s.outbound <- envelope:
	case <-s.done:
	}
}

// writePump is the sole writer on the socket. It drains the delivery
// sink and the session's own outbound queue, keeps the connection
// alive with pings, and force-closes when the credential expires so a
// stale token is never honored past its lifetime.
func (s *socketSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// A token without an exp claim never expires; leave the channel nil
	// so the case can never fire.
	var expiryC <-chan time.Time
	if !s.identity.ExpiresAt.IsZero() {
		expiry := time.NewTimer(time.Until(s.identity.ExpiresAt))
		defer expiry.Stop()
		expiryC = expiry.C
	}

	for {
		select {
		case <-s.done:
			return

		case evt := <-s.sink.Events:
			created, ok := evt.(event.MessageCreated)
			if !ok {
				continue
			}
			envelope, err := NewEnvelope(EventNewMessage, created.Message)
			if err != nil {
				s.log.Error("Failed to encode push", "conn", s.connID, "error", err)
				continue
			}
			if err := s.write(envelope); err != nil {
				s.log.Warn("Failed to push event", "conn", s.connID, "error", err)
				s.close()
				return
			}

		case envelope := <-s.outbound:
			if err := s.write(envelope); err != nil {
				s.close()
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}

		case <-expiryC:
			s.log.Info("Credential expired, closing connection", "conn", s.connID)
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(CloseCredentialExpired, "credential expired"),
				time.Now().Add(writeWait))
			s.close()
			return
		}
	}
}

func (s *socketSession) write(envelope Envelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(envelope)
}
