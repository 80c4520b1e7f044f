package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"teamchat/auth"
	"teamchat/domain"
	apperrors "teamchat/errors"
	"teamchat/observability"
	"teamchat/services"
)

// MessageHandler serves the REST half of the protocol: history
// pagination and persisted sends. Every route sits behind the bearer
// middleware, so an identity is always present in the context.
type MessageHandler struct {
	log         *slog.Logger
	chatService services.IChatService
	monitor     *observability.Monitor
}

func NewMessageHandler(log *slog.Logger, chatService services.IChatService,
	monitor *observability.Monitor) *MessageHandler {
	return &MessageHandler{log: log, chatService: chatService, monitor: monitor}
}

// GetMessages handles GET /message/get-messages?teamId=&cursor=&limit=.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		WriteError(w, apperrors.ErrInvalidRequest)
		return
	}

	query := domain.HistoryQuery{TeamID: domain.TeamID(teamID)}
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		query.Cursor = &cursor
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil {
			WriteError(w, apperrors.ErrInvalidRequest)
			return
		}
		query.Limit = limit
	}

	messages, nextCursor, hasMore, err := h.chatService.History(identity, query)
	if err != nil {
		WriteError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	WriteData(w, http.StatusOK, HistoryData{
		Messages:   messages,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	})
}

// Send handles POST /message/send?teamId=. The response carries the
// persisted message; room members (the sender's socket included)
// additionally receive it as a new-message push and dedupe by id.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		WriteError(w, apperrors.ErrUnauthorized)
		return
	}

	var body SendBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteError(w, apperrors.ErrInvalidRequest)
		return
	}

	message, err := h.chatService.Send(r.Context(), identity, services.SendRequest{
		TeamID:  r.URL.Query().Get("teamId"),
		Content: body.Content,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteData(w, http.StatusCreated, message)
}

// Healthz reports liveness plus the monitor snapshot.
func (h *MessageHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	WriteData(w, http.StatusOK, h.monitor.Snapshot())
}

func WriteData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   &ErrorPayload{Code: apperrors.Code(err), Message: err.Error()},
	})
}
