package httpapi

import (
	"encoding/json"

	"teamchat/domain"
)

// Socket event names, shared by server and client.
const (
	EventJoinTeam   = "join-team"
	EventLeaveTeam  = "leave-team"
	EventNewMessage = "new-message"
	EventError      = "error"
)

// CloseCredentialExpired is sent when a connection outlives its token;
// the client must reconnect with a fresh credential.
const CloseCredentialExpired = 4401

// Envelope frames every socket event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// RoomPayload is the body of join-team / leave-team.
type RoomPayload struct {
	TeamID string `json:"teamId"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response is the REST envelope: {success, data | error}.
type Response struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

// HistoryData is the payload of GET /message/get-messages.
type HistoryData struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor *string          `json:"nextCursor,omitempty"`
	HasMore    bool             `json:"hasMore"`
}

// SendBody is the body of POST /message/send.
type SendBody struct {
	Content string `json:"content"`
}
