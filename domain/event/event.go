package event

import (
	"teamchat/domain"
)

// DomainEvent is anything the fanout worker can route to a room.
type DomainEvent interface {
	Team() domain.TeamID
}

// MessageCreated is emitted after a message has been durably appended.
// It carries the persisted message verbatim so every subscriber sees
// the same identity, content, and timestamps.
type MessageCreated struct {
	Message domain.Message
}

func (e MessageCreated) Team() domain.TeamID { return e.Message.TeamID }
