// Package domain contains core concepts of the messaging system.
// Messages are immutable once persisted; delivery paths reference
// them, they never mutate them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sender carries the display fields resolved at send time so that
// delivery never needs a directory lookup.
type Sender struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Message represents one immutable chat event within a team.
type Message struct {
	ID        uuid.UUID `json:"_id"`
	TeamID    TeamID    `json:"teamId"`
	Sender    Sender    `json:"senderId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
