package domain

import "time"

// Command is any intent routed to a team's room worker.
type Command interface {
	Team() TeamID
}

// SendMessageCommand asks the room worker to persist and broadcast one
// message. Reply receives the persisted message (or the persistence
// error) exactly once; the caller owns the channel and must buffer it.
type SendMessageCommand struct {
	TeamID    TeamID
	Sender    Sender
	Content   string
	CreatedAt time.Time
	Reply     chan SendResult
}

func (c SendMessageCommand) Team() TeamID { return c.TeamID }

type SendResult struct {
	Message Message
	Err     error
}

// HistoryQuery pages a team's message log backwards from Cursor.
// A nil cursor starts at the newest message.
type HistoryQuery struct {
	TeamID TeamID
	Cursor *string
	Limit  int
}

func (q HistoryQuery) Team() TeamID { return q.TeamID }
