//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"teamchat/domain"
	apperrors "teamchat/errors"
)

const DefaultPageSize = 50

type IMessageRepository interface {
	StoreMessage(message StoredMessage) error
	GetMessages(teamID domain.TeamID, cursor *string, limit int) ([]StoredMessage, *string, bool, error)
}

type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize int) MessageRepository {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return MessageRepository{db: db, log: log, pageSize: pageSize}
}

// StoredMessage is the persisted form of a message. The JSON tags match
// the wire shape so the log can be inspected with the same vocabulary
// the protocol uses.
type StoredMessage struct {
	ID        uuid.UUID     `json:"_id"`
	TeamID    domain.TeamID `json:"teamId"`
	Sender    domain.Sender `json:"senderId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// MessagePrefix returns the key prefix under which a team's log lives.
// The team id is hex-encoded: ids are opaque strings and may contain
// the key separator, and a raw splice would let the prefix of team "a"
// match keys of a team named "a:anything".
func MessagePrefix(teamID domain.TeamID) string {
	return fmt.Sprintf("msg:%x:", teamID)
}

// StoreMessage persists a message in BadgerDB.
// The key is formatted as "msg:{team_id_hex}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages land on the same nanosecond.
//
// The key suffix after the prefix doubles as the pagination cursor, which is
// why appends can never shift an already-returned page.
func (m MessageRepository) StoreMessage(message StoredMessage) error {
	if strings.TrimSpace(message.Content) == "" {
		return apperrors.ErrEmptyContent
	}
	key := fmt.Sprintf("%s%019d:%s",
		MessagePrefix(message.TeamID),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// GetMessages retrieves one page of a team's log in reverse-chronological
// order, starting strictly after the cursor (newest first when the cursor is
// nil). It reads one row past the requested limit to decide hasMore without a
// second scan. The returned cursor is the key suffix of the last row and stays
// valid under concurrent appends.
func (m MessageRepository) GetMessages(teamID domain.TeamID, cursor *string, limit int) ([]StoredMessage, *string, bool, error) {
	if limit <= 0 || limit > m.pageSize {
		limit = m.pageSize
	}

	var rawValues [][]byte
	var lastKey string
	hasMore := false

	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := MessagePrefix(teamID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past any possible timestamp so the reverse iterator
			// lands on the newest key of this team.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		// The cursor row itself was already returned on the previous page.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(rawValues) == limit {
				hasMore = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				rawValues = append(rawValues, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	messages := make([]StoredMessage, 0, len(rawValues))
	for _, raw := range rawValues {
		var message StoredMessage
		if err = json.Unmarshal(raw, &message); err != nil {
			return nil, nil, false, err
		}
		messages = append(messages, message)
	}

	if len(messages) == 0 {
		return messages, nil, false, nil
	}
	return messages, lo.ToPtr(lastKey), hasMore, nil
}

func FromDomain(message domain.Message) StoredMessage {
	return StoredMessage{
		ID:        message.ID,
		TeamID:    message.TeamID,
		Sender:    message.Sender,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}
}

func ToDomain(message StoredMessage) domain.Message {
	return domain.Message{
		ID:        message.ID,
		TeamID:    message.TeamID,
		Sender:    message.Sender,
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}
}
