package repositories

import (
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"teamchat/domain"
	apperrors "teamchat/errors"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedMessage(teamID domain.TeamID, author, content string, at time.Time) StoredMessage {
	return StoredMessage{
		ID:        uuid.New(),
		TeamID:    teamID,
		Sender:    domain.Sender{ID: author, Name: author, Email: author + "@example.com"},
		Content:   content,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func Test_Store_And_Fetch_Messages(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	teamID := domain.TeamID("team-1")
	at := time.Now().UTC()
	stored := []StoredMessage{
		storedMessage(teamID, "alice", "first", at),
		storedMessage(teamID, "bob", "second", at.Add(1*time.Minute)),
		storedMessage(teamID, "clara", "third", at.Add(2*time.Minute)),
	}
	for _, message := range stored {
		req.NoError(repository.StoreMessage(message))
	}

	fetched, cursor, hasMore, err := repository.GetMessages(teamID, nil, 0)
	req.NoError(err)
	req.Len(fetched, 3)
	req.False(hasMore)
	req.NotNil(cursor)

	// Newest first.
	req.Equal("third", fetched[0].Content)
	req.Equal("second", fetched[1].Content)
	req.Equal("first", fetched[2].Content)
}

func Test_Store_Rejects_Blank_Content(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	message := storedMessage("team-1", "alice", "   \t ", time.Now().UTC())

	err := repository.StoreMessage(message)
	req.ErrorIs(err, apperrors.ErrEmptyContent)

	fetched, _, _, err := repository.GetMessages("team-1", nil, 0)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Pagination_With_Cursor(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	teamID := domain.TeamID("team-1")
	at := time.Now().UTC()
	for i := 0; i < 5; i++ {
		message := storedMessage(teamID, "alice", string(rune('a'+i)), at.Add(time.Duration(i)*time.Minute))
		req.NoError(repository.StoreMessage(message))
	}

	page1, cursor, hasMore, err := repository.GetMessages(teamID, nil, 2)
	req.NoError(err)
	req.Len(page1, 2)
	req.True(hasMore)
	req.Equal("e", page1[0].Content)
	req.Equal("d", page1[1].Content)

	page2, cursor, hasMore, err := repository.GetMessages(teamID, cursor, 2)
	req.NoError(err)
	req.Len(page2, 2)
	req.True(hasMore)
	req.Equal("c", page2[0].Content)
	req.Equal("b", page2[1].Content)

	page3, _, hasMore, err := repository.GetMessages(teamID, cursor, 2)
	req.NoError(err)
	req.Len(page3, 1)
	req.False(hasMore)
	req.Equal("a", page3[0].Content)
}

// Pages already handed out must not move when new messages arrive: the
// cursor is a key suffix, not an offset.
func Test_Pagination_Stable_Under_Concurrent_Appends(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	teamID := domain.TeamID("team-1")
	at := time.Now().UTC()
	for i := 0; i < 4; i++ {
		message := storedMessage(teamID, "alice", string(rune('a'+i)), at.Add(time.Duration(i)*time.Minute))
		req.NoError(repository.StoreMessage(message))
	}

	page1, cursor, _, err := repository.GetMessages(teamID, nil, 2)
	req.NoError(err)
	page2Before, _, _, err := repository.GetMessages(teamID, cursor, 2)
	req.NoError(err)

	// A newer message lands while the reader is mid-pagination.
	req.NoError(repository.StoreMessage(storedMessage(teamID, "bob", "newest", at.Add(time.Hour))))

	page2After, _, _, err := repository.GetMessages(teamID, cursor, 2)
	req.NoError(err)
	req.Equal(page2Before, page2After)

	// Only the newest page changes.
	page1After, _, _, err := repository.GetMessages(teamID, nil, 2)
	req.NoError(err)
	req.Equal("newest", page1After[0].Content)
	req.Equal(page1[0].Content, page1After[1].Content)
}

// Team ids are opaque and may contain the key separator; one team's
// prefix must never match another team's keys.
func Test_Teams_Are_Isolated_With_Separator_In_ID(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(storedMessage("a:0", "bob", "for a:0 only", at)))

	fetched, _, _, err := repository.GetMessages("a", nil, 0)
	req.NoError(err)
	req.Empty(fetched)

	fetched, _, _, err = repository.GetMessages("a:0", nil, 0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("for a:0 only", fetched[0].Content)
}

func Test_Teams_Are_Isolated(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)

	repository := NewMessageRepository(db, slog.Default(), 50)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(storedMessage("team-1", "alice", "for one", at)))
	req.NoError(repository.StoreMessage(storedMessage("team-2", "bob", "for two", at)))

	fetched, _, _, err := repository.GetMessages("team-1", nil, 0)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("for one", fetched[0].Content)
}
