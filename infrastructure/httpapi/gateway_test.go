package httpapi_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"teamchat/auth"
	"teamchat/client"
	"teamchat/domain"
	"teamchat/infrastructure/httpapi"
	"teamchat/observability"
	"teamchat/repositories"
	"teamchat/runtime"
	"teamchat/runtime/workers"
	"teamchat/services"
)

type testServer struct {
	server        *httptest.Server
	authenticator *auth.TokenAuthenticator
	teams         repositories.TeamRepository
	socketURL     string
}

// newTestServer wires the full stack the way cmd/server does, against a
// throwaway badger directory.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	monitor := observability.NewMonitor()
	registry := runtime.NewRegistry()
	rooms := runtime.NewRoomManager(registry)
	messages := repositories.NewMessageRepository(db, log, 50)
	teams := repositories.NewTeamRepository(db, log)
	supervisor := workers.NewSupervisor(log, 10*time.Millisecond)
	orchestrator := runtime.NewOrchestrator(log, supervisor, rooms, messages, 16, time.Second)
	orchestrator.Start(context.Background())
	t.Cleanup(orchestrator.Stop)

	chatService := services.NewChatService(log, registry, rooms, orchestrator, teams, monitor)
	authenticator := auth.NewTokenAuthenticator("test-secret", "teamchat")
	gateway := httpapi.NewGateway(log, authenticator, chatService, monitor, 16)
	handler := httpapi.NewMessageHandler(log, chatService, monitor)

	server := httptest.NewServer(httpapi.NewRouter(gateway, handler, authenticator))
	t.Cleanup(server.Close)

	return &testServer{
		server:        server,
		authenticator: authenticator,
		teams:         teams,
		socketURL:     "ws" + strings.TrimPrefix(server.URL, "http") + "/ws",
	}
}

func (ts *testServer) seedTeam(t *testing.T, teamID domain.TeamID, admin string, members ...string) {
	t.Helper()
	req := require.New(t)
	req.NoError(ts.teams.CreateTeam(domain.Team{
		ID: teamID, Name: string(teamID), AdminID: admin, CreatedAt: time.Now().UTC(),
	}))
	for _, member := range members {
		req.NoError(ts.teams.AddMember(teamID, member, domain.RoleMember))
	}
}

func (ts *testServer) token(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	token, err := ts.authenticator.GenerateToken(userID, userID, userID+"@example.com", ttl)
	require.NoError(t, err)
	return token
}

func (ts *testServer) newClient(t *testing.T, userID string) *client.Client {
	t.Helper()
	c := client.New(client.Config{
		BaseURL:   ts.server.URL,
		SocketURL: ts.socketURL,
		Token:     ts.token(t, userID, time.Hour),
	})
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitForMessage(t *testing.T, ch <-chan domain.Message) domain.Message {
	t.Helper()
	select {
	case message := <-ch:
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("no message pushed within deadline")
		return domain.Message{}
	}
}

func Test_Send_Reaches_All_Joined_Members(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice", "bob")

	alice := ts.newClient(t, "alice")
	bob := ts.newClient(t, "bob")

	alicePushes := make(chan domain.Message, 8)
	bobPushes := make(chan domain.Message, 8)
	alice.Subscribe(func(m domain.Message) { alicePushes <- m })
	bob.Subscribe(func(m domain.Message) { bobPushes <- m })

	req.NoError(alice.JoinTeam("team-1"))
	req.NoError(bob.JoinTeam("team-1"))
	time.Sleep(100 * time.Millisecond) // let the joins land

	sent, err := alice.SendMessage(context.Background(), "team-1", "hello team")
	req.NoError(err)
	req.Equal("alice", sent.Sender.ID)

	got := waitForMessage(t, bobPushes)
	req.Equal(sent.ID, got.ID)
	req.Equal("hello team", got.Content)

	// The sender's socket got the echo too, but the timeline already
	// held the send response, so subscribers never see a duplicate.
	select {
	case m := <-alicePushes:
		req.Failf("duplicate delivery", "%v", m)
	case <-time.After(200 * time.Millisecond):
	}
	req.Equal(1, alice.Timeline("team-1").Len())
}

func Test_Blank_Send_Is_Rejected_And_Not_Broadcast(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice", "bob")

	alice := ts.newClient(t, "alice")
	bob := ts.newClient(t, "bob")
	bobPushes := make(chan domain.Message, 8)
	bob.Subscribe(func(m domain.Message) { bobPushes <- m })
	req.NoError(bob.JoinTeam("team-1"))
	time.Sleep(100 * time.Millisecond)

	_, err := alice.SendMessage(context.Background(), "team-1", "   ")
	req.Error(err)
	req.Contains(err.Error(), "VALIDATION_ERROR")

	select {
	case m := <-bobPushes:
		req.Failf("blank message broadcast", "%v", m)
	case <-time.After(200 * time.Millisecond):
	}

	history, err := alice.GetMessages(context.Background(), "team-1", nil, 10)
	req.NoError(err)
	req.Empty(history.Messages)
}

func Test_Disconnected_Member_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice", "bob")

	alice := ts.newClient(t, "alice")
	bob := ts.newClient(t, "bob")
	alicePushes := make(chan domain.Message, 8)
	alice.Subscribe(func(m domain.Message) { alicePushes <- m })
	req.NoError(alice.JoinTeam("team-1"))
	req.NoError(bob.JoinTeam("team-1"))
	time.Sleep(100 * time.Millisecond)

	req.NoError(bob.Close())
	time.Sleep(100 * time.Millisecond) // let the server clean up

	// The room keeps working for the remaining member.
	sent, err := alice.SendMessage(context.Background(), "team-1", "still here?")
	req.NoError(err)
	got := waitForMessage(t, alicePushes)
	req.Equal(sent.ID, got.ID)
}

func Test_History_Pages_Through_Rest(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")

	alice := ts.newClient(t, "alice")
	for _, content := range []string{"one", "two", "three"} {
		_, err := alice.SendMessage(context.Background(), "team-1", content)
		req.NoError(err)
		time.Sleep(5 * time.Millisecond) // distinct timestamps
	}

	page, err := alice.GetMessages(context.Background(), "team-1", nil, 2)
	req.NoError(err)
	req.Len(page.Messages, 2)
	req.True(page.HasMore)
	req.Equal("three", page.Messages[0].Content)
	req.Equal("two", page.Messages[1].Content)

	rest, err := alice.GetMessages(context.Background(), "team-1", page.NextCursor, 2)
	req.NoError(err)
	req.Len(rest.Messages, 1)
	req.False(rest.HasMore)
	req.Equal("one", rest.Messages[0].Content)
}

func Test_LoadHistory_Merges_With_Live_Pushes(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice", "bob")

	alice := ts.newClient(t, "alice")
	_, err := alice.SendMessage(context.Background(), "team-1", "before reconnect")
	req.NoError(err)

	bob := ts.newClient(t, "bob")
	req.NoError(bob.JoinTeam("team-1"))
	time.Sleep(100 * time.Millisecond)

	sent, err := alice.SendMessage(context.Background(), "team-1", "after reconnect")
	req.NoError(err)

	// bob saw the push first, then fetches history containing the same
	// message; the timeline ends with each message exactly once.
	deadline := time.Now().Add(2 * time.Second)
	for bob.Timeline("team-1").Len() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	req.NoError(bob.LoadHistory(context.Background(), "team-1", 50))

	messages := bob.Timeline("team-1").Messages()
	req.Len(messages, 2)
	req.Equal("before reconnect", messages[0].Content)
	req.Equal(sent.ID, messages[1].ID)
}

func Test_Expired_Credential_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")
	expired := ts.token(t, "alice", -time.Minute)

	// REST rejects it.
	request, err := http.NewRequest(http.MethodGet,
		ts.server.URL+"/message/get-messages?teamId=team-1", nil)
	req.NoError(err)
	request.Header.Set("Authorization", "Bearer "+expired)
	resp, err := http.DefaultClient.Do(request)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	// So does the socket upgrade.
	c := client.New(client.Config{
		BaseURL:   ts.server.URL,
		SocketURL: ts.socketURL,
		Token:     expired,
	})
	req.Error(c.Connect(context.Background()))
}

func Test_Socket_Closed_When_Credential_Expires(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")
	shortLived := ts.token(t, "alice", 500*time.Millisecond)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+shortLived)
	conn, _, err := websocket.DefaultDialer.Dial(ts.socketURL, header)
	req.NoError(err)
	defer conn.Close()

	closeCode := 0
	conn.SetCloseHandler(func(code int, _ string) error {
		closeCode = code
		return nil
	})
	req.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	req.Equal(httpapi.CloseCredentialExpired, closeCode)
}

// A token the identity provider issued without an exp claim verifies
// fine and must keep the socket open, not trip the expiry close.
func Test_Token_Without_Expiry_Keeps_Socket_Open(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")

	claims := &auth.CustomClaims{UserID: "alice", Name: "alice", Email: "alice@example.com"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	req.NoError(err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.Dial(ts.socketURL, header)
	req.NoError(err)
	defer conn.Close()

	// Join still works, proving the session is alive and registered.
	envelope, err := httpapi.NewEnvelope(httpapi.EventJoinTeam, httpapi.RoomPayload{TeamID: "team-1"})
	req.NoError(err)
	req.NoError(conn.WriteJSON(envelope))

	// No close frame arrives; the read just times out.
	req.NoError(conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond)))
	_, _, err = conn.ReadMessage()
	req.Error(err)
	req.False(websocket.IsCloseError(err, httpapi.CloseCredentialExpired))
}

func Test_Join_Requires_Membership(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+ts.token(t, "mallory", time.Hour))
	conn, _, err := websocket.DefaultDialer.Dial(ts.socketURL, header)
	req.NoError(err)
	defer conn.Close()

	envelope, err := httpapi.NewEnvelope(httpapi.EventJoinTeam, httpapi.RoomPayload{TeamID: "team-1"})
	req.NoError(err)
	req.NoError(conn.WriteJSON(envelope))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var reply httpapi.Envelope
	req.NoError(conn.ReadJSON(&reply))
	req.Equal(httpapi.EventError, reply.Event)
	req.Contains(string(reply.Data), "NOT_MEMBER")
}

func Test_Rest_Send_Requires_Membership(t *testing.T) {
	req := require.New(t)
	ts := newTestServer(t)
	ts.seedTeam(t, "team-1", "alice")

	mallory := client.New(client.Config{
		BaseURL:   ts.server.URL,
		SocketURL: ts.socketURL,
		Token:     ts.token(t, "mallory", time.Hour),
	})
	_, err := mallory.SendMessage(context.Background(), "team-1", "hello")
	req.Error(err)
	req.Contains(err.Error(), "NOT_MEMBER")
}
