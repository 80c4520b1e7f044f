package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"teamchat/mocks"
)

// dialTestConn returns a connected client-side websocket against a
// throwaway upgrade-and-park handler.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()
	park := make(chan struct{})
	t.Cleanup(func() { close(park) })

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer serverConn.Close()
		<-park
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

// The read loop and the write pump both call close on failure; the
// teardown must survive the race and run its side effects exactly once.
func Test_Session_Close_Is_Concurrent_Safe(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)

	service := mocks.NewMockIChatService(ctrl)
	service.EXPECT().Disconnect(gomock.Any()).Times(1)

	session := &socketSession{
		conn:    dialTestConn(t),
		connID:  "conn-1",
		service: service,
		done:    make(chan struct{}),
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			session.close()
		}()
	}
	close(start)
	wg.Wait()

	select {
	case <-session.done:
	default:
		req.Fail("done channel was not closed")
	}
}
