// Package client implements the Go client for the teamchat protocol:
// an explicit connection object owned by the caller (no process-wide
// socket singleton), subscriptions as disposable handles, and a
// per-team timeline that dedupes pushes against fetched history by
// message id.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"teamchat/domain"
	"teamchat/infrastructure/httpapi"
	"teamchat/projection"
)

type Config struct {
	// BaseURL is the REST origin, e.g. "http://localhost:8080".
	BaseURL string
	// SocketURL is the websocket endpoint, e.g. "ws://localhost:8080/ws".
	SocketURL string
	// Token is the bearer credential. The server closes the socket with
	// code 4401 when it expires; reconnect with a fresh one.
	Token string
}

type Client struct {
	cfg        Config
	httpClient *http.Client

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu          sync.Mutex
	subscribers map[int]func(domain.Message)
	nextSubID   int
	timelines   map[domain.TeamID]*projection.Timeline
	closeOnce   sync.Once
}

func New(cfg Config) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		subscribers: make(map[int]func(domain.Message)),
		timelines:   make(map[domain.TeamID]*projection.Timeline),
	}
}

// Connect dials the socket with the configured credential and starts
// the read loop. One Client owns exactly one connection.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.SocketURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("socket dial rejected (%d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("socket dial failed: %w", err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Close is safe to call from any goroutine, any number of times.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

// JoinTeam subscribes this connection to the team's live stream.
func (c *Client) JoinTeam(teamID domain.TeamID) error {
	return c.emit(httpapi.EventJoinTeam, httpapi.RoomPayload{TeamID: teamID.String()})
}

// LeaveTeam is idempotent, like the server-side operation it mirrors.
func (c *Client) LeaveTeam(teamID domain.TeamID) error {
	return c.emit(httpapi.EventLeaveTeam, httpapi.RoomPayload{TeamID: teamID.String()})
}

// Subscribe registers a handler for pushed messages and returns its
// disposable unsubscribe handle. Subscribing twice simply yields two
// handles; there is no caller-side "attached" flag to get wrong.
func (c *Client) Subscribe(handler func(domain.Message)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Timeline returns the team's local timeline, creating it on first use.
func (c *Client) Timeline(teamID domain.TeamID) *projection.Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	timeline, ok := c.timelines[teamID]
	if !ok {
		timeline = projection.NewTimeline()
		c.timelines[teamID] = timeline
	}
	return timeline
}

// GetMessages fetches one history page over REST.
func (c *Client) GetMessages(ctx context.Context, teamID domain.TeamID, cursor *string, limit int) (httpapi.HistoryData, error) {
	url := fmt.Sprintf("%s/message/get-messages?teamId=%s", c.cfg.BaseURL, teamID)
	if cursor != nil {
		url += "&cursor=" + *cursor
	}
	if limit > 0 {
		url += fmt.Sprintf("&limit=%d", limit)
	}

	var data httpapi.HistoryData
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &data); err != nil {
		return httpapi.HistoryData{}, err
	}
	return data, nil
}

// LoadHistory fetches the newest page and merges it into the team's
// timeline. Pushes that raced the fetch are already deduped by id.
func (c *Client) LoadHistory(ctx context.Context, teamID domain.TeamID, limit int) error {
	data, err := c.GetMessages(ctx, teamID, nil, limit)
	if err != nil {
		return err
	}
	c.Timeline(teamID).Merge(data.Messages)
	return nil
}

// SendMessage persists one message over REST. The returned message is
// also pushed to the room (this connection included); the timeline
// dedupes the echo.
func (c *Client) SendMessage(ctx context.Context, teamID domain.TeamID, content string) (domain.Message, error) {
	url := fmt.Sprintf("%s/message/send?teamId=%s", c.cfg.BaseURL, teamID)
	body, err := json.Marshal(httpapi.SendBody{Content: content})
	if err != nil {
		return domain.Message{}, err
	}

	var message domain.Message
	if err := c.doJSON(ctx, http.MethodPost, url, body, &message); err != nil {
		return domain.Message{}, err
	}
	c.Timeline(teamID).Append(message)
	return message, nil
}

func (c *Client) emit(eventName string, payload any) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	envelope, err := httpapi.NewEnvelope(eventName, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(envelope)
}

func (c *Client) readLoop() {
	for {
		var envelope httpapi.Envelope
		if err := c.conn.ReadJSON(&envelope); err != nil {
			return
		}
		if envelope.Event != httpapi.EventNewMessage {
			continue
		}
		var message domain.Message
		if err := json.Unmarshal(envelope.Data, &message); err != nil {
			continue
		}

		// Duplicate pushes (or the echo of our own REST send) stop here.
		if !c.Timeline(message.TeamID).Append(message) {
			continue
		}

		c.mu.Lock()
		handlers := make([]func(domain.Message), 0, len(c.subscribers))
		for _, handler := range c.subscribers {
			handlers = append(handlers, handler)
		}
		c.mu.Unlock()
		for _, handler := range handlers {
			handler(message)
		}
	}
}

// doJSON performs one REST call and unwraps the {success, data|error}
// envelope into out.
func (c *Client) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool                  `json:"success"`
		Data    json.RawMessage       `json:"data"`
		Error   *httpapi.ErrorPayload `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if !envelope.Success {
		if envelope.Error != nil {
			return fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
