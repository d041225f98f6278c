package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"termchat/internal/chat"
	"termchat/internal/models"
	"termchat/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client adapts a gorilla websocket connection to the chat engine's Conn
// interface: outbound events are queued on a buffered channel drained by
// the write pump, inbound frames are decoded and dispatched by the read
// pump.
type Client struct {
	conn    *websocket.Conn
	manager *chat.Manager
	session *chat.Session

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, manager *chat.Manager) *Client {
	return &Client{
		conn:    conn,
		manager: manager,
		send:    make(chan models.Event, 256),
		done:    make(chan struct{}),
	}
}

// Send implements chat.Conn. A full buffer drops the event; delivery is
// best-effort by design.
func (c *Client) Send(event models.Event) bool {
	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close implements chat.Conn. Safe to call more than once; it unblocks
// both pumps and tears down the socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Start binds the connection to a session and runs the pumps. On an
// authentication failure the engine has already closed the transport.
func (c *Client) Start(token string) error {
	session, err := c.manager.Establish(c, token)
	if err != nil {
		return err
	}
	c.session = session

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		c.manager.Terminate(c.session)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			return
		}

		var event models.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Warn("Malformed event from %s: %v", c.session.Identity.ID, err)
			continue
		}

		c.dispatch(event)
	}
}

// dispatch routes one inbound event to the engine. Errors are local to
// the sender: they are logged and the connection stays up.
func (c *Client) dispatch(event models.ClientEvent) {
	var err error
	switch event.Type {
	case models.ClientJoinRoom:
		err = c.manager.JoinRoom(c.session, event.RoomID)
	case models.ClientSendMessage:
		_, err = c.manager.SendMessage(c.session, event.RoomID, event.Content, event.Kind)
	case models.ClientTypingStart:
		err = c.manager.SetTyping(c.session, event.RoomID, true)
	case models.ClientTypingStop:
		err = c.manager.SetTyping(c.session, event.RoomID, false)
	default:
		logger.Warn("Unknown event type %q from %s", event.Type, c.session.Identity.ID)
		return
	}

	if err != nil {
		if errors.Is(err, chat.ErrRoomNotFound) || errors.Is(err, chat.ErrNotMember) {
			logger.Warn("Rejected %s from %s: %v", event.Type, c.session.Identity.ID, err)
			return
		}
		logger.Error("Failed to handle %s from %s: %v", event.Type, c.session.Identity.ID, err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("Error marshaling event: %v", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
