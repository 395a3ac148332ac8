package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one live transport session: the unit of identity and
// cleanup. It owns the websocket connection and pumps messages between
// the connection and the hub.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	log  *log.Logger

	// username and room are written once during Join and published to
	// other goroutines by the owning room's lock.
	username string
	room     string

	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(id string, conn *websocket.Conn, hub *Hub, l *log.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		log:  l,
		send: make(chan *ServerMessage, 256),
		stop: make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for %q", c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for %q", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrEvent(errInvalidMessage))
			continue
		}

		c.handleMessage(&msg)
	}
}

// handleMessage dispatches one inbound event to the hub. Failures are
// recoverable and reported only to this connection.
func (c *Client) handleMessage(msg *ClientMessage) {
	switch {
	case msg.Join != nil:
		if err := c.hub.Join(c, msg.Join.Username, msg.Join.Room); err != nil {
			c.queueMessage(ErrEvent(err))
		}
	case msg.SendMessage != nil:
		if _, err := c.hub.SendMessage(c, msg.SendMessage.Text); err != nil {
			c.queueMessage(ErrEvent(err))
		}
	case msg.Typing != nil:
		if err := c.hub.Typing(c); err != nil {
			c.queueMessage(ErrEvent(err))
		}
	case msg.StopTyping != nil:
		if err := c.hub.StopTyping(c); err != nil {
			c.queueMessage(ErrEvent(err))
		}
	case msg.AddReaction != nil:
		if _, err := c.hub.AddReaction(c, msg.AddReaction.MessageId, msg.AddReaction.Emoji); err != nil {
			c.queueMessage(ErrEvent(err))
		}
	default:
		c.queueMessage(ErrEvent(errInvalidMessage))
	}
}

// queueMessage enqueues without blocking; it reports false when the
// send buffer is full so the caller can stop a consumer that cannot
// keep up.
func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send buffer full for %q", c.id)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// stopClient is safe to call from any goroutine, any number of times.
func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.hub.Disconnect(c)
	c.stopClient()
}
