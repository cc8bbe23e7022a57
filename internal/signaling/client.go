package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/kiyo-e/pairlane/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; SDP bodies dominate.
	maxMessageSize = 64 * 1024

	// Outbound queue depth per socket. A full queue drops frames rather
	// than stalling the room actor.
	sendQueueSize = 64
)

// Answerer queue states.
const (
	StateWaiting = "waiting"
	StateActive  = "active"
	StateDone    = "done"
)

// Client wraps a single websocket connection plus the attachment the room
// keeps for it. Attachment fields (role, state, joinedAt) are only touched
// from the hub actor.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  zerolog.Logger

	roomID string
	cid    string

	// Attachment, owned by the hub actor.
	role     string
	state    string
	joinedAt time.Time

	send     chan *protocol.Message
	sendOnce sync.Once
}

// NewClient builds a client for an upgraded connection. The client is not
// part of a room until the hub admits it.
func NewClient(hub *Hub, conn *websocket.Conn, roomID, cid string, log zerolog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		log:    log.With().Str("room", roomID).Str("cid", cid).Logger(),
		roomID: roomID,
		cid:    cid,
		send:   make(chan *protocol.Message, sendQueueSize),
	}
}

// Cid returns the stable client identifier bound at upgrade time.
func (c *Client) Cid() string { return c.cid }

// trySend queues a frame without ever blocking the hub actor. Slow
// consumers lose frames; peers recover via the sid fence.
func (c *Client) trySend(msg *protocol.Message) {
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Str("type", msg.Type).Msg("send queue full, dropping frame")
	}
}

// closeSend releases the write pump. Safe to call more than once.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

// closeWithReason sends a close frame with the given code and reason before
// tearing the connection down. Used when a reconnect with the same cid
// evicts this socket.
func (c *Client) closeWithReason(code int, reason string) {
	if c.conn == nil {
		return
	}
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}

// ReadPump pumps frames from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. All reads
// happen here so there is at most one reader per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		c.hub.inbound <- &inboundFrame{client: c, msg: &msg}
	}
}

// WritePump pumps frames from the send queue to the websocket connection
// and keeps the connection alive with pings. All writes happen here so
// there is at most one writer per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debug().Err(err).Msg("websocket write error")
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
