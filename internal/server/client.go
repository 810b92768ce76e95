package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufSize  = 256             // buffered send channel capacity
	writeTimeout = 10 * time.Second
	pongWait     = 60 * time.Second // read deadline; refreshed on every pong
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 8 << 10 // inbound frame size limit
)

// sessionState tracks where a connection is in its lifecycle.  A session
// starts joining (its first frame is the requested username) and becomes
// active once the registry admits it.  There is no way back.
type sessionState int

const (
	stateJoining sessionState = iota
	stateActive
)

// Client represents one websocket connection.
//
// Two goroutines are spawned per client:
//
//	readPump  – reads text frames from the websocket and dispatches them
//	            to the Server for routing.
//	writePump – drains the send channel, writes frames to the websocket,
//	            and keeps the connection alive with periodic pings.
//
// This decouples reading from writing so a slow writer never blocks readers.
type Client struct {
	id     string // unique connection identifier
	server *Server
	conn   *websocket.Conn

	// Outbound frames.  enqueue never blocks: a full buffer means the
	// client stopped draining, and the session is dropped instead.
	sendMu     sync.RWMutex
	send       chan []byte
	sendClosed bool
	closeOnce  sync.Once

	// Session identity.  readPump sets these on a successful join; other
	// goroutines read them during fan-out.
	mu       sync.RWMutex
	state    sessionState
	username string
}

func newClient(id string, conn *websocket.Conn, srv *Server) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		server: srv,
		send:   make(chan []byte, sendBufSize),
		state:  stateJoining,
	}
}

// Username returns the session's name, or "" while it is still joining.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Client) isActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == stateActive
}

func (c *Client) setActive(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateActive
	c.username = username
}

// readPump reads frames from the websocket and dispatches them to the
// server.  When the connection drops — client quit, network close, or a
// server-initiated close — it tears the session down exactly once.
func (c *Client) readPump() {
	defer c.server.dropSession(c)

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[server] read error on %s: %v", c.id, err)
			}
			return
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		c.server.handleFrame(c, text)
	}
}

// writePump drains the send channel onto the websocket.  A write deadline
// is set for every write so a stuck peer cannot block the goroutine
// forever.  When the send channel is closed it writes a close frame and
// releases the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues a text frame for delivery.  Sends to a closed session are
// skipped silently; a session whose buffer is full has stopped draining and
// is dropped rather than allowed to buffer without bound.
func (c *Client) enqueue(text string) {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.sendClosed {
		return
	}
	select {
	case c.send <- []byte(text):
	default:
		log.Printf("[server] dropping slow session %s (%s)", c.Username(), c.id)
		go c.close()
	}
}

// enqueueJSON marshals v and queues it for delivery.
func (c *Client) enqueueJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(string(data))
}

// close shuts the outbound side down.  writePump drains whatever is already
// queued, writes a close frame, and closes the websocket, which in turn
// unblocks readPump and triggers teardown.  Safe to call more than once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		c.sendClosed = true
		close(c.send)
		c.sendMu.Unlock()
	})
}
