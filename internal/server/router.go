package server

import (
	"encoding/json"
	"fmt"
	"log"

	"chatrelay/internal/protocol"
)

// handleFrame routes one inbound frame for c.  It is the per-frame failure
// boundary: a panic while processing is logged and answered with a generic
// notice, and the session lives on.  One session's failure never affects
// another.
func (s *Server) handleFrame(c *Client, text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[server] panic handling frame from %s: %v", c.id, r)
			c.enqueue(protocol.Notice("An error occurred."))
		}
	}()

	if c.isActive() {
		s.handleMessage(c, text)
		return
	}
	s.handleJoin(c, text)
}

// handleJoin interprets the session's first frame as the requested
// username.  The frame is raw text, never JSON.  A rejected session is
// closed without ever being admitted; the holder of the name is untouched.
func (s *Server) handleJoin(c *Client, name string) {
	if err := protocol.ValidateUsername(name); err != nil {
		c.enqueue(protocol.Notice(fmt.Sprintf("Invalid username: %v.", err)))
		c.close()
		return
	}

	if err := s.registry.Register(name, c); err != nil {
		s.metrics.joinRejections.Inc()
		c.enqueue(protocol.Notice("Username already taken."))
		c.close()
		log.Printf("[server] join rejected for %q (%s): %v", name, c.id, err)
		return
	}

	c.setActive(name)
	s.metrics.sessionsActive.Inc()

	// The newcomer gets its roster snapshot first, then everyone hears the
	// announcement and gets a fresh roster of their own.
	c.enqueueJSON(protocol.NewUserList(s.othersFor(name)))
	s.broadcast(protocol.ServerSender, fmt.Sprintf("%s has joined the chat", name), "")
	s.refreshPresence()

	log.Printf("[server] +session %s (%s)  online=%d", name, c.id, s.registry.Len())
}

// handleMessage routes one frame from an active session: the quit command,
// a JSON routed message, or — when the frame is not a well-formed routed
// message — the whole raw frame as a public broadcast body.
func (s *Server) handleMessage(c *Client, text string) {
	if text == protocol.QuitCommand {
		c.close()
		return
	}

	target, body := "", text
	var msg protocol.Message
	if err := json.Unmarshal([]byte(text), &msg); err == nil && msg.Type == protocol.TypeMessage {
		target, body = msg.Target, msg.Body
	}

	if target != "" && target != protocol.PublicTarget {
		if _, ok := s.registry.Lookup(target); !ok {
			c.enqueue(protocol.Notice(fmt.Sprintf("User '%s' not found.", target)))
			return
		}
		s.metrics.messagesRelayed.WithLabelValues("private").Inc()
	} else {
		s.metrics.messagesRelayed.WithLabelValues("public").Inc()
	}

	s.broadcast(c.Username(), body, target)
}

// broadcast forwards body from sender to its recipients: every registered
// session except the sender, or — when target names a specific user — that
// one session only.  The sender is always excluded, so a self-targeted
// message vanishes silently (legacy relay behavior, kept for
// compatibility).
func (s *Server) broadcast(sender, body, target string) {
	private := target != "" && target != protocol.PublicTarget
	frame := protocol.RelayFrame(sender, body, private)

	for name, peer := range s.registry.Sessions() {
		if name == sender {
			continue
		}
		if private && name != target {
			continue
		}
		peer.enqueue(frame)
	}
}

// dropSession tears c down after its readPump exits.  Sessions that were
// admitted are unregistered and announced; sessions that never joined are
// simply released.
func (s *Server) dropSession(c *Client) {
	c.close()

	if !c.isActive() {
		return
	}
	name := c.Username()
	s.registry.Unregister(name)
	s.metrics.sessionsActive.Dec()

	s.broadcast(protocol.ServerSender, fmt.Sprintf("*** %s has left the chat ***", name), "")
	s.refreshPresence()

	log.Printf("[server] -session %s (%s)  online=%d", name, c.id, s.registry.Len())
}
