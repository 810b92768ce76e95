// Package protocol defines the wire format shared by the relay server and
// its clients.
//
// The protocol is deliberately asymmetric.  Client → server frames are
// either raw text (the join username, the "/quit" command) or a small JSON
// envelope for routed messages.  Server → client frames are either a JSON
// roster update or plain display text whose leading bracket tag encodes the
// sender and logical recipient.  ParseFrame decodes any inbound frame into
// a structured Frame exactly once, so nothing downstream has to re-parse
// tags.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

const (
	// TypeMessage is the JSON type of a client → server routed message.
	TypeMessage = "message"
	// TypeUserList is the JSON type of a server → client roster update.
	TypeUserList = "userlist"

	// QuitCommand is the literal frame that ends a session.
	QuitCommand = "/quit"
	// PublicTarget addresses every session; an empty target means the same.
	PublicTarget = "all"

	// ServerSender is the sender name on join/leave announcements.
	ServerSender = "server"
	// NoticePrefix marks direct server notices (rejections, errors).
	NoticePrefix = "[server] "

	// PublicConversation is the bucket key for broadcast traffic.
	PublicConversation = "public"

	// MaxUsernameLen bounds the accepted username length in bytes.
	MaxUsernameLen = 32
)

// Message is the client → server routed-message envelope.  An empty Target
// (or PublicTarget) requests a public broadcast; anything else names a
// single recipient.
type Message struct {
	Type   string `json:"type"`
	Body   string `json:"body"`
	Target string `json:"target"`
}

// UserList is the server → client roster frame.  Users holds every online
// username except the recipient's own.
type UserList struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// NewUserList builds a roster frame for the given usernames.
func NewUserList(users []string) UserList {
	if users == nil {
		users = []string{}
	}
	return UserList{Type: TypeUserList, Users: users}
}

// RelayFrame renders the forwarded form of a chat message.  Private
// deliveries are tagged "you" so the receiving side can file them under the
// sender's conversation; everything else is tagged "all".
func RelayFrame(sender, body string, private bool) string {
	recipient := PublicTarget
	if private {
		recipient = "you"
	}
	return fmt.Sprintf("[%s -> %s] %s", sender, recipient, body)
}

// Notice renders a direct server notice ("[server] ..." text frame).
func Notice(msg string) string {
	return NoticePrefix + msg
}

// ---------------------------------------------------------------------------
// Inbound frame parsing (client side)
// ---------------------------------------------------------------------------

// FrameKind classifies a parsed server → client frame.
type FrameKind int

const (
	// FramePlain is untagged display text; it belongs to the public feed.
	FramePlain FrameKind = iota
	// FrameUserList replaces the online-user roster.
	FrameUserList
	// FrameSystem is a direct server notice ("[server] ..." prefix).
	FrameSystem
	// FrameRelay is a forwarded chat message ("[sender -> target] body").
	FrameRelay
)

// Frame is the structured form of one server → client frame.
type Frame struct {
	Kind   FrameKind
	Sender string   // relay frames only
	Target string   // "you", "all", or whatever the tag carried
	Body   string   // display text without the tag
	Users  []string // userlist frames only
}

// ParseFrame decodes a raw server → client frame.  It never fails: frames
// that match no known shape come back as FramePlain with the whole text as
// the body.
func ParseFrame(data []byte) Frame {
	text := string(data)

	// Roster updates are the only JSON the server sends.
	var ul UserList
	if err := json.Unmarshal(data, &ul); err == nil && ul.Type == TypeUserList {
		users := ul.Users
		if users == nil {
			users = []string{}
		}
		return Frame{Kind: FrameUserList, Users: users}
	}

	if rest, ok := strings.CutPrefix(text, "[server]"); ok {
		return Frame{Kind: FrameSystem, Sender: ServerSender, Body: strings.TrimSpace(rest)}
	}

	if sender, target, body, ok := splitRelayTag(text); ok {
		return Frame{Kind: FrameRelay, Sender: sender, Target: target, Body: body}
	}

	return Frame{Kind: FramePlain, Body: text}
}

// splitRelayTag splits a leading "[sender -> target]" tag off text.
func splitRelayTag(text string) (sender, target, body string, ok bool) {
	if !strings.HasPrefix(text, "[") {
		return "", "", "", false
	}
	end := strings.Index(text, "]")
	if end < 0 {
		return "", "", "", false
	}
	tag := text[1:end]
	body = strings.TrimSpace(text[end+1:])

	sender, target, found := strings.Cut(tag, " ->")
	if !found {
		// A bare "[name]" tag still counts; it has no target.
		return strings.TrimSpace(sender), "", body, true
	}
	return strings.TrimSpace(sender), strings.TrimSpace(target), body, true
}

// ConversationKey maps a parsed frame to the client-side bucket it belongs
// in: the sender's private thread for "you"-targeted relays, the public
// feed for everything else.
func ConversationKey(f Frame) string {
	if f.Kind == FrameRelay && f.Target == "you" && f.Sender != "" {
		return f.Sender
	}
	return PublicConversation
}

// ValidateUsername bounds what the relay accepts as a name.  Names may not
// be empty, exceed MaxUsernameLen bytes, contain whitespace or control
// characters, or open with '[' (which would let a user forge a frame tag).
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username is empty")
	}
	if len(name) > MaxUsernameLen {
		return fmt.Errorf("username exceeds %d bytes", MaxUsernameLen)
	}
	if strings.HasPrefix(name, "[") {
		return fmt.Errorf("username may not start with '['")
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("username contains whitespace or control characters")
		}
	}
	return nil
}
