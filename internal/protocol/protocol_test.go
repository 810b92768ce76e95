package protocol

import (
	"reflect"
	"testing"
)

func TestRelayFrame(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		body    string
		private bool
		want    string
	}{
		{"public", "alice", "hi", false, "[alice -> all] hi"},
		{"private", "bob", "hey", true, "[bob -> you] hey"},
		{"server announcement", "server", "alice has joined the chat", false,
			"[server -> all] alice has joined the chat"},
		{"empty body", "alice", "", false, "[alice -> all] "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelayFrame(tt.sender, tt.body, tt.private); got != tt.want {
				t.Errorf("RelayFrame() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotice(t *testing.T) {
	if got := Notice("Username already taken."); got != "[server] Username already taken." {
		t.Errorf("Notice() = %q", got)
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Frame
	}{
		{
			"userlist",
			`{"type":"userlist","users":["alice","bob"]}`,
			Frame{Kind: FrameUserList, Users: []string{"alice", "bob"}},
		},
		{
			"empty userlist",
			`{"type":"userlist","users":[]}`,
			Frame{Kind: FrameUserList, Users: []string{}},
		},
		{
			"userlist with null users",
			`{"type":"userlist"}`,
			Frame{Kind: FrameUserList, Users: []string{}},
		},
		{
			"server notice",
			"[server] Username already taken.",
			Frame{Kind: FrameSystem, Sender: "server", Body: "Username already taken."},
		},
		{
			"public relay",
			"[alice -> all] hello",
			Frame{Kind: FrameRelay, Sender: "alice", Target: "all", Body: "hello"},
		},
		{
			"private relay",
			"[bob -> you] hey",
			Frame{Kind: FrameRelay, Sender: "bob", Target: "you", Body: "hey"},
		},
		{
			"server announcement is a relay",
			"[server -> all] bob has joined the chat",
			Frame{Kind: FrameRelay, Sender: "server", Target: "all", Body: "bob has joined the chat"},
		},
		{
			"bare tag has no target",
			"[carol] yo",
			Frame{Kind: FrameRelay, Sender: "carol", Target: "", Body: "yo"},
		},
		{
			"untagged text",
			"just some text",
			Frame{Kind: FramePlain, Body: "just some text"},
		},
		{
			"unclosed bracket",
			"[oops no close",
			Frame{Kind: FramePlain, Body: "[oops no close"},
		},
		{
			"non-userlist json",
			`{"type":"message","body":"hi","target":""}`,
			Frame{Kind: FramePlain, Body: `{"type":"message","body":"hi","target":""}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFrame([]byte(tt.in)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseFrame(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConversationKey(t *testing.T) {
	tests := []struct {
		name string
		in   Frame
		want string
	}{
		{"private goes to sender's thread",
			Frame{Kind: FrameRelay, Sender: "bob", Target: "you"}, "bob"},
		{"public broadcast",
			Frame{Kind: FrameRelay, Sender: "alice", Target: "all"}, "public"},
		{"unknown target defaults to public",
			Frame{Kind: FrameRelay, Sender: "alice", Target: "weird"}, "public"},
		{"system notice",
			Frame{Kind: FrameSystem, Sender: "server"}, "public"},
		{"plain text",
			Frame{Kind: FramePlain}, "public"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConversationKey(tt.in); got != tt.want {
				t.Errorf("ConversationKey(%+v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"alice", "bob_42", "Ünïcode", "a"}
	for _, name := range valid {
		if err := ValidateUsername(name); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{
		"",
		"[forged -> you]",
		"has space",
		"tab\there",
		"ctrl\x01char",
		"way-too-long-username-that-overruns-the-limit",
	}
	for _, name := range invalid {
		if err := ValidateUsername(name); err == nil {
			t.Errorf("ValidateUsername(%q) = nil, want error", name)
		}
	}
}
