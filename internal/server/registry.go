package server

import (
	"errors"
	"sync"
)

// ErrUsernameTaken is returned by Register when the requested name already
// maps to a live session.
var ErrUsernameTaken = errors.New("username already taken")

// Registry is the single source of truth for who is online: a mapping from
// username to its live session.  A sync.RWMutex serialises all access, so
// the check-existence + insert step in Register is atomic — two sessions
// racing to claim the same name resolve to exactly one winner.
//
// The registry is mutated in exactly two places: Register on a successful
// join and Unregister on connection close.  Handler code never touches the
// map directly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Client // keyed by username
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Client)}
}

// Register claims username for c.  It fails with ErrUsernameTaken when the
// name is already held; the caller decides what to do with the loser.
func (r *Registry) Register(username string, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[username]; exists {
		return ErrUsernameTaken
	}
	r.sessions[username] = c
	return nil
}

// Unregister removes username from the registry.  Removing an absent name
// is a no-op, so close paths can call it unconditionally.
func (r *Registry) Unregister(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

// Lookup returns the session holding username, if any.
func (r *Registry) Lookup(username string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[username]
	return c, ok
}

// All returns a snapshot of every registered session.  The snapshot is
// taken under the read lock; sessions may come and go afterwards, which is
// fine for fan-out (sends to closed sessions are skipped).
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.sessions))
	for _, c := range r.sessions {
		out = append(out, c)
	}
	return out
}

// Sessions returns a username → session snapshot, for fan-out paths that
// need both halves of the mapping.
func (r *Registry) Sessions() map[string]*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Client, len(r.sessions))
	for name, c := range r.sessions {
		out[name] = c
	}
	return out
}

// Usernames returns a snapshot of every registered username.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		out = append(out, name)
	}
	return out
}

// Len reports how many sessions are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
