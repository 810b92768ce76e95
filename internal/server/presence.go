package server

import "chatrelay/internal/protocol"

// refreshPresence pushes a fresh roster to every registered session
// whenever membership changes.  Each recipient's list holds everyone except
// itself.  There is no diffing — it is always a full resend, which is
// quadratic in the number of sessions and perfectly fine at this scale.
func (s *Server) refreshPresence() {
	sessions := s.registry.Sessions()
	names := make([]string, 0, len(sessions))
	for name := range sessions {
		names = append(names, name)
	}

	for name, c := range sessions {
		c.enqueueJSON(protocol.NewUserList(s.without(names, name)))
	}
}

// othersFor returns every registered username except own.
func (s *Server) othersFor(own string) []string {
	return s.without(s.registry.Usernames(), own)
}

func (s *Server) without(names []string, own string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != own {
			out = append(out, n)
		}
	}
	return out
}
