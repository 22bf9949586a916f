package relay

// Room is the set of sessions currently synchronized around one creature. A
// room has no persisted identity of its own: it exists exactly while it has
// members, and its key may be rejoined at any time after it empties.
//
// Rooms are owned exclusively by the relay's event loop (see RelayServer.Run);
// none of these methods take locks and none may be called from any other
// goroutine.
type Room struct {
	key      string
	sessions map[*Session]struct{}
}

func newRoom(key string) *Room {
	return &Room{
		key:      key,
		sessions: make(map[*Session]struct{}),
	}
}

func (r *Room) addSession(s *Session) {
	r.sessions[s] = struct{}{}
	s.currentRoom = r
}

func (r *Room) removeSession(s *Session) {
	delete(r.sessions, s)
	if s.currentRoom == r {
		s.currentRoom = nil
	}
}

func (r *Room) empty() bool {
	return len(r.sessions) == 0
}

// members returns a snapshot of the room's membership.
func (r *Room) members() []Member {
	members := make([]Member, 0, len(r.sessions))
	for s := range r.sessions {
		members = append(members, Member{
			UserId:   s.user.Id,
			Username: s.user.Username,
		})
	}
	return members
}

// broadcast queues msg to every session in the room. Delivery order to each
// member follows the event loop's processing order, giving a total order per
// room.
func (r *Room) broadcast(msg *ServerMessage) {
	for s := range r.sessions {
		s.queueMessage(msg)
	}
}
