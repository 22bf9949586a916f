package relay

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/habii/habii-server/internal/stats"
	"github.com/habii/habii-server/internal/types"
)

// DefaultSyncOffset is the fixed forward-scheduling delay added to every
// broadcast event's target time. It must exceed typical one-way delivery
// latency to all room members so that the shared instant is still in the
// future when the slowest member receives the event.
const DefaultSyncOffset = 300 * time.Millisecond

type stopRequest struct {
	done chan struct{}
}

// RelayServer converts member trigger requests into room-wide,
// time-synchronized animation broadcasts. The rooms map, every room's
// membership set and every session's currentRoom field are owned exclusively
// by the Run loop: register, deregister, join, leave, trigger and broadcast
// are all turns of that loop, so per-room operations are linearized without
// locks.
type RelayServer struct {
	log        *log.Logger
	clock      clockwork.Clock
	syncOffset time.Duration
	stats      stats.StatsProvider

	rooms    map[string]*Room
	sessions map[*Session]struct{}

	registerChan   chan *Session
	deRegisterChan chan *Session
	messageChan    chan *ClientMessage
	stop           chan stopRequest
}

func NewRelayServer(logger *log.Logger, clock clockwork.Clock, syncOffset time.Duration, su stats.StatsProvider) (*RelayServer, error) {
	if syncOffset <= 0 {
		syncOffset = DefaultSyncOffset
	}

	for _, metric := range []string{
		"NumActiveSessions",
		"NumActiveRooms",
		"NumAnimationsRelayed",
		"NumTriggersRejected",
	} {
		su.RegisterMetric(metric)
	}

	return &RelayServer{
		log:            logger,
		clock:          clock,
		syncOffset:     syncOffset,
		stats:          su,
		rooms:          make(map[string]*Room),
		sessions:       make(map[*Session]struct{}),
		registerChan:   make(chan *Session),
		deRegisterChan: make(chan *Session),
		messageChan:    make(chan *ClientMessage, 256),
		stop:           make(chan stopRequest),
	}, nil
}

// SyncOffset returns the relay's fixed forward-scheduling delay.
func (rs *RelayServer) SyncOffset() time.Duration {
	return rs.syncOffset
}

func (rs *RelayServer) Run() {
	for {
		select {
		case sess := <-rs.registerChan:
			rs.addSession(sess)
		case sess := <-rs.deRegisterChan:
			rs.removeSession(sess)
		case msg := <-rs.messageChan:
			rs.handleMessage(msg)
		case req := <-rs.stop:
			rs.log.Println("relay: shutting down sessions")
			for sess := range rs.sessions {
				rs.removeSession(sess)
				sess.stopSession()
			}
			close(req.done)
			return
		}
	}
}

// RegisterSession hands a freshly authenticated session to the event loop.
func (rs *RelayServer) RegisterSession(s *Session) {
	rs.registerChan <- s
}

// DeRegisterSession removes a session after its transport closed. The
// session's abrupt disconnection produces the same "left" notification as an
// explicit leave.
func (rs *RelayServer) DeRegisterSession(s *Session) {
	rs.deRegisterChan <- s
}

func (rs *RelayServer) Shutdown(ctx context.Context) error {
	req := stopRequest{done: make(chan struct{})}

	select {
	case rs.stop <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rs *RelayServer) addSession(s *Session) {
	rs.log.Printf("relay: adding connection %s for %q", s.id, s.user.Username)
	rs.sessions[s] = struct{}{}
	rs.stats.Incr("NumActiveSessions")
}

func (rs *RelayServer) removeSession(s *Session) {
	if _, ok := rs.sessions[s]; !ok {
		return
	}

	rs.log.Printf("relay: removing connection %s for %q", s.id, s.user.Username)
	if s.currentRoom != nil {
		rs.leaveRoom(s, s.currentRoom)
	}
	delete(rs.sessions, s)
	rs.stats.Decr("NumActiveSessions")
}

func (rs *RelayServer) handleMessage(msg *ClientMessage) {
	if msg.sess == nil {
		rs.log.Println("relay: dropping message with no session")
		return
	}

	switch {
	case msg.Join != nil:
		rs.handleJoin(msg)
	case msg.Leave != nil:
		rs.handleLeave(msg)
	case msg.Trigger != nil:
		rs.handleTrigger(msg)
	default:
		msg.sess.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (rs *RelayServer) handleJoin(msg *ClientMessage) {
	s := msg.sess
	key := RoomKey(msg.Join.CreatureId)

	// A session belongs to at most one room: joining a new room implicitly
	// leaves the previous one, notifying its remaining members first.
	if s.currentRoom != nil && s.currentRoom.key != key {
		rs.leaveRoom(s, s.currentRoom)
	}

	room, ok := rs.rooms[key]
	if !ok {
		room = newRoom(key)
		rs.rooms[key] = room
		rs.stats.Incr("NumActiveRooms")
		rs.log.Printf("relay: opened room %q", key)
	}

	if _, joined := room.sessions[s]; !joined {
		room.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{Timestamp: Now()},
			Notification: &Notification{
				UserJoined: &Presence{
					RoomKey:  key,
					UserId:   s.user.Id,
					Username: s.user.Username,
				},
			},
		})
		room.addSession(s)
	}

	members := room.members()
	s.queueMessage(NoErrOK(msg.Id, map[string]any{
		"room_key": key,
		"members":  members,
	}))
	s.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			RoomMembers: &RoomMembers{
				RoomKey: key,
				Members: members,
			},
		},
	})
}

func (rs *RelayServer) handleLeave(msg *ClientMessage) {
	s := msg.sess
	key := RoomKey(msg.Leave.CreatureId)

	// Leaving a room the session is not in is a no-op; leave carries no reply.
	if s.currentRoom == nil || s.currentRoom.key != key {
		return
	}

	rs.leaveRoom(s, s.currentRoom)
}

// leaveRoom removes s from room, notifies the remaining members and unloads
// the room if it emptied. Must run on the event loop.
func (rs *RelayServer) leaveRoom(s *Session, room *Room) {
	room.removeSession(s)

	if room.empty() {
		delete(rs.rooms, room.key)
		rs.stats.Decr("NumActiveRooms")
		rs.log.Printf("relay: closed room %q", room.key)
		return
	}

	room.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			UserLeft: &Presence{
				RoomKey:  room.key,
				UserId:   s.user.Id,
				Username: s.user.Username,
			},
		},
	})
}

func (rs *RelayServer) handleTrigger(msg *ClientMessage) {
	s := msg.sess

	if s.currentRoom == nil {
		rs.stats.Incr("NumTriggersRejected")
		s.queueMessage(ErrNotInRoom(msg.Id))
		return
	}

	if !msg.Trigger.Type.Valid() {
		rs.stats.Incr("NumTriggersRejected")
		s.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	// Identity always comes from the session's verified user, never from
	// client-supplied trigger fields.
	event := &AnimationEvent{
		Type:        msg.Trigger.Type,
		CreatureId:  msg.Trigger.CreatureId,
		UserId:      s.user.Id,
		Username:    s.user.Username,
		ScheduledAt: rs.clock.Now().Add(rs.syncOffset).UnixMilli(),
	}
	if event.Type == types.AnimationMedia && msg.Trigger.Media != nil {
		media := *msg.Trigger.Media
		event.Media = &media
	}

	// The sender receives the event too, so its own playback starts at the
	// same instant as everyone else's.
	s.currentRoom.broadcast(&ServerMessage{
		BaseMessage:   BaseMessage{Timestamp: Now()},
		AnimationSync: event,
	})

	rs.stats.Incr("NumAnimationsRelayed")
	rs.log.Printf("relay: %s animation triggered by user %d for creature %q", event.Type, event.UserId, event.CreatureId)

	s.queueMessage(NoErrAccepted(msg.Id))
}
