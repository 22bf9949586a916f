package relay

import (
	"net/http"
	"time"

	"github.com/habii/habii-server/internal/types"
)

// RoomKeyPrefix namespaces room keys so other room families can coexist later.
const RoomKeyPrefix = "creature:"

// RoomKey derives the room key for a creature.
func RoomKey(creatureId string) string {
	return RoomKeyPrefix + creatureId
}

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
	Trigger *Trigger `json:"trigger,omitempty"`
	UserId  int      `json:"-"`
	sess    *Session `json:"-"`
}

// GetUserId returns the user id of the message, falling back to the
// originating session's user.
func (m *ClientMessage) GetUserId() int {
	if m.UserId != 0 {
		return m.UserId
	}
	if m.sess != nil {
		return m.sess.user.Id
	}
	return 0
}

type Join struct {
	CreatureId string `json:"creature_id"`
}

type Leave struct {
	CreatureId string `json:"creature_id"`
}

// Trigger asks the relay to schedule a synchronized animation for every
// member of the sender's current room. UserId and Username are accepted on
// the wire but never trusted; the relay stamps the event with the session's
// verified identity.
type Trigger struct {
	Type       types.AnimationType `json:"type"`
	CreatureId string              `json:"creature_id"`
	Media      *MediaPayload       `json:"media,omitempty"`
	UserId     int                 `json:"user_id,omitempty"`
	Username   string              `json:"username,omitempty"`
}

type MediaPayload struct {
	Kind       string `json:"kind"`
	Src        string `json:"src"`
	DurationMs int    `json:"duration_ms"`
}

// AnimationEvent is the room-wide broadcast produced by a trigger. It is
// immutable once broadcast. ScheduledAt is the shared wall-clock instant, in
// milliseconds since the epoch, at which every room member starts playback.
type AnimationEvent struct {
	Type        types.AnimationType `json:"type"`
	CreatureId  string              `json:"creature_id"`
	UserId      int                 `json:"user_id"`
	Username    string              `json:"username,omitempty"`
	ScheduledAt int64               `json:"scheduled_at"`
	Media       *MediaPayload       `json:"media,omitempty"`
}

type ServerMessage struct {
	BaseMessage
	Response      *Response       `json:"response,omitempty"`
	Notification  *Notification   `json:"notification,omitempty"`
	AnimationSync *AnimationEvent `json:"animation_sync,omitempty"`
}

type Response struct {
	ResponseCode int            `json:"response_code"`
	Error        string         `json:"error,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

type Notification struct {
	UserJoined  *Presence    `json:"user_joined,omitempty"`
	UserLeft    *Presence    `json:"user_left,omitempty"`
	RoomMembers *RoomMembers `json:"room_members,omitempty"`
}

type Presence struct {
	RoomKey  string `json:"room_key"`
	UserId   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type Member struct {
	UserId   int    `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type RoomMembers struct {
	RoomKey string   `json:"room_key"`
	Members []Member `json:"members"`
}

// ErrCodeNotInRoom is carried in a failed trigger acknowledgment when the
// session has not joined a room.
const ErrCodeNotInRoom = "NotInRoom"

func NoErrOK(id int, data map[string]any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func ErrNotInRoom(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        ErrCodeNotInRoom,
		},
	}
}

func ErrInternalError(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusInternalServerError,
			Error:        "internal server error",
		},
	}
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusServiceUnavailable,
			Error:        "service unavailable",
		},
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
