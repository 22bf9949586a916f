package relay

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/habii/habii-server/internal/types"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingInterval = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Session is one authenticated websocket connection. Its Read and Write pumps
// only move bytes; all protocol state, including currentRoom, is owned by the
// relay's event loop.
type Session struct {
	id          string
	conn        *websocket.Conn
	relay       *RelayServer
	log         *log.Logger
	user        types.User
	send        chan *ServerMessage
	currentRoom *Room
	stop        chan struct{}
}

func NewSession(conn *websocket.Conn, rs *RelayServer, user types.User, logger *log.Logger) *Session {
	return &Session{
		id:    uuid.NewString(),
		conn:  conn,
		relay: rs,
		log:   logger,
		user:  user,
		send:  make(chan *ServerMessage, 256),
		stop:  make(chan struct{}),
	}
}

// Write pumps messages from the send channel to the websocket connection and
// keeps the connection alive with periodic pings.
func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.sendMessage(msg); err != nil {
				s.log.Printf("failed writing message to %s: %s", s.id, err)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.stop:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			)
			return
		}
	}
}

// Read pumps messages from the websocket connection to the relay's event
// loop. When the connection drops the session deregisters itself, which
// produces the same room departure as an explicit leave.
func (s *Session) Read() {
	defer func() {
		s.relay.DeRegisterSession(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("unexpected close from %s: %s", s.id, err)
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Printf("failed parsing message from %s: %s", s.id, err)
			s.queueMessage(ErrInvalidMessage(msg.Id))
			continue
		}

		msg.sess = s
		msg.UserId = s.user.Id
		msg.Timestamp = Now()

		select {
		case s.relay.messageChan <- &msg:
		default:
			s.queueMessage(ErrServiceUnavailable(msg.Id))
		}
	}
}

// queueMessage enqueues msg for delivery without blocking. A session that
// cannot keep up has its message dropped rather than stalling the event loop.
func (s *Session) queueMessage(msg *ServerMessage) bool {
	select {
	case s.send <- msg:
		return true
	default:
		s.log.Printf("send buffer full for %s, dropping message", s.id)
		return false
	}
}

func (s *Session) sendMessage(msg *ServerMessage) error {
	data, err := serializeMessage(msg)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// stopSession signals the write pump to close the connection. Called from the
// relay's event loop during shutdown.
func (s *Session) stopSession() {
	close(s.stop)
}
