package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/habii/habii-server/internal/testutil"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		s := &Session{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := s.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-s.send:
			assert.NotNil(t, msg, "expected a message to be queued")
		default:
			t.Error("expected a message to be queued, but none was")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		s := &Session{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		s.send <- &ServerMessage{} // Pre-fill the send channel to simulate a full channel
		res := s.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_stopSession(t *testing.T) {
	s := &Session{
		stop: make(chan struct{}),
	}

	s.stopSession()

	select {
	case <-s.stop:
		// Channel is closed as expected
	default:
		t.Error("expected stop channel to be closed")
	}
}
