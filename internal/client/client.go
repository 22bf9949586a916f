// Package client implements a Go client for the relay's websocket protocol.
// It correlates request acknowledgments by message id and fans synchronized
// animation events out to subscribers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/habii/habii-server/internal/relay"
	"github.com/habii/habii-server/internal/types"
)

// ErrNotInRoom is returned by Trigger when the client has not joined a room.
var ErrNotInRoom = errors.New("not in a room")

// ErrClosed is returned by calls made after the connection closed.
var ErrClosed = errors.New("connection closed")

type Client struct {
	conn *websocket.Conn
	log  *log.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextId   int
	pending  map[int]chan *relay.Response
	nextSub  int
	syncSubs map[int]func(*relay.AnimationEvent)
	closed   bool
	done     chan struct{}
}

// Dial connects to the relay at wsUrl, authenticating the handshake with the
// bearer token, and starts the read loop.
func Dial(ctx context.Context, wsUrl, token string, logger *log.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsUrl, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %w (status %d)", wsUrl, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing %s: %w", wsUrl, err)
	}

	c := &Client{
		conn:     conn,
		log:      logger,
		pending:  make(map[int]chan *relay.Response),
		syncSubs: make(map[int]func(*relay.AnimationEvent)),
		done:     make(chan struct{}),
	}

	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer c.teardown()

	for {
		var msg relay.ServerMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Printf("client: read error: %s", err)
			}
			return
		}

		switch {
		case msg.Response != nil:
			c.deliverResponse(msg.Id, msg.Response)
		case msg.AnimationSync != nil:
			c.deliverSync(msg.AnimationSync)
		case msg.Notification != nil:
			c.logNotification(msg.Notification)
		}
	}
}

func (c *Client) deliverResponse(id int, resp *relay.Response) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.log.Printf("client: unmatched response for id %d", id)
		return
	}
	ch <- resp
}

func (c *Client) deliverSync(ev *relay.AnimationEvent) {
	c.mu.Lock()
	subs := make([]func(*relay.AnimationEvent), 0, len(c.syncSubs))
	for _, fn := range c.syncSubs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Client) logNotification(n *relay.Notification) {
	switch {
	case n.UserJoined != nil:
		c.log.Printf("client: %s joined %s", n.UserJoined.Username, n.UserJoined.RoomKey)
	case n.UserLeft != nil:
		c.log.Printf("client: %s left %s", n.UserLeft.Username, n.UserLeft.RoomKey)
	case n.RoomMembers != nil:
		c.log.Printf("client: %s has %d members", n.RoomMembers.RoomKey, len(n.RoomMembers.Members))
	}
}

// call sends msg with a fresh id and waits for its acknowledgment.
func (c *Client) call(ctx context.Context, msg *relay.ClientMessage) (*relay.Response, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.nextId++
	id := c.nextId
	ch := make(chan *relay.Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	msg.Id = id
	msg.Timestamp = relay.Now()

	if err := c.writeMessage(msg); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp == nil {
			return nil, ErrClosed
		}
		return resp, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (c *Client) writeMessage(msg *relay.ClientMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

// JoinCreature joins the creature's room and returns the current membership.
func (c *Client) JoinCreature(ctx context.Context, creatureId string) ([]relay.Member, error) {
	resp, err := c.call(ctx, &relay.ClientMessage{
		Join: &relay.Join{CreatureId: creatureId},
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("join rejected: %s", resp.Error)
	}

	raw, ok := resp.Data["members"]
	if !ok {
		return nil, nil
	}

	// Data arrives as decoded JSON, so the member list round-trips through
	// json to regain its type.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	var members []relay.Member
	if err := json.Unmarshal(encoded, &members); err != nil {
		return nil, fmt.Errorf("decoding members: %w", err)
	}
	return members, nil
}

// Leave exits the creature's room. The relay sends no acknowledgment for a
// leave, so none is awaited.
func (c *Client) Leave(creatureId string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	return c.writeMessage(&relay.ClientMessage{
		BaseMessage: relay.BaseMessage{Timestamp: relay.Now()},
		Leave:       &relay.Leave{CreatureId: creatureId},
	})
}

// Trigger requests a synchronized animation for every member of the current
// room, including this client. Returns ErrNotInRoom if no room was joined.
func (c *Client) Trigger(ctx context.Context, animation types.AnimationType, creatureId string, media *relay.MediaPayload) error {
	resp, err := c.call(ctx, &relay.ClientMessage{
		Trigger: &relay.Trigger{
			Type:       animation,
			CreatureId: creatureId,
			Media:      media,
		},
	})
	if err != nil {
		return err
	}
	if resp.Error == relay.ErrCodeNotInRoom {
		return ErrNotInRoom
	}
	if resp.Error != "" {
		return fmt.Errorf("trigger rejected: %s", resp.Error)
	}
	return nil
}

// OnAnimationSync registers fn for every synchronized animation event. The
// returned function removes the subscription.
func (c *Client) OnAnimationSync(fn func(*relay.AnimationEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.syncSubs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.syncSubs, id)
	}
}

// Done is closed when the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.conn.Close()
}
