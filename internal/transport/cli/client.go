package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/service/relay"
)

const closeTimeout = 5 * time.Second

var ErrConnectionClosed = errors.New("connection closed")

// ReplyError is an {error} frame sent by the relay.
type ReplyError struct {
	Message string
}

func (e *ReplyError) Error() string {
	return "relay: " + e.Message
}

// Client talks to a relay over one websocket. Ask calls are serialized.
//
// The reader never blocks: frames are queued until an Ask consumes them, so
// pings keep being answered while nobody is asking.
type Client struct {
	ws *websocket.Conn

	mu      sync.Mutex
	queue   []relay.ServerMessage
	readErr error
	notify  chan struct{}
	closed  chan struct{}

	askMu sync.Mutex
	// stale counts replies abandoned by cancelled Ask calls whose frames are
	// still to come. Guarded by askMu.
	stale int

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to url and identifies as user when user.ID is set.
func Dial(ctx context.Context, url string, user core.User) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	c := &Client{
		ws:     ws,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	go c.readLoop()

	if strings.TrimSpace(user.ID) != "" {
		if err := c.write(relay.ClientInit{Type: relay.TypeInit, User: user}); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("send init: %w", err)
		}
	}
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.closed)

	for {
		var msg relay.ServerMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.readErr = err
			return
		}
		c.mu.Lock()
		c.queue = append(c.queue, msg)
		c.mu.Unlock()

		select {
		case c.notify <- struct{}{}:
		default:
		}
	}
}

func (c *Client) pop() (relay.ServerMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return relay.ServerMessage{}, false
	}
	msg := c.queue[0]
	c.queue = c.queue[1:]
	return msg, true
}

// next waits for the next queued frame.
func (c *Client) next(ctx context.Context) (relay.ServerMessage, error) {
	for {
		if msg, ok := c.pop(); ok {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return relay.ServerMessage{}, ctx.Err()
		case <-c.notify:
		case <-c.closed:
			if msg, ok := c.pop(); ok {
				return msg, nil
			}
			return relay.ServerMessage{}, c.lostErr()
		}
	}
}

// skipStale reports whether msg belongs to an abandoned reply.
func (c *Client) skipStale(msg relay.ServerMessage) bool {
	if c.stale == 0 {
		return false
	}
	if isTerminal(msg) {
		c.stale--
	}
	return true
}

func isTerminal(msg relay.ServerMessage) bool {
	return msg.Error != nil || msg.Reply != nil || msg.IsEnd()
}

func (c *Client) write(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(closeTimeout))
	return c.ws.WriteJSON(v)
}

// Ask sends message and returns the whole reply. onPartial, when set, sees
// each streamed piece as it arrives.
//
// An error frame the relay sent unprompted, such as a rejected init, is
// returned as a ReplyError before message is sent.
func (c *Client) Ask(ctx context.Context, message string, onPartial func(string)) (string, error) {
	c.askMu.Lock()
	defer c.askMu.Unlock()

	for {
		msg, ok := c.pop()
		if !ok {
			break
		}
		if c.skipStale(msg) {
			continue
		}
		if msg.Error != nil {
			return "", &ReplyError{Message: *msg.Error}
		}
	}

	if err := c.write(relay.ClientContinue{Type: relay.TypeContinue, Message: message}); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	var reply strings.Builder
	for {
		msg, err := c.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.stale++
			}
			return reply.String(), err
		}
		if c.skipStale(msg) {
			continue
		}
		switch {
		case msg.Error != nil:
			return reply.String(), &ReplyError{Message: *msg.Error}
		case msg.Reply != nil:
			return *msg.Reply, nil
		case msg.IsEnd():
			return reply.String(), nil
		case msg.Partial != nil:
			reply.WriteString(*msg.Partial)
			if onPartial != nil {
				onPartial(*msg.Partial)
			}
		}
	}
}

// End asks the relay to close the session and waits for its closing
// handshake.
func (c *Client) End(ctx context.Context) error {
	if err := c.write(relay.ClientEnd{Type: relay.TypeEnd}); err != nil {
		_ = c.Close()
		return fmt.Errorf("send end: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, closeTimeout)
	defer cancel()

	select {
	case <-c.closed:
	case <-ctx.Done():
	}
	return c.Close()
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
		<-c.closed
	})
	return c.closeErr
}

func (c *Client) lostErr() error {
	if c.readErr == nil || websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure) {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, c.readErr)
}
