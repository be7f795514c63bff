// Package channel implements the client side of the per-board live channel:
// a websocket subscription carrying object mutation broadcasts, ephemeral
// move events, cursors and presence.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"realtime-canvas/internal/model"
)

// Status of the live channel connection.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
)

const (
	writeTimeout     = 5 * time.Second
	initialBackoff   = time.Second
	maxBackoff       = 30 * time.Second
	messageQueueSize = 256
)

// Client is a reconnecting websocket subscriber to one board's live topic.
type Client struct {
	url string

	messages chan model.LiveMessage
	status   chan Status

	mu   sync.Mutex
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial starts a live channel client for the given ws URL (including board id
// and token query). The connection is maintained in the background with
// exponential backoff; consume Messages and Status to observe it.
func Dial(ctx context.Context, url string) *Client {
	cctx, cancel := context.WithCancel(ctx)
	c := &Client{
		url:      url,
		messages: make(chan model.LiveMessage, messageQueueSize),
		status:   make(chan Status, 8),
		ctx:      cctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go c.run()
	return c
}

// Messages delivers inbound live messages. Closed when the client closes.
func (c *Client) Messages() <-chan model.LiveMessage {
	return c.messages
}

// Status delivers connection state transitions.
func (c *Client) Status() <-chan Status {
	return c.status
}

// Publish sends one message on the live channel. Returns an error when the
// channel is not currently connected; callers treat send failures as
// fire-and-forget.
func (c *Client) Publish(msg model.LiveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.New("live channel not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close tears the subscription down. Must complete before a new client for
// the same board is created, otherwise messages are delivered twice.
func (c *Client) Close() error {
	c.cancel()

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()

	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	defer close(c.messages)

	backoff := initialBackoff
	first := true

	for {
		if c.ctx.Err() != nil {
			return
		}
		if !first {
			c.pushStatus(StatusReconnecting)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		first = false

		conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
		if err != nil {
			log.Printf("[Channel] Dial failed: %v", err)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		backoff = initialBackoff
		c.pushStatus(StatusConnected)

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()

		if c.ctx.Err() != nil {
			return
		}
		c.pushStatus(StatusDisconnected)
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg model.LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[Channel] Dropping malformed frame: %v", err)
			continue
		}
		select {
		case c.messages <- msg:
		default:
			log.Printf("[Channel] Message buffer full, dropping %s", msg.Type)
		}
	}
}

func (c *Client) pushStatus(s Status) {
	select {
	case c.status <- s:
	default:
	}
}
