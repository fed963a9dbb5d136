// Package realtime maintains the persistent publish/subscribe connection
// used for server-to-client push delivery (chat messages, notifications).
//
// A Channel owns a single WebSocket connection authenticated with the
// session's bearer token. Topics are hierarchical strings such as
// "chat/project/42". Subscriptions do not survive a reconnect: owners
// watch the state transitions and re-issue their subscriptions when the
// channel reports StateConnected again.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrChannelNotReady is returned by Publish when the channel has no live
// connection. The payload is not queued for later delivery.
var ErrChannelNotReady = errors.New("channel not ready")

// DefaultReconnectDelay is the fixed pause between reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

// State is the connection state of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// TokenFunc supplies the current bearer token. While it returns "",
// the channel stays disconnected and makes no connection attempt.
type TokenFunc func() string

// Handler receives the body of a message published on a subscribed topic.
// Handlers run on the channel's read goroutine and must not block.
type Handler func(topic string, body json.RawMessage)

// frame is the JSON wire format. Client frames carry an action
// ("subscribe", "unsubscribe", "publish"); server frames carry only
// topic and body.
type frame struct {
	Action string          `json:"action,omitempty"`
	Topic  string          `json:"topic"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// Channel manages one persistent connection to the realtime endpoint.
type Channel struct {
	url     string
	tokenFn TokenFunc
	delay   time.Duration
	log     *slog.Logger

	mu        sync.Mutex
	writeMu   sync.Mutex
	conn      *websocket.Conn
	state     State
	subs      map[string]map[int64]Handler
	nextSubID int64
	closed    bool

	stop        chan struct{}
	transitions chan State
}

// New creates a Channel for the given WebSocket URL. A non-positive
// delay falls back to DefaultReconnectDelay. The channel does nothing
// until Start is called.
func New(url string, tokenFn TokenFunc, delay time.Duration, log *slog.Logger) *Channel {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Channel{
		url:         url,
		tokenFn:     tokenFn,
		delay:       delay,
		log:         log,
		subs:        make(map[string]map[int64]Handler),
		stop:        make(chan struct{}),
		transitions: make(chan State, 16),
	}
}

// Start launches the connection loop in its own goroutine.
func (c *Channel) Start() {
	go c.run()
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transitions returns the channel on which state changes are announced.
// Announcements are dropped rather than blocking if the consumer lags.
func (c *Channel) Transitions() <-chan State {
	return c.transitions
}

// Subscribe registers a handler for a topic and returns its handle.
// If the channel is not connected it returns nil: the caller is expected
// to retry after the next StateConnected transition. Subscribe never
// blocks and never fails loudly.
func (c *Channel) Subscribe(topic string, h Handler) *Subscription {
	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		c.log.Debug("subscribe skipped, channel not connected", "topic", topic)
		return nil
	}

	c.nextSubID++
	id := c.nextSubID
	first := len(c.subs[topic]) == 0
	if c.subs[topic] == nil {
		c.subs[topic] = make(map[int64]Handler)
	}
	c.subs[topic][id] = h
	c.mu.Unlock()

	if first {
		if err := c.writeFrame(frame{Action: "subscribe", Topic: topic}); err != nil {
			c.log.Warn("sending subscribe frame", "topic", topic, "err", err)
		}
	}

	return &Subscription{ch: c, topic: topic, id: id}
}

// Publish sends a payload on a topic. It requires a live connection;
// otherwise it fails with ErrChannelNotReady without queueing anything.
func (c *Channel) Publish(topic string, payload interface{}) error {
	c.mu.Lock()
	ready := c.state == StateConnected && c.conn != nil
	c.mu.Unlock()

	if !ready {
		return fmt.Errorf("publish on %s: %w", topic, ErrChannelNotReady)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	if err := c.writeFrame(frame{Action: "publish", Topic: topic, Body: body}); err != nil {
		return fmt.Errorf("publish on %s: %w", topic, err)
	}
	return nil
}

// Close tears the channel down: it stops the connection loop, releases
// the underlying connection, and clears all bookkeeping. Safe to call
// multiple times.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.stop)
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]map[int64]Handler)
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// run is the connection loop: dial when a token is available, pump
// messages until the connection drops, pause for the fixed delay, and
// try again. It exits only when Close is called.
func (c *Channel) run() {
	for {
		if c.isClosed() {
			return
		}

		if c.tokenFn == nil || c.tokenFn() == "" {
			// No credential: stay disconnected and poll for one.
			if !c.pause() {
				return
			}
			continue
		}

		c.setState(StateConnecting)
		conn, err := c.dial()
		if err != nil {
			c.log.Warn("realtime dial failed", "url", c.url, "err", err)
			c.setState(StateDisconnected)
			if !c.pause() {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.log.Info("realtime channel connected", "url", c.url)
		c.setState(StateConnected)

		readErr := c.readLoop(conn)
		c.dropConn()

		if c.isClosed() {
			return
		}

		// A protocol failure goes straight Errored -> Connecting; only a
		// clean close passes through Disconnected.
		if isAbnormal(readErr) {
			c.log.Warn("realtime connection lost", "err", readErr)
			c.setState(StateErrored)
		} else {
			c.setState(StateDisconnected)
		}

		if !c.pause() {
			return
		}
	}
}

// dial opens the WebSocket connection with the bearer token attached.
func (c *Channel) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.tokenFn())

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// readLoop pumps frames off the connection until it fails. Malformed
// frames are logged and skipped; they do not kill the connection.
func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("discarding malformed realtime frame", "err", err)
			continue
		}
		c.dispatch(f)
	}
}

// dispatch invokes every handler registered for the frame's topic.
func (c *Channel) dispatch(f frame) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[f.Topic]))
	for _, h := range c.subs[f.Topic] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(f.Topic, f.Body)
	}
}

// dropConn closes and forgets the current connection and discards all
// subscriptions; owners must resubscribe after the next connect.
func (c *Channel) dropConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.subs = make(map[string]map[int64]Handler)
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// writeFrame serializes a frame to the connection. Gorilla allows only
// one concurrent writer, hence the dedicated write lock.
func (c *Channel) writeFrame(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrChannelNotReady
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(f)
}

// setState records a transition and announces it without blocking.
func (c *Channel) setState(s State) {
	c.mu.Lock()
	if c.closed || c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	select {
	case c.transitions <- s:
	default:
		// Drop if the consumer is not keeping up.
	}
}

// pause waits out the reconnect delay. It returns false if the channel
// was closed while waiting.
func (c *Channel) pause() bool {
	select {
	case <-c.stop:
		return false
	case <-time.After(c.delay):
		return true
	}
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// isAbnormal reports whether a read error represents a protocol-level
// failure rather than a clean close. Anything that is not an explicit
// normal/going-away close frame counts as abnormal, including an abrupt
// TCP drop that never completed the close handshake.
func isAbnormal(err error) bool {
	if err == nil {
		return false
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code != websocket.CloseNormalClosure &&
			ce.Code != websocket.CloseGoingAway
	}
	return true
}
