package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// echoServer upgrades connections, records received frames, and echoes
// published bodies back on their topic.
func echoServer(t *testing.T, onFrame func(conn *websocket.Conn, f frame)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			if onFrame != nil {
				onFrame(conn, f)
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForState(t *testing.T, c *Channel, want State) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-c.Transitions():
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v, current %v", want, c.State())
		}
	}
}

func TestChannelConnectSubscribeDispatch(t *testing.T) {
	srv := echoServer(t, func(conn *websocket.Conn, f frame) {
		if f.Action == "subscribe" {
			// Push one message on the freshly subscribed topic.
			body, _ := json.Marshal(map[string]string{"content": "hi"})
			conn.WriteJSON(frame{Topic: f.Topic, Body: body})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok" }, 50*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	waitForState(t, c, StateConnected)

	received := make(chan json.RawMessage, 1)
	sub := c.Subscribe("chat/project/1", func(topic string, body json.RawMessage) {
		received <- body
	})
	if sub == nil {
		t.Fatal("Subscribe returned nil while connected")
	}

	select {
	case body := <-received:
		var payload map[string]string
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("unmarshaling dispatched body: %v", err)
		}
		if payload["content"] != "hi" {
			t.Errorf("content = %q, want %q", payload["content"], "hi")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no message dispatched")
	}
}

func TestChannelPublishNotReady(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws", func() string { return "" }, time.Hour, nil)
	defer c.Close()

	err := c.Publish("chat/project/1", map[string]string{"content": "x"})
	if !errors.Is(err, ErrChannelNotReady) {
		t.Fatalf("err = %v, want ErrChannelNotReady", err)
	}
}

func TestChannelPublishReachesServer(t *testing.T) {
	published := make(chan frame, 1)
	srv := echoServer(t, func(conn *websocket.Conn, f frame) {
		if f.Action == "publish" {
			published <- f
		}
	})
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok" }, 50*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	waitForState(t, c, StateConnected)

	if err := c.Publish("chat/project/1/join", map[string]string{"userId": "u1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case f := <-published:
		if f.Topic != "chat/project/1/join" {
			t.Errorf("topic = %q", f.Topic)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("publish frame never arrived")
	}
}

func TestChannelNoDialWithoutToken(t *testing.T) {
	var dials atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dials.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "" }, 20*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	time.Sleep(150 * time.Millisecond)
	if n := dials.Load(); n != 0 {
		t.Errorf("dialed %d times with no token, want 0", n)
	}
	if c.State() != StateDisconnected {
		t.Errorf("state = %v, want disconnected", c.State())
	}
}

func TestChannelAttachesBearerToken(t *testing.T) {
	auth := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok-ws" }, 50*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	select {
	case got := <-auth:
		if got != "Bearer tok-ws" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer tok-ws")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("channel never dialed")
	}
}

func TestChannelAbnormalDropGoesErroredThenConnecting(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := conns.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// Kill the first connection abruptly to force a reconnect.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok" }, 20*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	waitForState(t, c, StateConnected)

	// Collect everything up to the next Connected: the drop must surface
	// as Errored and resume via Connecting with no Disconnected between.
	var seq []State
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s := <-c.Transitions():
			seq = append(seq, s)
		case <-deadline:
			t.Fatalf("timed out waiting for reconnect, transitions %v", seq)
		}
		if seq[len(seq)-1] == StateConnected {
			break
		}
	}

	if seq[0] != StateErrored {
		t.Errorf("first transition after drop = %v, want errored (%v)", seq[0], seq)
	}
	for _, s := range seq {
		if s == StateDisconnected {
			t.Errorf("disconnected announced on the error path: %v", seq)
		}
	}
	if conns.Load() < 2 {
		t.Errorf("connections = %d, want at least 2", conns.Load())
	}
}

func TestChannelCleanCloseGoesDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.ReadMessage() // wait for the client's close response
	}))
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok" }, time.Hour, nil)
	c.Start()
	defer c.Close()

	waitForState(t, c, StateConnected)

	select {
	case s := <-c.Transitions():
		if s != StateDisconnected {
			t.Errorf("transition after clean close = %v, want disconnected", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no transition after clean close")
	}
}

func TestChannelCloseIdempotent(t *testing.T) {
	c := New("ws://127.0.0.1:0/ws", func() string { return "" }, time.Hour, nil)
	c.Start()
	c.Close()
	c.Close() // must not panic
	if c.State() != StateDisconnected {
		t.Errorf("state after close = %v", c.State())
	}
}

func TestSubscriptionUnsubscribeIdempotent(t *testing.T) {
	unsubscribed := make(chan string, 2)
	srv := echoServer(t, func(conn *websocket.Conn, f frame) {
		if f.Action == "unsubscribe" {
			unsubscribed <- f.Topic
		}
	})
	defer srv.Close()

	c := New(wsURL(srv), func() string { return "tok" }, 50*time.Millisecond, nil)
	c.Start()
	defer c.Close()

	waitForState(t, c, StateConnected)

	sub := c.Subscribe("notifications/user/7", func(string, json.RawMessage) {})
	if sub == nil {
		t.Fatal("Subscribe returned nil while connected")
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // no second frame

	select {
	case topic := <-unsubscribed:
		if topic != "notifications/user/7" {
			t.Errorf("topic = %q", topic)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("unsubscribe frame never arrived")
	}

	select {
	case <-unsubscribed:
		t.Error("duplicate unsubscribe frame sent")
	case <-time.After(100 * time.Millisecond):
	}
}
