package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newClient(id string, topics ...string) *Client {
	return &Client{ID: id, Topics: topics, Send: make(chan []byte, 8)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.Send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
	}
	return Message{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient("c1", TopicNavigation)

	hub.Register(c)
	if hub.ClientCount() != 1 || hub.TopicCount(TopicNavigation) != 1 {
		t.Fatalf("expected 1 client on navigation, got %d/%d", hub.ClientCount(), hub.TopicCount(TopicNavigation))
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 || hub.TopicCount(TopicNavigation) != 0 {
		t.Fatal("expected hub to be empty")
	}
	if _, ok := <-c.Send; ok {
		t.Fatal("expected Send to be closed")
	}

	// second unregister is a no-op
	hub.Unregister(c)
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	nav := newClient("nav", TopicNavigation)
	evt := newClient("evt", TopicEvents)
	hub.Register(nav)
	hub.Register(evt)

	hub.Broadcast(Message{Type: "navigate", Topic: TopicNavigation, View: "patient", Params: map[string]string{"id": "4"}})

	got := receive(t, nav)
	if got.View != "patient" || got.Params["id"] != "4" {
		t.Errorf("unexpected message: %+v", got)
	}
	if got.ID == "" || got.Timestamp.IsZero() {
		t.Error("expected id and timestamp to be stamped")
	}

	select {
	case <-evt.Send:
		t.Fatal("events subscriber should not receive navigation")
	default:
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newClient("c1", TopicNavigation)
	hub.Register(c)

	hub.ProcessMessage(c, ClientMessage{Action: "subscribe", Topics: []string{TopicEvents, TopicEvents}})
	if hub.TopicCount(TopicEvents) != 1 {
		t.Fatalf("expected 1 events subscriber, got %d", hub.TopicCount(TopicEvents))
	}
	if len(c.Topics) != 2 {
		t.Errorf("expected 2 topics, got %v", c.Topics)
	}

	hub.ProcessMessage(c, ClientMessage{Action: "unsubscribe", Topics: []string{TopicNavigation}})
	if hub.TopicCount(TopicNavigation) != 0 {
		t.Error("expected navigation to have no subscribers")
	}
	if len(c.Topics) != 1 || c.Topics[0] != TopicEvents {
		t.Errorf("unexpected topics: %v", c.Topics)
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := &Client{ID: "slow", Topics: []string{TopicNavigation}, Send: make(chan []byte, 1)}
	hub.Register(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Broadcast(Message{Type: "navigate", Topic: TopicNavigation})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newClient("c", TopicNavigation)
			hub.Register(c)
			hub.Broadcast(Message{Topic: TopicNavigation})
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	NewHandler(hub, nil).RegisterRoutes(e.Group(""))

	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.TopicCount(TopicNavigation) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast(Message{Type: "navigate", Topic: TopicNavigation, View: "appointments"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.View != "appointments" {
		t.Errorf("expected appointments view, got %q", got.View)
	}
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	e := echo.New()
	NewHandler(hub, []string{"http://ward.local"}).RegisterRoutes(e.Group(""))

	srv := httptest.NewServer(e)
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if _, _, err := gorillawebsocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for unknown origin")
	}
}
