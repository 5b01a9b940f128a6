package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

// fakeConn records writes; ReadMessage blocks until Close.
type fakeConn struct {
	mu     sync.Mutex
	writes []Message
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(mt int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("closed")
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch mt {
	case websocket.BinaryMessage:
		c.writes = append(c.writes, NewBinaryMessage(data))
	case websocket.TextMessage:
		c.writes = append(c.writes, NewJSONMessage(data))
	}
	return nil
}

func (c *fakeConn) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.writes...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub running", h.IsRunning)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, c := range conns {
		go NewClient(h, c).Run()
	}
	waitFor(t, "two clients", func() bool { return h.ClientCount() == 2 })

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if err := h.BroadcastJSON(map[string]int{"processed": 3}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	for i, c := range conns {
		waitFor(t, "two messages", func() bool { return len(c.received()) == 2 })
		got := c.received()
		if got[0].Type != BinaryMessage || got[1].Type != JSONMessage {
			t.Errorf("client %d: got types %v, %v", i, got[0].Type, got[1].Type)
		}
		if string(got[1].Data) != `{"processed":3}` {
			t.Errorf("client %d: got JSON %s", i, got[1].Data)
		}
	}
}

func TestHub_LatestForLateJoiners(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	if _, ok := h.Latest(); ok {
		t.Error("Latest before any broadcast: expected none")
	}
	h.BroadcastBinary([]byte("frame-1"))
	h.BroadcastBinary([]byte("frame-2"))

	msg, ok := h.Latest()
	if !ok || string(msg.Data) != "frame-2" {
		t.Errorf("Latest: got %q ok=%v, want frame-2", msg.Data, ok)
	}

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, "late joiner receives latest", func() bool {
		got := c.received()
		return len(got) > 0 && string(got[0].Data) == "frame-2"
	})
}

func TestHub_ClientDisconnect(t *testing.T) {
	h, cancel := startHub(t)
	defer cancel()

	c := newFakeConn()
	client := NewClient(h, c)
	done := make(chan struct{})
	go func() {
		client.Run()
		close(done)
	}()
	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	c.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("client Run did not return after disconnect")
	}
	waitFor(t, "client unregistered", func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h, cancel := startHub(t)

	c := newFakeConn()
	go NewClient(h, c).Run()
	waitFor(t, "client registered", func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	select {
	case <-c.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection not closed on hub stop")
	}
	if h.IsRunning() {
		t.Error("IsRunning after stop: got true")
	}
	if NewClient(h, newFakeConn()) != nil {
		t.Error("NewClient on stopped hub: expected nil")
	}
}

func TestHub_BroadcastDropsWhenFull(t *testing.T) {
	h := New("idle") // not running, so nothing drains the channel
	for i := 0; i < cap(h.broadcast)+5; i++ {
		h.BroadcastBinary([]byte{byte(i)})
	}
	if h.Dropped() != 5 {
		t.Errorf("Dropped: got %d, want 5", h.Dropped())
	}
}

func TestMessageType_String(t *testing.T) {
	if JSONMessage.String() != "json" || BinaryMessage.String() != "binary" {
		t.Errorf("got %q, %q", JSONMessage, BinaryMessage)
	}
}
