package stream

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestRegistry_SharedConnection(t *testing.T) {
	var dials atomic.Int64

	server := mockWSServer(t, func(conn *websocket.Conn) {
		dials.Add(1)
		for i := 0; i < 20; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"BTCUSDT","price":7}`)); err != nil {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	})
	defer server.Close()

	reg := NewRegistry(testManagerConfig(""), nil, nil)
	defer reg.Close()

	endpoint := wsURL(server)
	h1 := reg.Subscribe(endpoint)
	h2 := reg.Subscribe(endpoint)
	defer h1.Close()
	defer h2.Close()

	// Both subscribers receive deliveries from the one shared transport.
	for i, h := range []*Handle{h1, h2} {
		select {
		case msg := <-h.Messages():
			if msg.Price == nil || msg.Price.Symbol != "BTCUSDT" {
				t.Errorf("subscriber %d: unexpected message %+v", i, msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %d: timeout waiting for delivery", i)
		}
	}

	if n := dials.Load(); n != 1 {
		t.Errorf("server saw %d dials, want 1 shared connection", n)
	}
}

func TestRegistry_LastDetachClosesTransport(t *testing.T) {
	var dials atomic.Int64

	server := mockWSServer(t, func(conn *websocket.Conn) {
		dials.Add(1)
		for {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"BTCUSDT","price":7}`)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
	defer server.Close()

	reg := NewRegistry(testManagerConfig(""), nil, nil)
	defer reg.Close()

	endpoint := wsURL(server)
	h1 := reg.Subscribe(endpoint)
	h2 := reg.Subscribe(endpoint)

	// Detaching one subscriber leaves the other's deliveries flowing.
	h1.Close()

	select {
	case <-h2.Messages():
	case <-time.After(2 * time.Second):
		t.Fatal("remaining subscriber stopped receiving after another detached")
	}

	// The last detach tears down the transport; a new subscriber dials fresh.
	h2.Close()

	h3 := reg.Subscribe(endpoint)
	defer h3.Close()

	select {
	case <-h3.Messages():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delivery on fresh connection")
	}

	if n := dials.Load(); n != 2 {
		t.Errorf("server saw %d dials, want 2 (one per connection lifetime)", n)
	}
}

func TestRegistry_HandleExposesConnectionState(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"symbol":"BTCUSDT","price":3}`))
		time.Sleep(time.Second)
	})
	defer server.Close()

	reg := NewRegistry(testManagerConfig(""), nil, nil)
	defer reg.Close()

	h := reg.Subscribe(wsURL(server))
	defer h.Close()

	select {
	case <-h.Messages():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for delivery")
	}

	if h.Status() != StatusOpen {
		t.Errorf("Status = %q, want open", h.Status())
	}
	if err := h.LastError(); err != nil {
		t.Errorf("LastError = %v, want nil on a healthy connection", err)
	}

	stats := h.Dispatcher().Stats()
	if stats.Received < 1 {
		t.Errorf("dispatcher Received = %d, want at least 1", stats.Received)
	}
	if stats.Subscribers != 1 {
		t.Errorf("dispatcher Subscribers = %d, want 1", stats.Subscribers)
	}
}

func TestRegistry_HandleCloseIdempotent(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	reg := NewRegistry(testManagerConfig(""), nil, nil)
	defer reg.Close()

	h := reg.Subscribe(wsURL(server))
	h.Close()
	h.Close() // Must not panic or double-decrement
}
