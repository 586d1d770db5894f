package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketStreamsEvents(t *testing.T) {
	ts := startTestServer(t)

	url := fmt.Sprintf("ws://127.0.0.1:%d/ws", ts.Port())
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	ts.events.Append("TCP Command", "Received 'LIGHT_ON' on port 9001")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "event" || msg.Event.Kind != "TCP Command" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	ts := startTestServer(t)

	url := fmt.Sprintf("ws://127.0.0.1:%d/ws", ts.Port())
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	conn.Close()

	// Appends after disconnect must not panic or block.
	for i := 0; i < 5; i++ {
		ts.events.Append("Kind", fmt.Sprintf("entry %d", i))
	}
}
