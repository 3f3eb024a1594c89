package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Broadcasts and keepalive pings share connections, so both must come
// off the single hub goroutine. This drives a real client through a
// burst of frames while pings fire in between.
func TestHubBroadcastsWhilePinging(t *testing.T) {
	hub := NewHub(nil)
	hub.pingEvery = 5 * time.Millisecond
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return conn.WriteControl(websocket.PongMessage, nil, time.Now().Add(time.Second))
	})

	const frames = 200
	go func() {
		for i := 0; i < frames; i++ {
			hub.Broadcast(WSMessage{Type: "shock", AssetID: "gold", Direction: "boost", Price: "42.00"})
			time.Sleep(time.Millisecond)
		}
	}()

	// The broadcast buffer may drop frames sent before registration
	// settles; receiving half of them alongside pings is enough.
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	received := 0
	for received < frames/2 {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read after %d frames: %v", received, err)
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if msg.Type != "shock" || msg.AssetID != "gold" {
			t.Fatalf("unexpected frame: %+v", msg)
		}
		received++
	}

	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatalf("no ping observed during broadcast burst")
	}
}
