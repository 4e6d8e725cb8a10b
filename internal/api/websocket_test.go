package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"snake-pit/internal/api"
	"snake-pit/internal/game"
)

type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, ts *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

// readUntil reads messages until one with the wanted event arrives
func readUntil(t *testing.T, conn *websocket.Conn, event string) wsEnvelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("Reading %q failed: %v", event, err)
		}
		if msg.Event == event {
			return msg
		}
	}
}

func TestWebSocketHelloAndState(t *testing.T) {
	engine := NewMockEngine()
	server := api.NewServer(engine, api.ServerOptions{})
	ts := httptest.NewServer(server.Router())
	defer ts.Close()
	defer server.Hub().Stop()

	conn, _, err := dialWS(t, ts, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	hello := readUntil(t, conn, "game:hello")
	var payload struct {
		ClientID string        `json:"clientId"`
		Config   game.Settings `json:"config"`
	}
	if err := json.Unmarshal(hello.Data, &payload); err != nil {
		t.Fatalf("Bad hello payload: %v", err)
	}
	if payload.ClientID == "" || payload.Config.Cols != 20 {
		t.Errorf("Unexpected hello: %+v", payload)
	}

	state := readUntil(t, conn, "game:state")
	var snap game.Snapshot
	if err := json.Unmarshal(state.Data, &snap); err != nil {
		t.Fatalf("Bad state payload: %v", err)
	}
	if snap.Length != 3 {
		t.Errorf("Expected length 3, got %d", snap.Length)
	}
}

func TestWebSocketDirection(t *testing.T) {
	engine := NewMockEngine()
	server := api.NewServer(engine, api.ServerOptions{})
	ts := httptest.NewServer(server.Router())
	defer ts.Close()
	defer server.Hub().Stop()

	conn, _, err := dialWS(t, ts, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "game:state")

	if err := conn.WriteJSON(map[string]string{"type": "direction", "direction": "up"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(engine.Directions()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("direction never reached the engine")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := engine.Directions()[0]; got != game.DirUp {
		t.Errorf("Expected up, got %s", got)
	}

	if err := conn.WriteJSON(map[string]string{"type": "direction", "direction": "sideways"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	msg := readUntil(t, conn, "error")
	if !strings.Contains(string(msg.Data), "sideways") {
		t.Errorf("Expected error to name the input, got %s", msg.Data)
	}
}

func TestWebSocketBroadcastsNewSnapshots(t *testing.T) {
	engine := NewMockEngine()
	server := api.NewServer(engine, api.ServerOptions{})
	server.Hub().StartBroadcastLoop()
	ts := httptest.NewServer(server.Router())
	defer ts.Close()
	defer server.Hub().Stop()

	conn, _, err := dialWS(t, ts, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	readUntil(t, conn, "game:state")

	engine.SetSequence(42)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsEnvelope
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("No broadcast received: %v", err)
		}
		if msg.Event != "game:state" {
			continue
		}
		var snap game.Snapshot
		json.Unmarshal(msg.Data, &snap)
		if snap.Sequence == 42 {
			return
		}
	}
}

func TestWebSocketOriginRejected(t *testing.T) {
	server := api.NewServer(NewMockEngine(), api.ServerOptions{CORSOrigins: []string{"https://snake.example.com"}})
	ts := httptest.NewServer(server.Router())
	defer ts.Close()
	defer server.Hub().Stop()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := dialWS(t, ts, header)
	if err == nil {
		t.Fatal("Expected dial to fail for a foreign origin")
	}
	if resp != nil && resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", resp.StatusCode)
	}

	header.Set("Origin", "https://snake.example.com")
	conn, _, err := dialWS(t, ts, header)
	if err != nil {
		t.Fatalf("Expected allowed origin to connect: %v", err)
	}
	conn.Close()
}

func TestOriginChecker(t *testing.T) {
	oc := api.NewOriginChecker(nil)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8080", true},
		{"https://localhost:3000", false},
		{"http://example.com", false},
	}
	for _, tt := range tests {
		if got := oc.Allowed(tt.origin); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	wildcard := api.NewOriginChecker([]string{"*"})
	if !wildcard.Allowed("https://anything.example") {
		t.Error("Expected * to allow every origin")
	}
}

func TestWebSocketRateLimiter(t *testing.T) {
	wrl := api.NewWebSocketRateLimiter(2)

	if !wrl.Allow("1.2.3.4") || !wrl.Allow("1.2.3.4") {
		t.Fatal("Expected first two connections to be allowed")
	}
	if wrl.Allow("1.2.3.4") {
		t.Error("Expected third connection to be rejected")
	}
	if !wrl.Allow("5.6.7.8") {
		t.Error("Expected other IP to be allowed")
	}

	wrl.Release("1.2.3.4")
	if got := wrl.GetConnectionCount("1.2.3.4"); got != 1 {
		t.Errorf("Expected 1 connection, got %d", got)
	}
	if !wrl.Allow("1.2.3.4") {
		t.Error("Expected a released slot to be reusable")
	}
}
