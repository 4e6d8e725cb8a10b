package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"snake-pit/internal/control"
	"snake-pit/internal/game"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	wsSendBuffer      = 16
	wsWriteWait       = 5 * time.Second
	wsPongWait        = 60 * time.Second
	wsPingPeriod      = (wsPongWait * 9) / 10
	wsMaxMessageBytes = 512
	wsMessagesPerSec  = 30
	pollInterval      = 20 * time.Millisecond
)

// wsClient is one WebSocket connection. Only its write pump writes to conn.
type wsClient struct {
	id      string
	ip      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter // raw inbound message rate
}

// wsMessage is the envelope for both directions
type wsMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// wsInbound is a client request: {"type":"direction","direction":"up"},
// {"type":"command","command":"w"} or {"type":"reset"}
type wsInbound struct {
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
	Command   string `json:"command,omitempty"`
}

// WebSocketHub fans snapshots out to clients and feeds their commands to the engine
type WebSocketHub struct {
	engine   EngineInterface
	commands *control.Handler
	origins  *OriginChecker
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	wsLimiter *WebSocketRateLimiter

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWebSocketHub creates a hub. Background work starts with StartBroadcastLoop.
func NewWebSocketHub(engine EngineInterface, commands *control.Handler, origins *OriginChecker) *WebSocketHub {
	if commands == nil {
		commands = control.NewHandler(engine)
	}
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	h := &WebSocketHub{
		engine:    engine,
		commands:  commands,
		origins:   origins,
		clients:   make(map[*wsClient]struct{}),
		wsLimiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		stopChan:  make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every client. Slow clients miss messages instead of blocking.
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(wsMessage{Event: event, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
	h.mu.RUnlock()
	IncrementWSMessages()
}

// StartBroadcastLoop polls the engine and broadcasts each new snapshot once
func (h *WebSocketHub) StartBroadcastLoop() {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var lastSeq uint64
		for {
			select {
			case <-h.stopChan:
				return
			case <-ticker.C:
				snap := h.engine.GetSnapshot()
				if snap.Sequence == lastSeq {
					continue
				}
				lastSeq = snap.Sequence
				if h.ClientCount() > 0 {
					h.Broadcast("game:state", snap)
				}
			}
		}
	}()
}

// Stop ends the broadcast loop and closes every connection
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopChan)
	})
	h.wg.Wait()

	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()
}

func (h *WebSocketHub) register(c *wsClient) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	return len(h.clients)
}

func (h *WebSocketHub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.wsLimiter.Release(c.ip)
	h.commands.Forget(c.source())
	log.Printf("📱 Client %s disconnected (%d remaining)", c.id[:8], count)
	UpdateWSConnections(count)
}

// HandleWebSocket upgrades the request and serves the client until it disconnects
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	c := &wsClient{
		id:      uuid.NewString(),
		ip:      ip,
		conn:    conn,
		send:    make(chan []byte, wsSendBuffer),
		limiter: rate.NewLimiter(wsMessagesPerSec, wsMessagesPerSec),
	}
	count := h.register(c)
	log.Printf("📱 Client %s connected from %s (%d total)", c.id[:8], ip, count)
	UpdateWSConnections(count)

	c.queue("game:hello", map[string]interface{}{
		"clientId": c.id,
		"config":   h.engine.Settings(),
	})
	c.queue("game:state", h.engine.GetSnapshot())

	go h.writePump(c)
	go h.readPump(c)
}

func (c *wsClient) source() string {
	return "ws:" + c.id
}

// queue sends directly on the client channel; only valid before the pumps start
// or from the read pump while the client is registered
func (c *wsClient) queue(event string, data interface{}) {
	payload, err := json.Marshal(wsMessage{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHub) readPump(c *wsClient) {
	defer h.unregister(c)

	c.conn.SetReadLimit(wsMaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			RecordCommand("ws", "rate_limited")
			continue
		}

		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.queue("error", map[string]string{"error": "invalid json"})
			continue
		}
		h.handleInbound(c, msg)
	}
}

func (h *WebSocketHub) handleInbound(c *wsClient, msg wsInbound) {
	var (
		cmd control.Command
		err error
	)
	switch msg.Type {
	case "direction":
		var dir game.Direction
		dir, err = control.ParseDirection(msg.Direction)
		cmd = control.Command{Kind: control.KindDirection, Direction: dir}
	case "command":
		cmd, err = control.ParseCommand(msg.Command)
	case "reset":
		cmd = control.Command{Kind: control.KindReset}
	default:
		err = errors.New("unknown message type")
	}

	if err == nil {
		err = h.commands.Apply(c.source(), cmd)
	}
	if err != nil {
		RecordCommand("ws", commandResult(err))
		c.queue("error", map[string]string{"error": err.Error(), "type": msg.Type})
		return
	}

	RecordCommand("ws", "accepted")
	if cmd.Kind == control.KindReset {
		RecordReset()
	}
}
