package ipc

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Subscriber receives snapshots from a Publisher and reconnects when the server restarts
type Subscriber struct {
	socketPath string
	conn       net.Conn
	connMu     sync.Mutex

	latestSnapshot atomic.Pointer[SnapshotMessage]

	config   ConfigMessage
	configMu sync.RWMutex
	configCh chan ConfigMessage

	snapshotsReceived atomic.Int64
	reconnects        atomic.Int64
	errors            atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// callbacks run on the read goroutine; set them before Start
	onSnapshot   func(*SnapshotMessage)
	onConfig     func(*ConfigMessage)
	onConnect    func()
	onDisconnect func()
}

// NewSubscriber creates a subscriber. An empty socketPath uses DefaultSocketPath.
func NewSubscriber(socketPath string) *Subscriber {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	return &Subscriber{
		socketPath: socketPath,
		configCh:   make(chan ConfigMessage, 1),
		stopCh:     make(chan struct{}),
	}
}

// OnSnapshot sets a callback for every received snapshot
func (s *Subscriber) OnSnapshot(fn func(*SnapshotMessage)) {
	s.onSnapshot = fn
}

// OnConfig sets a callback for the per-connection handshake
func (s *Subscriber) OnConfig(fn func(*ConfigMessage)) {
	s.onConfig = fn
}

// OnConnect sets a callback for when a connection is established
func (s *Subscriber) OnConnect(fn func()) {
	s.onConnect = fn
}

// OnDisconnect sets a callback for when a connection is lost
func (s *Subscriber) OnDisconnect(fn func()) {
	s.onDisconnect = fn
}

// Start connects in the background, retrying until Stop
func (s *Subscriber) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	s.wg.Add(1)
	go s.connectionLoop()

	log.Printf("📡 IPC Subscriber started, connecting to %s", GetPlatformAddress(s.socketPath))
	return nil
}

// Stop closes the connection and waits for the read goroutine
func (s *Subscriber) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}

	close(s.stopCh)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	log.Println("📡 IPC Subscriber stopped")
}

// GetLatestSnapshot returns the most recent snapshot, nil before the first one
func (s *Subscriber) GetLatestSnapshot() *SnapshotMessage {
	return s.latestSnapshot.Load()
}

// GetConfig returns the last handshake received
func (s *Subscriber) GetConfig() ConfigMessage {
	s.configMu.RLock()
	defer s.configMu.RUnlock()
	return s.config
}

// WaitForConfig blocks until a handshake arrives, the timeout expires or Stop is called
func (s *Subscriber) WaitForConfig(timeout time.Duration) *ConfigMessage {
	select {
	case cfg := <-s.configCh:
		return &cfg
	case <-time.After(timeout):
		return nil
	case <-s.stopCh:
		return nil
	}
}

// GetStats returns subscriber statistics
func (s *Subscriber) GetStats() (received int64, reconnects int64, errors int64) {
	return s.snapshotsReceived.Load(), s.reconnects.Load(), s.errors.Load()
}

// IsConnected returns whether the subscriber is connected
func (s *Subscriber) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Subscriber) connectionLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := ConnectPlatform(s.socketPath)
		if err != nil {
			if !s.sleep(ReconnectDelay) {
				return
			}
			continue
		}

		s.connMu.Lock()
		if !s.running.Load() {
			s.connMu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.connMu.Unlock()

		log.Printf("✅ Connected to server at %s", GetPlatformAddress(s.socketPath))
		if s.onConnect != nil {
			s.onConnect()
		}

		s.readLoop(conn)

		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()

		if s.onDisconnect != nil {
			s.onDisconnect()
		}
		s.reconnects.Add(1)

		if !s.sleep(ReconnectDelay) {
			return
		}
	}
}

// sleep waits for d and reports false if Stop was called meanwhile
func (s *Subscriber) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Subscriber) readLoop(conn net.Conn) {
	for s.running.Load() {
		conn.SetReadDeadline(time.Now().Add(ReadTimeout))

		msgType, data, err := ReadMessage(conn)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				log.Println("🔌 Server closed connection")
			case errors.As(err, &netErr) && netErr.Timeout():
				// a quiet server (stopped game) is not an error
				continue
			case !s.running.Load():
			default:
				log.Printf("⚠️ IPC read error: %v", err)
				s.errors.Add(1)
			}
			return
		}

		switch msgType {
		case MsgTypeSnapshot:
			s.handleSnapshot(data)
		case MsgTypeConfig:
			s.handleConfig(data)
		case MsgTypePing:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			WriteMessage(conn, MsgTypePong, nil)
		}
	}
}

func (s *Subscriber) handleSnapshot(data []byte) {
	snapshot, err := DecodeSnapshot(data)
	if err != nil {
		log.Printf("⚠️ Failed to decode snapshot: %v", err)
		s.errors.Add(1)
		return
	}

	s.latestSnapshot.Store(snapshot)
	s.snapshotsReceived.Add(1)

	if s.onSnapshot != nil {
		s.onSnapshot(snapshot)
	}
}

func (s *Subscriber) handleConfig(data []byte) {
	config, err := DecodeConfig(data)
	if err != nil {
		log.Printf("⚠️ Failed to decode config: %v", err)
		s.errors.Add(1)
		return
	}

	s.configMu.Lock()
	s.config = *config
	s.configMu.Unlock()

	log.Printf("📺 Received game config: %dx%d, cell %d, %dms/tick",
		config.Width, config.Height, config.CellSize, config.TickIntervalMs)

	select {
	case s.configCh <- *config:
	default:
	}

	if s.onConfig != nil {
		s.onConfig(config)
	}
}
