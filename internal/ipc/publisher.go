package ipc

import (
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"snake-pit/internal/game"
)

// Publisher fans game snapshots out to connected viewers
type Publisher struct {
	socketPath string
	listener   net.Listener

	clients   map[net.Conn]struct{}
	clientsMu sync.RWMutex

	// drop-oldest queue between the engine loop and the broadcaster
	snapshotCh chan *game.Snapshot

	config   ConfigMessage
	configMu sync.RWMutex

	clientCount   atomic.Int32
	snapshotsSent atomic.Int64
	droppedFrames atomic.Int64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a publisher. An empty socketPath uses DefaultSocketPath.
func NewPublisher(socketPath string) *Publisher {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	return &Publisher{
		socketPath: socketPath,
		clients:    make(map[net.Conn]struct{}),
		snapshotCh: make(chan *game.Snapshot, 8),
		stopCh:     make(chan struct{}),
	}
}

// SetConfig sets the handshake sent to every new viewer
func (p *Publisher) SetConfig(cfg ConfigMessage) {
	p.configMu.Lock()
	p.config = cfg
	p.configMu.Unlock()
}

// Start listens for viewers
func (p *Publisher) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	listener, err := CreatePlatformListener(p.socketPath)
	if err != nil {
		p.running.Store(false)
		return err
	}
	p.listener = listener

	p.wg.Add(2)
	go p.acceptLoop()
	go p.broadcastLoop()

	log.Printf("📡 IPC Publisher started on %s", GetPlatformAddress(p.socketPath))
	return nil
}

// Addr returns the listening address, nil before Start
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stop closes the listener and every viewer connection
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	close(p.stopCh)
	p.listener.Close()

	p.clientsMu.Lock()
	for conn := range p.clients {
		conn.Close()
	}
	p.clients = make(map[net.Conn]struct{})
	p.clientCount.Store(0)
	p.clientsMu.Unlock()

	p.wg.Wait()

	removePlatformSocket(p.socketPath)
	log.Println("📡 IPC Publisher stopped")
}

// PublishSnapshot queues a snapshot for broadcast without blocking.
// When viewers fall behind the oldest queued snapshot is dropped.
func (p *Publisher) PublishSnapshot(snapshot *game.Snapshot) {
	if !p.running.Load() || snapshot == nil {
		return
	}

	select {
	case p.snapshotCh <- snapshot:
	default:
		select {
		case <-p.snapshotCh:
			p.droppedFrames.Add(1)
		default:
		}
		select {
		case p.snapshotCh <- snapshot:
		default:
		}
	}
}

// TickHook adapts PublishSnapshot to game.Engine.AddTickHook
func (p *Publisher) TickHook(report game.TickReport) {
	p.PublishSnapshot(report.Snapshot)
}

// GetStats returns publisher statistics
func (p *Publisher) GetStats() (clients int, sent int64, dropped int64) {
	return int(p.clientCount.Load()), p.snapshotsSent.Load(), p.droppedFrames.Load()
}

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()

	for p.running.Load() {
		conn, err := p.listener.Accept()
		if err != nil {
			if !p.running.Load() {
				return
			}
			log.Printf("⚠️ IPC accept error: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		p.addClient(conn)
	}
}

func (p *Publisher) addClient(conn net.Conn) {
	p.configMu.RLock()
	config := p.config
	p.configMu.RUnlock()

	// the handshake goes out before the client is visible to the broadcaster,
	// so a viewer always sees the config first
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := WriteMessage(conn, MsgTypeConfig, config); err != nil {
		log.Printf("⚠️ Failed to send config to viewer: %v", err)
		conn.Close()
		return
	}

	p.clientsMu.Lock()
	if !p.running.Load() {
		p.clientsMu.Unlock()
		conn.Close()
		return
	}
	p.clients[conn] = struct{}{}
	count := p.clientCount.Add(1)
	p.clientsMu.Unlock()

	log.Printf("✅ Viewer connected: %s (total: %d)", conn.RemoteAddr(), count)
}

func (p *Publisher) removeClient(conn net.Conn) {
	p.clientsMu.Lock()
	_, ok := p.clients[conn]
	if ok {
		delete(p.clients, conn)
		conn.Close()
	}
	p.clientsMu.Unlock()

	if ok {
		count := p.clientCount.Add(-1)
		log.Printf("🔌 Viewer disconnected (remaining: %d)", count)
	}
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case snapshot := <-p.snapshotCh:
			p.broadcast(snapshot)
		}
	}
}

func (p *Publisher) broadcast(snapshot *game.Snapshot) {
	p.clientsMu.RLock()
	clients := make([]net.Conn, 0, len(p.clients))
	for conn := range p.clients {
		clients = append(clients, conn)
	}
	p.clientsMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	msg := FromSnapshot(snapshot)
	var failed []net.Conn
	for _, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := WriteMessage(conn, MsgTypeSnapshot, msg); err != nil {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		p.removeClient(conn)
	}

	if len(failed) < len(clients) {
		p.snapshotsSent.Add(1)
	}
}
