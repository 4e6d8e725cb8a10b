package game

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// ErrEngineStopped is returned by calls that need a running loop
var ErrEngineStopped = errors.New("engine is not running")

// DefaultTickInterval matches the classic pace of the game
const DefaultTickInterval = 150 * time.Millisecond

// inputBufferSize bounds queued direction requests between ticks
const inputBufferSize = 32

// EngineConfig configures an Engine
type EngineConfig struct {
	Game         Options
	TickInterval time.Duration // 0 = DefaultTickInterval
	Seed         int64         // 0 = seeded from the clock
	EventLog     *EventLog     // optional, must be started by the caller
}

// Settings is the public view of the engine configuration
type Settings struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	CellSize       int    `json:"cellSize"`
	Cols           int    `json:"cols"`
	Rows           int    `json:"rows"`
	TickIntervalMs int64  `json:"tickIntervalMs"`
	Boundary       string `json:"boundary"`
	OnDeath        string `json:"onDeath"`
	Seed           int64  `json:"seed"`
}

// TickReport is handed to tick hooks after every simulated step and after every reset
type TickReport struct {
	Outcome  TickOutcome
	Snapshot *Snapshot
	Duration time.Duration // time spent simulating
	Reset    bool          // no tick ran: a requested reset started a new run
}

type directionRequest struct {
	dir    Direction
	source string
}

// Engine runs a Game on its own goroutine at a fixed tick rate.
// All mutation happens on that goroutine; other goroutines talk to it through channels
// and read the latest published Snapshot without locking.
type Engine struct {
	cfg  EngineConfig
	seed int64
	game *Game // owned by the loop goroutine once started

	inputs   chan directionRequest
	resets   chan chan struct{}
	stopChan chan struct{}
	done     chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool

	snapshot atomic.Pointer[Snapshot]
	sequence uint64 // loop goroutine only

	hooksMu sync.RWMutex
	hooks   []func(TickReport)

	eventLog *EventLog
}

// NewEngine validates the configuration and creates a stopped engine
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.TickInterval < 0 {
		return nil, fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g, err := NewGame(cfg.Game, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		seed:     seed,
		game:     g,
		inputs:   make(chan directionRequest, inputBufferSize),
		resets:   make(chan chan struct{}),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		eventLog: cfg.EventLog,
	}
	e.publish()
	return e, nil
}

// AddTickHook registers fn to run on the loop goroutine after every tick and every reset.
// Hooks must return quickly. Register them before Start.
func (e *Engine) AddTickHook(fn func(TickReport)) {
	e.hooksMu.Lock()
	e.hooks = append(e.hooks, fn)
	e.hooksMu.Unlock()
}

// Start begins the game loop. Calling it again has no effect.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.running.Store(true)
		go e.loop()
		log.Printf("🐍 Snake engine started: %dx%d cells, tick %v, boundary=%s, on_death=%s",
			e.game.Grid().Cols(), e.game.Grid().Rows(), e.cfg.TickInterval,
			e.game.Options().Boundary, e.game.Options().OnDeath)
	})
}

// Stop halts the loop and waits for it to exit. Safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	if e.started() {
		<-e.done
	}
}

// Done is closed when the loop exits, either through Stop or because the game
// terminated under the stop death policy
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Running reports whether the loop is accepting input
func (e *Engine) Running() bool {
	return e.running.Load()
}

func (e *Engine) started() bool {
	started := true
	e.startOnce.Do(func() {
		// never started: consume the once so a later Start is a no-op
		started = false
		close(e.done)
	})
	return started
}

func (e *Engine) loop() {
	defer close(e.done)
	defer e.running.Store(false)

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			log.Println("🛑 Snake engine stopped")
			return

		case req := <-e.inputs:
			e.applyDirection(req)

		case ack := <-e.resets:
			e.reset()
			close(ack)

		case <-ticker.C:
			e.drainInputs()
			e.step()
			if !e.game.Running() {
				log.Printf("🏁 Game over (%s), score %d", e.game.Status(), e.game.Score())
				return
			}
		}
	}
}

// drainInputs applies every request queued before the tick boundary
func (e *Engine) drainInputs() {
	for {
		select {
		case req := <-e.inputs:
			e.applyDirection(req)
		default:
			return
		}
	}
}

func (e *Engine) applyDirection(req directionRequest) {
	heading := e.game.Snake().Heading()
	e.game.RequestDirection(req.dir)
	if e.eventLog != nil {
		e.eventLog.EmitSimple(EventTypeDirection, e.game.TickCount(), e.game.RunID(), req.source,
			DirectionPayload{Direction: req.dir, Heading: heading})
	}
}

func (e *Engine) step() {
	start := time.Now()
	runID := e.game.RunID()
	prevFruit := e.game.Fruit()

	outcome := e.game.Tick()
	switch outcome {
	case OutcomeDied:
		if runs := e.game.History().Recent(1); len(runs) > 0 {
			log.Printf("💀 Snake died (%s) with score %d after %d ticks", runs[0].Reason, runs[0].Score, runs[0].Ticks)
		}
	case OutcomeBoardFull:
		log.Printf("🏆 Board full! Score %d", e.game.History().Best())
	}

	if e.eventLog != nil {
		emitTickEvents(e.eventLog, e.game, runID, prevFruit, outcome, e.seed)
	}

	snap := e.publish()
	e.runHooks(TickReport{Outcome: outcome, Snapshot: snap, Duration: time.Since(start)})
}

func (e *Engine) reset() {
	start := time.Now()
	prev := e.game.RunID()
	if err := e.game.Reset(); err != nil {
		log.Printf("⚠️ Reset failed: %v", err)
	}
	log.Printf("🔄 New run %s", e.game.RunID())
	if e.eventLog != nil {
		emitReset(e.eventLog, e.game, prev)
	}
	snap := e.publish()
	e.runHooks(TickReport{Outcome: OutcomeContinued, Snapshot: snap, Duration: time.Since(start), Reset: true})
}

func (e *Engine) runHooks(report TickReport) {
	e.hooksMu.RLock()
	defer e.hooksMu.RUnlock()
	for _, fn := range e.hooks {
		fn(report)
	}
}

// publish stores a fresh snapshot for readers
func (e *Engine) publish() *Snapshot {
	snap := e.game.Snapshot()
	e.sequence++
	snap.Sequence = e.sequence
	snap.Timestamp = time.Now()
	e.snapshot.Store(&snap)
	return &snap
}

// RequestDirection queues a direction change from source (e.g. "ws", "http").
// Returns false if the direction is invalid, the engine is not running or the queue is full.
// Reverse requests are accepted here and ignored when the tick applies them.
func (e *Engine) RequestDirection(dir Direction, source string) bool {
	if !dir.Valid() || !e.running.Load() {
		return false
	}
	select {
	case e.inputs <- directionRequest{dir: dir, source: source}:
		return true
	default:
		return false
	}
}

// Reset starts a new run and waits until the new state is published
func (e *Engine) Reset() error {
	if !e.running.Load() {
		return ErrEngineStopped
	}
	ack := make(chan struct{})
	select {
	case e.resets <- ack:
	case <-e.done:
		return ErrEngineStopped
	}
	select {
	case <-ack:
		return nil
	case <-e.done:
		return ErrEngineStopped
	}
}

// GetSnapshot returns the latest published state. Never nil.
func (e *Engine) GetSnapshot() *Snapshot {
	return e.snapshot.Load()
}

// History returns the finished runs
func (e *Engine) History() *RunHistory {
	return e.game.History()
}

// Settings returns the effective configuration
func (e *Engine) Settings() Settings {
	grid := e.game.Grid()
	opts := e.game.Options()
	return Settings{
		Width:          grid.Width,
		Height:         grid.Height,
		CellSize:       grid.CellSize,
		Cols:           grid.Cols(),
		Rows:           grid.Rows(),
		TickIntervalMs: e.cfg.TickInterval.Milliseconds(),
		Boundary:       opts.Boundary.String(),
		OnDeath:        opts.OnDeath.String(),
		Seed:           e.seed,
	}
}

// GetEventLogStats returns event log counters, or nil without an event log
func (e *Engine) GetEventLogStats() map[string]interface{} {
	if e.eventLog == nil {
		return nil
	}
	return e.eventLog.GetStats()
}
