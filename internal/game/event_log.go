package game

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular buffer size
	MaxEventsPerSec      = 2000                   // Global rate limit
	MaxEventsPerSource   = 50                     // Per-source rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	SourceLimiterCleanup = 5 * time.Minute        // Idle time before a source limiter is dropped
)

// EventLog is a bounded, rate-limited, append-only JSONL log of game events.
// Emit never blocks the game loop: when the buffer is full the oldest events are dropped.
type EventLog struct {
	mu     sync.Mutex
	buffer [EventBufferSize]Event
	head   uint64 // next sequence to write
	tail   uint64 // next sequence to flush

	globalLimiter  *rate.Limiter
	sourceLimiters sync.Map // map[string]*sourceLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	filePath string
	file     *os.File
	fileMu   sync.Mutex

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type sourceLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer.
// An empty path keeps events in memory only (useful for stats).
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	el.filePath = filePath
	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		el.file = file
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()

	return nil
}

// Stop flushes pending events and closes the file
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit adds an event. Returns false if rate limited or the log is not running.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	if event.Source != "" && !el.sourceLimiter(event.Source).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	el.head++
	if el.head-el.tail > EventBufferSize {
		// drop the oldest unflushed event
		el.tail++
		el.droppedCount.Add(1)
	}
	event.Sequence = el.head
	el.buffer[el.head%EventBufferSize] = event
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple creates and emits an event in one call
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, runID, source string, payload interface{}) bool {
	if !el.running.Load() {
		return false
	}
	return el.Emit(NewEvent(eventType, tickNum, runID, source, payload))
}

func (el *EventLog) sourceLimiter(source string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.sourceLimiters.Load(source); ok {
		e := v.(*sourceLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &sourceLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerSource, MaxEventsPerSource/5),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.sourceLimiters.LoadOrStore(source, entry)
	return actual.(*sourceLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(SourceLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupSourceLimiters(time.Now().Add(-SourceLimiterCleanup))
		}
	}
}

func (el *EventLog) cleanupSourceLimiters(cutoff time.Time) {
	el.sourceLimiters.Range(func(key, value interface{}) bool {
		if value.(*sourceLimiterEntry).lastUsed.Load() < cutoff.UnixNano() {
			el.sourceLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.tail < el.head && len(batch) < BatchFlushSize {
		el.tail++
		batch = append(batch, el.buffer[el.tail%EventBufferSize])
	}
	return batch
}

// flushBatch appends events as newline-delimited JSON
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	w := bufio.NewWriter(el.file)
	enc := json.NewEncoder(w)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			continue
		}
	}
	w.Flush()
}

// GetStats returns counters for monitoring
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.head - el.tail
	el.mu.Unlock()

	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": pending,
		"running": el.running.Load(),
		"path":    el.filePath,
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

// GetTotalCount returns the number of accepted events
func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}
