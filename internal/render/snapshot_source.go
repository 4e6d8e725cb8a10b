package render

import (
	"sync/atomic"

	"snake-pit/internal/game"
	"snake-pit/internal/ipc"
)

// SnapshotSource is where a viewer gets the state to draw.
// This lets viewers run next to a local engine or behind IPC.
type SnapshotSource interface {
	// GetSnapshot returns the latest state, nil if none has arrived yet
	GetSnapshot() *game.Snapshot
}

// LocalSource wraps anything with a GetSnapshot method, e.g. *game.Engine
type LocalSource struct {
	engine interface{ GetSnapshot() *game.Snapshot }
}

// NewLocalSource creates a SnapshotSource from a local engine
func NewLocalSource(engine interface{ GetSnapshot() *game.Snapshot }) *LocalSource {
	return &LocalSource{engine: engine}
}

// GetSnapshot returns the latest snapshot from the local engine
func (s *LocalSource) GetSnapshot() *game.Snapshot {
	return s.engine.GetSnapshot()
}

// IPCSource converts snapshots as they arrive from an IPC subscriber
type IPCSource struct {
	last atomic.Pointer[game.Snapshot]
}

// NewIPCSource registers itself as the subscriber's snapshot callback. Call before subscriber.Start.
// next, if non-nil, is called with every converted snapshot.
func NewIPCSource(subscriber *ipc.Subscriber, next func(*game.Snapshot)) *IPCSource {
	source := &IPCSource{}
	subscriber.OnSnapshot(func(msg *ipc.SnapshotMessage) {
		snap := msg.ToSnapshot()
		source.last.Store(snap)
		if next != nil {
			next(snap)
		}
	})
	return source
}

// GetSnapshot returns the latest snapshot received over IPC
func (s *IPCSource) GetSnapshot() *game.Snapshot {
	return s.last.Load()
}

// Sequence returns the sequence number of the latest snapshot, 0 before the first one
func (s *IPCSource) Sequence() uint64 {
	if snap := s.last.Load(); snap != nil {
		return snap.Sequence
	}
	return 0
}
