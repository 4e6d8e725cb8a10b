package ipc

import (
	"fmt"
	"time"

	"snake-pit/internal/game"
)

// FromSnapshot converts a game snapshot to its wire form
func FromSnapshot(s *game.Snapshot) *SnapshotMessage {
	msg := &SnapshotMessage{
		Sequence:  s.Sequence,
		Timestamp: s.Timestamp.UnixNano(),
		Tick:      s.Tick,
		RunID:     s.RunID,
		RunTick:   s.RunTick,
		Body:      make([]CellData, len(s.Body)),
		Fruit:     CellData{X: int32(s.Fruit.X), Y: int32(s.Fruit.Y)},
		Alive:     s.Alive,
		Status:    uint8(s.Status),
		Outcome:   uint8(s.Outcome),
		Heading:   uint8(s.Heading),
		Score:     s.Score,
		BestScore: s.BestScore,
		Length:    s.Length,
		Width:     s.Width,
		Height:    s.Height,
		CellSize:  s.CellSize,
	}
	for i, c := range s.Body {
		msg.Body[i] = CellData{X: int32(c.X), Y: int32(c.Y)}
	}
	return msg
}

// ToSnapshot converts a received message back to a game.Snapshot so the
// render package can draw it like a local one
func (msg *SnapshotMessage) ToSnapshot() *game.Snapshot {
	snap := &game.Snapshot{
		Sequence:  msg.Sequence,
		Timestamp: time.Unix(0, msg.Timestamp),
		Tick:      msg.Tick,
		RunID:     msg.RunID,
		RunTick:   msg.RunTick,
		Body:      make([]game.Cell, len(msg.Body)),
		Fruit:     game.Cell{X: int(msg.Fruit.X), Y: int(msg.Fruit.Y)},
		Alive:     msg.Alive,
		Status:    game.Status(msg.Status),
		Outcome:   game.TickOutcome(msg.Outcome),
		Heading:   game.Direction(msg.Heading),
		Score:     msg.Score,
		BestScore: msg.BestScore,
		Length:    msg.Length,
		Width:     msg.Width,
		Height:    msg.Height,
		CellSize:  msg.CellSize,
	}
	for i, c := range msg.Body {
		snap.Body[i] = game.Cell{X: int(c.X), Y: int(c.Y)}
	}
	return snap
}

// ConfigFromSettings converts the engine settings to the handshake message
func ConfigFromSettings(s game.Settings) ConfigMessage {
	return ConfigMessage{
		Width:          s.Width,
		Height:         s.Height,
		CellSize:       s.CellSize,
		TickIntervalMs: s.TickIntervalMs,
		Boundary:       s.Boundary,
		OnDeath:        s.OnDeath,
	}
}

// CheckGrid reports an error when a full board on this field would not fit in one message
func CheckGrid(settings game.Settings) error {
	if cells := settings.Cols * settings.Rows; cells > MaxGridCells {
		return fmt.Errorf("%dx%d field has %d cells, snapshots support at most %d",
			settings.Cols, settings.Rows, cells, MaxGridCells)
	}
	return nil
}
