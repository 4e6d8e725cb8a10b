package game

import "time"

// Snapshot is an immutable copy of the game state for renderers and clients.
// Body is head first. Nothing in a Snapshot aliases live game memory.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`  // set by the engine when published
	Timestamp time.Time `json:"timestamp"` // set by the engine when published
	Tick      uint64    `json:"tick"`      // ticks across all runs
	RunID     string    `json:"runId"`
	RunTick   uint64    `json:"runTick"`

	Body    []Cell      `json:"body"`
	Fruit   Cell        `json:"fruit"`
	Alive   bool        `json:"alive"`
	Status  Status      `json:"status"`
	Outcome TickOutcome `json:"outcome"` // outcome of the tick that produced this state
	Heading Direction   `json:"heading"`

	Score     int `json:"score"`
	BestScore int `json:"bestScore"`
	Length    int `json:"length"`

	Width    int `json:"width"`
	Height   int `json:"height"`
	CellSize int `json:"cellSize"`
}

// Head returns the head cell, or false for an empty snapshot
func (s *Snapshot) Head() (Cell, bool) {
	if len(s.Body) == 0 {
		return Cell{}, false
	}
	return s.Body[0], true
}

// Grid returns the play field described by the snapshot
func (s *Snapshot) Grid() Grid {
	return Grid{Width: s.Width, Height: s.Height, CellSize: s.CellSize}
}
