package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
)

// DefaultSnakeLength is the length of the generated starting body
const DefaultSnakeLength = 3

// DeathPolicy decides what the game does after the snake dies
type DeathPolicy uint8

const (
	DeathReset DeathPolicy = iota // start a new run immediately
	DeathStop                     // terminate the game
)

func (p DeathPolicy) String() string {
	if p == DeathStop {
		return "stop"
	}
	return "reset"
}

// ParseDeathPolicy maps "reset" / "stop" to a DeathPolicy
func ParseDeathPolicy(s string) (DeathPolicy, error) {
	switch s {
	case "reset", "":
		return DeathReset, nil
	case "stop":
		return DeathStop, nil
	}
	return DeathReset, fmt.Errorf("%w: unknown death policy %q", ErrInvalidConfig, s)
}

// TickOutcome is the result of one simulation tick
type TickOutcome uint8

const (
	OutcomeContinued TickOutcome = iota
	OutcomeAteFruit
	OutcomeDied
	OutcomeBoardFull
)

func (o TickOutcome) String() string {
	switch o {
	case OutcomeAteFruit:
		return "ate_fruit"
	case OutcomeDied:
		return "died"
	case OutcomeBoardFull:
		return "board_full"
	default:
		return "continued"
	}
}

// MarshalText implements encoding.TextMarshaler
func (o TickOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Status is the state of the game as a whole
type Status uint8

const (
	StatusRunning Status = iota
	StatusDead
	StatusBoardFull
)

func (s Status) String() string {
	switch s {
	case StatusDead:
		return "dead"
	case StatusBoardFull:
		return "board_full"
	default:
		return "running"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options configures a Game
type Options struct {
	Width    int // pixels
	Height   int // pixels
	CellSize int // pixels per cell edge

	Boundary Boundary
	OnDeath  DeathPolicy

	// InitialBody is the head-first starting body. Empty means a body of
	// DefaultSnakeLength cells ending at the centre of the field.
	InitialBody    []Cell
	InitialHeading Direction // DirNone means right

	HistorySize int // finished runs kept in memory (0 = DefaultHistorySize)

	// Now is used to timestamp finished runs. Nil means time.Now.
	Now func() time.Time
}

// Game aggregates the snake, the fruit and the running state.
// It is not safe for concurrent use: exactly one driver owns it.
type Game struct {
	grid   Grid
	opts   Options
	placer *FruitPlacer

	snake  *Snake
	fruit  Cell
	input  InputQueue
	status Status

	tick        uint64 // ticks across all runs
	runTicks    uint64
	score       int
	runID       string
	recorded    bool
	lastOutcome TickOutcome

	history *RunHistory
}

// NewGame validates opts, places the first fruit and returns a running game
func NewGame(opts Options, rng RandSource) (*Game, error) {
	grid, err := NewGrid(opts.Width, opts.Height, opts.CellSize)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", ErrInvalidConfig)
	}
	if opts.Boundary != BoundaryWrap && opts.Boundary != BoundaryWall {
		return nil, fmt.Errorf("%w: unknown boundary %d", ErrInvalidConfig, opts.Boundary)
	}
	if opts.OnDeath != DeathReset && opts.OnDeath != DeathStop {
		return nil, fmt.Errorf("%w: unknown death policy %d", ErrInvalidConfig, opts.OnDeath)
	}
	if opts.InitialHeading == DirNone {
		opts.InitialHeading = DirRight
	}
	if !opts.InitialHeading.Valid() {
		return nil, fmt.Errorf("%w: invalid initial heading %d", ErrInvalidConfig, opts.InitialHeading)
	}
	if len(opts.InitialBody) == 0 {
		opts.InitialBody = defaultBody(grid, opts.InitialHeading)
	} else {
		opts.InitialBody = append([]Cell(nil), opts.InitialBody...)
	}
	if err := validateBody(grid, opts.InitialBody); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	g := &Game{
		grid:    grid,
		opts:    opts,
		placer:  NewFruitPlacer(grid, rng),
		history: NewRunHistory(opts.HistorySize),
	}
	if err := g.start(); err != nil {
		if errors.Is(err, ErrBoardFull) {
			return nil, fmt.Errorf("%w: initial body leaves no free cell", ErrInvalidConfig)
		}
		return nil, err
	}
	return g, nil
}

// defaultBody lays DefaultSnakeLength cells behind the centre cell, opposite to heading
func defaultBody(grid Grid, heading Direction) []Cell {
	length := DefaultSnakeLength
	span := grid.Cols()
	if heading == DirUp || heading == DirDown {
		span = grid.Rows()
	}
	if span < length {
		length = span
	}

	body := make([]Cell, 0, length)
	c := grid.Center()
	back := heading.Opposite()
	for i := 0; i < length; i++ {
		body = append(body, c)
		c = grid.Wrap(grid.Next(c, back))
	}
	return body
}

func validateBody(grid Grid, body []Cell) error {
	seen := intmap.New[int, struct{}](len(body))
	for _, c := range body {
		if !grid.InBounds(c) || !grid.Aligned(c) {
			return fmt.Errorf("%w: body cell (%d,%d) is off the grid", ErrInvalidConfig, c.X, c.Y)
		}
		idx := grid.Index(c)
		if _, dup := seen.Get(idx); dup {
			return fmt.Errorf("%w: body cell (%d,%d) appears twice", ErrInvalidConfig, c.X, c.Y)
		}
		seen.Put(idx, struct{}{})
	}
	return nil
}

// start begins a fresh run
func (g *Game) start() error {
	g.snake = NewSnake(g.opts.InitialBody, g.opts.InitialHeading)
	g.input.Clear()
	g.status = StatusRunning
	g.runTicks = 0
	g.score = 0
	g.recorded = false
	g.lastOutcome = OutcomeContinued
	g.runID = uuid.NewString()

	fruit, err := g.placer.Place(g.snake.Cells())
	if err != nil {
		g.status = StatusBoardFull
		return err
	}
	g.fruit = fruit
	return nil
}

// RequestDirection queues a heading change for the next tick. Only the latest request counts.
func (g *Game) RequestDirection(d Direction) {
	g.input.Set(d)
}

// Tick advances the simulation by one step.
// On a game that has already terminated it does nothing and repeats the terminal outcome.
func (g *Game) Tick() TickOutcome {
	if g.status != StatusRunning {
		return g.lastOutcome
	}

	res := g.snake.Step(g.grid, g.opts.Boundary, g.input.Consume(), g.fruit)
	g.tick++
	g.runTicks++

	if res.Died {
		reason := EndCollision
		if !g.grid.InBounds(res.Head) {
			reason = EndWall
		}
		return g.terminate(OutcomeDied, StatusDead, reason)
	}

	if !res.Ate {
		g.lastOutcome = OutcomeContinued
		return OutcomeContinued
	}

	g.score++
	fruit, err := g.placer.Place(g.snake.Cells())
	if err != nil {
		return g.terminate(OutcomeBoardFull, StatusBoardFull, EndBoardFull)
	}
	g.fruit = fruit
	g.lastOutcome = OutcomeAteFruit
	return OutcomeAteFruit
}

// terminate ends the current run and applies the death policy
func (g *Game) terminate(outcome TickOutcome, status Status, reason EndReason) TickOutcome {
	g.finishRun(reason)
	if g.opts.OnDeath == DeathReset {
		// a failed start leaves the game terminated as board_full
		_ = g.start()
	} else {
		g.status = status
	}
	g.lastOutcome = outcome
	return outcome
}

func (g *Game) finishRun(reason EndReason) {
	if g.recorded {
		return
	}
	g.recorded = true
	g.history.Record(RunRecord{
		RunID:   g.runID,
		Score:   g.score,
		Length:  g.snake.Len(),
		Ticks:   g.runTicks,
		Reason:  reason,
		EndedAt: g.opts.Now(),
	})
}

// Reset abandons the current run (if still running) and starts a new one.
// It returns ErrBoardFull when the starting body leaves no cell for the fruit; NewGame rejects
// such a body, so this only happens if the game was built some other way.
func (g *Game) Reset() error {
	if g.status == StatusRunning && g.runTicks > 0 {
		g.finishRun(EndRestart)
	}
	return g.start()
}

// Grid returns the play field geometry
func (g *Game) Grid() Grid { return g.grid }

// Options returns the effective options (defaults applied)
func (g *Game) Options() Options { return g.opts }

// Status returns running, dead or board_full
func (g *Game) Status() Status { return g.status }

// Running reports whether Tick still advances the simulation
func (g *Game) Running() bool { return g.status == StatusRunning }

// Snake returns the current snake. Callers must treat it as read-only.
func (g *Game) Snake() *Snake { return g.snake }

// Fruit returns the fruit cell
func (g *Game) Fruit() Cell { return g.fruit }

// Score returns the fruits eaten in the current run
func (g *Game) Score() int { return g.score }

// TickCount returns the number of ticks simulated across all runs
func (g *Game) TickCount() uint64 { return g.tick }

// RunID identifies the current run
func (g *Game) RunID() string { return g.runID }

// History returns the finished runs
func (g *Game) History() *RunHistory { return g.history }

// LastOutcome returns the outcome of the most recent tick
func (g *Game) LastOutcome() TickOutcome { return g.lastOutcome }

// PendingDirection returns the queued but not yet applied request
func (g *Game) PendingDirection() Direction { return g.input.Pending() }

// Snapshot returns an immutable copy of the state for renderers
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Tick:      g.tick,
		RunID:     g.runID,
		RunTick:   g.runTicks,
		Body:      g.snake.Body(),
		Fruit:     g.fruit,
		Alive:     g.status == StatusRunning && g.snake.Alive(),
		Status:    g.status,
		Outcome:   g.lastOutcome,
		Heading:   g.snake.Heading(),
		Score:     g.score,
		BestScore: g.history.Best(),
		Length:    g.snake.Len(),
		Width:     g.grid.Width,
		Height:    g.grid.Height,
		CellSize:  g.grid.CellSize,
	}
}
