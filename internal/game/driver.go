package game

import (
	"log"
	"time"
)

// Clock abstracts time so the driver can be tested without sleeping
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// Driver runs a Game at a fixed tick interval from a single thread.
// The caller invokes Update once per frame; at most one tick is simulated per call
// and a driver that falls far behind resynchronises instead of bursting.
type Driver struct {
	game     *Game
	interval time.Duration
	clock    Clock
	events   *EventLog

	last    time.Time
	started bool
	quit    bool
	source  string
}

// NewDriver wraps g. A nil clock uses the wall clock.
func NewDriver(g *Game, interval time.Duration, clock Clock) *Driver {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Driver{game: g, interval: interval, clock: clock, source: "local"}
}

// SetEventLog records ticks, deaths and resets to el
func (d *Driver) SetEventLog(el *EventLog) {
	d.events = el
}

// Game returns the driven game
func (d *Driver) Game() *Game { return d.game }

// Interval returns the tick interval
func (d *Driver) Interval() time.Duration { return d.interval }

// RequestDirection forwards an input to the game
func (d *Driver) RequestDirection(dir Direction) {
	if d.quit || !dir.Valid() {
		return
	}
	d.game.RequestDirection(dir)
	if d.events != nil {
		d.events.EmitSimple(EventTypeDirection, d.game.TickCount(), d.game.RunID(), d.source,
			DirectionPayload{Direction: dir, Heading: d.game.Snake().Heading()})
	}
}

// Update advances the game if a tick interval has elapsed.
// It reports the outcome and whether a tick actually ran. A terminated game never ticks.
func (d *Driver) Update() (TickOutcome, bool) {
	if d.quit || !d.game.Running() {
		return d.game.LastOutcome(), false
	}

	now := d.clock.Now()
	if !d.started {
		d.started = true
		d.last = now
		return d.game.LastOutcome(), false
	}
	if now.Sub(d.last) < d.interval {
		return d.game.LastOutcome(), false
	}

	d.last = d.last.Add(d.interval)
	if now.Sub(d.last) >= d.interval {
		d.last = now
	}

	return d.Tick(), true
}

// Tick simulates one step immediately, ignoring the clock
func (d *Driver) Tick() TickOutcome {
	if !d.game.Running() {
		return d.game.LastOutcome()
	}
	runID := d.game.RunID()
	prevFruit := d.game.Fruit()
	outcome := d.game.Tick()
	if d.events != nil {
		emitTickEvents(d.events, d.game, runID, prevFruit, outcome, 0)
	}
	return outcome
}

// Restart starts a new run and restarts the tick schedule
func (d *Driver) Restart() {
	prev := d.game.RunID()
	if err := d.game.Reset(); err != nil {
		log.Printf("⚠️ Restart failed: %v", err)
	}
	d.last = d.clock.Now()
	d.started = true
	d.quit = false
	if d.events != nil {
		emitReset(d.events, d.game, prev)
	}
}

// Quit stops the driver; further Updates do nothing
func (d *Driver) Quit() { d.quit = true }

// Done reports whether the driver has been quit or the game terminated
func (d *Driver) Done() bool {
	return d.quit || !d.game.Running()
}

// Running is the inverse of Done
func (d *Driver) Running() bool { return !d.Done() }

// emitTickEvents logs the events produced by one tick.
// runID and prevFruit are the values from before the tick, since a reset may have replaced them.
func emitTickEvents(el *EventLog, g *Game, runID string, prevFruit Cell, outcome TickOutcome, seed int64) {
	tick := g.TickCount()
	snake := g.Snake()
	el.EmitSimple(EventTypeTick, tick, runID, "", TickPayload{
		Outcome: outcome,
		Head:    snake.Head(),
		Heading: snake.Heading(),
		Length:  snake.Len(),
		Seed:    seed,
	})

	switch outcome {
	case OutcomeAteFruit:
		el.EmitSimple(EventTypeFruitEaten, tick, runID, "", FruitPayload{
			Eaten: prevFruit,
			Next:  g.Fruit(),
			Score: g.Score(),
		})
	case OutcomeDied, OutcomeBoardFull:
		eventType := EventTypeDeath
		if outcome == OutcomeBoardFull {
			eventType = EventTypeBoardFull
		}
		if runs := g.History().Recent(1); len(runs) > 0 {
			r := runs[0]
			el.EmitSimple(eventType, tick, runID, "", RunEndPayload{
				Reason: r.Reason,
				Score:  r.Score,
				Length: r.Length,
				Ticks:  r.Ticks,
			})
		}
		if g.Running() {
			emitReset(el, g, runID)
		}
	}
}

func emitReset(el *EventLog, g *Game, previousRunID string) {
	el.EmitSimple(EventTypeReset, g.TickCount(), g.RunID(), "", ResetPayload{
		PreviousRunID: previousRunID,
		Body:          g.Snake().Body(),
		Fruit:         g.Fruit(),
	})
}
