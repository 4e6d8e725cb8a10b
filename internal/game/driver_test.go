package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestDriverTicksAtInterval(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := newTestGame(t, classicOptions(), nil)
	d := NewDriver(g, 150*time.Millisecond, clock)

	_, ticked := d.Update()
	assert.False(t, ticked, "first update only starts the schedule")

	clock.Advance(100 * time.Millisecond)
	_, ticked = d.Update()
	assert.False(t, ticked)

	clock.Advance(50 * time.Millisecond)
	outcome, ticked := d.Update()
	assert.True(t, ticked)
	assert.Equal(t, OutcomeContinued, outcome)
	assert.Equal(t, uint64(1), g.TickCount())

	_, ticked = d.Update()
	assert.False(t, ticked, "at most one tick per interval")
}

func TestDriverResyncsWhenBehind(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := newTestGame(t, classicOptions(), nil)
	d := NewDriver(g, 100*time.Millisecond, clock)
	d.Update()

	clock.Advance(time.Second)
	_, ticked := d.Update()
	require.True(t, ticked)

	_, ticked = d.Update()
	assert.False(t, ticked, "no burst of catch-up ticks")
	assert.Equal(t, uint64(1), g.TickCount())
}

func TestDriverQuitAndDone(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := newTestGame(t, classicOptions(), nil)
	d := NewDriver(g, 10*time.Millisecond, clock)

	assert.False(t, d.Done())
	d.Quit()
	assert.True(t, d.Done())

	clock.Advance(time.Second)
	_, ticked := d.Update()
	assert.False(t, ticked)

	d.Restart()
	assert.False(t, d.Done())
}

func TestDriverStopPolicyEndsGame(t *testing.T) {
	opts := classicOptions()
	opts.OnDeath = DeathStop
	opts.Boundary = BoundaryWall
	opts.InitialBody = []Cell{{380, 100}, {360, 100}}

	g := newTestGame(t, opts, nil)
	d := NewDriver(g, 10*time.Millisecond, nil)

	assert.Equal(t, OutcomeDied, d.Tick())
	assert.True(t, d.Done())
	assert.Equal(t, OutcomeDied, d.Tick())

	d.RequestDirection(DirUp)
	d.Restart()
	assert.False(t, d.Done())
	assert.Equal(t, DirNone, g.PendingDirection(), "restart drops stale input")
}

func TestDriverForwardsDirection(t *testing.T) {
	g := newTestGame(t, classicOptions(), nil)
	d := NewDriver(g, 10*time.Millisecond, nil)

	d.RequestDirection(DirDown)
	d.Tick()
	assert.Equal(t, DirDown, g.Snake().Heading())
	assert.Equal(t, Cell{100, 120}, g.Snake().Head())
}

func TestDriverUpdateAfterGameOver(t *testing.T) {
	opts := classicOptions()
	opts.OnDeath = DeathStop
	opts.Boundary = BoundaryWall
	opts.InitialBody = []Cell{{380, 100}, {360, 100}}

	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := newTestGame(t, opts, nil)
	d := NewDriver(g, 100*time.Millisecond, clock)
	d.Update()

	clock.Advance(100 * time.Millisecond)
	outcome, ticked := d.Update()
	require.True(t, ticked)
	require.Equal(t, OutcomeDied, outcome)

	for i := 0; i < 3; i++ {
		clock.Advance(100 * time.Millisecond)
		outcome, ticked = d.Update()
		assert.False(t, ticked, "update %d after game over", i)
		assert.Equal(t, OutcomeDied, outcome)
	}
	assert.Equal(t, uint64(1), g.TickCount())

	d.Restart()
	clock.Advance(100 * time.Millisecond)
	_, ticked = d.Update()
	assert.True(t, ticked, "restart resumes ticking")
}
