package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqRand returns the queued values in order, modulo n, then repeats the last one
type seqRand struct {
	values []int
	calls  int
}

func (r *seqRand) Intn(n int) int {
	v := 0
	if len(r.values) > 0 {
		idx := r.calls
		if idx >= len(r.values) {
			idx = len(r.values) - 1
		}
		v = r.values[idx]
	}
	r.calls++
	return v % n
}

func TestFruitPlacerAvoidsBody(t *testing.T) {
	g, err := NewGrid(100, 100, 20)
	require.NoError(t, err)

	body := []Cell{{0, 0}, {20, 0}, {40, 0}, {60, 0}, {80, 0}}
	p := NewFruitPlacer(g, rand.New(rand.NewSource(42)))

	for i := 0; i < 500; i++ {
		fruit, err := p.Place(body)
		require.NoError(t, err)
		assert.True(t, g.InBounds(fruit))
		assert.True(t, g.Aligned(fruit))
		assert.NotContains(t, body, fruit)
	}
	assert.Equal(t, 20, p.FreeCells())
}

func TestFruitPlacerUsesInjectedSource(t *testing.T) {
	g, err := NewGrid(60, 20, 20)
	require.NoError(t, err)

	// free cells in row-major order: (20,0), (40,0)
	p := NewFruitPlacer(g, &seqRand{values: []int{1, 0}})
	body := []Cell{{0, 0}}

	fruit, err := p.Place(body)
	require.NoError(t, err)
	assert.Equal(t, Cell{40, 0}, fruit)

	fruit, err = p.Place(body)
	require.NoError(t, err)
	assert.Equal(t, Cell{20, 0}, fruit)
}

func TestFruitPlacerSingleFreeCell(t *testing.T) {
	g, err := NewGrid(40, 40, 20)
	require.NoError(t, err)

	p := NewFruitPlacer(g, &seqRand{values: []int{7}})
	fruit, err := p.Place([]Cell{{0, 0}, {20, 0}, {0, 20}})
	require.NoError(t, err)
	assert.Equal(t, Cell{20, 20}, fruit)
}

func TestFruitPlacerBoardFull(t *testing.T) {
	g, err := NewGrid(40, 20, 20)
	require.NoError(t, err)

	p := NewFruitPlacer(g, &seqRand{})
	_, err = p.Place([]Cell{{0, 0}, {20, 0}})
	assert.ErrorIs(t, err, ErrBoardFull)
	assert.Equal(t, 0, p.FreeCells())
}
