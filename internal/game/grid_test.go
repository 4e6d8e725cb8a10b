package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridValidation(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		cell          int
		wantErr       bool
	}{
		{"classic field", 800, 600, 20, false},
		{"single cell", 20, 20, 20, false},
		{"zero width", 0, 600, 20, true},
		{"negative height", 800, -20, 20, true},
		{"zero cell", 800, 600, 0, true},
		{"width not divisible", 810, 600, 20, true},
		{"height not divisible", 800, 610, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.width, tt.height, tt.cell)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGridWrap(t *testing.T) {
	g, err := NewGrid(400, 400, 20)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Cell
		want Cell
	}{
		{"inside unchanged", Cell{100, 100}, Cell{100, 100}},
		{"past right edge", Cell{400, 100}, Cell{0, 100}},
		{"past left edge", Cell{-20, 100}, Cell{380, 100}},
		{"past bottom edge", Cell{100, 400}, Cell{100, 0}},
		{"past top edge", Cell{100, -20}, Cell{100, 380}},
		{"corner", Cell{-20, 400}, Cell{380, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Wrap(tt.in))
		})
	}
}

func TestGridIndexRoundTrip(t *testing.T) {
	g, err := NewGrid(100, 60, 20)
	require.NoError(t, err)
	require.Equal(t, 5, g.Cols())
	require.Equal(t, 3, g.Rows())
	require.Equal(t, 15, g.CellCount())

	for i := 0; i < g.CellCount(); i++ {
		c := g.CellAt(i)
		assert.True(t, g.InBounds(c))
		assert.True(t, g.Aligned(c))
		assert.Equal(t, i, g.Index(c))
	}
}

func TestGridCenter(t *testing.T) {
	g, err := NewGrid(800, 600, 20)
	require.NoError(t, err)
	assert.Equal(t, Cell{400, 300}, g.Center())

	g, err = NewGrid(100, 60, 20)
	require.NoError(t, err)
	assert.Equal(t, Cell{40, 20}, g.Center())
}

func TestDirectionOpposite(t *testing.T) {
	pairs := map[Direction]Direction{
		DirUp:    DirDown,
		DirDown:  DirUp,
		DirLeft:  DirRight,
		DirRight: DirLeft,
	}
	for d, want := range pairs {
		assert.Equal(t, want, d.Opposite(), d.String())
	}
	assert.Equal(t, DirNone, DirNone.Opposite())
}

func TestParseDirection(t *testing.T) {
	for _, name := range []string{"up", "down", "left", "right"} {
		d, ok := ParseDirection(name)
		require.True(t, ok, name)
		assert.Equal(t, name, d.String())
	}
	_, ok := ParseDirection("sideways")
	assert.False(t, ok)

	var d Direction
	assert.Error(t, d.UnmarshalText([]byte("diagonal")))
	require.NoError(t, d.UnmarshalText([]byte("left")))
	assert.Equal(t, DirLeft, d)
}

func TestParseBoundary(t *testing.T) {
	b, err := ParseBoundary("")
	require.NoError(t, err)
	assert.Equal(t, BoundaryWrap, b)

	b, err = ParseBoundary("wall")
	require.NoError(t, err)
	assert.Equal(t, BoundaryWall, b)

	_, err = ParseBoundary("bounce")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
