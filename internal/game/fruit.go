package game

import (
	"errors"

	"github.com/kamstrup/intmap"
)

// ErrBoardFull is returned by the placer when every cell is occupied
var ErrBoardFull = errors.New("board full")

// RandSource is the randomness the placer draws from. *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

// FruitPlacer picks a free cell uniformly at random.
// It enumerates the free cells once per call, so it terminates no matter how full the board is.
// Not safe for concurrent use; it reuses its scratch buffers between calls.
type FruitPlacer struct {
	grid     Grid
	rng      RandSource
	occupied *intmap.Map[int, struct{}]
	free     []int
}

// NewFruitPlacer creates a placer for the grid using rng
func NewFruitPlacer(grid Grid, rng RandSource) *FruitPlacer {
	return &FruitPlacer{
		grid:     grid,
		rng:      rng,
		occupied: intmap.New[int, struct{}](64),
		free:     make([]int, 0, grid.CellCount()),
	}
}

// Place returns a cell that is not in occupied, or ErrBoardFull
func (p *FruitPlacer) Place(occupied []Cell) (Cell, error) {
	p.occupied.Clear()
	for _, c := range occupied {
		if p.grid.InBounds(c) {
			p.occupied.Put(p.grid.Index(c), struct{}{})
		}
	}

	p.free = p.free[:0]
	for i, n := 0, p.grid.CellCount(); i < n; i++ {
		if _, taken := p.occupied.Get(i); !taken {
			p.free = append(p.free, i)
		}
	}

	if len(p.free) == 0 {
		return Cell{}, ErrBoardFull
	}
	return p.grid.CellAt(p.free[p.rng.Intn(len(p.free))]), nil
}

// FreeCells returns how many cells the last Place call could choose from
func (p *FruitPlacer) FreeCells() int {
	return len(p.free)
}
