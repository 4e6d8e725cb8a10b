package game

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the play field or initial state is inconsistent.
var ErrInvalidConfig = errors.New("invalid game configuration")

// Cell is a pixel-aligned grid position. Both coordinates are multiples of the cell size.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add offsets a cell by dx, dy pixels
func (c Cell) Add(dx, dy int) Cell {
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Direction is one of the four headings. The zero value means "no request".
type Direction uint8

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// Delta returns the unit vector of the direction in cells (y grows downwards)
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	default:
		return 0, 0
	}
}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	default:
		return DirNone
	}
}

// Valid reports whether d is one of the four headings
func (d Direction) Valid() bool {
	return d >= DirUp && d <= DirRight
}

// String returns the lower-case name used on the wire
func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, ok := ParseDirection(string(text))
	if !ok {
		return fmt.Errorf("unknown direction %q", text)
	}
	*d = parsed
	return nil
}

// ParseDirection parses the canonical wire names ("up", "down", "left", "right", "none")
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return DirUp, true
	case "down":
		return DirDown, true
	case "left":
		return DirLeft, true
	case "right":
		return DirRight, true
	case "none", "":
		return DirNone, true
	}
	return DirNone, false
}

// Boundary selects what happens when the head leaves the play field
type Boundary uint8

const (
	BoundaryWrap Boundary = iota // re-enter on the opposite edge
	BoundaryWall                 // leaving the field kills the snake
)

func (b Boundary) String() string {
	if b == BoundaryWall {
		return "wall"
	}
	return "wrap"
}

// ParseBoundary maps "wrap" / "wall" to a Boundary
func ParseBoundary(s string) (Boundary, error) {
	switch s {
	case "wrap", "":
		return BoundaryWrap, nil
	case "wall":
		return BoundaryWall, nil
	}
	return BoundaryWrap, fmt.Errorf("%w: unknown boundary %q", ErrInvalidConfig, s)
}

// Grid describes the play field. Width and Height are in pixels and are multiples of CellSize.
type Grid struct {
	Width    int
	Height   int
	CellSize int
}

// NewGrid validates the field dimensions and returns the grid
func NewGrid(width, height, cellSize int) (Grid, error) {
	if width <= 0 || height <= 0 || cellSize <= 0 {
		return Grid{}, fmt.Errorf("%w: dimensions must be positive (width=%d height=%d cell=%d)",
			ErrInvalidConfig, width, height, cellSize)
	}
	if width%cellSize != 0 || height%cellSize != 0 {
		return Grid{}, fmt.Errorf("%w: %dx%d is not divisible by cell size %d",
			ErrInvalidConfig, width, height, cellSize)
	}
	return Grid{Width: width, Height: height, CellSize: cellSize}, nil
}

// Cols returns the number of cell columns
func (g Grid) Cols() int { return g.Width / g.CellSize }

// Rows returns the number of cell rows
func (g Grid) Rows() int { return g.Height / g.CellSize }

// CellCount returns the total number of cells on the field
func (g Grid) CellCount() int { return g.Cols() * g.Rows() }

// Wrap folds a cell that left the field back onto the opposite edge.
// A coordinate past the far edge becomes 0, a negative one becomes bound - CellSize.
func (g Grid) Wrap(c Cell) Cell {
	if c.X >= g.Width {
		c.X = 0
	} else if c.X < 0 {
		c.X = g.Width - g.CellSize
	}
	if c.Y >= g.Height {
		c.Y = 0
	} else if c.Y < 0 {
		c.Y = g.Height - g.CellSize
	}
	return c
}

// InBounds reports whether c lies on the field
func (g Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Aligned reports whether both coordinates are multiples of the cell size
func (g Grid) Aligned(c Cell) bool {
	return c.X%g.CellSize == 0 && c.Y%g.CellSize == 0
}

// Index returns the row-major cell index of an in-bounds, aligned cell
func (g Grid) Index(c Cell) int {
	return (c.Y/g.CellSize)*g.Cols() + c.X/g.CellSize
}

// CellAt is the inverse of Index
func (g Grid) CellAt(index int) Cell {
	cols := g.Cols()
	return Cell{X: (index % cols) * g.CellSize, Y: (index / cols) * g.CellSize}
}

// Next returns the cell one step from c in direction d, without wrapping
func (g Grid) Next(c Cell, d Direction) Cell {
	dx, dy := d.Delta()
	return c.Add(dx*g.CellSize, dy*g.CellSize)
}

// Center returns the cell containing the middle of the field
func (g Grid) Center() Cell {
	return Cell{
		X: (g.Width / 2 / g.CellSize) * g.CellSize,
		Y: (g.Height / 2 / g.CellSize) * g.CellSize,
	}
}
