package game

// SnakeState is the lifecycle state of a snake
type SnakeState uint8

const (
	SnakeAlive SnakeState = iota
	SnakeDead
)

func (s SnakeState) String() string {
	if s == SnakeDead {
		return "dead"
	}
	return "alive"
}

// Snake owns the occupied cells, the heading and the growth flag.
// Segments are stored tail first so moving and growing are amortized O(1) appends.
type Snake struct {
	segments []Cell // tail first, head last
	heading  Direction
	grow     bool
	state    SnakeState
}

// StepResult reports what happened during one Step
type StepResult struct {
	Head Cell // head after the step (the out-of-bounds cell when a wall was hit)
	Ate  bool
	Died bool
}

// NewSnake creates a snake from a head-first body. The body must not be empty.
func NewSnake(body []Cell, heading Direction) *Snake {
	segments := make([]Cell, len(body), len(body)+16)
	for i, c := range body {
		segments[len(body)-1-i] = c
	}
	return &Snake{segments: segments, heading: heading}
}

// Head returns the head cell
func (s *Snake) Head() Cell {
	return s.segments[len(s.segments)-1]
}

// Tail returns the last cell of the body
func (s *Snake) Tail() Cell {
	return s.segments[0]
}

// Len returns the number of occupied cells
func (s *Snake) Len() int {
	return len(s.segments)
}

// Heading returns the current direction of travel
func (s *Snake) Heading() Direction {
	return s.heading
}

// State returns alive or dead
func (s *Snake) State() SnakeState {
	return s.state
}

// Alive reports whether the snake can still move
func (s *Snake) Alive() bool {
	return s.state == SnakeAlive
}

// Body returns a head-first copy of the occupied cells
func (s *Snake) Body() []Cell {
	body := make([]Cell, len(s.segments))
	for i, c := range s.segments {
		body[len(s.segments)-1-i] = c
	}
	return body
}

// Cells returns the occupied cells tail first. The slice is owned by the snake and must not be modified.
func (s *Snake) Cells() []Cell {
	return s.segments
}

// Occupies reports whether c is part of the body
func (s *Snake) Occupies(c Cell) bool {
	for _, seg := range s.segments {
		if seg == c {
			return true
		}
	}
	return false
}

// Step advances the snake one cell.
//
// A pending direction is adopted unless it reverses the heading. The head moves one cell,
// wrapping or dying at the edge depending on boundary. Landing on fruit keeps the tail this
// tick (net growth of one). Landing on any other part of the body kills the snake; the tail
// cell vacated this tick does not count.
func (s *Snake) Step(grid Grid, boundary Boundary, pending Direction, fruit Cell) StepResult {
	if s.state == SnakeDead {
		return StepResult{Head: s.Head(), Died: true}
	}

	if pending.Valid() && pending != s.heading.Opposite() {
		s.heading = pending
	}

	next := grid.Next(s.Head(), s.heading)
	if !grid.InBounds(next) {
		if boundary == BoundaryWall {
			s.state = SnakeDead
			return StepResult{Head: next, Died: true}
		}
		next = grid.Wrap(next)
	}

	res := StepResult{Head: next}
	if next == fruit {
		s.grow = true
		res.Ate = true
	}

	s.segments = append(s.segments, next)
	if s.grow {
		s.grow = false
	} else {
		s.segments = s.segments[1:]
	}

	for _, c := range s.segments[:len(s.segments)-1] {
		if c == next {
			s.state = SnakeDead
			res.Died = true
			break
		}
	}

	return res
}
