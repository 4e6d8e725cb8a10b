package game

// InputQueue holds at most one pending direction between ticks.
// Later requests overwrite earlier ones; reverse-of-heading requests are filtered by the snake.
type InputQueue struct {
	pending Direction
}

// Set records d as the pending request. DirNone and unknown values are ignored.
func (q *InputQueue) Set(d Direction) {
	if !d.Valid() {
		return
	}
	q.pending = d
}

// Consume returns the pending request and clears it. DirNone means nothing was requested.
func (q *InputQueue) Consume() Direction {
	d := q.pending
	q.pending = DirNone
	return d
}

// Pending returns the pending request without clearing it
func (q *InputQueue) Pending() Direction {
	return q.pending
}

// Clear drops any pending request
func (q *InputQueue) Clear() {
	q.pending = DirNone
}
