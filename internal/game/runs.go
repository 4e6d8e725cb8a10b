package game

import (
	"sort"
	"sync"
	"time"
)

// DefaultHistorySize is how many finished runs are kept when Options.HistorySize is zero
const DefaultHistorySize = 100

// EndReason says why a run finished
type EndReason string

const (
	EndCollision EndReason = "collision" // ran into itself
	EndWall      EndReason = "wall"      // left the field with the wall boundary
	EndBoardFull EndReason = "board_full"
	EndRestart   EndReason = "restart" // reset while still running
)

// RunRecord is a finished run
type RunRecord struct {
	RunID   string    `json:"runId"`
	Score   int       `json:"score"`
	Length  int       `json:"length"`
	Ticks   uint64    `json:"ticks"`
	Reason  EndReason `json:"reason"`
	EndedAt time.Time `json:"endedAt"`
}

// RunHistory keeps the most recent finished runs and the all-time best score.
// Safe for concurrent use: the game writes, HTTP handlers read.
type RunHistory struct {
	mu      sync.RWMutex
	records []RunRecord // ring buffer
	next    int
	full    bool
	best    int
	total   int
}

// NewRunHistory creates a history holding at most size runs
func NewRunHistory(size int) *RunHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &RunHistory{records: make([]RunRecord, size)}
}

// Record stores a finished run, evicting the oldest when full
func (h *RunHistory) Record(r RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records[h.next] = r
	h.next = (h.next + 1) % len(h.records)
	if h.next == 0 {
		h.full = true
	}
	if r.Score > h.best {
		h.best = r.Score
	}
	h.total++
}

// Recent returns up to n runs, newest first. n <= 0 returns all kept runs.
func (h *RunHistory) Recent(n int) []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.lenLocked()
	if n <= 0 || n > count {
		n = count
	}
	out := make([]RunRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (h.next - i + len(h.records)) % len(h.records)
		out = append(out, h.records[idx])
	}
	return out
}

// Top returns up to n kept runs ordered by score (ties: longer snake, then earlier end)
func (h *RunHistory) Top(n int) []RunRecord {
	runs := h.Recent(0)
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].Score != runs[j].Score {
			return runs[i].Score > runs[j].Score
		}
		if runs[i].Length != runs[j].Length {
			return runs[i].Length > runs[j].Length
		}
		return runs[i].EndedAt.Before(runs[j].EndedAt)
	})
	if n > 0 && n < len(runs) {
		runs = runs[:n]
	}
	return runs
}

// Best returns the highest score ever recorded, including evicted runs
func (h *RunHistory) Best() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.best
}

// Len returns the number of kept runs
func (h *RunHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lenLocked()
}

// Total returns the number of runs ever recorded
func (h *RunHistory) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

func (h *RunHistory) lenLocked() int {
	if h.full {
		return len(h.records)
	}
	return h.next
}
