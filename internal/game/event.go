package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // one simulation step
	EventTypeDirection         // accepted direction request
	EventTypeFruitEaten
	EventTypeDeath
	EventTypeReset
	EventTypeBoardFull
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // assigned by the log
	TickNum   uint64    `json:"tickNum"`
	RunID     string    `json:"runId"`
	Source    string    `json:"source"` // who caused it (for rate limiting), empty for the engine
	Payload   []byte    `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeDirection:
		return "direction"
	case EventTypeFruitEaten:
		return "fruit_eaten"
	case EventTypeDeath:
		return "death"
	case EventTypeReset:
		return "reset"
	case EventTypeBoardFull:
		return "board_full"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so the log stays readable
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// TickPayload describes a simulation step
type TickPayload struct {
	Outcome TickOutcome `json:"outcome"`
	Head    Cell        `json:"head"`
	Heading Direction   `json:"heading"`
	Length  int         `json:"length"`
	Seed    int64       `json:"seed,omitempty"`
}

// DirectionPayload records a direction request
type DirectionPayload struct {
	Direction Direction `json:"direction"`
	Heading   Direction `json:"heading"` // heading when the request arrived
}

// FruitPayload records a fruit being eaten and its replacement
type FruitPayload struct {
	Eaten Cell `json:"eaten"`
	Next  Cell `json:"next"`
	Score int  `json:"score"`
}

// RunEndPayload records a finished run
type RunEndPayload struct {
	Reason EndReason `json:"reason"`
	Score  int       `json:"score"`
	Length int       `json:"length"`
	Ticks  uint64    `json:"ticks"`
}

// ResetPayload records the start of a new run
type ResetPayload struct {
	PreviousRunID string `json:"previousRunId"`
	Body          []Cell `json:"body"`
	Fruit         Cell   `json:"fruit"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, runID, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		RunID:     runID,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
