// Package control turns text input from remote clients into game commands.
package control

import (
	"errors"
	"fmt"
	"strings"

	"snake-pit/internal/game"
)

// ErrUnknownCommand is returned for input that maps to no command
var ErrUnknownCommand = errors.New("unknown command")

// Kind is the type of a parsed command
type Kind uint8

const (
	KindDirection Kind = iota + 1
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindDirection:
		return "direction"
	case KindReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Command is a parsed client instruction
type Command struct {
	Kind      Kind
	Direction game.Direction // set for KindDirection
}

var directionAliases = map[string]game.Direction{
	"up": game.DirUp, "w": game.DirUp, "arrowup": game.DirUp, "north": game.DirUp, "arriba": game.DirUp,
	"down": game.DirDown, "s": game.DirDown, "arrowdown": game.DirDown, "south": game.DirDown, "abajo": game.DirDown,
	"left": game.DirLeft, "a": game.DirLeft, "arrowleft": game.DirLeft, "west": game.DirLeft, "izquierda": game.DirLeft,
	"right": game.DirRight, "d": game.DirRight, "arrowright": game.DirRight, "east": game.DirRight, "derecha": game.DirRight,
}

var resetAliases = map[string]bool{
	"reset":     true,
	"restart":   true,
	"r":         true,
	"reiniciar": true,
}

// normalize lower-cases s and drops a leading "!" or "/" used by chat-style clients
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimLeft(s, "!/")
	return strings.TrimSpace(s)
}

// ParseDirection accepts direction names, arrow key names, WASD letters and compass points
func ParseDirection(s string) (game.Direction, error) {
	if d, ok := directionAliases[normalize(s)]; ok {
		return d, nil
	}
	return game.DirNone, fmt.Errorf("%w: %q is not a direction", ErrUnknownCommand, s)
}

// ParseCommand parses a direction or a reset request.
// "move up" and "go left" style prefixes are accepted.
func ParseCommand(s string) (Command, error) {
	text := normalize(s)
	if resetAliases[text] {
		return Command{Kind: KindReset}, nil
	}

	fields := strings.Fields(text)
	if len(fields) == 2 && (fields[0] == "move" || fields[0] == "go" || fields[0] == "turn") {
		text = fields[1]
	}
	if d, ok := directionAliases[text]; ok {
		return Command{Kind: KindDirection, Direction: d}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}
