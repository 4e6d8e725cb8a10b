package control

import (
	"context"
	"errors"
	"log"
	"time"

	"snake-pit/internal/game"
)

var (
	// ErrRateLimited is returned when a source sends commands too fast
	ErrRateLimited = errors.New("rate limited")
	// ErrRejected is returned when the engine would not take the command
	ErrRejected = errors.New("command rejected")
)

// Target is what commands are applied to. *game.Engine satisfies it.
type Target interface {
	RequestDirection(dir game.Direction, source string) bool
	Reset() error
}

// Handler parses text commands from remote clients, rate limits them per source
// and applies them to the target
type Handler struct {
	target      Target
	rateLimiter *RateLimiter
}

// NewHandler creates a command handler with the default rate limits
func NewHandler(target Target) *Handler {
	return NewHandlerWithLimits(target, DefaultRateLimitConfig)
}

// NewHandlerWithLimits creates a command handler with custom rate limits
func NewHandlerWithLimits(target Target, cfg RateLimitConfig) *Handler {
	return &Handler{
		target:      target,
		rateLimiter: NewRateLimiter(cfg),
	}
}

// HandleText parses and applies one command from source
func (h *Handler) HandleText(source, text string) (Command, error) {
	cmd, err := ParseCommand(text)
	if err != nil {
		return Command{}, err
	}
	return cmd, h.Apply(source, cmd)
}

// Apply runs an already parsed command
func (h *Handler) Apply(source string, cmd Command) error {
	if !h.rateLimiter.Allow(source) {
		return ErrRateLimited
	}

	switch cmd.Kind {
	case KindDirection:
		if !h.target.RequestDirection(cmd.Direction, source) {
			return ErrRejected
		}
		return nil
	case KindReset:
		if err := h.target.Reset(); err != nil {
			return errors.Join(ErrRejected, err)
		}
		log.Printf("🔄 Reset requested by %s", source)
		return nil
	}
	return ErrUnknownCommand
}

// Forget drops rate limit state for a source that went away
func (h *Handler) Forget(source string) {
	h.rateLimiter.Forget(source)
}

// RunCleanup periodically drops idle rate limit entries until ctx is done
func (h *Handler) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.rateLimiter.Cleanup(5 * time.Minute)
		}
	}
}
