// Package config provides centralized configuration management.
// Every setting has a default and an environment override; mains load .env first.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidConfig is returned by Load and Validate for unusable settings
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// GameConfig holds the play field and loop settings.
type GameConfig struct {
	Width          int    // Field width in pixels
	Height         int    // Field height in pixels
	CellSize       int    // Cell edge in pixels
	TickIntervalMs int    // Milliseconds between simulation steps
	Boundary       string // "wrap" or "wall"
	OnDeath        string // "reset" or "stop"
	Seed           int64  // 0 = seed from the clock
}

// DefaultGame returns the classic 800x600 field with 20px cells.
func DefaultGame() GameConfig {
	return GameConfig{
		Width:          800,
		Height:         600,
		CellSize:       20,
		TickIntervalMs: 150,
		Boundary:       "wrap",
		OnDeath:        "reset",
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Malformed numbers are reported instead of silently ignored.
func GameFromEnv() (GameConfig, error) {
	cfg := DefaultGame()
	var err error

	if cfg.Width, err = envInt("SNAKE_WIDTH", cfg.Width); err != nil {
		return cfg, err
	}
	if cfg.Height, err = envInt("SNAKE_HEIGHT", cfg.Height); err != nil {
		return cfg, err
	}
	if cfg.CellSize, err = envInt("SNAKE_CELL_SIZE", cfg.CellSize); err != nil {
		return cfg, err
	}
	if cfg.TickIntervalMs, err = envInt("SNAKE_TICK_MS", cfg.TickIntervalMs); err != nil {
		return cfg, err
	}
	if v := os.Getenv("SNAKE_BOUNDARY"); v != "" {
		cfg.Boundary = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SNAKE_ON_DEATH"); v != "" {
		cfg.OnDeath = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SNAKE_SEED"); v != "" {
		seed, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return cfg, fmt.Errorf("%w: SNAKE_SEED=%q is not an integer", ErrInvalidConfig, v)
		}
		cfg.Seed = seed
	}

	return cfg, nil
}

// TickInterval returns the tick interval as a duration
func (c GameConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Validate checks that every dimension is positive and the field is a whole number of cells
func (c GameConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.CellSize <= 0 || c.TickIntervalMs <= 0 {
		return fmt.Errorf("%w: width, height, cell size and tick interval must be positive", ErrInvalidConfig)
	}
	if c.Width%c.CellSize != 0 || c.Height%c.CellSize != 0 {
		return fmt.Errorf("%w: %dx%d is not divisible by cell size %d", ErrInvalidConfig, c.Width, c.Height, c.CellSize)
	}
	switch c.Boundary {
	case "wrap", "wall":
	default:
		return fmt.Errorf("%w: SNAKE_BOUNDARY must be wrap or wall, got %q", ErrInvalidConfig, c.Boundary)
	}
	switch c.OnDeath {
	case "reset", "stop":
	default:
		return fmt.Errorf("%w: SNAKE_ON_DEATH must be reset or stop, got %q", ErrInvalidConfig, c.OnDeath)
	}
	return nil
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	RateLimit   float64 // requests per second per IP
	RateBurst   int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		RateLimit: 20,
		RateBurst: 40,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() (ServerConfig, error) {
	cfg := DefaultServer()
	var err error

	if cfg.Port, err = envInt("PORT", cfg.Port); err != nil {
		return cfg, err
	}
	if cfg.RateBurst, err = envInt("RATE_LIMIT_BURST", cfg.RateBurst); err != nil {
		return cfg, err
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil || f <= 0 {
			return cfg, fmt.Errorf("%w: RATE_LIMIT_RPS=%q", ErrInvalidConfig, v)
		}
		cfg.RateLimit = f
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
			}
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("%w: PORT %d out of range", ErrInvalidConfig, cfg.Port)
	}

	return cfg, nil
}

// Addr returns the listen address for the API server
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// =============================================================================
// OBSERVABILITY, IPC AND EVENT LOG
// =============================================================================

// ObservabilityConfig controls the pprof/metrics debug server.
type ObservabilityConfig struct {
	DebugAddr    string
	DebugEnabled bool
	DebugUser    string // basic auth, both empty = no auth
	DebugPass    string
}

// DefaultObservability binds the debug server to localhost only.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugAddr:    "127.0.0.1:6060",
		DebugEnabled: true,
	}
}

// ObservabilityFromEnv applies DEBUG_ADDR, DISABLE_DEBUG_SERVER, DEBUG_USER and DEBUG_PASS.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	if envBool("DISABLE_DEBUG_SERVER") {
		cfg.DebugEnabled = false
	}
	cfg.DebugUser = os.Getenv("DEBUG_USER")
	cfg.DebugPass = os.Getenv("DEBUG_PASS")
	return cfg
}

// IPCConfig controls snapshot publishing to out-of-process renderers.
type IPCConfig struct {
	Enabled    bool
	SocketPath string // empty = platform default
}

// IPCFromEnv applies IPC_ENABLED and IPC_SOCKET.
func IPCFromEnv() IPCConfig {
	return IPCConfig{
		Enabled:    envBool("IPC_ENABLED"),
		SocketPath: os.Getenv("IPC_SOCKET"),
	}
}

// EventLogConfig controls the JSONL event log.
type EventLogConfig struct {
	Path string // empty disables the log
}

// EventLogFromEnv applies EVENT_LOG_PATH. Setting it to "off" disables the log.
func EventLogFromEnv() EventLogConfig {
	cfg := EventLogConfig{Path: "events.jsonl"}
	if v, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.Path = v
	}
	if cfg.Path == "off" {
		cfg.Path = ""
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game          GameConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	IPC           IPCConfig
	EventLog      EventLogConfig
}

// Load returns the complete configuration with environment overrides, validated.
func Load() (AppConfig, error) {
	game, err := GameFromEnv()
	if err != nil {
		return AppConfig{}, err
	}
	if err := game.Validate(); err != nil {
		return AppConfig{}, err
	}
	server, err := ServerFromEnv()
	if err != nil {
		return AppConfig{}, err
	}

	return AppConfig{
		Game:          game,
		Server:        server,
		Observability: ObservabilityFromEnv(),
		IPC:           IPCFromEnv(),
		EventLog:      EventLogFromEnv(),
	}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultVal, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
	}
	return i, nil
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
