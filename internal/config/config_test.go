package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultGame(), cfg.Game)
	assert.Equal(t, 150*time.Millisecond, cfg.Game.TickInterval())
	assert.Equal(t, ":3000", cfg.Server.Addr())
	assert.True(t, cfg.Observability.DebugEnabled)
	assert.False(t, cfg.IPC.Enabled)
	assert.Equal(t, "events.jsonl", cfg.EventLog.Path)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SNAKE_WIDTH", "400")
	t.Setenv("SNAKE_HEIGHT", "400")
	t.Setenv("SNAKE_CELL_SIZE", "20")
	t.Setenv("SNAKE_TICK_MS", "100")
	t.Setenv("SNAKE_BOUNDARY", "WALL")
	t.Setenv("SNAKE_ON_DEATH", "stop")
	t.Setenv("SNAKE_SEED", "99")
	t.Setenv("PORT", "8081")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DISABLE_DEBUG_SERVER", "true")
	t.Setenv("IPC_ENABLED", "1")
	t.Setenv("IPC_SOCKET", "/tmp/snake.sock")
	t.Setenv("EVENT_LOG_PATH", "off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, GameConfig{
		Width: 400, Height: 400, CellSize: 20, TickIntervalMs: 100,
		Boundary: "wall", OnDeath: "stop", Seed: 99,
	}, cfg.Game)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Observability.DebugEnabled)
	assert.Equal(t, IPCConfig{Enabled: true, SocketPath: "/tmp/snake.sock"}, cfg.IPC)
	assert.Empty(t, cfg.EventLog.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"indivisible width", "SNAKE_WIDTH", "810"},
		{"zero cell", "SNAKE_CELL_SIZE", "0"},
		{"negative tick", "SNAKE_TICK_MS", "-5"},
		{"not a number", "SNAKE_HEIGHT", "tall"},
		{"bad boundary", "SNAKE_BOUNDARY", "bounce"},
		{"bad policy", "SNAKE_ON_DEATH", "explode"},
		{"bad seed", "SNAKE_SEED", "abc"},
		{"bad port", "PORT", "70000"},
		{"bad rps", "RATE_LIMIT_RPS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
