package api

import (
	"io"

	"snake-pit/internal/control"
	"snake-pit/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// *game.Engine satisfies it; tests use a mock.
type EngineInterface interface {
	// GetSnapshot returns the latest immutable snapshot (never nil)
	GetSnapshot() *game.Snapshot
	// RequestDirection queues a heading change; false if rejected
	RequestDirection(dir game.Direction, source string) bool
	// Reset starts a new run
	Reset() error
	// History returns finished runs
	History() *game.RunHistory
	// Settings returns the effective game configuration
	Settings() game.Settings
}

// FrameRenderer draws a snapshot as a PNG. Optional: /api/frame.png returns 404 without one.
type FrameRenderer interface {
	RenderPNG(w io.Writer, snap *game.Snapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	}
//	ts := httptest.NewServer(api.NewRouter(cfg))
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Renderer serves /api/frame.png when set
	Renderer FrameRenderer

	// Commands applies remote commands. If nil, one is built around Engine.
	Commands *control.Handler

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil
	RateLimitConfig *RateLimitConfig

	// CORSOrigins lists allowed origins; nil uses DefaultAllowedOrigins
	CORSOrigins []string

	// DisableLogging disables the request logger middleware
	DisableLogging bool
}

type routerHandlers struct {
	engine   EngineInterface
	renderer FrameRenderer
	commands *control.Handler
}

// NewRouter constructs the HTTP router with all middleware and routes.
// It opens no listeners; the only goroutine it may start is the rate limiter cleanup
// when no RateLimiter is supplied.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: NewOriginChecker(cfg.CORSOrigins).Patterns(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	commands := cfg.Commands
	if commands == nil {
		commands = control.NewHandler(cfg.Engine)
	}
	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		commands: commands,
	}

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/config", h.handleGetConfig)
		r.Get("/runs", h.handleGetRuns)
		r.Get("/frame.png", h.handleGetFrame)

		r.Post("/direction", h.handleDirection)
		r.Post("/command", h.handleCommand)
		r.Post("/reset", h.handleReset)
	})

	return r
}
