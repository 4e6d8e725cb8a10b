package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"snake-pit/internal/control"

	"github.com/go-chi/chi/v5"
)

// ServerOptions configures NewServer
type ServerOptions struct {
	Renderer    FrameRenderer // optional
	CORSOrigins []string
	RateLimit   RateLimitConfig // zero value uses DefaultRateLimitConfig
}

// Server is the HTTP API server with WebSocket support.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	commands    *control.Handler
	httpServer  *http.Server

	cleanupCtx    context.Context
	cleanupCancel context.CancelFunc
}

// NewServer wires the router and the WebSocket hub around engine.
// Apart from the rate limiter cleanup, background workers do not start until Start is called.
func NewServer(engine EngineInterface, opts ServerOptions) *Server {
	rl := opts.RateLimit
	if rl.RequestsPerSecond <= 0 {
		rl = DefaultRateLimitConfig
	}

	s := &Server{
		engine:      engine,
		rateLimiter: NewIPRateLimiter(rl),
		commands:    control.NewHandler(engine),
	}
	s.wsHub = NewWebSocketHub(engine, s.commands, NewOriginChecker(opts.CORSOrigins))

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    opts.Renderer,
		Commands:    s.commands,
		RateLimiter: s.rateLimiter,
		CORSOrigins: opts.CORSOrigins,
	})

	// the hub needs its own instance, so /ws lives outside the NewRouter factory
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.cleanupCtx, s.cleanupCancel = context.WithCancel(context.Background())

	return s
}

// Start runs the HTTP server and the background workers. It blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.wsHub.StartBroadcastLoop()

	go s.commands.RunCleanup(s.cleanupCtx, time.Minute)

	s.httpServer.Addr = addr

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🐍 State: http://localhost%s/api/state  WebSocket: ws://localhost%s/ws", addr, addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes WebSocket clients and stops background workers
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.wsHub.Stop()
	s.cleanupCancel()
	s.rateLimiter.Stop()
	return err
}
