package api

import (
	"errors"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snake-pit/internal/game"
)

// Metrics with bounded cardinality: labels only take values from fixed sets
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snake_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snake_render_duration_seconds",
		Help:    "Time spent rendering a PNG frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_ticks_total",
		Help: "Simulation ticks by outcome",
	}, []string{"outcome"}) // continued, ate_fruit, died, board_full

	snakeLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_length",
		Help: "Current snake length in cells",
	})

	snakeScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_score",
		Help: "Fruits eaten in the current run",
	})

	bestScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snake_best_score",
		Help: "Best score since the server started",
	})

	resetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snake_resets_total",
		Help: "Runs restarted on request",
	})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snake_commands_total",
		Help: "Remote commands by transport and result",
	}, []string{"transport", "result"}) // http|ws x accepted|rejected|rate_limited|invalid

	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped_events",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // rate_limit, origin, ws_total_limit, ws_ip_limit

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the chi route pattern

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts sent",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // keep on loopback in production
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugHandler serves pprof, /metrics and /health
func DebugHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// StartDebugServer starts the observability server in the background.
// Non-loopback addresses are rewritten to 127.0.0.1 unless ALLOW_DEBUG_EXTERNAL=true.
// Returns nil when disabled.
func StartDebugServer(cfg ObservabilityConfig) (*http.Server, error) {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil, nil
	}

	addr, err := loopbackAddr(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	var handler = DebugHandler()
	if cfg.BasicAuthUser != "" {
		handler = middleware.BasicAuth("debug", map[string]string{cfg.BasicAuthUser: cfg.BasicAuthPass})(handler)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", addr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", addr)
		log.Printf("   - metrics: http://%s/metrics", addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return srv, nil
}

func loopbackAddr(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if host == "localhost" {
		return addr, nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return addr, nil
	}
	if os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true" {
		return addr, nil
	}
	log.Println("⚠️ Debug server forced to localhost for security")
	return net.JoinHostPort("127.0.0.1", port), nil
}

// metricsMiddleware records latency and status per chi route pattern
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}

// RecordTick is an engine tick hook that updates the game metrics.
// Reset reports refresh the gauges without counting a tick.
func RecordTick(report game.TickReport) {
	if !report.Reset {
		tickDuration.Observe(report.Duration.Seconds())
		ticksTotal.WithLabelValues(report.Outcome.String()).Inc()
	}
	if snap := report.Snapshot; snap != nil {
		snakeLength.Set(float64(snap.Length))
		snakeScore.Set(float64(snap.Score))
		bestScore.Set(float64(snap.BestScore))
	}
}

// RecordRender records render timing for metrics
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// RecordReset counts a requested reset
func RecordReset() {
	resetsTotal.Inc()
}

// RecordCommand counts a remote command. transport is "http" or "ws".
func RecordCommand(transport, result string) {
	commandsTotal.WithLabelValues(transport, result).Inc()
}

// UpdateEventLogStats mirrors the event log counters
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
