package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snake-pit/internal/api"
	"snake-pit/internal/config"
	"snake-pit/internal/game"
	"snake-pit/internal/ipc"
	"snake-pit/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	} else {
		log.Println("✅ Loaded environment from .env")
	}

	log.Println("🐍 ================================")
	log.Println("🐍  SNAKE PIT - GO ENGINE")
	log.Println("🐍 ================================")

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	gameCfg := appConfig.Game
	serverCfg := appConfig.Server

	boundary, _ := game.ParseBoundary(gameCfg.Boundary) // validated by config.Load
	onDeath, _ := game.ParseDeathPolicy(gameCfg.OnDeath)

	log.Printf("🎮 Field %dx%d, cell %d, %dms/tick, boundary=%s, on death=%s",
		gameCfg.Width, gameCfg.Height, gameCfg.CellSize, gameCfg.TickIntervalMs, boundary, onDeath)

	var eventLog *game.EventLog
	if path := appConfig.EventLog.Path; path != "" {
		eventLog = game.NewEventLog()
		if err := eventLog.Start(path); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
			eventLog = nil
		} else {
			log.Printf("📝 Event log: %s", path)
		}
	}

	engine, err := game.NewEngine(game.EngineConfig{
		Game: game.Options{
			Width:    gameCfg.Width,
			Height:   gameCfg.Height,
			CellSize: gameCfg.CellSize,
			Boundary: boundary,
			OnDeath:  onDeath,
		},
		TickInterval: gameCfg.TickInterval(),
		Seed:         gameCfg.Seed,
		EventLog:     eventLog,
	})
	if err != nil {
		log.Fatalf("❌ Failed to create engine: %v", err)
	}
	engine.AddTickHook(api.RecordTick)

	if eventLog != nil {
		engine.AddTickHook(func(game.TickReport) {
			api.UpdateEventLogStats(eventLog.GetTotalCount(), eventLog.GetDroppedCount())
		})
	}

	var publisher *ipc.Publisher
	if appConfig.IPC.Enabled {
		if err := ipc.CheckGrid(engine.Settings()); err != nil {
			log.Fatalf("❌ IPC cannot carry this field: %v", err)
		}
		publisher = ipc.NewPublisher(appConfig.IPC.SocketPath)
		publisher.SetConfig(ipc.ConfigFromSettings(engine.Settings()))
		if err := publisher.Start(); err != nil {
			log.Printf("⚠️ IPC disabled: %v", err)
			publisher = nil
		} else {
			engine.AddTickHook(publisher.TickHook)
		}
	}

	obs := appConfig.Observability
	debugServer, err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       obs.DebugEnabled,
		ListenAddr:    obs.DebugAddr,
		BasicAuthUser: obs.DebugUser,
		BasicAuthPass: obs.DebugPass,
	})
	if err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	server := api.NewServer(engine, api.ServerOptions{
		Renderer:    render.NewRenderer(render.DefaultTheme()),
		CORSOrigins: serverCfg.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: serverCfg.RateLimit,
			Burst:             serverCfg.RateBurst,
			CleanupInterval:   time.Minute,
		},
	})

	engine.Start()
	log.Println("✅ Game Engine started")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(serverCfg.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	select {
	case <-quit:
		log.Println("🛑 Shutting down...")
	case <-engine.Done():
		// only reachable with SNAKE_ON_DEATH=stop
		snap := engine.GetSnapshot()
		log.Printf("🏁 Game over (%s) with score %d, shutting down...", snap.Status, snap.Score)
	case err := <-serverErr:
		if err != nil {
			log.Printf("❌ API server failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	engine.Stop()
	if publisher != nil {
		publisher.Stop()
	}
	if eventLog != nil {
		eventLog.Stop()
	}

	if history := engine.History(); history.Total() > 0 {
		log.Printf("🏆 %d runs played, best score %d", history.Total(), history.Best())
	}
	log.Println("👋 Goodbye!")
}
