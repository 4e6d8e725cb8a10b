// =============================================================================
// SNAKE PIT - FRAME DUMP
// =============================================================================
// Standalone viewer that receives snapshots over IPC from a running server
// and writes them to disk as PNG frames, e.g. for turning a run into a video.
//
// USAGE:
//   1. Start the game server with IPC_ENABLED=true: go run ./cmd/server
//   2. Then start this viewer: go run ./cmd/framedump
//
// FRAME_DIR   output directory (default "frames")
// FRAME_EVERY keep every Nth snapshot (default 1)
// =============================================================================
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"snake-pit/internal/config"
	"snake-pit/internal/game"
	"snake-pit/internal/ipc"
	"snake-pit/internal/render"

	"github.com/joho/godotenv"
)

// frameQueue bounds memory when the disk is slower than the game
const frameQueue = 64

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎞️ ================================")
	log.Println("🎞️  SNAKE PIT - FRAME DUMP")
	log.Println("🎞️ ================================")

	ipcCfg := config.IPCFromEnv()
	dir := getEnvWithDefault("FRAME_DIR", "frames")
	every, err := strconv.Atoi(getEnvWithDefault("FRAME_EVERY", "1"))
	if err != nil || every <= 0 {
		log.Fatalf("❌ FRAME_EVERY must be a positive integer")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("❌ Cannot create %s: %v", dir, err)
	}

	renderer := render.NewRenderer(render.DefaultTheme())
	frames := make(chan *game.Snapshot, frameQueue)
	var received, dropped atomic.Uint64

	subscriber := ipc.NewSubscriber(ipcCfg.SocketPath)
	subscriber.OnConnect(func() {
		log.Println("✅ Connected to game server")
	})
	subscriber.OnDisconnect(func() {
		log.Println("⚠️ Lost connection to game server, retrying...")
	})
	render.NewIPCSource(subscriber, func(snap *game.Snapshot) {
		if received.Add(1)%uint64(every) != 0 {
			return
		}
		select {
		case frames <- snap:
		default:
			dropped.Add(1)
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range frames {
			if err := writeFrame(renderer, dir, snap); err != nil {
				log.Printf("⚠️ %v", err)
			}
		}
	}()

	if err := subscriber.Start(); err != nil {
		log.Fatalf("❌ Failed to start subscriber: %v", err)
	}
	if cfg := subscriber.WaitForConfig(10 * time.Second); cfg == nil {
		log.Println("⚠️ No config from server yet, frames will be written once it connects")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("✅ Writing frames to %s (every %d). Press Ctrl+C to stop.", dir, every)
	<-quit

	log.Println("🛑 Shutting down...")
	subscriber.Stop()
	close(frames)
	<-done

	got, reconnects, errs := subscriber.GetStats()
	log.Printf("📊 %d snapshots received, %d dropped, %d reconnects, %d errors",
		got, dropped.Load(), reconnects, errs)
}

// writeFrame renders snap to <dir>/<run>_<runTick>.png
func writeFrame(r *render.Renderer, dir string, snap *game.Snapshot) error {
	run := snap.RunID
	if len(run) > 8 {
		run = run[:8]
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%06d.png", run, snap.RunTick))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame: %w", err)
	}
	if err := r.RenderPNG(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("render frame %s: %w", path, err)
	}
	return f.Close()
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
