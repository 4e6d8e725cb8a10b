// Command snake is the desktop version of the game: one window, keyboard input,
// the same engine rules as the server.
package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/joho/godotenv"

	"snake-pit/internal/config"
	"snake-pit/internal/game"
	"snake-pit/internal/render"
)

var keyDirections = []struct {
	key ebiten.Key
	dir game.Direction
}{
	{ebiten.KeyArrowUp, game.DirUp},
	{ebiten.KeyW, game.DirUp},
	{ebiten.KeyArrowDown, game.DirDown},
	{ebiten.KeyS, game.DirDown},
	{ebiten.KeyArrowLeft, game.DirLeft},
	{ebiten.KeyA, game.DirLeft},
	{ebiten.KeyArrowRight, game.DirRight},
	{ebiten.KeyD, game.DirRight},
}

// window adapts a game.Driver to ebiten's Update/Draw/Layout loop
type window struct {
	driver *game.Driver
	canvas *render.BufferRenderer
	width  int
	height int
}

func (w *window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		w.driver.Quit()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		w.driver.Restart()
		return nil
	}

	// only the latest request survives until the next tick
	for _, kd := range keyDirections {
		if inpututil.IsKeyJustPressed(kd.key) {
			w.driver.RequestDirection(kd.dir)
		}
	}

	if outcome, ticked := w.driver.Update(); ticked && outcome != game.OutcomeContinued {
		g := w.driver.Game()
		log.Printf("🐍 %s: score %d, length %d", outcome, g.Score(), g.Snake().Len())
	}
	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	snap := w.driver.Game().Snapshot()
	w.canvas.DrawSnapshot(&snap)
	screen.WritePixels(w.canvas.Buffer())

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Score: %d  Best: %d", snap.Score, snap.BestScore), 4, 4)
	if w.driver.Done() {
		msg := "Game over! R to restart, Esc to quit."
		if snap.Status == game.StatusBoardFull {
			msg = "Board full! R to restart, Esc to quit."
		}
		ebitenutil.DebugPrintAt(screen, msg, 8, w.height/2-8)
	}
}

func (w *window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return w.width, w.height
}

func main() {
	if err := godotenv.Load(".env"); err == nil {
		log.Println("✅ Loaded environment from .env")
	}

	cfg, err := config.GameFromEnv()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	boundary, _ := game.ParseBoundary(cfg.Boundary)
	onDeath, _ := game.ParseDeathPolicy(cfg.OnDeath)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g, err := game.NewGame(game.Options{
		Width:    cfg.Width,
		Height:   cfg.Height,
		CellSize: cfg.CellSize,
		Boundary: boundary,
		OnDeath:  onDeath,
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		log.Fatalf("❌ Failed to create game: %v", err)
	}

	w := &window{
		driver: game.NewDriver(g, cfg.TickInterval(), nil),
		canvas: render.NewBufferRenderer(cfg.Width, cfg.Height, render.DefaultTheme(), nil),
		width:  cfg.Width,
		height: cfg.Height,
	}

	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle("Snake Game")

	if err := ebiten.RunGame(w); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatalf("❌ %v", err)
	}

	if history := g.History(); history.Total() > 0 {
		log.Printf("🏆 %d runs played, best score %d", history.Total(), history.Best())
	}
}
