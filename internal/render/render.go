// Package render draws game snapshots: PNG frames through gg for HTTP and frame dumps,
// raw RGBA buffers for the desktop client.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"snake-pit/internal/game"
)

// Theme holds the colours of a frame
type Theme struct {
	Background color.RGBA
	Snake      color.RGBA
	Head       color.RGBA
	Fruit      color.RGBA
	Outline    color.RGBA // cell outline, zero alpha disables it
	Text       color.RGBA
	Overlay    color.RGBA // dims the field once the game has ended

	ShowHUD bool
}

// DefaultTheme is light green grass, a grey snake and a red fruit
func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{144, 238, 144, 255},
		Snake:      color.RGBA{128, 128, 128, 255},
		Head:       color.RGBA{96, 96, 96, 255},
		Fruit:      color.RGBA{255, 0, 0, 255},
		Outline:    color.RGBA{0, 0, 0, 255},
		Text:       color.RGBA{20, 20, 20, 255},
		Overlay:    color.RGBA{0, 0, 0, 120},
		ShowHUD:    true,
	}
}

// Renderer draws snapshots with gg. Safe for concurrent use; frames are drawn one at a time.
type Renderer struct {
	theme Theme

	mu   sync.Mutex
	dc   *gg.Context // reused while the field size stays the same
	hud  font.Face
	big  font.Face
	enc  png.Encoder
	pool pngPool
}

// NewRenderer creates a renderer. Fonts are parsed once here, not per frame.
func NewRenderer(theme Theme) *Renderer {
	r := &Renderer{
		theme: theme,
		enc:   png.Encoder{CompressionLevel: png.BestSpeed},
	}
	r.enc.BufferPool = &r.pool
	r.loadFonts()
	return r
}

func (r *Renderer) loadFonts() {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Printf("⚠️ Failed to parse font: %v", err)
		return
	}

	r.hud, err = opentype.NewFace(parsed, &opentype.FaceOptions{Size: 14, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Printf("⚠️ Failed to create HUD font face: %v", err)
		return
	}
	r.big, err = opentype.NewFace(parsed, &opentype.FaceOptions{Size: 28, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Printf("⚠️ Failed to create title font face: %v", err)
		r.big = r.hud
	}
}

// Theme returns the colours in use
func (r *Renderer) Theme() Theme {
	return r.theme
}

// Render draws snap into a new image the size of the play field
func (r *Renderer) Render(snap *game.Snapshot) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc, err := r.context(snap)
	if err != nil {
		return nil, err
	}
	r.draw(dc, snap)

	// the context is reused, so hand out a copy
	src := dc.Image().(*image.RGBA)
	out := image.NewRGBA(src.Rect)
	copy(out.Pix, src.Pix)
	return out, nil
}

// RenderPNG draws snap and encodes it as PNG to w
func (r *Renderer) RenderPNG(w io.Writer, snap *game.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc, err := r.context(snap)
	if err != nil {
		return err
	}
	r.draw(dc, snap)
	return r.enc.Encode(w, dc.Image())
}

func (r *Renderer) context(snap *game.Snapshot) (*gg.Context, error) {
	if snap == nil {
		return nil, fmt.Errorf("render: nil snapshot")
	}
	if snap.Width <= 0 || snap.Height <= 0 || snap.CellSize <= 0 {
		return nil, fmt.Errorf("render: invalid field %dx%d cell %d", snap.Width, snap.Height, snap.CellSize)
	}
	if r.dc == nil || r.dc.Width() != snap.Width || r.dc.Height() != snap.Height {
		r.dc = gg.NewContext(snap.Width, snap.Height)
	}
	return r.dc, nil
}

func (r *Renderer) draw(dc *gg.Context, snap *game.Snapshot) {
	t := r.theme
	size := float64(snap.CellSize)

	dc.SetColor(t.Background)
	dc.DrawRectangle(0, 0, float64(snap.Width), float64(snap.Height))
	dc.Fill()

	r.drawCell(dc, snap.Fruit, size, t.Fruit)

	// tail first so the head ends up on top
	for i := len(snap.Body) - 1; i >= 0; i-- {
		c := t.Snake
		if i == 0 {
			c = t.Head
		}
		r.drawCell(dc, snap.Body[i], size, c)
	}

	if snap.Status != game.StatusRunning {
		dc.SetColor(t.Overlay)
		dc.DrawRectangle(0, 0, float64(snap.Width), float64(snap.Height))
		dc.Fill()
		if r.big != nil {
			dc.SetFontFace(r.big)
			dc.SetColor(color.White)
			title := "GAME OVER"
			if snap.Status == game.StatusBoardFull {
				title = "BOARD FULL"
			}
			dc.DrawStringAnchored(title, float64(snap.Width)/2, float64(snap.Height)/2, 0.5, 0.5)
		}
	}

	if t.ShowHUD && r.hud != nil {
		dc.SetFontFace(r.hud)
		dc.SetColor(t.Text)
		dc.DrawStringAnchored(fmt.Sprintf("Score %d  Best %d", snap.Score, snap.BestScore), 6, 6, 0, 1)
	}
}

func (r *Renderer) drawCell(dc *gg.Context, c game.Cell, size float64, fill color.RGBA) {
	x, y := float64(c.X), float64(c.Y)
	dc.SetColor(fill)
	dc.DrawRectangle(x, y, size, size)
	dc.Fill()

	if r.theme.Outline.A > 0 && size >= 4 {
		dc.SetColor(r.theme.Outline)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x+0.5, y+0.5, size-1, size-1)
		dc.Stroke()
	}
}

// pngPool recycles the encoder's scratch buffers between frames
type pngPool struct {
	pool sync.Pool
}

func (p *pngPool) Get() *png.EncoderBuffer {
	if b, ok := p.pool.Get().(*png.EncoderBuffer); ok {
		return b
	}
	return nil
}

func (p *pngPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}
