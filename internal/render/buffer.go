package render

import (
	"image/color"

	"snake-pit/internal/game"
)

// BufferRenderer draws snapshots straight into an RGBA byte buffer.
// It skips gg entirely, which keeps the per-frame cost of the desktop client low.
type BufferRenderer struct {
	theme  Theme
	buffer []byte
	width  int
	height int
	stride int // bytes per row (width * 4 for RGBA)
}

// NewBufferRenderer creates a renderer for a width x height field.
// It uses the provided buffer or creates a new one if nil.
func NewBufferRenderer(width, height int, theme Theme, buffer []byte) *BufferRenderer {
	if buffer == nil {
		buffer = make([]byte, width*height*4)
	}
	return &BufferRenderer{
		theme:  theme,
		buffer: buffer,
		width:  width,
		height: height,
		stride: width * 4,
	}
}

// Buffer returns the underlying pixel buffer
func (r *BufferRenderer) Buffer() []byte {
	return r.buffer
}

// Clear fills the entire buffer with a solid color
func (r *BufferRenderer) Clear(c color.RGBA) {
	for i := 0; i < len(r.buffer); i += 4 {
		r.buffer[i] = c.R
		r.buffer[i+1] = c.G
		r.buffer[i+2] = c.B
		r.buffer[i+3] = c.A
	}
}

// DrawFilledRect draws a filled rectangle, clipped to the buffer
func (r *BufferRenderer) DrawFilledRect(x, y, w, h int, c color.RGBA) {
	x1 := max(0, x)
	y1 := max(0, y)
	x2 := min(r.width, x+w)
	y2 := min(r.height, y+h)

	if x1 >= x2 || y1 >= y2 {
		return
	}

	for py := y1; py < y2; py++ {
		rowStart := py * r.stride
		for px := x1; px < x2; px++ {
			idx := rowStart + px*4
			r.buffer[idx] = c.R
			r.buffer[idx+1] = c.G
			r.buffer[idx+2] = c.B
			r.buffer[idx+3] = c.A
		}
	}
}

// DrawFilledRectBlend draws a filled rectangle with alpha blending
func (r *BufferRenderer) DrawFilledRectBlend(x, y, w, h int, c color.RGBA) {
	if c.A == 255 {
		r.DrawFilledRect(x, y, w, h, c)
		return
	}
	if c.A == 0 {
		return
	}

	x1 := max(0, x)
	y1 := max(0, y)
	x2 := min(r.width, x+w)
	y2 := min(r.height, y+h)

	if x1 >= x2 || y1 >= y2 {
		return
	}

	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA

	for py := y1; py < y2; py++ {
		rowStart := py * r.stride
		for px := x1; px < x2; px++ {
			idx := rowStart + px*4
			r.buffer[idx] = uint8(float64(c.R)*srcA + float64(r.buffer[idx])*invA)
			r.buffer[idx+1] = uint8(float64(c.G)*srcA + float64(r.buffer[idx+1])*invA)
			r.buffer[idx+2] = uint8(float64(c.B)*srcA + float64(r.buffer[idx+2])*invA)
			r.buffer[idx+3] = 255
		}
	}
}

// DrawRectOutline draws a one pixel rectangle border
func (r *BufferRenderer) DrawRectOutline(x, y, w, h int, c color.RGBA) {
	r.DrawFilledRect(x, y, w, 1, c)
	r.DrawFilledRect(x, y+h-1, w, 1, c)
	r.DrawFilledRect(x, y, 1, h, c)
	r.DrawFilledRect(x+w-1, y, 1, h, c)
}

// DrawSnapshot paints the whole field. The snapshot must match the buffer size.
func (r *BufferRenderer) DrawSnapshot(snap *game.Snapshot) {
	t := r.theme
	r.Clear(t.Background)
	if snap == nil {
		return
	}

	size := snap.CellSize
	r.drawCell(snap.Fruit, size, t.Fruit)
	for i := len(snap.Body) - 1; i >= 0; i-- {
		c := t.Snake
		if i == 0 {
			c = t.Head
		}
		r.drawCell(snap.Body[i], size, c)
	}

	if snap.Status != game.StatusRunning {
		r.DrawFilledRectBlend(0, 0, r.width, r.height, t.Overlay)
	}
}

func (r *BufferRenderer) drawCell(c game.Cell, size int, fill color.RGBA) {
	r.DrawFilledRect(c.X, c.Y, size, size, fill)
	if r.theme.Outline.A > 0 && size >= 4 {
		r.DrawRectOutline(c.X, c.Y, size, size, r.theme.Outline)
	}
}
