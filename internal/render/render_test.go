package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-pit/internal/game"
)

func sampleSnapshot() *game.Snapshot {
	return &game.Snapshot{
		Sequence: 1,
		Body:     []game.Cell{{X: 120, Y: 100}, {X: 100, Y: 100}, {X: 80, Y: 100}},
		Fruit:    game.Cell{X: 300, Y: 300},
		Alive:    true,
		Status:   game.StatusRunning,
		Heading:  game.DirRight,
		Length:   3,
		Width:    400,
		Height:   400,
		CellSize: 20,
	}
}

func rgbaAt(t *testing.T, img interface {
	At(x, y int) color.Color
}, x, y int) color.RGBA {
	t.Helper()
	r, g, b, a := img.At(x, y).RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestRendererDrawsCells(t *testing.T) {
	theme := DefaultTheme()
	theme.ShowHUD = false
	r := NewRenderer(theme)

	img, err := r.Render(sampleSnapshot())
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	// sample cell centres so outlines and antialiasing don't matter
	assert.Equal(t, theme.Background, rgbaAt(t, img, 10, 390))
	assert.Equal(t, theme.Fruit, rgbaAt(t, img, 310, 310))
	assert.Equal(t, theme.Head, rgbaAt(t, img, 130, 110))
	assert.Equal(t, theme.Snake, rgbaAt(t, img, 90, 110))
}

func TestRendererPNG(t *testing.T) {
	r := NewRenderer(DefaultTheme())

	var buf bytes.Buffer
	require.NoError(t, r.RenderPNG(&buf, sampleSnapshot()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())

	// the context is reused across frames of the same size
	buf.Reset()
	snap := sampleSnapshot()
	snap.Status = game.StatusDead
	require.NoError(t, r.RenderPNG(&buf, snap))
}

func TestRendererRejectsBadSnapshots(t *testing.T) {
	r := NewRenderer(DefaultTheme())

	_, err := r.Render(nil)
	assert.Error(t, err)

	_, err = r.Render(&game.Snapshot{})
	assert.Error(t, err)
}

func TestBufferRendererMatchesTheme(t *testing.T) {
	theme := DefaultTheme()
	snap := sampleSnapshot()
	br := NewBufferRenderer(snap.Width, snap.Height, theme, nil)
	br.DrawSnapshot(snap)

	pixel := func(x, y int) color.RGBA {
		i := y*snap.Width*4 + x*4
		b := br.Buffer()
		return color.RGBA{b[i], b[i+1], b[i+2], b[i+3]}
	}

	assert.Equal(t, theme.Background, pixel(10, 390))
	assert.Equal(t, theme.Fruit, pixel(310, 310))
	assert.Equal(t, theme.Head, pixel(130, 110))
	assert.Equal(t, theme.Snake, pixel(90, 110))
	assert.Equal(t, theme.Outline, pixel(120, 100), "cell outline")
}

func TestBufferRendererDimsEndedGames(t *testing.T) {
	theme := DefaultTheme()
	snap := sampleSnapshot()
	snap.Status = game.StatusDead

	br := NewBufferRenderer(snap.Width, snap.Height, theme, nil)
	br.DrawSnapshot(snap)

	b := br.Buffer()
	i := 390*snap.Width*4 + 10*4
	assert.Less(t, b[i+1], theme.Background.G, "overlay should darken the background")
	assert.Equal(t, uint8(255), b[i+3])
}

func TestLocalSource(t *testing.T) {
	engine, err := game.NewEngine(game.EngineConfig{
		Game: game.Options{Width: 400, Height: 400, CellSize: 20},
		Seed: 1,
	})
	require.NoError(t, err)

	src := NewLocalSource(engine)
	snap := src.GetSnapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 3, snap.Length)
}
