package ipc

import (
	"bytes"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snake-pit/internal/game"
)

func testSnapshot(seq uint64) *game.Snapshot {
	return &game.Snapshot{
		Sequence:  seq,
		Timestamp: time.Unix(1700000000, 42),
		Tick:      7,
		RunID:     "run-a",
		RunTick:   7,
		Body:      []game.Cell{{X: 120, Y: 100}, {X: 100, Y: 100}, {X: 80, Y: 100}},
		Fruit:     game.Cell{X: 300, Y: 20},
		Alive:     true,
		Status:    game.StatusRunning,
		Outcome:   game.OutcomeAteFruit,
		Heading:   game.DirRight,
		Score:     2,
		BestScore: 5,
		Length:    3,
		Width:     400,
		Height:    400,
		CellSize:  20,
	}
}

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MsgTypeConfig, ConfigMessage{Width: 400, Height: 400, CellSize: 20}))
	require.NoError(t, WriteMessage(&buf, MsgTypePing, nil))

	msgType, body, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgTypeConfig, msgType)
	cfg, err := DecodeConfig(body)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.CellSize)

	msgType, body, err = ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, MsgTypePing, msgType)
	assert.Empty(t, body)
}

func TestReadMessageRejectsBadHeaders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MsgTypePing, nil))
	frame := buf.Bytes()
	frame[0] = 0xFF

	_, _, err := ReadMessage(bytes.NewReader(frame))
	assert.ErrorContains(t, err, "version mismatch")

	oversized := []byte{1, 0, MsgTypeSnapshot, 0, 0xFF, 0xFF, 0xFF, 0x7F}
	_, _, err = ReadMessage(bytes.NewReader(oversized))
	assert.ErrorContains(t, err, "too large")
}

func TestSnapshotConversionKeepsEveryField(t *testing.T) {
	snap := testSnapshot(3)

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MsgTypeSnapshot, FromSnapshot(snap)))
	_, body, err := ReadMessage(&buf)
	require.NoError(t, err)

	msg, err := DecodeSnapshot(body)
	require.NoError(t, err)
	got := msg.ToSnapshot()

	assert.True(t, snap.Timestamp.Equal(got.Timestamp))
	got.Timestamp = snap.Timestamp
	assert.Equal(t, snap, got)
}

func TestPublisherToSubscriber(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a Unix socket path")
	}
	path := filepath.Join(t.TempDir(), "snake.sock")

	pub := NewPublisher(path)
	pub.SetConfig(ConfigMessage{Width: 400, Height: 400, CellSize: 20, TickIntervalMs: 150})
	require.NoError(t, pub.Start())
	defer pub.Stop()

	received := make(chan *SnapshotMessage, 16)
	sub := NewSubscriber(path)
	sub.OnSnapshot(func(msg *SnapshotMessage) {
		received <- msg
	})
	require.NoError(t, sub.Start())
	defer sub.Stop()

	cfg := sub.WaitForConfig(3 * time.Second)
	require.NotNil(t, cfg, "no config handshake")
	assert.Equal(t, 20, cfg.CellSize)

	// the client is registered right after the handshake is written
	require.Eventually(t, func() bool {
		clients, _, _ := pub.GetStats()
		return clients == 1
	}, 2*time.Second, 10*time.Millisecond)

	pub.TickHook(game.TickReport{Outcome: game.OutcomeContinued, Snapshot: testSnapshot(9)})

	select {
	case msg := <-received:
		assert.Equal(t, uint64(9), msg.Sequence)
		assert.Equal(t, "run-a", msg.RunID)
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot never arrived")
	}
	assert.Equal(t, uint64(9), sub.GetLatestSnapshot().Sequence)
}

func TestPublishBeforeStartIsNoop(t *testing.T) {
	pub := NewPublisher(filepath.Join(t.TempDir(), "unused.sock"))
	pub.PublishSnapshot(testSnapshot(1))

	clients, sent, dropped := pub.GetStats()
	assert.Zero(t, clients)
	assert.Zero(t, sent)
	assert.Zero(t, dropped)
	assert.Nil(t, pub.Addr())
}

func TestCheckGrid(t *testing.T) {
	assert.NoError(t, CheckGrid(game.Settings{Cols: 20, Rows: 20}))
	assert.NoError(t, CheckGrid(game.Settings{Cols: 400, Rows: 200}))
	assert.Error(t, CheckGrid(game.Settings{Cols: 480, Rows: 270}), "1920x1080 with 4px cells")
}

func TestFullBoardSnapshotFitsMessage(t *testing.T) {
	snap := testSnapshot(1)
	snap.Width, snap.Height, snap.CellSize = MaxGridCells, 1, 1
	snap.Body = make([]game.Cell, MaxGridCells)
	for i := range snap.Body {
		snap.Body[i] = game.Cell{X: MaxGridCells - 1 - i, Y: 0}
	}
	snap.Length = len(snap.Body)

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, MsgTypeSnapshot, FromSnapshot(snap)))
	assert.LessOrEqual(t, buf.Len()-HeaderSize, MaxMessageSize)
}
