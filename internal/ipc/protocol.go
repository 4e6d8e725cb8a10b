// Package ipc ships game snapshots from the server to out-of-process viewers
// over a Unix domain socket (TCP on localhost under Windows)
package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	// DefaultSocketPath is the Unix socket path for IPC
	DefaultSocketPath = "/tmp/snake-pit.sock"

	// DefaultTCPPort is used instead of the socket on Windows
	DefaultTCPPort = "127.0.0.1:9147"

	// Message types
	MsgTypeSnapshot byte = 0x01
	MsgTypePing     byte = 0x02
	MsgTypePong     byte = 0x03
	MsgTypeConfig   byte = 0x04

	// Protocol version for compatibility checking
	ProtocolVersion uint16 = 1

	// Connection settings
	MaxMessageSize = 1024 * 1024 // see MaxGridCells
	WriteTimeout   = 50 * time.Millisecond
	ReadTimeout    = 250 * time.Millisecond
	ReconnectDelay = 500 * time.Millisecond

	// MaxGridCells is the largest field whose full-board snapshot fits in MaxMessageSize.
	// A body cell costs at most 11 bytes as gob.
	MaxGridCells = 80_000
)

// SnapshotMessage is the wire form of game.Snapshot
type SnapshotMessage struct {
	Sequence  uint64
	Timestamp int64 // Unix nano
	Tick      uint64
	RunID     string
	RunTick   uint64

	Body    []CellData // head first
	Fruit   CellData
	Alive   bool
	Status  uint8
	Outcome uint8
	Heading uint8

	Score     int
	BestScore int
	Length    int

	Width    int
	Height   int
	CellSize int
}

// CellData is one grid cell in pixels
type CellData struct {
	X, Y int32
}

// ConfigMessage describes the play field, sent once per connection
type ConfigMessage struct {
	Width          int
	Height         int
	CellSize       int
	TickIntervalMs int64
	Boundary       string
	OnDeath        string
}

// Header is the message header for framing
type Header struct {
	Version  uint16
	Type     byte
	Reserved byte
	Length   uint32
}

const HeaderSize = 8 // 2 + 1 + 1 + 4

// WriteMessage writes a framed, gob encoded message. data may be nil for empty bodies.
func WriteMessage(w io.Writer, msgType byte, data interface{}) error {
	buf := getBuffer()
	defer putBuffer(buf)

	// reserve the header, then encode the body behind it so one Write sends both
	buf.Write(make([]byte, HeaderSize))
	if data != nil {
		if err := gob.NewEncoder(buf).Encode(data); err != nil {
			return fmt.Errorf("gob encode: %w", err)
		}
	}

	frame := buf.Bytes()
	bodyLen := len(frame) - HeaderSize
	if bodyLen > MaxMessageSize {
		return fmt.Errorf("message too large: %d > %d", bodyLen, MaxMessageSize)
	}

	binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion)
	frame[2] = msgType
	frame[3] = 0
	binary.LittleEndian.PutUint32(frame[4:8], uint32(bodyLen))

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage reads a framed message from the connection
func ReadMessage(r io.Reader) (byte, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}

	header := Header{
		Version:  binary.LittleEndian.Uint16(headerBuf[0:2]),
		Type:     headerBuf[2],
		Reserved: headerBuf[3],
		Length:   binary.LittleEndian.Uint32(headerBuf[4:8]),
	}

	if header.Version != ProtocolVersion {
		return 0, nil, fmt.Errorf("version mismatch: got %d, want %d", header.Version, ProtocolVersion)
	}
	if header.Length > MaxMessageSize {
		return 0, nil, fmt.Errorf("message too large: %d > %d", header.Length, MaxMessageSize)
	}

	var body []byte
	if header.Length > 0 {
		body = make([]byte, header.Length)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, fmt.Errorf("read body: %w", err)
		}
	}

	return header.Type, body, nil
}

// DecodeSnapshot decodes a snapshot body
func DecodeSnapshot(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("gob decode snapshot: %w", err)
	}
	return &msg, nil
}

// DecodeConfig decodes a config body
func DecodeConfig(data []byte) (*ConfigMessage, error) {
	var msg ConfigMessage
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		return nil, fmt.Errorf("gob decode config: %w", err)
	}
	return &msg, nil
}

// CleanupSocket removes the socket file if it exists
func CleanupSocket(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	}
	return nil
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	// don't keep oversized buffers alive
	if buf.Cap() > 64*1024 {
		return
	}
	bufferPool.Put(buf)
}
