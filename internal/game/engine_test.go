package game

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestEngine(t *testing.T, opts Options, interval time.Duration) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineConfig{Game: opts, TickInterval: interval, Seed: 7})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(engine.Stop)
	return engine
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// TestNewEngineRejectsBadConfig verifies validation errors surface from NewEngine
func TestNewEngineRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"indivisible field", EngineConfig{Game: Options{Width: 810, Height: 600, CellSize: 20}}},
		{"negative interval", EngineConfig{Game: Options{Width: 800, Height: 600, CellSize: 20}, TickInterval: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestEngineInitialSnapshot verifies a snapshot is available before Start
func TestEngineInitialSnapshot(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), time.Second)

	snap := engine.GetSnapshot()
	if snap == nil {
		t.Fatal("GetSnapshot returned nil")
	}
	if snap.Sequence != 1 {
		t.Errorf("Expected sequence 1, got %d", snap.Sequence)
	}
	if len(snap.Body) != 3 || snap.Body[0] != (Cell{100, 100}) {
		t.Errorf("Unexpected body %v", snap.Body)
	}

	settings := engine.Settings()
	if settings.Cols != 20 || settings.TickIntervalMs != 1000 || settings.Boundary != "wrap" {
		t.Errorf("Unexpected settings %+v", settings)
	}
}

// TestEngineStartStop verifies the loop ticks and stops cleanly
func TestEngineStartStop(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), 5*time.Millisecond)

	var ticks atomic.Int64
	engine.AddTickHook(func(r TickReport) {
		ticks.Add(1)
		if r.Snapshot == nil {
			t.Error("tick hook got nil snapshot")
		}
	})

	engine.Start()
	engine.Start() // second start is a no-op
	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })

	engine.Stop()
	engine.Stop()

	select {
	case <-engine.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
	if engine.Running() {
		t.Error("engine still running after Stop")
	}
	if engine.RequestDirection(DirUp, "test") {
		t.Error("stopped engine accepted input")
	}
	if err := engine.Reset(); !errors.Is(err, ErrEngineStopped) {
		t.Errorf("Expected ErrEngineStopped, got %v", err)
	}
}

// TestEngineStopWithoutStart verifies Stop on a never-started engine does not block
func TestEngineStopWithoutStart(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), time.Second)
	engine.Stop()
	engine.Start()

	if engine.Running() {
		t.Error("Start after Stop should not run the loop")
	}
}

// TestEngineRequestDirection verifies input reaches the game
func TestEngineRequestDirection(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), 20*time.Millisecond)
	engine.Start()

	if engine.RequestDirection(DirNone, "test") {
		t.Error("DirNone should be rejected")
	}
	if !engine.RequestDirection(DirDown, "test") {
		t.Fatal("RequestDirection rejected a valid direction")
	}

	waitFor(t, time.Second, func() bool {
		return engine.GetSnapshot().Heading == DirDown
	})
}

// TestEngineReset verifies Reset publishes a fresh run
func TestEngineReset(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), 5*time.Millisecond)
	engine.Start()

	waitFor(t, time.Second, func() bool { return engine.GetSnapshot().RunTick >= 2 })
	before := engine.GetSnapshot()

	if err := engine.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	after := engine.GetSnapshot()
	if after.RunID == before.RunID {
		t.Error("Reset did not start a new run")
	}
	if after.Sequence <= before.Sequence {
		t.Errorf("Sequence did not advance: %d -> %d", before.Sequence, after.Sequence)
	}
	if engine.History().Len() == 0 {
		t.Error("abandoned run was not recorded")
	}
}

// TestEngineStopsOnDeath verifies the stop policy ends the loop
func TestEngineStopsOnDeath(t *testing.T) {
	opts := classicOptions()
	opts.OnDeath = DeathStop
	opts.Boundary = BoundaryWall
	opts.InitialBody = []Cell{{380, 100}, {360, 100}}

	engine := newTestEngine(t, opts, 5*time.Millisecond)
	engine.Start()

	select {
	case <-engine.Done():
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after death")
	}

	snap := engine.GetSnapshot()
	if snap.Alive || snap.Status != StatusDead || snap.Outcome != OutcomeDied {
		t.Errorf("Unexpected terminal snapshot: alive=%v status=%s outcome=%s", snap.Alive, snap.Status, snap.Outcome)
	}
}

// TestEngineAppliesDirectionQueuedBeforeTick verifies a request queued while the loop is busy
// takes effect on the very next tick, even when that tick is already due
func TestEngineAppliesDirectionQueuedBeforeTick(t *testing.T) {
	for trial := 0; trial < 10; trial++ {
		engine := newTestEngine(t, classicOptions(), 5*time.Millisecond)

		entered := make(chan struct{})
		release := make(chan struct{})
		var releaseOnce sync.Once
		unblock := func() { releaseOnce.Do(func() { close(release) }) }
		t.Cleanup(unblock)

		heads := make(chan Cell, 4)
		blocked := false
		engine.AddTickHook(func(r TickReport) {
			if !blocked {
				blocked = true
				close(entered)
				<-release
			}
			select {
			case heads <- r.Snapshot.Body[0]:
			default:
			}
		})
		engine.Start()

		select {
		case <-entered:
		case <-time.After(time.Second):
			t.Fatal("first tick never ran")
		}
		if !engine.RequestDirection(DirDown, "test") {
			t.Fatal("RequestDirection rejected a valid direction")
		}
		time.Sleep(20 * time.Millisecond) // the next tick becomes due while the hook blocks
		unblock()

		var got []Cell
		for len(got) < 2 {
			select {
			case c := <-heads:
				got = append(got, c)
			case <-time.After(time.Second):
				t.Fatalf("trial %d: only %d ticks observed", trial, len(got))
			}
		}
		if got[0] != (Cell{120, 100}) || got[1] != (Cell{120, 120}) {
			t.Fatalf("trial %d: heads %v, want [(120,100) (120,120)]", trial, got)
		}
		engine.Stop()
	}
}

// TestEngineResetRunsHooks verifies hooks see the new run as soon as a reset is applied
func TestEngineResetRunsHooks(t *testing.T) {
	engine := newTestEngine(t, classicOptions(), time.Hour)

	reports := make(chan TickReport, 4)
	engine.AddTickHook(func(r TickReport) { reports <- r })
	engine.Start()

	if err := engine.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	select {
	case r := <-reports:
		if !r.Reset {
			t.Error("Expected a reset report")
		}
		if r.Snapshot == nil || r.Snapshot.RunID != engine.GetSnapshot().RunID {
			t.Errorf("Report does not carry the new run: %+v", r.Snapshot)
		}
		if r.Snapshot.RunTick != 0 {
			t.Errorf("Expected run tick 0, got %d", r.Snapshot.RunTick)
		}
	case <-time.After(time.Second):
		t.Fatal("reset did not run the tick hooks")
	}
}
