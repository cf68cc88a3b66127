package track

import (
	"context"
	"testing"
	"time"

	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/telemetry"
	"github.com/sprouse9/Tactical-Telemetry-Radar-Sim/internal/timeutil"
)

func TestTickOrdersByEntityID(t *testing.T) {
	s := NewStore(0)
	now := time.Now()
	for _, id := range []int64{5, 1, 3} {
		s.ApplyUpdate(msg(id, nil), now)
	}

	p := NewProducer(s, timeutil.RealClock{}, ProducerConfig{})
	snaps := p.Tick(now)

	if len(snaps) != 3 {
		t.Fatalf("snapshot count = %d, want 3", len(snaps))
	}
	want := []int64{1, 3, 5}
	for i, sn := range snaps {
		if sn.EntityID != want[i] {
			t.Errorf("snaps[%d].EntityID = %d, want %d", i, sn.EntityID, want[i])
		}
	}
}

func TestStalenessBoundary(t *testing.T) {
	s := NewStore(0)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.ApplyUpdate(msg(1, nil), base)

	p := NewProducer(s, timeutil.NewMockClock(base), ProducerConfig{StaleThreshold: 2 * time.Second})

	// Exactly at the threshold: not stale (strictly greater-than).
	snaps := p.Tick(base.Add(2 * time.Second))
	if snaps[0].IsStale {
		t.Error("track exactly 2.0s old flagged stale, want live")
	}

	// A hair past the threshold: stale.
	snaps = p.Tick(base.Add(2*time.Second + time.Millisecond))
	if !snaps[0].IsStale {
		t.Error("track 2.001s old flagged live, want stale")
	}
}

func TestNeverUpdatedTrackIsStale(t *testing.T) {
	s := NewStore(0)
	now := time.Now()
	s.GetOrCreate(9, now)

	p := NewProducer(s, timeutil.RealClock{}, ProducerConfig{})
	snaps := p.Tick(now)
	if len(snaps) != 1 || !snaps[0].IsStale {
		t.Errorf("never-updated track should be stale, got %+v", snaps)
	}
	if snaps[0].Status != StatusNoData {
		t.Errorf("Status = %q, want %q", snaps[0].Status, StatusNoData)
	}
}

func TestTickDoesNotMutateStore(t *testing.T) {
	s := NewStore(0)
	now := time.Now()
	s.ApplyUpdate(msg(1, func(m *telemetry.Message) {
		m.X = f64(42)
		m.HeadingDeg = f64(-10)
	}), now)

	p := NewProducer(s, timeutil.RealClock{}, ProducerConfig{})
	before, _ := s.Get(1)
	for i := 0; i < 3; i++ {
		p.Tick(now.Add(time.Duration(i) * time.Hour))
	}
	after, _ := s.Get(1)

	if before.X != after.X || before.HeadingDeg != after.HeadingDeg || !before.LastRx.Equal(after.LastRx) {
		t.Errorf("Tick mutated the store: before %+v, after %+v", before, after)
	}
	if after.HeadingDeg != 350.0 {
		t.Errorf("HeadingDeg = %v, want 350", after.HeadingDeg)
	}
}

func TestRunBroadcastsOnTicks(t *testing.T) {
	s := NewStore(0)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(base)

	p := NewProducer(s, clock, ProducerConfig{TickInterval: 33 * time.Millisecond})
	id, ch := p.Subscribe()
	defer p.Unsubscribe(id)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	s.ApplyUpdate(msg(7, nil), base)

	// Let the goroutine install its ticker before advancing the clock.
	deadline := time.After(2 * time.Second)
	var snaps []Snapshot
	for snaps == nil {
		clock.Advance(40 * time.Millisecond)
		select {
		case snaps = <-ch:
		case <-deadline:
			t.Fatal("no snapshot broadcast within 2s of mock ticks")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if len(snaps) != 1 || snaps[0].EntityID != 7 {
		t.Errorf("broadcast = %+v, want single snapshot for entity 7", snaps)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestSlowSubscriberGetsNewestFrame(t *testing.T) {
	s := NewStore(0)
	now := time.Now()
	p := NewProducer(s, timeutil.RealClock{}, ProducerConfig{})
	id, ch := p.Subscribe()
	defer p.Unsubscribe(id)

	s.ApplyUpdate(msg(1, func(m *telemetry.Message) { m.X = f64(1) }), now)
	p.broadcast(p.Tick(now))
	s.ApplyUpdate(msg(1, func(m *telemetry.Message) { m.X = f64(2) }), now)
	p.broadcast(p.Tick(now))

	snaps := <-ch
	if snaps[0].X != 2 {
		t.Errorf("slow subscriber received x=%v, want the superseding frame (x=2)", snaps[0].X)
	}
}
