package profiler

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func newTestProfiler(t *testing.T) (*Profiler, *fakeClock, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithLogger(zap.New(core)), WithInterval(time.Second), WithClock(clock.now))
	return p, clock, logs
}

func TestTickLogsOncePerInterval(t *testing.T) {
	p, clock, logs := newTestProfiler(t)

	for range 10 {
		clock.t = clock.t.Add(50 * time.Millisecond)
		if p.Tick() {
			t.Fatal("logged before the interval elapsed")
		}
	}
	clock.t = clock.t.Add(500 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("expected a stats line after one second")
	}
	if logs.Len() != 1 {
		t.Fatalf("log entries = %d, want 1", logs.Len())
	}
	fps, ok := logs.All()[0].ContextMap()["fps"].(float64)
	if !ok || fps < 10.9 || fps > 11.1 {
		t.Errorf("fps = %v, want 11", logs.All()[0].ContextMap()["fps"])
	}
}

func TestPassTimingsAreLoggedOnce(t *testing.T) {
	p, clock, logs := newTestProfiler(t)

	p.RecordPassTimings([]PassTiming{
		{Pass: "geometry", Duration: 2 * time.Millisecond},
		{Pass: "shade", Duration: time.Millisecond},
	})

	clock.t = clock.t.Add(time.Second)
	p.Tick()
	clock.t = clock.t.Add(time.Second)
	p.Tick()

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["gpu_total"] != 3*time.Millisecond {
		t.Errorf("gpu_total = %v", first["gpu_total"])
	}
	if _, ok := entries[1].ContextMap()["gpu_geometry"]; ok {
		t.Error("stale GPU timings logged twice")
	}
	if got := p.PassTimings(); len(got) != 2 || got[0].Pass != "geometry" {
		t.Errorf("PassTimings = %+v", got)
	}
}
