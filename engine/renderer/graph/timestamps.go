package graph

import (
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/profiler"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer"
	"go.uber.org/zap"
)

// timestampAllocator hands out begin/end query pairs to passes in execution order. Query indices restart at zero each
// frame, so pair i of the resolved readback belongs to labels[i].
type timestampAllocator struct {
	log      *zap.Logger
	enabled  bool
	capacity uint32
	next     uint32
	labels   []string
	inFlight []string
	warned   bool
}

func (t *timestampAllocator) begin(capacity uint32, enabled bool) {
	t.capacity = capacity
	t.enabled = enabled && capacity >= 2
	t.next = 0
	t.labels = t.labels[:0]
}

// pair returns the queries for one pass, or nil when timestamps are off this frame or the query set is full.
func (t *timestampAllocator) pair(label string) *renderer.TimestampPair {
	if !t.enabled {
		return nil
	}
	if t.next+1 >= t.capacity {
		if !t.warned {
			t.warned = true
			t.log.Warn("timestamp queries exhausted, later passes are not timed",
				zap.String("pass", label),
				zap.Uint32("capacity", t.capacity),
			)
		}
		return nil
	}
	p := &renderer.TimestampPair{Begin: t.next, End: t.next + 1}
	t.next += 2
	t.labels = append(t.labels, label)
	return p
}

// end records the frame's labels as the readback in flight. Frames that wrote no queries leave it untouched.
func (t *timestampAllocator) end() {
	if len(t.labels) > 0 {
		t.inFlight = append(t.inFlight[:0], t.labels...)
	}
}

// timings converts the ticks of the readback in flight into per-pass durations and clears it. Pairs whose end precedes
// their begin are dropped.
func (t *timestampAllocator) timings(ticks []uint64, period float32) []profiler.PassTiming {
	out := make([]profiler.PassTiming, 0, len(t.inFlight))
	for i, label := range t.inFlight {
		b, e := 2*i, 2*i+1
		if e >= len(ticks) || ticks[e] < ticks[b] {
			continue
		}
		out = append(out, profiler.PassTiming{
			Pass:     label,
			Duration: time.Duration(float64(ticks[e]-ticks[b]) * float64(period)),
		})
	}
	t.inFlight = t.inFlight[:0]
	return out
}
