// Package profiler tracks frame rate, memory statistics and GPU pass timings, and logs them at a fixed interval.
package profiler

import (
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PassTiming is the GPU time one render pass or sub-pass took, measured with timestamp queries.
type PassTiming struct {
	Pass     string
	Duration time.Duration
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	log            *zap.Logger
	now            func() time.Time
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	mu         sync.Mutex
	gpuTimings []PassTiming
	gpuFresh   bool
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		log:            zap.NewNop(),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// RecordPassTimings stores the GPU timings of the most recent readback. They are logged with the next statistics
// line.
//
// Parameters:
//   - timings: the pass timings in pass order
func (p *Profiler) RecordPassTimings(timings []PassTiming) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gpuTimings = append(p.gpuTimings[:0], timings...)
	p.gpuFresh = true
}

// PassTimings returns a copy of the latest GPU pass timings.
//
// Returns:
//   - []PassTiming: the timings, empty if no readback arrived yet
func (p *Profiler) PassTimings() []PassTiming {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PassTiming, len(p.gpuTimings))
	copy(out, p.gpuTimings)
	return out
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory, and the latest GPU pass
// timings if a new readback arrived since the previous line.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap. TotalAlloc only grows and tracks churn. Sys is the process footprint.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPause = max(maxPause, time.Duration(p.memStats.PauseNs[i%256]))
		}
	}

	fields := []zap.Field{
		zap.Float64("fps", fps),
		zap.Float64("heap_mb", allocMB),
		zap.Float64("alloc_rate_mb_s", allocRateMB),
		zap.Uint32("gc", gcCount),
		zap.Duration("gc_last_pause", lastPause),
		zap.Duration("gc_max_pause", maxPause),
		zap.Float64("sys_mb", sysMB),
	}

	p.mu.Lock()
	if p.gpuFresh {
		var total time.Duration
		for _, t := range p.gpuTimings {
			fields = append(fields, zap.Duration("gpu_"+t.Pass, t.Duration))
			total += t.Duration
		}
		fields = append(fields, zap.Duration("gpu_total", total))
		p.gpuFresh = false
	}
	p.mu.Unlock()

	p.log.Info("frame stats", fields...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
