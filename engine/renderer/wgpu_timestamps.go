package renderer

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// timestampQueries owns the query set and the two buffers a frame's timestamps travel through: resolve (GPU only)
// and readback (mappable). At most one readback is in flight; frames that end while it is pending write no queries.
type timestampQueries struct {
	querySet *wgpu.QuerySet
	resolved *wgpu.Buffer
	readback *wgpu.Buffer
	capacity uint32

	pending bool
	mapped  bool
	failed  bool
	count   uint32
}

func newTimestampQueries(device *wgpu.Device, capacity uint32) (*timestampQueries, error) {
	qs, err := device.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: "Pass Timestamps",
		Type:  wgpu.QueryTypeTimestamp,
		Count: capacity,
	})
	if err != nil {
		return nil, fmt.Errorf("timestamp query set: %w", err)
	}
	size := uint64(capacity) * 8
	resolved, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Resolve Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageQueryResolve | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("timestamp resolve buffer: %w", err)
	}
	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamp Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("timestamp readback buffer: %w", err)
	}
	return &timestampQueries{
		querySet: qs,
		resolved: resolved,
		readback: readback,
		capacity: capacity,
	}, nil
}

// span returns the pair to write around a pass. A nil receiver, a nil pair, a pair outside the query set and a frame
// ending while the previous readback is still pending all report false.
func (t *timestampQueries) span(pair *TimestampPair) (TimestampPair, bool) {
	if t == nil || pair == nil || t.pending {
		return TimestampPair{}, false
	}
	if pair.Begin >= t.capacity || pair.End >= t.capacity {
		return TimestampPair{}, false
	}
	return *pair, true
}

func (t *timestampQueries) resolve(encoder *wgpu.CommandEncoder, count uint32) error {
	if err := encoder.ResolveQuerySet(t.querySet, 0, count, t.resolved, 0); err != nil {
		return err
	}
	if err := encoder.CopyBufferToBuffer(t.resolved, 0, t.readback, 0, uint64(count)*8); err != nil {
		return err
	}
	t.count = count
	return nil
}

func (t *timestampQueries) mapReadback() error {
	t.begin()
	err := t.readback.MapAsync(wgpu.MapModeRead, 0, uint64(t.count)*8, t.finish)
	if err != nil {
		t.abort()
	}
	return err
}

// begin marks a readback in flight. Until finish or abort runs, span refuses new pairs and EndFrame skips resolving.
func (t *timestampQueries) begin() {
	t.pending = true
	t.mapped = false
	t.failed = false
}

func (t *timestampQueries) finish(status wgpu.BufferMapAsyncStatus) {
	if status == wgpu.BufferMapAsyncStatusSuccess {
		t.mapped = true
	} else {
		t.failed = true
	}
}

// abort releases a readback whose mapping could not be requested so the next frame can record timestamps again.
func (t *timestampQueries) abort() {
	t.pending = false
	t.mapped = false
	t.failed = true
}

func (b *wgpuRendererBackendImpl) TimestampCapacity() uint32 {
	if b.timestamps == nil {
		return 0
	}
	return b.timestamps.capacity
}

func (b *wgpuRendererBackendImpl) TimestampsPending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timestamps != nil && b.timestamps.pending
}

func (b *wgpuRendererBackendImpl) CollectTimestamps() ([]uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.timestamps
	if t == nil || !t.pending {
		return nil, false
	}
	if !t.mapped && !t.failed {
		b.device.Poll(false, nil)
	}
	switch {
	case t.failed:
		t.pending = false
		return nil, false
	case !t.mapped:
		return nil, false
	}

	raw := t.readback.GetMappedRange(0, uint(t.count)*8)
	ticks := make([]uint64, t.count)
	for i := range ticks {
		ticks[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	t.readback.Unmap()
	t.pending = false
	t.mapped = false
	return ticks, true
}
