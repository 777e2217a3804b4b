package gc

import "jsvm/internal/value"

// Manager is the facade a Context owns (spec §3.0 "execution context owns
// ... a GC manager"), grounded on the original engine's GCAllocator/
// GCManager pair. Go collapses that pair's thin delegation into one type:
// Manager holds configuration and stats concerns directly atop a Heap
// rather than forwarding every call through an extra layer.
type Manager struct {
	heap *Heap
}

// NewManager builds a Manager with default tuning; override via
// SetThreshold, or build from internal/config with NewManagerWithConfig.
func NewManager() *Manager {
	return &Manager{heap: NewHeap(Config{})}
}

// NewManagerWithConfig builds a Manager from explicit tuning, the path
// internal/config's engine limits flow through.
func NewManagerWithConfig(cfg Config) *Manager {
	return &Manager{heap: NewHeap(cfg)}
}

// Heap exposes the underlying heap for callers that need direct handle
// scopes or root registration (the VM, const pools, module registry).
func (m *Manager) Heap() *Heap { return m.heap }

// OpenScope delegates to the underlying heap; see Heap.OpenScope.
func (m *Manager) OpenScope() *HandleScope { return m.heap.OpenScope() }

// AddRoot registers a RootProvider (the VM stack, const pools, module
// registry, microtask queue) with the underlying heap.
func (m *Manager) AddRoot(p RootProvider) { m.heap.AddRoot(p) }

// AllocRaw delegates to Heap.AllocRaw; see its doc for why the VM uses this
// instead of a HandleScope for ordinary per-instruction allocation.
func (m *Manager) AllocRaw(kind value.Kind, obj value.HeapObject, size uint32) value.Value {
	return m.heap.AllocRaw(kind, obj, size)
}

// Collect runs a young collection, or a full collection if full is true,
// applying the trigger policy's recursive-GC guard either way.
func (m *Manager) Collect(full bool) bool {
	if full {
		return m.heap.CollectFull()
	}
	return m.heap.CollectYoung()
}

// ForceFullCollection runs an immediate full collection regardless of the
// trigger thresholds, the path the embedder's "compact now" API uses.
func (m *Manager) ForceFullCollection() {
	m.heap.CollectFull()
}

// SetThreshold adjusts the young-GC trigger percentage.
func (m *Manager) SetThreshold(percent int) {
	m.heap.gcThresholdPercent = percent
}

// SetOldThreshold adjusts the full-GC trigger percentage.
func (m *Manager) SetOldThreshold(percent int) {
	m.heap.oldGCThresholdPercent = percent
}

// Stats returns cumulative allocation/collection counters and current
// space usage.
func (m *Manager) Stats() Stats {
	return m.heap.Stats()
}

// MaybeCollect applies the allocation-triggered GC policy; callers invoke
// this after every allocation that might have crossed a threshold (the VM
// does this at its allocation sites rather than on a timer, since this
// engine's GC is not concurrent).
func (m *Manager) MaybeCollect() {
	m.heap.MaybeCollect()
}

// kindAllocSizes approximates the original engine's alloc-type → size
// dispatch (gc_allocator.cpp's GCAllocType switch): a rough per-kind
// payload estimate used only to decide new-space vs. large-object
// placement, since Go's own allocator (not this package) owns exact
// object layout.
var kindAllocSizes = map[value.Kind]uint32{
	value.KindObject:         64,
	value.KindArrayObject:    96,
	value.KindFunctionObject: 80,
	value.KindString:         32,
	value.KindFunctionDef:    128,
	value.KindModuleDef:      128,
	value.KindClosureVar:     16,
}

// EstimateSize returns the default size estimate for kind, or a small
// fallback for kinds not in the table.
func EstimateSize(kind value.Kind) uint32 {
	if n, ok := kindAllocSizes[kind]; ok {
		return n
	}
	return 48
}
