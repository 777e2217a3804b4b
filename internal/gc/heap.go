package gc

import "jsvm/internal/value"

// Stats mirrors what GCAllocator::GetStats/GetHeapStats exposed to the
// embedder in the original engine: cumulative allocation/collection
// counts plus a live snapshot of space usage.
type Stats struct {
	Allocated  uint64
	Collected  uint64
	GCCount    uint32
	NewUsed    uint32
	NewLimit   uint32
	OldUsed    uint32
	OldLimit   uint32
}

// Heap owns the two-generation object store described by spec §4.5: a
// young semi-space pair, a single old-space region, the remembered set a
// write barrier feeds, and the stack of active HandleScopes that serve as
// roots alongside whatever RootProviders the embedder registers.
type Heap struct {
	young *NewSpace
	old *OldSpace

	objIndex map[value.HeapObject]*Record
	remembered map[*Record]struct{}

	topScope *HandleScope
	roots    []RootProvider

	gcThresholdPercent    int
	oldGCThresholdPercent int
	largeObjectThreshold  uint32
	collecting            bool

	stats Stats
}

// Config holds the tunables spec §4.5 names; zero values fall back to the
// package defaults.
type Config struct {
	SemiSize              uint32
	OldInitialSize         uint32
	LargeObjectThreshold   uint32
	GCThresholdPercent     int
	OldGCThresholdPercent  int
}

func (c Config) withDefaults() Config {
	if c.SemiSize == 0 {
		c.SemiSize = DefaultSemiSize
	}
	if c.OldInitialSize == 0 {
		c.OldInitialSize = DefaultOldInitialSize
	}
	if c.LargeObjectThreshold == 0 {
		c.LargeObjectThreshold = DefaultLargeObjectThreshold
	}
	if c.GCThresholdPercent == 0 {
		c.GCThresholdPercent = DefaultGCThresholdPercent
	}
	if c.OldGCThresholdPercent == 0 {
		c.OldGCThresholdPercent = DefaultOldGCThresholdPercent
	}
	return c
}

// NewHeap builds an empty Heap from cfg.
func NewHeap(cfg Config) *Heap {
	cfg = cfg.withDefaults()
	return &Heap{
		young:                 NewNewSpace(cfg.SemiSize),
		old:                   NewOldSpace(cfg.OldInitialSize),
		objIndex:              make(map[value.HeapObject]*Record),
		remembered:            make(map[*Record]struct{}),
		gcThresholdPercent:    cfg.GCThresholdPercent,
		oldGCThresholdPercent: cfg.OldGCThresholdPercent,
		largeObjectThreshold:  cfg.LargeObjectThreshold,
	}
}

// alloc registers a new Record for obj, routing it to old space directly
// if size crosses the large-object threshold (spec §4.5 "Large-object
// threshold"), otherwise bump-allocating into new space's active
// semi-space. A failed bump is the caller's cue to trigger a collection
// and retry; alloc itself never collects (collection needs root providers
// it doesn't have).
func (h *Heap) alloc(kind value.Kind, obj value.HeapObject, size uint32) *Record {
	rec := &Record{Header: ObjectHeader{Size: size, Kind: kind}, Obj: obj}
	if size >= h.largeObjectThreshold {
		if !h.old.Allocate(rec) {
			h.old.GrowAndRetry(rec)
		}
	} else if !h.young.Allocate(rec) {
		// Caller is expected to have already collected; if space is still
		// short, fall back to old space rather than losing the object.
		if !h.old.Allocate(rec) {
			h.old.GrowAndRetry(rec)
		}
	}
	h.objIndex[obj] = rec
	h.stats.Allocated++
	return rec
}

// AllocRaw registers obj with the heap without pinning it through a
// HandleScope, for a caller (the VM) that already implements RootProvider
// over the exact stack slots/frames holding the resulting Value. Using a
// HandleScope here instead would pin every VM-allocated object for the
// scope's entire lifetime, defeating collection; a VM that already scans
// its own operand stack as roots needs no extra pinning.
func (h *Heap) AllocRaw(kind value.Kind, obj value.HeapObject, size uint32) value.Value {
	rec := h.alloc(kind, obj, size)
	return value.FromHeap(rec.Header.Kind, rec.Obj)
}

// NeedsYoungGC reports whether new space's active semi-space has crossed
// gc_threshold% (spec §4.5 "GC trigger policy").
func (h *Heap) NeedsYoungGC() bool {
	return h.young.UsedRatio()*100 >= float64(h.gcThresholdPercent)
}

// Stats returns a snapshot of allocation/collection counters and current
// space usage.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.NewUsed, s.NewLimit = h.young.active.used, h.young.active.limit
	s.OldUsed, s.OldLimit = h.old.used, h.old.limit
	return s
}
