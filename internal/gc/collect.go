package gc

import "jsvm/internal/value"

// recordOf looks up the Record backing v's heap payload, if any. Values of
// a non-heap kind (primitives) have no backing Record.
func (h *Heap) recordOf(v value.Value) (*Record, bool) {
	obj := v.Heap()
	if obj == nil {
		return nil, false
	}
	rec, ok := h.objIndex[obj]
	return rec, ok
}

// CollectYoung runs one Cheney semi-space cycle (spec §4.5 "Young-
// generation GC"). It is a no-op (returning false) if a collection is
// already in progress, guarding against the GC itself triggering an
// allocation that would recurse (spec "Recursive GC is prevented by a
// collecting-flag").
func (h *Heap) CollectYoung() bool {
	if h.collecting {
		return false
	}
	h.collecting = true
	defer func() { h.collecting = false }()

	var queue []*Record
	markAndEnqueue := func(rec *Record) {
		if rec.Header.Generation != GenNew || rec.Header.forwarded {
			return
		}
		rec.Header.forwarded = true
		queue = append(queue, rec)
	}

	h.enumerateAllRoots(true, func(v *value.Value) {
		if rec, ok := h.recordOf(*v); ok {
			markAndEnqueue(rec)
		}
	})

	// BFS: scanning a record's own fields may discover further new-space
	// records, mirroring "Scan to-space in BFS order" (spec §4.5 step 3).
	survivors := 0
	for i := 0; i < len(queue); i++ {
		rec := queue[i]
		rec.trace(func(v *value.Value) {
			if child, ok := h.recordOf(*v); ok {
				markAndEnqueue(child)
			}
		})
		rec.Header.age++
		if rec.Header.age > DefaultPromotionAge {
			if !h.old.Allocate(rec) {
				h.old.GrowAndRetry(rec)
			}
		} else {
			h.young.standby.add(rec)
		}
		survivors++
	}

	reclaimed := 0
	for _, rec := range h.young.active.records {
		if rec.Header.forwarded {
			continue
		}
		rec.finalizeOnce()
		delete(h.objIndex, rec.Obj)
		reclaimed++
	}
	for _, rec := range h.young.standby.records {
		rec.Header.forwarded = false
	}

	h.young.Swap()
	h.stats.GCCount++
	h.stats.Collected += uint64(reclaimed)
	_ = survivors
	return true
}

// CollectFull runs a young collection (promoting its survivors) followed
// by a mark-compact pass over old space (spec §4.5 "Old-generation GC").
func (h *Heap) CollectFull() bool {
	if h.collecting {
		return false
	}
	h.CollectYoung()

	h.collecting = true
	defer func() { h.collecting = false }()

	live := make(map[*Record]bool)
	var queue []*Record
	markAndEnqueue := func(rec *Record) {
		if live[rec] {
			return
		}
		live[rec] = true
		if rec.Header.Generation == GenOld {
			queue = append(queue, rec)
		}
	}

	h.enumerateAllRoots(false, func(v *value.Value) {
		if rec, ok := h.recordOf(*v); ok {
			markAndEnqueue(rec)
		}
	})
	for _, rec := range h.young.active.records {
		markAndEnqueue(rec)
	}

	for i := 0; i < len(queue); i++ {
		queue[i].trace(func(v *value.Value) {
			if child, ok := h.recordOf(*v); ok {
				markAndEnqueue(child)
			}
		})
	}

	// Compact: sweep left-to-right, keeping only live records. This is the
	// Go-model analog of spec §4.5's "memmove live objects to their new
	// locations" — the records slice is rebuilt dense, in original
	// relative order, with nothing in between; no raw address actually
	// moves, since nothing in this engine holds one.
	compacted := h.old.records[:0]
	reclaimed := 0
	for _, rec := range h.old.records {
		if live[rec] {
			compacted = append(compacted, rec)
			continue
		}
		rec.finalizeOnce()
		delete(h.objIndex, rec.Obj)
		reclaimed++
	}
	h.old.records = compacted

	h.stats.GCCount++
	h.stats.Collected += uint64(reclaimed)
	return true
}

// MaybeCollect applies the GC trigger policy (spec §4.5): a young
// collection if new space has crossed its threshold, or a full collection
// if old space is also under pressure after that.
func (h *Heap) MaybeCollect() {
	if !h.NeedsYoungGC() {
		return
	}
	h.CollectYoung()
	if h.old.limit == 0 {
		return
	}
	if float64(h.old.used)/float64(h.old.limit)*100 >= float64(h.oldGCThresholdPercent) {
		h.CollectFull()
	}
}
