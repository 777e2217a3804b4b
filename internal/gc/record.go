package gc

import "jsvm/internal/value"

// Record is the GC's own handle on a heap object: its header plus the
// payload and an optional finalizer. Every Value of a heap kind wraps a
// Record's Obj through value.FromHeap, so two Values referencing the same
// object compare equal by Record identity (spec §3.1 reference equality).
type Record struct {
	Header ObjectHeader
	Obj    value.HeapObject

	// finalize runs once, during the collection that first discovers this
	// Record unreachable (spec §4.5 "Finalization"). Nil for object kinds
	// with no non-trivial teardown.
	finalize func(value.HeapObject)
}

func (r *Record) HeapKind() value.Kind { return r.Header.Kind }

// trace visits every Value this record's payload holds, if it implements
// Traceable. Leaf kinds (strings interned elsewhere, plain scalars) never
// reach here since they aren't heap-allocated in the first place.
func (r *Record) trace(visit func(*value.Value)) {
	if t, ok := r.Obj.(Traceable); ok {
		t.Trace(visit)
	}
}

// finalizeOnce runs the finalizer exactly once, guarded by the destructed
// bit (spec §4.5: "the destructed bit prevents double-call when
// grow-forwarding").
func (r *Record) finalizeOnce() {
	if r.Header.destructed || r.finalize == nil {
		return
	}
	r.Header.destructed = true
	r.finalize(r.Obj)
}
