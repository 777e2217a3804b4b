package gc

import "jsvm/internal/value"

// Handle is a stable reference to a Record, obtained from a HandleScope.
// It is the only way code outside this package should hold a heap
// reference across an allocation or collection (spec §4.5 "Handles"):
// since a Record's Go pointer identity never changes under this package's
// simulated copying (see gc.go's package doc), a Handle stays valid for
// its scope's entire lifetime by construction.
type Handle struct {
	rec *Record
}

// Value returns the handled object as a Value of its own heap kind.
func (h Handle) Value() value.Value {
	return value.FromHeap(h.rec.Header.Kind, h.rec.Obj)
}

// Record exposes the underlying Record for callers that need to compare
// identity or inspect the header directly (e.g. the VM's inline caches).
func (h Handle) Record() *Record { return h.rec }

// HandleScope is a region on the (conceptual, single-threaded) handle
// stack: every Handle allocated through it is kept alive as a GC root
// until the scope closes. Scopes nest; closing one drops only its own
// handles, restoring its parent as the heap's current top scope (spec
// §4.5 "HandleScope is a RAII region on the thread local stack").
type HandleScope struct {
	heap    *Heap
	parent  *HandleScope
	handles []*Record
	closed  bool
}

// OpenScope pushes a new HandleScope on top of heap's scope stack.
func (h *Heap) OpenScope() *HandleScope {
	s := &HandleScope{heap: h, parent: h.topScope}
	h.topScope = s
	return s
}

// Close pops s off the scope stack, provided it is still the top (nesting
// must close inner-to-outer, matching RAII destruction order). Handles
// allocated in s stop being roots once closed.
func (s *HandleScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.heap.topScope == s {
		s.heap.topScope = s.parent
	}
}

// WithHandleScope opens a scope, runs fn, and closes the scope afterward
// even if fn panics — the idiomatic-Go stand-in for the original's
// stack-unwinding RAII destructor.
func WithHandleScope(h *Heap, fn func(s *HandleScope)) {
	s := h.OpenScope()
	defer s.Close()
	fn(s)
}

// New allocates obj through the scope's heap and returns a Handle rooted
// by this scope.
func (s *HandleScope) New(kind value.Kind, obj value.HeapObject, size uint32) Handle {
	rec := s.heap.alloc(kind, obj, size)
	s.handles = append(s.handles, rec)
	return Handle{rec: rec}
}

// NewObject is New using the kind's default size estimate, the common
// case for compiler/VM code that doesn't track an exact payload size
// (mirrors the original's `scope.new<T>(...)` convenience form).
func (s *HandleScope) NewObject(kind value.Kind, obj value.HeapObject) Handle {
	return s.New(kind, obj, EstimateSize(kind))
}

// NewWithFinalizer is New plus a teardown callback run once the object is
// collected (spec §4.5 "Finalization").
func (s *HandleScope) NewWithFinalizer(kind value.Kind, obj value.HeapObject, size uint32, finalize func(value.HeapObject)) Handle {
	rec := s.heap.alloc(kind, obj, size)
	rec.finalize = finalize
	s.handles = append(s.handles, rec)
	return Handle{rec: rec}
}

// enumerateScopeRoots walks every still-open scope from top to bottom, visiting
// each handle's Value (spec §4.5 root enumeration: "All active
// HandleScopes (linked list per context)").
func (h *Heap) enumerateScopeRoots(visit func(*value.Value)) {
	for s := h.topScope; s != nil; s = s.parent {
		for _, rec := range s.handles {
			v := value.FromHeap(rec.Header.Kind, rec.Obj)
			visit(&v)
		}
	}
}
