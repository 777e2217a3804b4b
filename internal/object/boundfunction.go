package object

import "jsvm/internal/value"

// BoundFunction is the transient value PropertyCall produces: a callable
// paired with the receiver it was looked up on, so FunctionCall can bind
// `this` without re-resolving the property (spec §4.4, "PropertyCall pops
// receiver, looks up method, pushes callable bound to receiver"). It never
// outlives the call it was built for — a plain PropertyLoad of the same
// method yields the unbound Target directly, matching JS's "extracting a
// method loses its receiver" rule.
type BoundFunction struct {
	Target value.Value
	This   value.Value
}

func (b *BoundFunction) HeapKind() value.Kind { return value.KindFunctionObject }

// Trace exposes both halves to the GC scan phase.
func (b *BoundFunction) Trace(visit func(*value.Value)) {
	visit(&b.Target)
	visit(&b.This)
}
