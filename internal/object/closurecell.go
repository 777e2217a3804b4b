package object

import "jsvm/internal/value"

// ClosureCell is the boxed storage a captured local is promoted to the
// first time an inner function closes over it (spec §4.3 "Closures"): the
// enclosing frame's slot and every closure that captured it thereafter
// share this one cell by reference, so a write from either side is visible
// to the other. A non-captured local never gets one of these; it stays a
// plain Value in its frame slot.
type ClosureCell struct {
	Value value.Value
}

func (c *ClosureCell) HeapKind() value.Kind { return value.KindClosureVar }

// Trace exposes the boxed Value to the GC scan phase.
func (c *ClosureCell) Trace(visit func(*value.Value)) {
	visit(&c.Value)
}
