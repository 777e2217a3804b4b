// Package constpool implements the two-tier constant pool of spec §3.7:
// a runtime-global pool, shared and immutable after insertion, and a
// per-context local pool, mutable and reference-counted. Both dedupe
// scalar constants (numbers, strings, booleans) on insert so identical
// literals across a program share one slot.
package constpool

import "jsvm/internal/value"

// ConstIndex is the index type constants are addressed by. A negative
// index counts from the end of the pool, mirroring the original engine's
// tail-relative addressing for well-known/reserved entries.
type ConstIndex int32

// key is the dedup key for scalar constants; heap-object constants (which
// carry a pointer) are never deduped and always get a fresh slot.
type key struct {
	kind value.Kind
	num  uint64
	str  string
}

func scalarKey(v value.Value) (key, bool) {
	switch v.Kind() {
	case value.KindUndefined, value.KindNull, value.KindBoolean,
		value.KindInt64, value.KindUint64, value.KindFloat64, value.KindString:
		return key{kind: v.Kind(), num: v.Uint64(), str: v.Str()}, true
	default:
		return key{}, false
	}
}

// entry pairs a stored constant with its reference count. RefCount is
// only meaningful for a Local pool; the Global pool never evicts.
type entry struct {
	value    value.Value
	refCount int
}

// Global is the runtime-wide const pool: append-only, shared across every
// context hosted by one Runtime, and never freed for the runtime's
// lifetime (spec §4.3, "runtime-wide ... logically immutable after
// initialization; insertions are serialized by the context that performs
// them").
type Global struct {
	entries []entry
	dedup   map[key]uint32
}

// NewGlobal creates an empty global pool and reserves the well-known
// indices spec §3.7 calls out (e.g. the "length" property name every
// array and function exposes), so every context sees them at the same
// fixed slot without re-interning.
func NewGlobal() *Global {
	g := &Global{dedup: make(map[key]uint32)}
	for _, s := range wellKnownStrings {
		g.New(value.String(s))
	}
	return g
}

// wellKnownStrings are reserved at fixed low indices in every Global pool,
// in declaration order, so WellKnownIndex below stays valid regardless of
// what a program subsequently interns.
var wellKnownStrings = []string{
	"length", "prototype", "constructor", "__proto__", "name", "message",
}

// WellKnownIndex returns the reserved global index for one of
// wellKnownStrings, or -1 if s isn't reserved.
func WellKnownIndex(s string) ConstIndex {
	for i, w := range wellKnownStrings {
		if w == s {
			return ConstIndex(i)
		}
	}
	return -1
}

// New inserts v, returning its index. Scalar constants are deduplicated;
// an identical later insert returns the original index.
func (g *Global) New(v value.Value) ConstIndex {
	if k, ok := scalarKey(v); ok {
		if idx, found := g.dedup[k]; found {
			return ConstIndex(idx)
		}
		idx := uint32(len(g.entries))
		g.entries = append(g.entries, entry{value: v})
		g.dedup[k] = idx
		return ConstIndex(idx)
	}
	idx := uint32(len(g.entries))
	g.entries = append(g.entries, entry{value: v})
	return ConstIndex(idx)
}

// Get resolves index, honoring tail-relative negative indices.
func (g *Global) Get(index ConstIndex) value.Value {
	return g.entries[g.resolve(index)].value
}

func (g *Global) resolve(index ConstIndex) int {
	if index >= 0 {
		return int(index)
	}
	return len(g.entries) + int(index)
}

// Size returns the number of entries in the pool.
func (g *Global) Size() int { return len(g.entries) }

// Local is a per-context const pool: mutable and reference-counted so a
// context can intern constants produced during Eval and release them
// again once the owning FunctionDef is discarded (spec §3.7,
// "FindConstOrInsertToLocal" / "ReferenceConstValue" / "DereferenceConstValue").
type Local struct {
	entries []entry
	dedup   map[key]uint32
	free    []uint32 // indices whose refCount dropped to zero, available for reuse
}

// NewLocal creates an empty local pool.
func NewLocal() *Local {
	return &Local{dedup: make(map[key]uint32)}
}

// FindOrInsert interns v, returning its index with its reference count
// incremented by one.
func (l *Local) FindOrInsert(v value.Value) ConstIndex {
	if k, ok := scalarKey(v); ok {
		if idx, found := l.dedup[k]; found {
			l.entries[idx].refCount++
			return ConstIndex(idx)
		}
		idx := l.alloc(v)
		l.dedup[k] = idx
		return ConstIndex(idx)
	}
	return ConstIndex(l.alloc(v))
}

func (l *Local) alloc(v value.Value) uint32 {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.entries[idx] = entry{value: v, refCount: 1}
		return idx
	}
	idx := uint32(len(l.entries))
	l.entries = append(l.entries, entry{value: v, refCount: 1})
	return idx
}

// Get resolves index, honoring tail-relative negative indices.
func (l *Local) Get(index ConstIndex) value.Value {
	return l.entries[l.resolveLive(index)].value
}

func (l *Local) resolveLive(index ConstIndex) int {
	if index >= 0 {
		return int(index)
	}
	return len(l.entries) + int(index)
}

// Reference increments index's reference count, for a second owner
// (e.g. a closure capturing the same constant) that will later call
// Dereference independently.
func (l *Local) Reference(index ConstIndex) {
	l.entries[l.resolveLive(index)].refCount++
}

// Dereference decrements index's reference count, freeing the slot for
// reuse once it reaches zero. Freed scalar entries are evicted from the
// dedup table so a later FindOrInsert doesn't resolve to a dead slot.
func (l *Local) Dereference(index ConstIndex) {
	idx := l.resolveLive(index)
	l.entries[idx].refCount--
	if l.entries[idx].refCount > 0 {
		return
	}
	v := l.entries[idx].value
	if k, ok := scalarKey(v); ok {
		delete(l.dedup, k)
	}
	l.entries[idx] = entry{}
	l.free = append(l.free, uint32(idx))
}

// Size returns the number of allocated slots, including any not yet
// reclaimed onto the free list.
func (l *Local) Size() int { return len(l.entries) }

// Entries returns a snapshot of every live slot's value in index order, a
// free (never-inserted-since, or reclaimed-and-unreused) slot reading as
// value.Undefined(). Used by internal/snapshot to persist a context's local
// pool alongside its compiled bytecode.
func (l *Local) Entries() []value.Value {
	out := make([]value.Value, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.value
	}
	return out
}

// NewLocalFromEntries rebuilds a Local pool from a prior Entries() snapshot,
// re-deriving the scalar dedup table and giving every restored slot a
// reference count of one. A restored pool is meant for re-running or
// disassembling cached bytecode, not for resuming the exact reference-
// counting history of the context that produced the snapshot (see
// DESIGN.md's internal/snapshot entry).
func NewLocalFromEntries(entries []value.Value) *Local {
	l := &Local{
		entries: make([]entry, len(entries)),
		dedup:   make(map[key]uint32),
	}
	for i, v := range entries {
		l.entries[i] = entry{value: v, refCount: 1}
		if k, ok := scalarKey(v); ok {
			l.dedup[k] = uint32(i)
		}
	}
	return l
}
