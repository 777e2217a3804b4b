package constpool

import (
	"testing"

	"jsvm/internal/value"
)

func TestGlobalDedupesScalarConstants(t *testing.T) {
	g := NewGlobal()
	i1 := g.New(value.String("hello"))
	i2 := g.New(value.String("hello"))
	if i1 != i2 {
		t.Fatalf("expected identical string constants to share an index, got %d and %d", i1, i2)
	}
	if g.Get(i1).Str() != "hello" {
		t.Fatalf("unexpected value at index %d", i1)
	}
}

func TestGlobalDistinctConstantsGetDistinctIndices(t *testing.T) {
	g := NewGlobal()
	i1 := g.New(value.Int64(1))
	i2 := g.New(value.Int64(2))
	if i1 == i2 {
		t.Fatal("expected distinct constants to get distinct indices")
	}
}

func TestWellKnownIndexStable(t *testing.T) {
	g := NewGlobal()
	idx := WellKnownIndex("length")
	if idx < 0 {
		t.Fatal("expected length to be a reserved well-known index")
	}
	if g.Get(idx).Str() != "length" {
		t.Fatalf("expected well-known index to resolve to \"length\", got %v", g.Get(idx))
	}
}

func TestGlobalNegativeIndexIsTailRelative(t *testing.T) {
	g := NewGlobal()
	g.New(value.Int64(42))
	last := ConstIndex(-1)
	if g.Get(last).Int64() != 42 {
		t.Fatalf("expected -1 to resolve to the last-inserted entry, got %v", g.Get(last))
	}
}

func TestLocalRefCountingReclaimsSlot(t *testing.T) {
	l := NewLocal()
	idx := l.FindOrInsert(value.Int64(7))
	l.Reference(idx)
	l.Dereference(idx)
	if l.Get(idx).Int64() != 7 {
		t.Fatal("expected value to survive one dereference while refcount > 0")
	}
	l.Dereference(idx)
	reused := l.FindOrInsert(value.Int64(99))
	if reused != idx {
		t.Fatalf("expected freed slot %d to be reused, got %d", idx, reused)
	}
	if l.Get(reused).Int64() != 99 {
		t.Fatalf("unexpected value in reused slot: %v", l.Get(reused))
	}
}

func TestLocalFindOrInsertDedupesAndBumpsRefCount(t *testing.T) {
	l := NewLocal()
	i1 := l.FindOrInsert(value.String("x"))
	i2 := l.FindOrInsert(value.String("x"))
	if i1 != i2 {
		t.Fatalf("expected dedup to return the same index, got %d and %d", i1, i2)
	}
}

func TestHeapConstantsAreNeverDeduped(t *testing.T) {
	l := NewLocal()
	obj1 := value.FromHeap(value.KindObject, nil)
	obj2 := value.FromHeap(value.KindObject, nil)
	i1 := l.FindOrInsert(obj1)
	i2 := l.FindOrInsert(obj2)
	if i1 == i2 {
		t.Fatal("expected heap-object constants to always get distinct slots")
	}
}
