package object

import (
	"testing"

	"jsvm/internal/shape"
	"jsvm/internal/value"
)

func TestArrayFastModeBasic(t *testing.T) {
	a := NewArray(shape.NewManager(), value.Null())
	a.SetIndex(0, value.Int64(10))
	a.SetIndex(1, value.Int64(20))
	if a.Length() != 2 {
		t.Fatalf("expected length 2, got %d", a.Length())
	}
	v, ok := a.GetIndex(1)
	if !ok || v.Int64() != 20 {
		t.Fatalf("got %v %v", v, ok)
	}
}

func TestArrayAssignPastLengthGrowsWithHoles(t *testing.T) {
	a := NewArray(shape.NewManager(), value.Null())
	a.SetIndex(0, value.Int64(1))
	a.SetIndex(5, value.Int64(2))
	if a.Length() != 6 {
		t.Fatalf("expected length 6, got %d", a.Length())
	}
	_, ok := a.GetIndex(3)
	if ok {
		t.Fatal("expected hole at index 3")
	}
}

func TestArraySparseTransitionOnHighHoleRatio(t *testing.T) {
	a := NewArray(shape.NewManager(), value.Null())
	a.SetIndex(0, value.Int64(1))
	a.SetIndex(1, value.Int64(2))
	a.DeleteIndex(0)
	a.DeleteIndex(1)
	if !a.IsSparse() {
		t.Fatal("expected sparse-mode transition after deleting all dense elements")
	}
}

// TestArrayFastSparseEquivalence covers spec scenario S8 and invariant 4:
// assigning a far index then deleting another places the array in sparse
// mode, while indexed reads stay consistent and length reflects the
// highest assigned index + 1.
func TestArrayFastSparseEquivalence(t *testing.T) {
	a := NewArray(shape.NewManager(), value.Null())
	a.SetIndex(0, value.Int64(100))
	a.SetIndex(1, value.Int64(200))
	a.SetIndex(2, value.Int64(300))
	a.SetIndex(1000000, value.Int64(999))
	a.DeleteIndex(2)

	if !a.IsSparse() {
		t.Fatal("expected sparse mode after high hole ratio")
	}
	if a.Length() != 1000001 {
		t.Fatalf("expected length 1000001, got %d", a.Length())
	}
	v0, ok0 := a.GetIndex(0)
	v1, ok1 := a.GetIndex(1)
	vFar, okFar := a.GetIndex(1000000)
	if !ok0 || v0.Int64() != 100 {
		t.Fatalf("index 0: %v %v", v0, ok0)
	}
	if !ok1 || v1.Int64() != 200 {
		t.Fatalf("index 1: %v %v", v1, ok1)
	}
	if !okFar || vFar.Int64() != 999 {
		t.Fatalf("index 1000000: %v %v", vFar, okFar)
	}
}

func TestArraySetLengthTruncates(t *testing.T) {
	a := NewArray(shape.NewManager(), value.Null())
	a.SetIndex(0, value.Int64(1))
	a.SetIndex(1, value.Int64(2))
	a.SetIndex(2, value.Int64(3))
	a.SetLength(1)
	if a.Length() != 1 {
		t.Fatalf("expected length 1, got %d", a.Length())
	}
	if _, ok := a.GetIndex(1); ok {
		t.Fatal("expected index 1 truncated away")
	}
}

func TestParseIndexRejectsLeadingZero(t *testing.T) {
	if _, ok := parseIndex("01"); ok {
		t.Fatal("expected leading-zero index to be rejected")
	}
	if _, ok := parseIndex("0"); !ok {
		t.Fatal("expected \"0\" to be a valid index")
	}
}
