package object

import (
	"testing"

	"jsvm/internal/shape"
	"jsvm/internal/value"
)

func writableFlags() shape.PropertyFlags {
	return shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}
}

func TestPropertyWriteThenRead(t *testing.T) {
	m := shape.NewManager()
	obj := New(m, value.Null(), ClassGeneric)
	if err := obj.Set("x", value.Int64(42), writableFlags(), nil); err != nil {
		t.Fatal(err)
	}
	v, err := obj.Get("x", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Int64() != 42 {
		t.Fatalf("got %v", v)
	}
}

func TestPrototypeChainLookup(t *testing.T) {
	m := shape.NewManager()
	proto := New(m, value.Null(), ClassGeneric)
	proto.Set("greeting", value.String("hi"), writableFlags(), nil)

	child := New(m, value.FromHeap(value.KindObject, proto), ClassGeneric)
	v, err := child.Get("greeting", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Str() != "hi" {
		t.Fatalf("expected inherited property, got %v", v)
	}
}

func TestInlineCacheHitAfterFirstLookup(t *testing.T) {
	m := shape.NewManager()
	obj := New(m, value.Null(), ClassGeneric)
	obj.Set("a", value.Int64(1), writableFlags(), nil)

	var ic InlineCache
	v1, _ := obj.Get("a", &ic, nil)
	if _, hit := ic.Get(obj); !hit {
		t.Fatal("expected cache populated after first lookup")
	}
	v2, _ := obj.Get("a", &ic, nil)
	if v1.Int64() != v2.Int64() {
		t.Fatal("cached read mismatch")
	}
}

func TestAccessorGetSet(t *testing.T) {
	m := shape.NewManager()
	obj := New(m, value.Null(), ClassGeneric)

	backing := value.Int64(0)
	getter := value.FromHeap(value.KindCppFunction, nil)
	setter := value.FromHeap(value.KindCppFunction, nil)
	obj.DefineAccessor("prop", getter, setter)

	called := false
	_, err := obj.Get("prop", nil, func(g, this value.Value) (value.Value, error) {
		called = true
		return backing, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected getter invoked")
	}
}

func TestSharedShapeAcrossIdenticalObjects(t *testing.T) {
	m := shape.NewManager()
	o1 := New(m, value.Null(), ClassGeneric)
	o2 := New(m, value.Null(), ClassGeneric)
	o1.Set("a", value.Int64(1), writableFlags(), nil)
	o1.Set("b", value.Int64(2), writableFlags(), nil)
	o2.Set("a", value.Int64(10), writableFlags(), nil)
	o2.Set("b", value.Int64(20), writableFlags(), nil)
	if o1.Shape != o2.Shape {
		t.Fatal("expected identical insertion sequences to converge on one shape")
	}
}
