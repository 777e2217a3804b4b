package hostlib

import (
	"strings"
	"testing"

	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

func newTestJSONStringify(t *testing.T) *JSONStringify {
	t.Helper()
	j, err := NewJSONStringify()
	if err != nil {
		t.Fatalf("unexpected error building JSONStringify: %v", err)
	}
	return j
}

func TestStringifyPrimitives(t *testing.T) {
	j := newTestJSONStringify(t)
	cases := []struct {
		in   value.Value
		want string
	}{
		{value.Int64(42), "42"},
		{value.String("hi"), `"hi"`},
		{value.Bool(true), "true"},
		{value.Null(), "null"},
	}
	for _, c := range cases {
		got, err := j.Stringify(c.in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Str() != c.want {
			t.Errorf("Stringify(%v) = %q, want %q", c.in.Kind(), got.Str(), c.want)
		}
	}
}

func TestStringifyArray(t *testing.T) {
	j := newTestJSONStringify(t)
	shapes := shape.NewManager()
	arr := object.NewArray(shapes, value.Null())
	arr.SetIndex(0, value.Int64(1))
	arr.SetIndex(1, value.Int64(2))
	arr.SetIndex(2, value.Int64(3))

	got, err := j.Stringify(value.FromHeap(value.KindArrayObject, arr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Str() != "[1,2,3]" {
		t.Errorf("expected [1,2,3], got %q", got.Str())
	}
}

func TestStringifyObjectSkipsNonEnumerableAndAccessorSlots(t *testing.T) {
	j := newTestJSONStringify(t)
	shapes := shape.NewManager()
	obj := object.New(shapes, value.Null(), object.ClassGeneric)
	if err := obj.Set("a", value.Int64(1), shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := obj.Set("hidden", value.Int64(99), shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := j.Stringify(value.FromHeap(value.KindObject, obj))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got.Str(), `"a":1`) {
		t.Errorf("expected enumerable property present, got %q", got.Str())
	}
	if strings.Contains(got.Str(), "hidden") {
		t.Errorf("expected non-enumerable property omitted, got %q", got.Str())
	}
}

func TestStringifyFunctionObjectAsItsOwnProperties(t *testing.T) {
	j := newTestJSONStringify(t)
	shapes := shape.NewManager()
	obj := object.New(shapes, value.Null(), object.ClassFunction)
	got, err := j.Stringify(value.FromHeap(value.KindFunctionObject, obj))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// An object-kind value (even a function-classed one) still stringifies
	// as its own enumerable properties — here none — so it's "{}"; only
	// non-object kinds reach toNative's default case.
	if got.Str() != "{}" {
		t.Errorf("expected {}, got %q", got.Str())
	}
}
