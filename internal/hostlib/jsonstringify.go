// Package hostlib implements one of the embedder's expected host
// built-ins (spec §6.4: "JSON.stringify") on top of a sandboxed
// github.com/traefik/yaegi interpreter instead of a hand-rolled
// encoder, mirroring the teacher's internal/autopoiesis.YaegiExecutor:
// a tiny, whitelisted Go program is interpreted at runtime rather than
// compiled, and only stdlib symbols (here, just encoding/json) are
// loaded into it.
package hostlib

import (
	"fmt"

	"jsvm/internal/jserr"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// stringifySource is the whole sandboxed program: one function built
// around encoding/json.Marshal, the same "only stdlib, nothing else"
// posture the teacher's YaegiExecutor enforces by package whitelist —
// here there's exactly one package to whitelist, so it's just not
// imported.
const stringifySource = `
package main

import "encoding/json"

func Stringify(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
`

// JSONStringify evaluates JSON.stringify against a yaegi-interpreted
// shim rather than a native encoding/json call directly, so the host
// built-in lives behind the same kind of sandboxed-evaluation boundary
// the teacher's tool-execution path uses for untrusted Go snippets.
type JSONStringify struct {
	stringify func(interface{}) (string, error)
}

// NewJSONStringify spins up a fresh yaegi interpreter, loads only the
// stdlib symbol table it needs, evaluates stringifySource, and resolves
// main.Stringify into a callable Go closure.
func NewJSONStringify() (*JSONStringify, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("hostlib: load yaegi stdlib: %w", err)
	}
	if _, err := i.Eval(stringifySource); err != nil {
		return nil, fmt.Errorf("hostlib: eval stringify shim: %w", err)
	}
	fnValue, err := i.Eval("main.Stringify")
	if err != nil {
		return nil, fmt.Errorf("hostlib: resolve main.Stringify: %w", err)
	}
	fn, ok := fnValue.Interface().(func(interface{}) (string, error))
	if !ok {
		return nil, fmt.Errorf("hostlib: main.Stringify has an unexpected signature")
	}
	return &JSONStringify{stringify: fn}, nil
}

// Stringify is the native function JSON.stringify(value) installs as
// (spec §6.4): convert the engine's Value tree to a native Go value,
// then marshal it through the yaegi-interpreted shim.
func (j *JSONStringify) Stringify(v value.Value) (value.Value, error) {
	native, err := toNative(v)
	if err != nil {
		return value.Undefined(), err
	}
	s, err := j.stringify(native)
	if err != nil {
		return value.Undefined(), jserr.NewRuntimeError(jserr.TypeError, "JSON.stringify: %v", err)
	}
	return value.String(s), nil
}

// toNative walks an engine Value tree into the plain
// bool/float64/string/nil/[]interface{}/map[string]interface{} shape
// encoding/json already knows how to marshal, the same flattening a
// JSON.stringify implementation does before reaching for a serializer.
func toNative(v value.Value) (interface{}, error) {
	switch v.Kind() {
	case value.KindUndefined:
		// Undefined maps to nil, which Marshal writes as null: a top-level
		// undefined stringifies to "null", and undefined-valued
		// members/elements are written as null rather than dropped.
		return nil, nil
	case value.KindNull:
		return nil, nil
	case value.KindBoolean:
		return v.Bool(), nil
	case value.KindInt64, value.KindUint64:
		return v.ToFloat64(), nil
	case value.KindFloat64:
		return v.Float64(), nil
	case value.KindString:
		return v.Str(), nil
	case value.KindArrayObject:
		arr, ok := v.Heap().(*object.ArrayObject)
		if !ok {
			return nil, jserr.NewRuntimeError(jserr.TypeError, "JSON.stringify: malformed array value")
		}
		out := make([]interface{}, arr.Length())
		for i := range out {
			elem, _ := arr.GetIndex(uint64(i))
			n, err := toNative(elem)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case value.KindObject, value.KindFunctionObject, value.KindConstructorObject:
		obj, ok := v.Heap().(*object.Object)
		if !ok {
			return nil, jserr.NewRuntimeError(jserr.TypeError, "JSON.stringify: malformed object value")
		}
		out := make(map[string]interface{}, len(obj.Slots))
		for _, p := range ownEnumerableProperties(obj.Shape) {
			if !p.Flags.Enumerable || p.Flags.Accessor {
				continue
			}
			if p.Slot >= len(obj.Slots) {
				continue
			}
			n, err := toNative(obj.Slots[p.Slot])
			if err != nil {
				return nil, err
			}
			out[p.Key] = n
		}
		return out, nil
	default:
		// Symbols and every other engine-internal kind map to nil without
		// an error, so they are written as null; they are not dropped
		// from the enclosing object.
		return nil, nil
	}
}

// ownEnumerableProperties walks s up to the shared empty root, collecting
// each node's own property in declaration order — the same trie-walk
// internal/shape's own collectProperties does internally, reimplemented
// here against the exported Shape API since Property isn't otherwise
// enumerable from outside the shape package.
func ownEnumerableProperties(s *shape.Shape) []shape.Property {
	var rev []shape.Property
	for cur := s; cur != nil && cur.PropertyCount() > 0; cur = cur.Parent() {
		rev = append(rev, cur.OwnProperty())
	}
	out := make([]shape.Property, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}
