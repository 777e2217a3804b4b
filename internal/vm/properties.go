package vm

import (
	"strconv"

	"jsvm/internal/jserr"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// toPropertyKey coerces a computed property expression's result to the
// string key PropertyLoad/PropertyStore/Object.Get/Object.Set operate on
// (spec §3.1: property keys are strings or symbols; symbols aren't wired
// into object storage yet, so a symbol key falls back to its description).
func toPropertyKey(v value.Value) string {
	if v.Kind() == value.KindString {
		return v.Str()
	}
	if v.Kind() == value.KindSymbol {
		return v.Str()
	}
	return value.ToDisplayString(v)
}

// indexFromValue reports whether v names a non-negative integer array
// index and, if so, its value — the same canonical-decimal rule
// ArrayObject.parseIndex applies to string keys (spec §3.5), without
// parseIndex's 2^53-1 upper bound, and extended to
// cover a numeric Value arriving directly off the stack from IndexedLoad/
// IndexedStore without a round trip through string conversion.
func indexFromValue(v value.Value) (uint64, bool) {
	switch v.Kind() {
	case value.KindInt64:
		n := v.Int64()
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case value.KindUint64:
		return v.Uint64(), true
	case value.KindFloat64:
		f := v.ToFloat64()
		if f < 0 || f != float64(uint64(f)) {
			return 0, false
		}
		return uint64(f), true
	case value.KindString:
		n, err := strconv.ParseUint(v.Str(), 10, 64)
		if err != nil || strconv.FormatUint(n, 10) != v.Str() {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// getProperty reads recv[key], special-casing the virtual members this
// engine's object model carries outside the ordinary shape-slot path:
// "length" on an array (ArrayObject.Length, not a stored slot) and
// "__keys__" on any object/array (the for-in/for-of desugaring's
// enumerate-own-keys pseudo-property, internal/compiler/statement.go
// emitForInOf — "a conservative stand-in for the full iterator protocol").
func (vm *Vm) getProperty(recv value.Value, key string) (value.Value, error) {
	if recv.IsNullish() {
		return value.Value{}, vm.raiseTypeError("cannot read property '%s' of %s", key, value.ToDisplayString(recv))
	}
	if key == "__keys__" {
		return vm.ownKeysArray(recv), nil
	}
	if bf, ok := recv.Heap().(*object.BoundFunction); ok {
		return vm.getProperty(bf.Target, key)
	}
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		if key == "length" {
			return value.Int64(int64(arr.Length())), nil
		}
		if i, ok := indexFromValue(value.String(key)); ok {
			if v, found := arr.GetIndex(i); found {
				return v, nil
			}
			return value.Undefined(), nil
		}
		return arr.Get(key, nil, vm.callGetter)
	}
	obj, ok := asBaseObject(recv)
	if !ok {
		if fo, ok := vm.materializeFunction(recv); ok {
			return fo.Get(key, nil, vm.callGetter)
		}
		return value.Undefined(), nil
	}
	return obj.Get(key, nil, vm.callGetter)
}

// setProperty writes recv[key] = val, special-casing "length" on an array
// the same way getProperty does for reads.
func (vm *Vm) setProperty(recv value.Value, key string, val value.Value) error {
	if recv.IsNullish() {
		return vm.raiseTypeError("cannot set property '%s' of %s", key, value.ToDisplayString(recv))
	}
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		if key == "length" {
			if n, ok := indexFromValue(val); ok {
				arr.SetLength(n)
				return nil
			}
			return nil
		}
		if i, ok := indexFromValue(value.String(key)); ok {
			arr.SetIndex(i, val)
			vm.writeBarrier(arr, val)
			return nil
		}
		err := arr.Set(key, val, shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}, vm.callSetter)
		vm.writeBarrier(arr, val)
		return err
	}
	obj, ok := asBaseObject(recv)
	if !ok {
		if fo, ok := vm.materializeFunction(recv); ok {
			err := fo.Set(key, val, shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}, vm.callSetter)
			vm.writeBarrier(fo, val)
			return err
		}
		return nil
	}
	err := obj.Set(key, val, shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}, vm.callSetter)
	vm.writeBarrier(obj, val)
	return err
}

// getIndexed/setIndexed back IndexedLoad/IndexedStore (`obj[expr]`),
// routing a recognized array index straight through ArrayObject's dense/
// sparse storage and anything else through the generic named-property
// path after stringifying the key (spec §3.5 "string keys parsing as a
// non-negative integer take the dense path").
func (vm *Vm) getIndexed(recv, keyVal value.Value) (value.Value, error) {
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		if i, ok := indexFromValue(keyVal); ok {
			v, found := arr.GetIndex(i)
			if !found {
				return value.Undefined(), nil
			}
			return v, nil
		}
	}
	return vm.getProperty(recv, toPropertyKey(keyVal))
}

func (vm *Vm) setIndexed(recv, keyVal, val value.Value) error {
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		if i, ok := indexFromValue(keyVal); ok {
			arr.SetIndex(i, val)
			vm.writeBarrier(arr, val)
			return nil
		}
	}
	return vm.setProperty(recv, toPropertyKey(keyVal), val)
}

// ownEnumerableKeys walks recv's shape trie in declaration order,
// collecting enumerable keys only — the same reverse-then-filter pattern
// object.go's ownPropertiesExcept uses for Delete.
func ownEnumerableKeys(s *shape.Shape) []string {
	var rev []shape.Property
	for cur := s; cur != nil && cur.PropertyCount() > 0; cur = cur.Parent() {
		rev = append(rev, cur.OwnProperty())
	}
	var out []string
	for i := len(rev) - 1; i >= 0; i-- {
		if rev[i].Flags.Enumerable {
			out = append(out, rev[i].Key)
		}
	}
	return out
}

// ownKeysArray implements the "__keys__" pseudo-property: a fresh array of
// recv's own enumerable property keys, prefixed with its numeric indices
// when recv is an array (spec-adjacent for-in/for-of support, see
// getProperty's doc comment).
func (vm *Vm) ownKeysArray(recv value.Value) value.Value {
	result := object.NewArray(vm.shapes, vm.arrayProto)
	n := uint64(0)
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		for i := uint64(0); i < arr.Length(); i++ {
			if _, found := arr.GetIndex(i); found {
				result.SetIndex(n, value.String(strconv.FormatUint(i, 10)))
				n++
			}
		}
	}
	if obj, ok := asBaseObject(recv); ok {
		for _, k := range ownEnumerableKeys(obj.Shape) {
			result.SetIndex(n, value.String(k))
			n++
		}
	}
	return vm.allocHeap(result)
}

// asBaseObject extracts recv's embedded *object.Object, for code that only
// needs shape/prototype-chain navigation and doesn't care whether recv is a
// plain object or an array.
func asBaseObject(recv value.Value) (*object.Object, bool) {
	switch h := recv.Heap().(type) {
	case *object.Object:
		return h, true
	case *object.ArrayObject:
		return &h.Object, true
	case *object.FunctionObject:
		return &h.Object, true
	case *GeneratorObject:
		return &h.Object, true
	case *PromiseObject:
		return &h.Object, true
	case *AsyncObject:
		return &h.Object, true
	}
	return nil, false
}

// hasProperty implements the `in` operator's right-hand walk: own property
// on recv, or anywhere up its prototype chain.
func (vm *Vm) hasProperty(recv value.Value, key string) bool {
	if arr, ok := recv.Heap().(*object.ArrayObject); ok {
		if key == "length" {
			return true
		}
		if i, ok := indexFromValue(value.String(key)); ok {
			_, found := arr.GetIndex(i)
			return found
		}
	}
	obj, ok := asBaseObject(recv)
	if !ok {
		return false
	}
	for cur := obj; cur != nil; {
		if _, found := cur.OwnProperty(key, nil); found {
			return true
		}
		next, ok := asBaseObject(cur.Proto)
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// instanceOf implements `instanceof`: walk value's prototype chain looking
// for ctor's own "prototype" object by reference identity.
func (vm *Vm) instanceOf(val, ctor value.Value) (bool, error) {
	fo, ok := vm.materializeFunction(ctor)
	if !ok {
		return false, jserr.NewRuntimeError(jserr.TypeError, "right-hand side of 'instanceof' is not callable")
	}
	protoVal, err := fo.Get("prototype", nil, vm.callGetter)
	if err != nil {
		return false, err
	}
	obj, ok := val.Heap().(*object.Object)
	if !ok {
		if arr, ok := val.Heap().(*object.ArrayObject); ok {
			obj = &arr.Object
		} else {
			return false, nil
		}
	}
	for cur := obj.Proto; !cur.IsNullish(); {
		if value.StrictEqual(cur, protoVal) {
			return true, nil
		}
		next, ok := cur.Heap().(*object.Object)
		if !ok {
			return false, nil
		}
		cur = next.Proto
	}
	return false, nil
}
