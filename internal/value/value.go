// Package value implements the tagged-union Value representation shared by
// every layer above the lexer/parser (spec §3.1).
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the closed set of Value tags (spec §3.1). Primitives and heap
// object kinds are observable to user code; the remaining "internal" kinds
// only ever appear on the VM stack or in const pools.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInt64
	KindFloat64
	KindUint64 // internal
	KindString
	KindSymbol

	// Heap object kinds — Ptr points into the GC heap.
	KindObject
	KindArrayObject
	KindFunctionObject
	KindGeneratorObject
	KindPromiseObject
	KindAsyncObject
	KindModuleObject
	KindConstructorObject
	KindCppModuleObject

	// Engine-internal kinds: never observable to user code.
	KindFunctionDef
	KindModuleDef
	KindCppFunction
	KindExportVar
	KindClosureVar
	KindGeneratorNext
	KindAsyncResolveResume
	KindAsyncRejectResume
	KindPromiseResolve
	KindPromiseReject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindUint64:
		return "uint64"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindObject:
		return "object"
	case KindArrayObject:
		return "array_object"
	case KindFunctionObject:
		return "function_object"
	case KindGeneratorObject:
		return "generator_object"
	case KindPromiseObject:
		return "promise_object"
	case KindAsyncObject:
		return "async_object"
	case KindModuleObject:
		return "module_object"
	case KindConstructorObject:
		return "constructor_object"
	case KindCppModuleObject:
		return "cpp_module_object"
	case KindFunctionDef:
		return "function_def"
	case KindModuleDef:
		return "module_def"
	case KindCppFunction:
		return "cpp_function"
	case KindExportVar:
		return "export_var"
	case KindClosureVar:
		return "closure_var"
	default:
		return "internal"
	}
}

// HeapObject is the interface every heap-resident payload referenced from a
// Value implements; concrete types live in package object/vm/gc to avoid an
// import cycle (value is the leaf package in the dependency graph).
type HeapObject interface {
	// HeapKind is the ClassId-equivalent tag describing the concrete
	// object; used by the GC and by narrowing accessors.
	HeapKind() Kind
}

// Value is the fixed-size tagged variant described in spec §3.1: every
// primitive fits inline; every heap/internal kind carries a pointer.
type Value struct {
	kind Kind

	// Inline payloads for primitives.
	num uint64 // reinterpreted bits for int64/float64/uint64/boolean
	str string // interned string payload, or symbol description

	// Ptr is non-nil for heap object kinds and engine-internal kinds that
	// wrap a pointer (closure vars, function defs, ...).
	ptr HeapObject

	// exceptionFlag marks a Value as an in-flight thrown value being
	// unwound by the VM (spec §3.1).
	exceptionFlag bool

	// constIndex is non-zero when this Value was materialized from a
	// const pool entry, enabling fast identity/sharing checks.
	constIndex uint32
}

func Undefined() Value { return Value{kind: KindUndefined} }
func Null() Value      { return Value{kind: KindNull} }

func Bool(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBoolean, num: n}
}

func Int64(n int64) Value     { return Value{kind: KindInt64, num: uint64(n)} }
func Uint64(n uint64) Value   { return Value{kind: KindUint64, num: n} }
func Float64(f float64) Value { return Value{kind: KindFloat64, num: math.Float64bits(f)} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Symbol(desc string) Value {
	return Value{kind: KindSymbol, str: desc, ptr: &symbolIdentity{desc: desc}}
}

// symbolIdentity gives each Symbol call its own pointer, so separately
// created symbols differ under StrictEqual while copies of one Value match.
type symbolIdentity struct{ desc string }

func (*symbolIdentity) HeapKind() Kind { return KindSymbol }

// FromHeap wraps a heap/internal object pointer in a Value of the given
// kind.
func FromHeap(kind Kind, obj HeapObject) Value {
	return Value{kind: kind, ptr: obj}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind == KindUndefined || v.kind == KindNull }

func (v Value) Bool() bool    { return v.num != 0 }
func (v Value) Int64() int64  { return int64(v.num) }
func (v Value) Uint64() uint64 { return v.num }
func (v Value) Float64() float64 {
	if v.kind == KindFloat64 {
		return math.Float64frombits(v.num)
	}
	return float64(int64(v.num))
}
func (v Value) Str() string       { return v.str }
func (v Value) Heap() HeapObject  { return v.ptr }

// ExceptionFlag reports whether this Value is being unwound as a thrown
// exception.
func (v Value) ExceptionFlag() bool { return v.exceptionFlag }

// AsException returns a copy of v with the exception flag set.
func (v Value) AsException() Value {
	v.exceptionFlag = true
	return v
}

// ClearException returns a copy of v with the exception flag cleared.
func (v Value) ClearException() Value {
	v.exceptionFlag = false
	return v
}

// ConstIndex returns the const-pool index this Value was materialized from,
// or 0 if it was not.
func (v Value) ConstIndex() uint32 { return v.constIndex }

// WithConstIndex tags v as originating from const-pool slot idx.
func (v Value) WithConstIndex(idx uint32) Value {
	v.constIndex = idx
	return v
}

// IsNumber reports whether v is one of the three numeric kinds.
func (v Value) IsNumber() bool {
	return v.kind == KindInt64 || v.kind == KindFloat64 || v.kind == KindUint64
}

// ToFloat64 coerces any numeric kind to float64 (used by mixed arithmetic).
func (v Value) ToFloat64() float64 {
	switch v.kind {
	case KindFloat64:
		return math.Float64frombits(v.num)
	case KindInt64:
		return float64(int64(v.num))
	case KindUint64:
		return float64(v.num)
	default:
		return math.NaN()
	}
}

// Truthy implements JS truthiness for the kinds this engine supports.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBoolean:
		return v.num != 0
	case KindInt64, KindUint64:
		return v.num != 0
	case KindFloat64:
		f := v.ToFloat64()
		return f != 0 && !math.IsNaN(f)
	case KindString:
		return v.str != ""
	default:
		return true // objects and heap references are always truthy
	}
}

// TypeOf implements the `typeof` operator.
func (v Value) TypeOf() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "object" // JS quirk, preserved intentionally
	case KindBoolean:
		return "boolean"
	case KindInt64, KindFloat64, KindUint64:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindFunctionObject, KindConstructorObject, KindCppFunction:
		return "function"
	default:
		return "object"
	}
}

// Equal implements the untyped `==` comparison (spec §3.1): numeric
// coercion across int64/float64/uint64, string content compare, reference
// equality for objects and other heap kinds.
func Equal(a, b Value) bool {
	if a.kind == b.kind {
		return StrictEqual(a, b)
	}
	if a.IsNullish() && b.IsNullish() {
		return true
	}
	if a.IsNumber() && b.IsNumber() {
		return a.ToFloat64() == b.ToFloat64()
	}
	if a.kind == KindBoolean {
		return Equal(numericFromBool(a), b)
	}
	if b.kind == KindBoolean {
		return Equal(a, numericFromBool(b))
	}
	if a.kind == KindString && b.IsNumber() {
		if f, err := strconv.ParseFloat(a.str, 64); err == nil {
			return f == b.ToFloat64()
		}
		return false
	}
	if b.kind == KindString && a.IsNumber() {
		return Equal(b, a)
	}
	return false
}

func numericFromBool(v Value) Value {
	if v.Bool() {
		return Int64(1)
	}
	return Int64(0)
}

// StrictEqual implements `===`: no coercion, reference equality for heap
// objects.
func StrictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean, KindInt64, KindUint64:
		return a.num == b.num
	case KindFloat64:
		return a.ToFloat64() == b.ToFloat64()
	case KindString:
		return a.str == b.str
	case KindSymbol:
		return a.ptr == b.ptr || (a.ptr == nil && b.ptr == nil && a.str == b.str && sameSymbolIdentity(a, b))
	default:
		return a.ptr == b.ptr
	}
}

// sameSymbolIdentity exists because two Symbol("x") Values constructed
// separately must NOT be equal (symbols are unique heap identities per
// spec §3.2); only a Value copied from another Value is the same symbol.
// Symbol carries that identity as a pointer; this fallback only applies to
// symbol Values without one, which match when tagged with the same
// non-zero const-pool index.
func sameSymbolIdentity(a, b Value) bool {
	return a.constIndex != 0 && a.constIndex == b.constIndex
}

// Compare implements ordering (<, <=, >, >=), defined only for numeric and
// string values per spec §3.1. ok is false for non-orderable operands.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.ToFloat64(), b.ToFloat64()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.str < b.str:
			return -1, true
		case a.str > b.str:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// Add implements `+` with spec §3.1's two refinements: mixed int64/float64
// promotes to float64; string + anything coerces to string.
func Add(a, b Value) Value {
	if a.kind == KindString || b.kind == KindString {
		return String(ToDisplayString(a) + ToDisplayString(b))
	}
	if a.kind == KindInt64 && b.kind == KindInt64 {
		return Int64(a.Int64() + b.Int64())
	}
	if a.IsNumber() && b.IsNumber() {
		return Float64(a.ToFloat64() + b.ToFloat64())
	}
	return Float64(a.ToFloat64() + b.ToFloat64())
}

// ToDisplayString renders a primitive Value the way string coercion would;
// heap kinds defer to a runtime-level stringifier (object/array `toString`)
// that this leaf package cannot reach, so they render a placeholder here.
func ToDisplayString(v Value) string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return strconv.FormatBool(v.Bool())
	case KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case KindFloat64:
		return formatFloat(v.ToFloat64())
	case KindString:
		return v.str
	case KindSymbol:
		return fmt.Sprintf("Symbol(%s)", v.str)
	default:
		return "[object]"
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
