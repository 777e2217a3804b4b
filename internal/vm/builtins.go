package vm

import (
	"math"

	"jsvm/internal/hostlib"
	"jsvm/internal/jserr"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// NativeFunction wraps a Go-implemented callable in a Value of kind
// KindCppFunction (spec §3.6's "cpp function" — a builtin the bytecode
// interpreter can invoke exactly like any other callee, distinguished only
// by Kind rather than by carrying a FunctionDef).
type NativeFunction struct {
	Name string
	Fn   func(vm *Vm, this value.Value, args []value.Value) (value.Value, error)
}

func (n *NativeFunction) HeapKind() value.Kind { return value.KindCppFunction }

func arg(args []value.Value, i int) value.Value {
	if i < len(args) {
		return args[i]
	}
	return value.Undefined()
}

// installBuiltins installs the well-known global bindings the compiler's
// expression lowering assumes exist (internal/compiler/expr.go: typeof,
// delete, **, in, instanceof, array/object literal construction, and
// dynamic import all desugar to a GlobalLoad of one of these names
// followed by a FunctionCall — never a method call, so they live directly
// on the global object rather than on any prototype).
func (vm *Vm) installBuiltins() {
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	install := func(name string, fn func(*Vm, value.Value, []value.Value) (value.Value, error)) {
		nf := &NativeFunction{Name: name, Fn: fn}
		v := value.FromHeap(value.KindCppFunction, nf)
		vm.globals.Set(name, v, hidden, nil)
	}

	install("__typeof", nativeTypeof)
	install("__delete", nativeDelete)
	install("__pow", nativePow)
	install("__in", nativeIn)
	install("__instanceof", nativeInstanceof)
	install("__array_literal_new", nativeArrayLiteralNew)
	install("__object_literal_new", nativeObjectLiteralNew)
	install("import", nativeImport)
	vm.installJSON()
}

// installJSON wires the JSON global object with a stringify method (spec
// §6.4), reachable the same way Array/Object-literal construction is: a
// plain global binding the compiler never needs to special-case, looked up
// and called through the ordinary GlobalLoad/PropertyCall path.
func (vm *Vm) installJSON() {
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	json := object.New(vm.shapes, vm.objectProto, object.ClassGeneric)
	nf := &NativeFunction{Name: "stringify", Fn: nativeJSONStringify}
	json.Set("stringify", value.FromHeap(value.KindCppFunction, nf), hidden, nil)
	vm.globals.Set("JSON", vm.allocHeap(json), hidden, nil)
}

// nativeJSONStringify implements JSON.stringify(value) by delegating to
// internal/hostlib's sandboxed yaegi-interpreted shim, building it lazily
// the first time a script actually calls JSON.stringify.
func nativeJSONStringify(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	if vm.jsonStringify == nil {
		js, err := hostlib.NewJSONStringify()
		if err != nil {
			return value.Value{}, jserr.NewRuntimeError(jserr.TypeError, "JSON.stringify: %v", err)
		}
		vm.jsonStringify = js
	}
	return vm.jsonStringify.Stringify(arg(args, 0))
}

func nativeTypeof(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	return value.String(arg(args, 0).TypeOf()), nil
}

// nativeDelete implements `delete obj[key]`/`delete obj.key`, called with
// (obj, propNameOrKey) per expr.go's lowering.
func nativeDelete(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	obj := arg(args, 0)
	key := toPropertyKey(arg(args, 1))
	if arr, ok := obj.Heap().(*object.ArrayObject); ok {
		if i, ok := indexFromValue(value.String(key)); ok {
			arr.DeleteIndex(i)
			return value.Bool(true), nil
		}
	}
	if o, ok := asBaseObject(obj); ok {
		o.Delete(key)
	}
	return value.Bool(true), nil
}

func nativePow(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	left, right := arg(args, 0), arg(args, 1)
	return value.Float64(math.Pow(left.ToFloat64(), right.ToFloat64())), nil
}

// nativeIn implements `key in obj`, called with (key, obj) per expr.go's
// BinIn lowering.
func nativeIn(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	key := toPropertyKey(arg(args, 0))
	obj := arg(args, 1)
	return value.Bool(vm.hasProperty(obj, key)), nil
}

// nativeInstanceof implements `value instanceof ctor`, called with
// (value, ctor) per expr.go's BinInstanceof lowering.
func nativeInstanceof(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	ok, err := vm.instanceOf(arg(args, 0), arg(args, 1))
	if err != nil {
		return value.Value{}, err
	}
	return value.Bool(ok), nil
}

// nativeArrayLiteralNew implements array-literal construction: args are
// (el0, ..., elN-1, count) per expr.go emitArrayLiteral's encoding.
func nativeArrayLiteralNew(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return vm.allocHeap(object.NewArray(vm.shapes, vm.arrayProto)), nil
	}
	elems := args[:len(args)-1]
	arr := object.NewArray(vm.shapes, vm.arrayProto)
	for i, el := range elems {
		arr.SetIndex(uint64(i), el)
	}
	return vm.allocHeap(arr), nil
}

// nativeObjectLiteralNew implements object-literal construction: args are
// (key0, val0, ..., keyN-1, valN-1, count) per expr.go emitObjectLiteral's
// encoding, where a spread property's "key" slot carries Undefined() to
// mean "merge val's own properties into the result".
func nativeObjectLiteralNew(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	obj := object.New(vm.shapes, vm.objectProto, object.ClassGeneric)
	if len(args) == 0 {
		return vm.allocHeap(obj), nil
	}
	pairs := args[:len(args)-1]
	flags := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}
	for i := 0; i+1 < len(pairs); i += 2 {
		keyVal, val := pairs[i], pairs[i+1]
		if keyVal.IsUndefined() {
			if src, ok := asBaseObject(val); ok {
				for _, k := range ownEnumerableKeys(src.Shape) {
					v, err := src.Get(k, nil, vm.callGetter)
					if err != nil {
						return value.Value{}, err
					}
					obj.Set(k, v, flags, vm.callSetter)
				}
			}
			continue
		}
		obj.Set(toPropertyKey(keyVal), val, flags, vm.callSetter)
	}
	return vm.allocHeap(obj), nil
}

// nativeImport is a placeholder for dynamic `import(...)`: this engine has
// no module-loading pipeline wired to the VM layer yet, so it raises the
// same TypeError a call to an unresolved host binding would.
func nativeImport(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	return value.Value{}, jserr.NewRuntimeError(jserr.TypeError, "dynamic import is not supported")
}
