// Package vm implements the stack-based bytecode interpreter of spec
// §4.4: a dispatch loop over internal/bytecode's instruction set, a
// Go-native call-frame stack that satisfies gc.RootProvider directly
// instead of encoding saved-frame triples onto the value stack, lazy
// closure-cell boxing for captured locals, and the exception-unwind
// algorithm the compiler's try/catch/finally emission assumes.
package vm

import (
	"jsvm/internal/compiler"
	"jsvm/internal/constpool"
	"jsvm/internal/gc"
	"jsvm/internal/hostlib"
	"jsvm/internal/microtask"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// Vm is one execution context's interpreter: its operand stack, call-frame
// stack, shape/GC managers, global object, and the function-identity cache
// a bare (non-capturing) FunctionDef Value is lazily wrapped through.
type Vm struct {
	mgr    *gc.Manager
	shapes *shape.Manager
	global *constpool.Global
	local  *constpool.Local

	globals        *object.Object
	objectProto    value.Value
	arrayProto     value.Value
	functionProto  value.Value
	generatorProto value.Value
	promiseProto   value.Value

	stack  []value.Value
	frames []*Frame

	// jobs is the microtask queue Await/Promise reactions schedule
	// continuations onto (spec §4.4 "job queue"). Nil until
	// internal/runtime.NewContextWithLocal wires one in via SetJobs; a Vm
	// built directly (e.g. in tests) without one runs reactions inline.
	jobs *microtask.Queue

	// jsonStringify backs the JSON.stringify global, built lazily on first
	// use since spinning up its sandboxed interpreter (internal/hostlib)
	// isn't free and most scripts never call it.
	jsonStringify *hostlib.JSONStringify

	// fnCache memoizes the FunctionObject a bare CLoad'd FunctionDef is
	// wrapped into the first time it is used as a callee or property
	// receiver, keyed by FunctionDef pointer identity so repeated uses of
	// the same literal (e.g. a recursive reference) observe one stable
	// object (spec §4.3, "every function has a distinct identity").
	fnCache map[*compiler.FunctionDef]*object.FunctionObject
}

// SetJobs wires vm's microtask queue, letting Await/Promise-reaction
// continuations enqueue onto it instead of running inline. Called once by
// internal/runtime.NewContextWithLocal right after constructing the queue.
func (vm *Vm) SetJobs(jobs *microtask.Queue) { vm.jobs = jobs }

// New builds a Vm sharing mgr/shapes/global/local with the rest of the
// context (spec §3.0: "execution context owns a GC manager, a shape
// manager, and const pools"), installs the prototype chain roots, and
// registers itself as a GC root provider.
func New(mgr *gc.Manager, shapes *shape.Manager, global *constpool.Global, local *constpool.Local) *Vm {
	vm := &Vm{
		mgr:    mgr,
		shapes: shapes,
		global: global,
		local:  local,
		fnCache: make(map[*compiler.FunctionDef]*object.FunctionObject),
	}
	vm.objectProto = vm.allocHeap(object.New(shapes, value.Null(), object.ClassGeneric))
	vm.arrayProto = vm.allocHeap(object.New(shapes, vm.objectProto, object.ClassGeneric))
	vm.functionProto = vm.allocHeap(object.New(shapes, vm.objectProto, object.ClassGeneric))
	vm.generatorProto = vm.allocHeap(object.New(shapes, vm.objectProto, object.ClassGeneric))
	vm.promiseProto = vm.allocHeap(object.New(shapes, vm.objectProto, object.ClassGeneric))
	installGeneratorProto(vm)
	installPromiseProto(vm)
	vm.globals = object.New(shapes, vm.objectProto, object.ClassGeneric)
	vm.installBuiltins()
	mgr.AddRoot(vm)
	return vm
}

// Globals exposes the global object so an embedder (internal/runtime) can
// install host bindings before running any script.
func (vm *Vm) Globals() *object.Object { return vm.globals }

// allocHeap registers any heap payload with the GC without HandleScope
// pinning; see gc.Heap.AllocRaw.
func (vm *Vm) allocHeap(o value.HeapObject) value.Value {
	return vm.mgr.AllocRaw(o.HeapKind(), o, gc.EstimateSize(o.HeapKind()))
}

func (vm *Vm) writeBarrier(owner value.HeapObject, val value.Value) {
	vm.mgr.Heap().WriteBarrier(owner, val)
}

func isObjectKind(v value.Value) bool {
	switch v.Kind() {
	case value.KindObject, value.KindArrayObject, value.KindFunctionObject,
		value.KindGeneratorObject, value.KindPromiseObject, value.KindAsyncObject,
		value.KindModuleObject, value.KindConstructorObject, value.KindCppModuleObject:
		return true
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (vm *Vm) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *Vm) pop() value.Value {
	n := len(vm.stack) - 1
	v := vm.stack[n]
	vm.stack = vm.stack[:n]
	return v
}

func (vm *Vm) peek() value.Value { return vm.stack[len(vm.stack)-1] }

func (vm *Vm) top() *Frame { return vm.frames[len(vm.frames)-1] }

// EnumerateRoots implements gc.RootProvider: every operand-stack slot and
// every live frame's rooted fields (spec §4.5, "root enumeration" — the
// VM's equivalent of scanning the saved-frame triples the original engine
// encodes directly on the value stack).
func (vm *Vm) EnumerateRoots(visit func(*value.Value)) {
	for i := range vm.stack {
		visit(&vm.stack[i])
	}
	for _, f := range vm.frames {
		f.enumerateRoots(visit)
	}
}

// constAt resolves a global const-pool index the compiler emitted via
// CLoad*/GlobalLoad/GlobalStore.
func (vm *Vm) constAt(idx uint32) value.Value {
	return vm.global.Get(constpool.ConstIndex(idx))
}

// Run invokes def as a zero-argument top-level script or module body
// (spec §6.1's CallFunction/Eval entrypoint), returning its completion
// value or an error wrapping an uncaught thrown value.
func (vm *Vm) Run(def *compiler.FunctionDef, this value.Value) (value.Value, error) {
	return vm.Call(value.FromHeap(value.KindFunctionDef, def), this, nil)
}

// Call invokes an arbitrary callable Value with the given `this` and
// arguments, driving the dispatch loop to completion. This is the shared
// entrypoint Run, internal/runtime's CallFunction, getter/setter calls and
// promise reaction handlers use.
func (vm *Vm) Call(callee value.Value, this value.Value, args []value.Value) (value.Value, error) {
	base := len(vm.frames)
	if err := vm.pushCall(base, callee, this, args, false, value.Value{}); err != nil {
		return value.Value{}, err
	}
	return vm.dispatch(base)
}
