package vm

import (
	"jsvm/internal/compiler"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// materializeFunction resolves any callable Value to a *object.FunctionObject,
// wrapping a bare (non-capturing) FunctionDef constant the first time it's
// used as a callee or property receiver and memoizing the result by
// FunctionDef identity (spec §4.3: "every function has a distinct
// identity" — a bare CLoad'd FunctionDef isn't itself an Object and can't
// carry a `prototype` property until the VM gives it one). A capturing
// closure already arrives pre-materialized via the Closure opcode.
func (vm *Vm) materializeFunction(v value.Value) (*object.FunctionObject, bool) {
	switch h := v.Heap().(type) {
	case *object.FunctionObject:
		return h, true
	case *object.BoundFunction:
		return vm.materializeFunction(h.Target)
	case *compiler.FunctionDef:
		if fo, ok := vm.fnCache[h]; ok {
			return fo, true
		}
		fo := object.NewFunction(vm.shapes, vm.functionProto, h, nil)
		vm.installPrototype(fo)
		vm.fnCache[h] = fo
		return fo, true
	default:
		return nil, false
	}
}

// installPrototype gives fo its own distinct prototype object with a
// back-reference `constructor` property, the same shape class
// declarations rely on to install methods onto a constructor's prototype
// immediately after compiling it (internal/compiler/try.go
// emitClassDeclaration's PropertyStore onto "prototype").
func (vm *Vm) installPrototype(fo *object.FunctionObject) {
	proto := object.New(vm.shapes, vm.objectProto, object.ClassGeneric)
	protoVal := vm.allocHeap(proto)
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	proto.Set("constructor", value.FromHeap(value.KindFunctionObject, fo), hidden, nil)
	fo.Set("prototype", protoVal, hidden, nil)
	vm.writeBarrier(proto, value.FromHeap(value.KindFunctionObject, fo))
	vm.writeBarrier(fo, protoVal)
}

// boxLocal promotes frame f's local slot idx to a heap-allocated
// *object.ClosureCell the first time a Closure opcode captures it,
// returning the (possibly already-boxed) cell Value. The compiler's
// funcState.captured map that identifies which slots will eventually be
// captured never reaches the FunctionDef (scope.go: purely compile-time
// scratch), so the VM has no advance notice — boxing happens lazily, the
// first time a nested function expression actually closes over the slot.
func (vm *Vm) boxLocal(f *Frame, slot uint32) value.Value {
	cur := f.Locals[slot]
	if cell, ok := cur.Heap().(*object.ClosureCell); ok {
		return value.FromHeap(value.KindClosureVar, cell)
	}
	cell := &object.ClosureCell{Value: cur}
	boxed := vm.allocHeap(cell)
	f.Locals[slot] = boxed
	return boxed
}

func (vm *Vm) readLocal(f *Frame, idx uint32) value.Value {
	if cell, ok := f.Locals[idx].Heap().(*object.ClosureCell); ok {
		return cell.Value
	}
	return f.Locals[idx]
}

func (vm *Vm) writeLocal(f *Frame, idx uint32, val value.Value) {
	if cell, ok := f.Locals[idx].Heap().(*object.ClosureCell); ok {
		cell.Value = val
		vm.writeBarrier(cell, val)
		return
	}
	f.Locals[idx] = val
}

func (vm *Vm) curPC(floor int) uint32 {
	if len(vm.frames) > floor {
		return vm.top().PC
	}
	return 0
}

// pushCall resolves callee (unwrapping a PropertyCall-produced
// BoundFunction, or materializing a bare FunctionDef) and either invokes a
// native builtin synchronously, pushing its result, or pushes a fresh
// Frame for a bytecode-backed function so the dispatch loop picks it up
// next iteration. It never unwinds anything itself: a non-callable callee
// or a failing native builtin is reported as a plain Go error, which the
// dispatch loop (for an in-loop FunctionCall/New) or Call's caller (for a
// top-level/reentrant invocation) is responsible for turning into a
// catchable thrown value via throwValue.
func (vm *Vm) pushCall(floor int, calleeVal, thisVal value.Value, args []value.Value, isConstruct bool, newInstance value.Value) error {
	if bf, ok := calleeVal.Heap().(*object.BoundFunction); ok {
		thisVal = bf.This
		calleeVal = bf.Target
	}
	if calleeVal.Kind() == value.KindCppFunction {
		native, ok := calleeVal.Heap().(*NativeFunction)
		if !ok {
			return vm.raiseTypeError("value is not callable")
		}
		result, err := native.Fn(vm, thisVal, args)
		if err != nil {
			return err
		}
		if isConstruct && !isObjectKind(result) {
			result = newInstance
		}
		vm.push(result)
		return nil
	}
	fo, ok := vm.materializeFunction(calleeVal)
	if !ok {
		return vm.raiseTypeError("value is not a function")
	}
	locals := make([]value.Value, maxInt(fo.Def.LocalCount, fo.Def.ParamCount))
	for i, a := range args {
		if i >= fo.Def.ParamCount {
			break
		}
		locals[i] = a
	}

	// A generator call never runs any of its body synchronously (spec
	// §4.3 "Generators"): it only materializes a GeneratorObject retaining
	// the FunctionDef and this initial parameter frame, left for next() to
	// drive via generatorResume.
	if fo.Def.Flags.Has(compiler.FlagGenerator) {
		g := newGeneratorObject(vm, fo.Def, calleeVal, thisVal, locals)
		gv := vm.allocHeap(g)
		vm.writeBarrier(g, calleeVal)
		vm.writeBarrier(g, thisVal)
		vm.push(gv)
		return nil
	}

	nf := &Frame{
		Def: fo.Def, Callee: calleeVal, This: thisVal, Env: fo.Env, Locals: locals,
		OpBase: uint32(len(vm.stack)), IsConstruct: isConstruct, NewInstance: newInstance,
	}
	// An async call, unlike a generator call, does run synchronously up to
	// its first await (or completion): the frame is pushed and picked up
	// by the very next dispatch iteration exactly like an ordinary call,
	// tagged so Await/Return know to suspend/settle a promise instead of
	// behaving like a plain function body (spec §4.4 "async functions").
	if fo.Def.Flags.Has(compiler.FlagAsync) {
		nf.Async = newAsyncObject(vm)
	}
	vm.frames = append(vm.frames, nf)
	return nil
}

func (vm *Vm) callGetter(getter, this value.Value) (value.Value, error) {
	if getter.IsUndefined() {
		return value.Undefined(), nil
	}
	return vm.Call(getter, this, nil)
}

func (vm *Vm) callSetter(setter, this, val value.Value) error {
	if setter.IsUndefined() {
		return nil
	}
	_, err := vm.Call(setter, this, []value.Value{val})
	return err
}
