package vm

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/compiler"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// globalFlags is the property-attribute set a plain `var x = ...` /
// assignment-to-undeclared-name creates a global binding with: writable
// and enumerable, matching ordinary JS global-object properties.
var globalFlags = shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}

// dispatch is the interpreter's main loop (spec §4.4): fetch-decode-execute
// over one function's Chunk at a time, switching to a newly pushed callee's
// Chunk on FunctionCall/New/Closure-invocation and popping back to the
// caller's on Return, until the frame stack returns to floor.
func (vm *Vm) dispatch(floor int) (value.Value, error) {
	for {
		if len(vm.frames) <= floor {
			return value.Undefined(), nil
		}
		f := vm.top()
		chunk := f.Def.Chunk

		if f.pendingExc != nil && f.PC == f.pendingAt {
			exc := *f.pendingExc
			f.pendingExc = nil
			if err := vm.throwValue(floor, f.PC, exc); err != nil {
				return value.Value{}, err
			}
			continue
		}

		opPC := f.PC
		op := chunk.GetOpcode(opPC)

		var opErr error

		switch {
		case op >= bytecode.CLoad0 && op <= bytecode.CLoad5:
			vm.push(vm.constAt(uint32(op - bytecode.CLoad0)))
			f.PC = opPC + 1
		case op == bytecode.CLoad:
			vm.push(vm.constAt(uint32(chunk.GetU8(opPC + 1))))
			f.PC = opPC + 2
		case op == bytecode.CLoadW:
			vm.push(vm.constAt(uint32(chunk.GetU16(opPC + 1))))
			f.PC = opPC + 3
		case op == bytecode.CLoadD:
			vm.push(vm.constAt(chunk.GetU32(opPC + 1)))
			f.PC = opPC + 5

		case op >= bytecode.VLoad0 && op <= bytecode.VLoad3:
			vm.push(vm.readLocal(f, uint32(op-bytecode.VLoad0)))
			f.PC = opPC + 1
		case op == bytecode.VLoad:
			vm.push(vm.readLocal(f, uint32(chunk.GetU8(opPC+1))))
			f.PC = opPC + 2
		case op >= bytecode.VStore0 && op <= bytecode.VStore3:
			vm.writeLocal(f, uint32(op-bytecode.VStore0), vm.pop())
			f.PC = opPC + 1
		case op == bytecode.VStore:
			vm.writeLocal(f, uint32(chunk.GetU8(opPC+1)), vm.pop())
			f.PC = opPC + 2

		case op == bytecode.PropertyLoad:
			name := vm.pop()
			recv := vm.pop()
			var result value.Value
			result, opErr = vm.getProperty(recv, toPropertyKey(name))
			if opErr == nil {
				vm.push(result)
				f.PC = opPC + 1
			}
		case op == bytecode.PropertyStore:
			name := vm.pop()
			recv := vm.pop()
			val := vm.pop()
			opErr = vm.setProperty(recv, toPropertyKey(name), val)
			if opErr == nil {
				f.PC = opPC + 1
			}
		case op == bytecode.PropertyCall:
			name := vm.pop()
			recv := vm.pop()
			var method value.Value
			method, opErr = vm.getProperty(recv, toPropertyKey(name))
			if opErr == nil {
				vm.push(value.FromHeap(value.KindFunctionObject, &object.BoundFunction{Target: method, This: recv}))
				f.PC = opPC + 1
			}

		case op == bytecode.IndexedLoad:
			key := vm.pop()
			recv := vm.pop()
			var result value.Value
			result, opErr = vm.getIndexed(recv, key)
			if opErr == nil {
				vm.push(result)
				f.PC = opPC + 1
			}
		case op == bytecode.IndexedStore:
			key := vm.pop()
			recv := vm.pop()
			val := vm.pop()
			opErr = vm.setIndexed(recv, key, val)
			if opErr == nil {
				f.PC = opPC + 1
			}

		case op == bytecode.Add:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Add(a, b))
			f.PC = opPC + 1
		case op == bytecode.Sub:
			b, a := vm.pop(), vm.pop()
			vm.push(numSub(a, b))
			f.PC = opPC + 1
		case op == bytecode.Mul:
			b, a := vm.pop(), vm.pop()
			vm.push(numMul(a, b))
			f.PC = opPC + 1
		case op == bytecode.Div:
			b, a := vm.pop(), vm.pop()
			vm.push(numDiv(a, b))
			f.PC = opPC + 1
		case op == bytecode.Mod:
			b, a := vm.pop(), vm.pop()
			vm.push(numMod(a, b))
			f.PC = opPC + 1
		case op == bytecode.Neg:
			vm.push(numNeg(vm.pop()))
			f.PC = opPC + 1
		case op == bytecode.Shl:
			b, a := vm.pop(), vm.pop()
			vm.push(numShl(a, b))
			f.PC = opPC + 1
		case op == bytecode.Shr:
			b, a := vm.pop(), vm.pop()
			vm.push(numShr(a, b))
			f.PC = opPC + 1
		case op == bytecode.UShr:
			b, a := vm.pop(), vm.pop()
			vm.push(numUShr(a, b))
			f.PC = opPC + 1
		case op == bytecode.BitAnd:
			b, a := vm.pop(), vm.pop()
			vm.push(numBitAnd(a, b))
			f.PC = opPC + 1
		case op == bytecode.BitOr:
			b, a := vm.pop(), vm.pop()
			vm.push(numBitOr(a, b))
			f.PC = opPC + 1
		case op == bytecode.BitXor:
			b, a := vm.pop(), vm.pop()
			vm.push(numBitXor(a, b))
			f.PC = opPC + 1
		case op == bytecode.BitNot:
			vm.push(numBitNot(vm.pop()))
			f.PC = opPC + 1

		case op == bytecode.Eq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
			f.PC = opPC + 1
		case op == bytecode.Ne:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.Equal(a, b)))
			f.PC = opPC + 1
		case op == bytecode.StrictEq:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.StrictEqual(a, b)))
			f.PC = opPC + 1
		case op == bytecode.StrictNe:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.StrictEqual(a, b)))
			f.PC = opPC + 1
		case op == bytecode.Lt:
			b, a := vm.pop(), vm.pop()
			cmp, ok := value.Compare(a, b)
			vm.push(value.Bool(ok && cmp < 0))
			f.PC = opPC + 1
		case op == bytecode.Le:
			b, a := vm.pop(), vm.pop()
			cmp, ok := value.Compare(a, b)
			vm.push(value.Bool(ok && cmp <= 0))
			f.PC = opPC + 1
		case op == bytecode.Gt:
			b, a := vm.pop(), vm.pop()
			cmp, ok := value.Compare(a, b)
			vm.push(value.Bool(ok && cmp > 0))
			f.PC = opPC + 1
		case op == bytecode.Ge:
			b, a := vm.pop(), vm.pop()
			cmp, ok := value.Compare(a, b)
			vm.push(value.Bool(ok && cmp >= 0))
			f.PC = opPC + 1

		case op == bytecode.Not:
			vm.push(value.Bool(!vm.pop().Truthy()))
			f.PC = opPC + 1

		case op == bytecode.IfEq:
			cond := vm.pop()
			if cond.Truthy() {
				f.PC = opPC + 3
			} else {
				f.PC = chunk.JumpTarget(opPC)
			}
		case op == bytecode.IfNe:
			cond := vm.pop()
			if cond.Truthy() {
				f.PC = chunk.JumpTarget(opPC)
			} else {
				f.PC = opPC + 3
			}
		case op == bytecode.IfNullish:
			cond := vm.pop()
			if cond.IsNullish() {
				f.PC = chunk.JumpTarget(opPC)
			} else {
				f.PC = opPC + 3
			}
		case op == bytecode.Goto:
			f.PC = chunk.JumpTarget(opPC)
		case op == bytecode.FinallyGoto:
			f.PC = chunk.JumpTarget(opPC)

		case op == bytecode.FunctionCall:
			argCount := int(chunk.GetU8(opPC + 1))
			args := make([]value.Value, argCount)
			copy(args, vm.stack[len(vm.stack)-argCount:])
			vm.stack = vm.stack[:len(vm.stack)-argCount]
			callee := vm.pop()
			f.PC = opPC + 2
			opErr = vm.pushCall(floor, callee, value.Undefined(), args, false, value.Value{})
		case op == bytecode.Construct:
			argCount := int(chunk.GetU8(opPC + 1))
			args := make([]value.Value, argCount)
			copy(args, vm.stack[len(vm.stack)-argCount:])
			vm.stack = vm.stack[:len(vm.stack)-argCount]
			callee := vm.pop()
			f.PC = opPC + 2
			var instance value.Value
			instance, opErr = vm.newInstance(callee)
			if opErr == nil {
				opErr = vm.pushCall(floor, callee, instance, args, true, instance)
			}

		case op == bytecode.Return:
			result := vm.pop()
			vm.stack = vm.stack[:f.OpBase]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if f.IsConstruct && !isObjectKind(result) {
				result = f.NewInstance
			}
			result = vm.finishFrame(f, result)
			if len(vm.frames) <= floor {
				return result, nil
			}
			vm.push(result)
		case op == bytecode.FinallyReturn:
			result := vm.pop()
			vm.stack = vm.stack[:f.OpBase]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if f.IsConstruct && !isObjectKind(result) {
				result = f.NewInstance
			}
			result = vm.finishFrame(f, result)
			if len(vm.frames) <= floor {
				return result, nil
			}
			vm.push(result)

		case op == bytecode.Closure:
			funcDefIdx := uint32(chunk.GetU16(opPC + 1))
			defVal := vm.constAt(funcDefIdx)
			newDef, _ := defVal.Heap().(*compiler.FunctionDef)
			env := make([]value.Value, len(newDef.ClosureVars))
			for i, cv := range newDef.ClosureVars {
				if cv.FromParentSlot {
					env[i] = vm.boxLocal(f, cv.Index)
				} else {
					env[i] = f.Env[cv.Index]
				}
			}
			fo := object.NewFunction(vm.shapes, vm.functionProto, newDef, env)
			vm.installPrototype(fo)
			vm.push(value.FromHeap(value.KindFunctionObject, fo))
			f.PC = opPC + 3

		case op == bytecode.GetThis:
			vm.push(f.This)
			f.PC = opPC + 1
		case op == bytecode.GetOuterThis:
			vm.push(f.This)
			f.PC = opPC + 1
		case op == bytecode.GetSuper:
			vm.push(vm.resolveSuperProto(f))
			f.PC = opPC + 1
		case op == bytecode.GetSuperCtor:
			vm.push(vm.resolveSuperCtor(f))
			f.PC = opPC + 1
		case op == bytecode.SuperCall:
			argCount := int(chunk.GetU8(opPC + 1))
			args := make([]value.Value, argCount)
			copy(args, vm.stack[len(vm.stack)-argCount:])
			vm.stack = vm.stack[:len(vm.stack)-argCount]
			superCtor := vm.pop()
			f.PC = opPC + 2
			opErr = vm.pushCall(floor, superCtor, f.This, args, f.IsConstruct, f.NewInstance)
		case op == bytecode.BindThis:
			callee := vm.pop()
			vm.push(value.FromHeap(value.KindFunctionObject, &object.BoundFunction{Target: callee, This: f.This}))
			f.PC = opPC + 1
		case op == bytecode.SetHomeObject:
			home := vm.pop()
			fnVal := vm.pop()
			fo, ok := vm.materializeFunction(fnVal)
			if !ok {
				opErr = vm.raiseTypeError("SetHomeObject: not a function")
			} else {
				fo.HomeObject = home
				vm.writeBarrier(fo, home)
				vm.push(fnVal)
				f.PC = opPC + 1
			}
		case op == bytecode.LinkSuperclass:
			superclass := vm.pop()
			ctorVal := vm.pop()
			opErr = vm.linkSuperclass(ctorVal, superclass)
			if opErr == nil {
				f.PC = opPC + 1
			}

		case op == bytecode.ClosureLoad:
			idx := uint32(chunk.GetU8(opPC + 1))
			cell, _ := f.Env[idx].Heap().(*object.ClosureCell)
			vm.push(cell.Value)
			f.PC = opPC + 2
		case op == bytecode.ClosureStore:
			idx := uint32(chunk.GetU8(opPC + 1))
			cell, _ := f.Env[idx].Heap().(*object.ClosureCell)
			cell.Value = vm.pop()
			vm.writeBarrier(cell, cell.Value)
			f.PC = opPC + 2

		case op == bytecode.GlobalLoad:
			nameIdx := uint32(chunk.GetU16(opPC + 1))
			name := vm.constAt(nameIdx).Str()
			var result value.Value
			result, opErr = vm.globals.Get(name, nil, vm.callGetter)
			if opErr == nil {
				vm.push(result)
				f.PC = opPC + 3
			}
		case op == bytecode.GlobalStore:
			nameIdx := uint32(chunk.GetU16(opPC + 1))
			name := vm.constAt(nameIdx).Str()
			val := vm.pop()
			opErr = vm.globals.Set(name, val, globalFlags, vm.callSetter)
			if opErr == nil {
				vm.writeBarrier(vm.globals, val)
				f.PC = opPC + 3
			}

		case op == bytecode.TryBegin, op == bytecode.TryEnd:
			f.PC = opPC + 1

		case op == bytecode.Throw:
			exc := vm.pop()
			if err := vm.throwValue(floor, opPC, exc); err != nil {
				return value.Value{}, err
			}
			continue

		case op == bytecode.Yield:
			val := vm.pop()
			if g := f.Generator; g != nil {
				f.PC = opPC + 1
				g.stack = append([]value.Value(nil), vm.stack[f.OpBase:]...)
				vm.stack = vm.stack[:f.OpBase]
				vm.frames = vm.frames[:len(vm.frames)-1]
				g.frame = f
				g.state = generatorSuspendedYield
				return val, nil
			}
			// Unreachable from compiled code (yield only appears inside a
			// generator body) — passthrough rather than panicking.
			vm.push(val)
			f.PC = opPC + 1

		case op == bytecode.Await:
			awaited := vm.pop()
			if ao := f.Async; ao != nil {
				f.PC = opPC + 1
				ao.stack = append([]value.Value(nil), vm.stack[f.OpBase:]...)
				vm.stack = vm.stack[:f.OpBase]
				vm.frames = vm.frames[:len(vm.frames)-1]
				ao.frame = f
				vm.push(ao.promiseValue)
				vm.subscribeAwait(ao, awaited)
			} else {
				// Unreachable from compiled code (await only appears inside
				// an async function body) — treat as already resolved.
				vm.push(awaited)
				f.PC = opPC + 1
			}

		case op == bytecode.Swap:
			n := len(vm.stack)
			vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]
			f.PC = opPC + 1
		case op == bytecode.Dump:
			vm.push(vm.peek())
			f.PC = opPC + 1
		case op == bytecode.Pop:
			vm.pop()
			f.PC = opPC + 1
		case op == bytecode.Undefined:
			vm.push(value.Undefined())
			f.PC = opPC + 1

		default:
			opErr = vm.raiseTypeError("unimplemented opcode %s", op.Name())
		}

		if opErr != nil {
			excVal := vm.newErrorValue(opErr)
			if err := vm.throwValue(floor, opPC, excVal); err != nil {
				return value.Value{}, err
			}
		}
	}
}

// throwValue implements exception unwinding (spec §4.4/§6.2): scan the
// current frame's exception table from excFrom for an entry covering pc,
// dispatching into its catch or finally range; if none covers it, pop the
// frame entirely and retry against the caller, down to floor. Returns a
// non-nil error only once the exception escapes every frame above floor.
func (vm *Vm) throwValue(floor int, pc uint32, exc value.Value) error {
	for len(vm.frames) > floor {
		f := vm.top()
		entries := f.Def.Chunk.Exception
		for i := f.excFrom; i < len(entries); i++ {
			e := entries[i]
			if !e.Covers(pc) {
				continue
			}
			vm.stack = vm.stack[:f.OpBase]
			if e.HasCatch() {
				// CatchStartPC points at the VStore the compiler emits to
				// bind the catch parameter (internal/compiler/try.go
				// emitTry: EmitVarStore(errSlot) right after catchStart),
				// so the caught value must arrive on the operand stack,
				// not be poked directly into CatchErrVarIdx's slot.
				vm.push(exc)
				f.PC = e.CatchStartPC
				f.excFrom = 0
			} else {
				excCopy := exc
				f.pendingExc = &excCopy
				f.pendingAt = e.FinallyEndPC
				f.PC = e.FinallyStartPC
				f.excFrom = i + 1
			}
			return nil
		}
		vm.stack = vm.stack[:f.OpBase]
		vm.frames = vm.frames[:len(vm.frames)-1]
		if len(vm.frames) > floor {
			pc = vm.top().PC
		}
	}
	return vm.uncaughtError(exc)
}

// finishFrame applies the completion override a suspendable frame's owner
// needs once its body runs to completion via Return/FinallyReturn: a
// generator reports itself done (spec §4.3), and an async function's
// result settles — and is replaced by — its promise (spec §4.4), since the
// promise, not the raw return value, is what the original call expression
// evaluates to.
func (vm *Vm) finishFrame(f *Frame, result value.Value) value.Value {
	if f.Generator != nil {
		f.Generator.state = generatorDone
		f.Generator.frame, f.Generator.stack = nil, nil
	}
	if f.Async != nil {
		vm.settlePromise(f.Async.promise, promiseFulfilled, result)
		return f.Async.promiseValue
	}
	return result
}

// newInstance allocates the fresh instance `new` binds as `this` before
// invoking the constructor, rooted at the constructor's own "prototype"
// property (spec §4.3 "new": "this = a fresh object whose prototype is
// ctor.prototype").
func (vm *Vm) newInstance(callee value.Value) (value.Value, error) {
	fo, ok := vm.materializeFunction(callee)
	if !ok {
		return value.Value{}, vm.raiseTypeError("value is not a constructor")
	}
	protoVal, err := fo.Get("prototype", nil, vm.callGetter)
	if err != nil {
		return value.Value{}, err
	}
	if !isObjectKind(protoVal) {
		protoVal = vm.objectProto
	}
	inst := object.New(vm.shapes, protoVal, object.ClassGeneric)
	return vm.allocHeap(inst), nil
}
