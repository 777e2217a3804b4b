package vm

import (
	"jsvm/internal/compiler"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// generatorState tracks a GeneratorObject's position in its state machine
// (spec §4.3 "Generators"): a generator body never runs synchronously on
// call, only in response to next()/throw()/return().
type generatorState int

const (
	generatorSuspendedStart generatorState = iota
	generatorSuspendedYield
	generatorRunning
	generatorDone
)

// resumeMode distinguishes the three ways a generator (or an async frame,
// via the same machinery) can be driven forward.
type resumeMode int

const (
	resumeNext resumeMode = iota
	resumeThrow
	resumeReturn
)

// GeneratorObject is the heap object a generator function call produces
// instead of running its body (spec §4.3): it retains the FunctionDef and
// the initial parameter frame, and is driven one `yield` at a time by
// generatorResume. Because `yield` can only appear lexically directly
// inside the generator's own body, a suspended generator ever has at most
// one outstanding activation record to save/restore — frame and stack
// together are the generator's entire continuation.
type GeneratorObject struct {
	object.Object

	def    *compiler.FunctionDef
	callee value.Value
	this   value.Value
	locals []value.Value

	state generatorState

	// frame/stack are nil while suspendedStart (nothing has run yet) or
	// done (nothing left to resume), and hold the one parked activation
	// record while suspendedYield.
	frame *Frame
	stack []value.Value
}

func newGeneratorObject(vm *Vm, def *compiler.FunctionDef, callee, this value.Value, locals []value.Value) *GeneratorObject {
	return &GeneratorObject{
		Object: *object.New(vm.shapes, vm.generatorProto, object.ClassGenerator),
		def:    def,
		callee: callee,
		this:   this,
		locals: locals,
	}
}

// Trace extends Object.Trace with the generator's retained parameter frame
// and whatever activation record is currently parked.
func (g *GeneratorObject) Trace(visit func(*value.Value)) {
	g.Object.Trace(visit)
	visit(&g.callee)
	visit(&g.this)
	for i := range g.locals {
		visit(&g.locals[i])
	}
	if g.frame != nil {
		g.frame.enumerateRoots(visit)
	}
	for i := range g.stack {
		visit(&g.stack[i])
	}
}

// generatorResultObject builds the {value, done} wrapper next()/throw()/
// return() all produce (spec §4.3 "IteratorResult").
func (vm *Vm) generatorResultObject(val value.Value, done bool) value.Value {
	obj := object.New(vm.shapes, vm.objectProto, object.ClassGeneric)
	flags := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: true}
	obj.Set("value", val, flags, nil)
	obj.Set("done", value.Bool(done), flags, nil)
	result := vm.allocHeap(obj)
	vm.writeBarrier(obj, val)
	return result
}

// generatorResume drives g forward by one step: starting its body fresh
// (suspendedStart), reinstating the frame a prior Yield parked and feeding
// it `sent` as the yield expression's value (suspendedYield, resumeNext),
// throwing sent in at the suspension point through the ordinary
// throwValue unwind (resumeThrow), or forcing early completion
// (resumeReturn). The resumeReturn path does not execute any enclosing
// finally block, a simplification recorded in DESIGN.md.
func (vm *Vm) generatorResume(g *GeneratorObject, sent value.Value, mode resumeMode) (value.Value, error) {
	if g.state == generatorRunning {
		return value.Value{}, vm.raiseTypeError("generator is already running")
	}
	if g.state == generatorDone {
		switch mode {
		case resumeThrow:
			return value.Value{}, vm.uncaughtError(sent)
		default:
			return vm.generatorResultObject(value.Undefined(), true), nil
		}
	}

	floor := len(vm.frames)
	savedStack := vm.stack

	if g.state == generatorSuspendedStart {
		if mode == resumeReturn {
			g.state = generatorDone
			return vm.generatorResultObject(sent, true), nil
		}
		if mode == resumeThrow {
			g.state = generatorDone
			return value.Value{}, vm.uncaughtError(sent)
		}
		nf := &Frame{Def: g.def, Callee: g.callee, This: g.this, Locals: g.locals, Generator: g}
		vm.stack = nil
		vm.frames = append(vm.frames, nf)
	} else {
		nf := g.frame
		parkedStack := g.stack
		g.frame, g.stack = nil, nil
		if mode == resumeReturn {
			g.state = generatorDone
			vm.stack = savedStack
			return vm.generatorResultObject(sent, true), nil
		}
		nf.Generator = g
		vm.stack = parkedStack
		vm.frames = append(vm.frames, nf)
		if mode == resumeThrow {
			if err := vm.throwValue(floor, nf.PC, sent); err != nil {
				g.state = generatorDone
				vm.stack = savedStack
				return value.Value{}, err
			}
		} else {
			vm.push(sent)
		}
	}

	g.state = generatorRunning
	result, err := vm.dispatch(floor)
	vm.stack = savedStack
	if err != nil {
		g.state = generatorDone
		return value.Value{}, err
	}
	if g.state != generatorSuspendedYield {
		g.state = generatorDone
	}
	return vm.generatorResultObject(result, g.state == generatorDone), nil
}

// installGeneratorProto wires `.next`/`.throw`/`.return` onto the shared
// prototype every GeneratorObject is rooted at (spec §4.3's iterator
// protocol, restricted to the methods a `for...of`/manual-drive over a
// generator needs).
func installGeneratorProto(vm *Vm) {
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	install := func(name string, fn func(*Vm, value.Value, []value.Value) (value.Value, error)) {
		nf := &NativeFunction{Name: name, Fn: fn}
		proto, _ := vm.generatorProto.Heap().(*object.Object)
		proto.Set(name, value.FromHeap(value.KindCppFunction, nf), hidden, nil)
	}
	install("next", nativeGeneratorNext)
	install("throw", nativeGeneratorThrow)
	install("return", nativeGeneratorReturn)
}

func asGenerator(vm *Vm, this value.Value, method string) (*GeneratorObject, error) {
	g, ok := this.Heap().(*GeneratorObject)
	if !ok {
		return nil, vm.raiseTypeError("Generator.prototype.%s called on a non-generator", method)
	}
	return g, nil
}

func nativeGeneratorNext(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	g, err := asGenerator(vm, this, "next")
	if err != nil {
		return value.Value{}, err
	}
	return vm.generatorResume(g, arg(args, 0), resumeNext)
}

func nativeGeneratorThrow(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	g, err := asGenerator(vm, this, "throw")
	if err != nil {
		return value.Value{}, err
	}
	return vm.generatorResume(g, arg(args, 0), resumeThrow)
}

func nativeGeneratorReturn(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	g, err := asGenerator(vm, this, "return")
	if err != nil {
		return value.Value{}, err
	}
	return vm.generatorResume(g, arg(args, 0), resumeReturn)
}
