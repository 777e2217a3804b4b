package vm

import (
	"jsvm/internal/microtask"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// promiseState is a PromiseObject's settlement state (spec §4.4 "Promise
// resolution procedure").
type promiseState int

const (
	promisePending promiseState = iota
	promiseFulfilled
	promiseRejected
)

// promiseReaction is one .then()-style subscriber: at most one of the two
// callbacks runs, chosen by the settlement that eventually fires.
type promiseReaction struct {
	onFulfilled func(value.Value)
	onRejected  func(value.Value)
}

// PromiseObject is the heap object an async function's call produces and
// every `await` operand is coerced into (spec §4.4). Settlement is driven
// entirely by settlePromise; reactions queued while pending fire through
// vm.jobs once it settles, or synchronously if no microtask queue is
// wired (a bare vm.Call outside internal/runtime).
type PromiseObject struct {
	object.Object

	state     promiseState
	result    value.Value
	reactions []promiseReaction
}

func newPromiseObject(vm *Vm) *PromiseObject {
	return &PromiseObject{Object: *object.New(vm.shapes, vm.promiseProto, object.ClassPromise)}
}

// Trace extends Object.Trace with the settled result (reaction closures
// themselves are plain Go closures, kept alive by Go's own GC independent
// of this engine's simulated heap — see DESIGN.md).
func (p *PromiseObject) Trace(visit func(*value.Value)) {
	p.Object.Trace(visit)
	visit(&p.result)
}

// AsyncObject is the bookkeeping heap object behind one in-flight async
// function activation (spec §4.4): the promise it will eventually settle,
// plus — while suspended at an await — the one parked activation record,
// following the same single-frame invariant GeneratorObject relies on.
type AsyncObject struct {
	object.Object

	promise      *PromiseObject
	promiseValue value.Value

	frame *Frame
	stack []value.Value
}

func newAsyncObject(vm *Vm) *AsyncObject {
	p := newPromiseObject(vm)
	ao := &AsyncObject{
		Object:       *object.New(vm.shapes, vm.objectProto, object.ClassAsync),
		promise:      p,
		promiseValue: vm.allocHeap(p),
	}
	vm.allocHeap(ao)
	return ao
}

// Trace extends Object.Trace with the owned promise and, while suspended,
// the parked activation record.
func (a *AsyncObject) Trace(visit func(*value.Value)) {
	a.Object.Trace(visit)
	visit(&a.promiseValue)
	if a.frame != nil {
		a.frame.enumerateRoots(visit)
	}
	for i := range a.stack {
		visit(&a.stack[i])
	}
}

// settlePromise fulfills or rejects p with result, adopting another
// promise's eventual state instead of fulfilling with it directly when
// result is itself a PromiseObject (spec §4.4's resolution procedure,
// restricted to the common "resolve with a promise" case rather than the
// full arbitrary-thenable protocol). A settlement past the first one is
// ignored, matching "a promise settles at most once".
func (vm *Vm) settlePromise(p *PromiseObject, state promiseState, result value.Value) {
	if p.state != promisePending {
		return
	}
	if state == promiseFulfilled {
		if inner, ok := result.Heap().(*PromiseObject); ok && inner != p {
			vm.promiseThen(inner,
				func(v value.Value) { vm.settlePromise(p, promiseFulfilled, v) },
				func(v value.Value) { vm.settlePromise(p, promiseRejected, v) },
			)
			return
		}
	}
	p.state = state
	p.result = result
	vm.writeBarrier(p, result)
	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		vm.scheduleReaction(r, state, result)
	}
}

// scheduleReaction enqueues (or, lacking a wired microtask queue, runs
// immediately) whichever of r's two callbacks matches state.
func (vm *Vm) scheduleReaction(r promiseReaction, state promiseState, result value.Value) {
	cb := r.onFulfilled
	if state == promiseRejected {
		cb = r.onRejected
	}
	if cb == nil {
		return
	}
	if vm.jobs == nil {
		cb(result)
		return
	}
	vm.jobs.Enqueue(microtask.Job{
		Name:  "promise-reaction",
		Run:   func() error { cb(result); return nil },
		Roots: []value.Value{result},
	})
}

// promiseThen subscribes onFulfilled/onRejected to p's eventual
// settlement (spec §4.4 ".then"), firing immediately — as a microtask, if
// one is wired — when p has already settled.
func (vm *Vm) promiseThen(p *PromiseObject, onFulfilled, onRejected func(value.Value)) {
	if p.state == promisePending {
		p.reactions = append(p.reactions, promiseReaction{onFulfilled, onRejected})
		return
	}
	vm.scheduleReaction(promiseReaction{onFulfilled, onRejected}, p.state, p.result)
}

// promiseResolve coerces an arbitrary await/Promise.resolve operand into a
// PromiseObject: an existing promise passes through unchanged, anything
// else is wrapped in one that's already fulfilled with it.
func (vm *Vm) promiseResolve(val value.Value) *PromiseObject {
	if p, ok := val.Heap().(*PromiseObject); ok {
		return p
	}
	p := newPromiseObject(vm)
	vm.settlePromise(p, promiseFulfilled, val)
	return p
}

// subscribeAwait resolves awaited to a promise and arranges for ao to
// resume once it settles, fulfilled or rejected (spec §4.4 "await").
func (vm *Vm) subscribeAwait(ao *AsyncObject, awaited value.Value) {
	p := vm.promiseResolve(awaited)
	vm.promiseThen(p,
		func(v value.Value) { vm.enqueueAsyncResume(ao, v, false) },
		func(v value.Value) { vm.enqueueAsyncResume(ao, v, true) },
	)
}

// enqueueAsyncResume schedules ao's parked frame to continue once the
// awaited promise settles, routed through vm.jobs (internal/microtask) per
// spec §4.4's job-queue model when one is wired, or run inline otherwise.
func (vm *Vm) enqueueAsyncResume(ao *AsyncObject, val value.Value, isReject bool) {
	if vm.jobs == nil {
		vm.resumeAsync(ao, val, isReject)
		return
	}
	vm.jobs.Enqueue(microtask.Job{
		Name: "await-resume",
		Run: func() error {
			vm.resumeAsync(ao, val, isReject)
			return nil
		},
		Roots: []value.Value{val, ao.promiseValue},
	})
}

// resumeAsync reinstates ao's parked frame with val as the awaited
// expression's result (or thrown into the suspension point, for a
// rejection) and drives it to its next suspension or completion. Any
// exception that escapes the whole activation rejects ao's promise
// instead of propagating as a Go error — the promise IS the surface an
// async function reports failure through.
func (vm *Vm) resumeAsync(ao *AsyncObject, val value.Value, isReject bool) {
	floor := len(vm.frames)
	savedStack := vm.stack

	nf := ao.frame
	nf.Async = ao
	vm.stack = ao.stack
	ao.frame, ao.stack = nil, nil
	vm.frames = append(vm.frames, nf)

	if isReject {
		if err := vm.throwValue(floor, nf.PC, val); err != nil {
			vm.stack = savedStack
			vm.settlePromise(ao.promise, promiseRejected, val)
			return
		}
	} else {
		vm.push(val)
	}

	if _, err := vm.dispatch(floor); err != nil {
		vm.stack = savedStack
		vm.settlePromise(ao.promise, promiseRejected, vm.newErrorValue(err))
		return
	}
	vm.stack = savedStack
}

// installPromiseProto wires `.then`/`.catch`/`.finally` onto the shared
// prototype every PromiseObject is rooted at (spec §4.4), the only
// surface user code needs to observe a promise's settlement — `new
// Promise`/`Promise.resolve` aren't exposed as a global constructor since
// this engine has no native-constructor call path yet (see DESIGN.md).
func installPromiseProto(vm *Vm) {
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	install := func(name string, fn func(*Vm, value.Value, []value.Value) (value.Value, error)) {
		nf := &NativeFunction{Name: name, Fn: fn}
		proto, _ := vm.promiseProto.Heap().(*object.Object)
		proto.Set(name, value.FromHeap(value.KindCppFunction, nf), hidden, nil)
	}
	install("then", nativePromiseThen)
	install("catch", nativePromiseCatch)
	install("finally", nativePromiseFinally)
}

func nativePromiseThen(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	p, ok := this.Heap().(*PromiseObject)
	if !ok {
		return value.Value{}, vm.raiseTypeError("Promise.prototype.then called on a non-promise")
	}
	onFulfilled, onRejected := arg(args, 0), arg(args, 1)
	out := newPromiseObject(vm)
	vm.promiseThen(p,
		func(v value.Value) { vm.runReactionHandler(out, onFulfilled, v, false) },
		func(v value.Value) { vm.runReactionHandler(out, onRejected, v, true) },
	)
	return vm.allocHeap(out), nil
}

func nativePromiseCatch(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	return nativePromiseThen(vm, this, []value.Value{value.Undefined(), arg(args, 0)})
}

func nativePromiseFinally(vm *Vm, this value.Value, args []value.Value) (value.Value, error) {
	p, ok := this.Heap().(*PromiseObject)
	if !ok {
		return value.Value{}, vm.raiseTypeError("Promise.prototype.finally called on a non-promise")
	}
	onFinally := arg(args, 0)
	out := newPromiseObject(vm)
	vm.promiseThen(p,
		func(v value.Value) {
			vm.runFinallyHandler(onFinally)
			vm.settlePromise(out, promiseFulfilled, v)
		},
		func(v value.Value) {
			vm.runFinallyHandler(onFinally)
			vm.settlePromise(out, promiseRejected, v)
		},
	)
	return vm.allocHeap(out), nil
}

// runReactionHandler calls a .then() handler (if any) with the settled
// value and routes its outcome — return value, thrown error, or simple
// passthrough when no handler was supplied — into out's settlement.
func (vm *Vm) runReactionHandler(out *PromiseObject, handler, val value.Value, wasRejected bool) {
	if handler.IsUndefined() {
		if wasRejected {
			vm.settlePromise(out, promiseRejected, val)
		} else {
			vm.settlePromise(out, promiseFulfilled, val)
		}
		return
	}
	result, err := vm.Call(handler, value.Undefined(), []value.Value{val})
	if err != nil {
		vm.settlePromise(out, promiseRejected, vm.newErrorValue(err))
		return
	}
	vm.settlePromise(out, promiseFulfilled, result)
}

func (vm *Vm) runFinallyHandler(handler value.Value) {
	if handler.IsUndefined() {
		return
	}
	_, _ = vm.Call(handler, value.Undefined(), nil)
}
