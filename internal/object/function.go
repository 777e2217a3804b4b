package object

import (
	"jsvm/internal/compiler"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// FunctionObject is a callable Object: the shape-specialized slot vector
// inherited from Object backs its own `prototype`/`name`/`length`
// properties, while Def and Env carry what the VM actually needs to invoke
// it (spec §3.6 FunctionDef plus §4.3's per-closure captured-environment
// snapshot). Every entry of Env is a Value of kind KindClosureVar wrapping
// a *ClosureCell, in the same order as Def.ClosureVars.
type FunctionObject struct {
	Object
	Def *compiler.FunctionDef
	Env []value.Value

	// HomeObject is the object a `super.prop` lookup inside this
	// function's body resolves against (spec §4.2): the class prototype
	// for an instance method, the constructor itself for a static one.
	// Undefined for a function with no `super` in scope.
	HomeObject value.Value

	// SuperClass is the evaluated `extends` expression of the class this
	// function is the constructor of, resolved once at class-creation
	// time and reused by every bare `super(...)` call (spec §4.2). Holds
	// Undefined for anything that isn't a derived-class constructor.
	SuperClass value.Value
}

// NewFunction builds a bare FunctionObject for def, with proto as its
// prototype-chain link (normally the shared Function.prototype) and env as
// its captured-closure-environment snapshot. It does not install an own
// `prototype` property itself — the caller (internal/vm, immediately after
// construction) does that, since installing it requires allocating a
// second heap object through the same GC manager the VM already owns
// (spec §4.3 "every function has a distinct prototype object with a
// back-reference `constructor` property").
func NewFunction(manager *shape.Manager, proto value.Value, def *compiler.FunctionDef, env []value.Value) *FunctionObject {
	f := &FunctionObject{
		Object:     Object{Shape: manager.EmptyShape(), Proto: proto, Class: ClassFunction, manager: manager},
		Def:        def,
		Env:        env,
		HomeObject: value.Undefined(),
		SuperClass: value.Undefined(),
	}
	return f
}

func (f *FunctionObject) HeapKind() value.Kind { return value.KindFunctionObject }

// Trace extends Object.Trace with the captured closure environment and the
// super-resolution links.
func (f *FunctionObject) Trace(visit func(*value.Value)) {
	f.Object.Trace(visit)
	for i := range f.Env {
		visit(&f.Env[i])
	}
	visit(&f.HomeObject)
	visit(&f.SuperClass)
}
