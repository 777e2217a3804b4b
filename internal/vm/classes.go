package vm

import "jsvm/internal/value"

// resolveSuperProto resolves `super` in a property-lookup position
// (`super.foo`/`super.foo()`): the current method's [[HomeObject]]'s own
// prototype link — the class prototype object one level up the chain from
// wherever this method is installed (spec §4.2 "super property lookup").
// GetSuper only needs to push that object; BindThis is what keeps a
// super method *call*'s `this` bound to the current instance rather than
// to the object GetSuper returns.
func (vm *Vm) resolveSuperProto(f *Frame) value.Value {
	fo, ok := vm.materializeFunction(f.Callee)
	if !ok || fo.HomeObject.IsUndefined() {
		return value.Undefined()
	}
	home, ok := asBaseObject(fo.HomeObject)
	if !ok {
		return value.Undefined()
	}
	return home.Proto
}

// resolveSuperCtor resolves a bare `super(...)` call's callee: the
// superclass constructor LinkSuperclass resolved at class-creation time
// and cached on the derived constructor itself (spec §4.2 "super()").
func (vm *Vm) resolveSuperCtor(f *Frame) value.Value {
	fo, ok := vm.materializeFunction(f.Callee)
	if !ok {
		return value.Undefined()
	}
	return fo.SuperClass
}

// linkSuperclass wires a derived class's constructor and prototype onto
// its superclass (spec §4.2 "class C extends D"): ctor.SuperClass caches
// the resolved `extends` expression for every later bare super() call,
// and ctor.prototype's own [[Prototype]] becomes superclass.prototype so
// inherited methods and `super.foo` property lookups both resolve through
// the ordinary prototype-chain walk.
func (vm *Vm) linkSuperclass(ctorVal, superclassVal value.Value) error {
	ctor, ok := vm.materializeFunction(ctorVal)
	if !ok {
		return vm.raiseTypeError("class heritage is not a constructor")
	}
	superCtor, ok := vm.materializeFunction(superclassVal)
	if !ok {
		return vm.raiseTypeError("class extends value is not a constructor")
	}

	ctor.SuperClass = superclassVal
	vm.writeBarrier(ctor, superclassVal)

	ctorProtoVal, err := ctor.Get("prototype", nil, vm.callGetter)
	if err != nil {
		return err
	}
	superProtoVal, err := superCtor.Get("prototype", nil, vm.callGetter)
	if err != nil {
		return err
	}
	ctorProto, ok := asBaseObject(ctorProtoVal)
	if !ok {
		return vm.raiseTypeError("class heritage: malformed prototype")
	}
	ctorProto.Proto = superProtoVal
	vm.writeBarrier(ctorProto, superProtoVal)
	return nil
}
