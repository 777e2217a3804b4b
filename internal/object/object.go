// Package object implements the shape-specialized Object and ArrayObject
// types of spec §3.4 and §3.5: a Shape pointer plus a contiguous slot
// vector, prototype chain navigation, property read/write with inline
// caches, and accessor (getter/setter) support.
package object

import (
	"jsvm/internal/jserr"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// ClassId tags the concrete flavor of an Object (spec §3.4).
type ClassId int

const (
	ClassGeneric ClassId = iota
	ClassArray
	ClassFunction
	ClassGenerator
	ClassPromise
	ClassAsync
	ClassModule
	ClassConstructor
	ClassCppModule
	ClassCustom
)

// Accessor holds a getter/setter pair for a property slot flagged as an
// accessor (spec §3.4).
type Accessor struct {
	Get value.Value
	Set value.Value
}

// Object is the generic shape-specialized object: a Shape pointer, a slot
// vector sized to shape.PropertyCount(), a prototype link, and a class tag.
type Object struct {
	Shape     *shape.Shape
	Slots     []value.Value
	Accessors map[int]*Accessor // populated lazily for accessor slots
	Proto     value.Value       // the __proto__ link; Undefined() root is represented as value.Null()
	Class     ClassId

	manager *shape.Manager
}

// New creates an empty object rooted at manager's empty shape, with the
// given prototype and class tag.
func New(manager *shape.Manager, proto value.Value, class ClassId) *Object {
	return &Object{Shape: manager.EmptyShape(), Proto: proto, Class: class, manager: manager}
}

func (o *Object) HeapKind() value.Kind {
	switch o.Class {
	case ClassArray:
		return value.KindArrayObject
	case ClassFunction:
		return value.KindFunctionObject
	case ClassGenerator:
		return value.KindGeneratorObject
	case ClassPromise:
		return value.KindPromiseObject
	case ClassAsync:
		return value.KindAsyncObject
	case ClassModule:
		return value.KindModuleObject
	case ClassConstructor:
		return value.KindConstructorObject
	case ClassCppModule:
		return value.KindCppModuleObject
	default:
		return value.KindObject
	}
}

// InlineCache is a per-bytecode-site monomorphic cache cell carried in the
// instruction stream (spec §3.4, §4.4): on a hit it lets the VM read a slot
// without a shape lookup.
type InlineCache struct {
	Shape *shape.Shape
	Slot  int
	valid bool
}

// Get reads a cache hit if the object's current shape matches.
func (c *InlineCache) Get(o *Object) (int, bool) {
	if c.valid && c.Shape == o.Shape {
		return c.Slot, true
	}
	return 0, false
}

// Update rewrites the cache after a miss.
func (c *InlineCache) Update(o *Object, slot int) {
	c.Shape = o.Shape
	c.Slot = slot
	c.valid = true
}

// OwnProperty looks up key directly on this object's shape (no prototype
// walk), honoring an inline cache if provided.
func (o *Object) OwnProperty(key string, ic *InlineCache) (shape.Property, bool) {
	if ic != nil {
		if slot, ok := ic.Get(o); ok {
			if p, found := o.Shape.Lookup(key); found && p.Slot == slot {
				return p, true
			}
		}
	}
	p, ok := o.Shape.Lookup(key)
	if ok && ic != nil {
		ic.Update(o, p.Slot)
	}
	return p, ok
}

// Get implements property read per spec §3.4: look on this object, then
// walk the prototype chain to null. Accessor slots invoke the getter with
// this object as `this`; callGetter may be nil if the engine layer calling
// in has no way to invoke user code yet (e.g. during bootstrap), in which
// case an accessor read returns Undefined.
func (o *Object) Get(key string, ic *InlineCache, callGetter func(getter value.Value, this value.Value) (value.Value, error)) (value.Value, error) {
	cur := o
	for cur != nil {
		if p, ok := cur.OwnProperty(key, ic); ok {
			if p.Flags.Accessor {
				acc := cur.Accessors[p.Slot]
				if acc == nil || acc.Get.IsUndefined() {
					return value.Undefined(), nil
				}
				if callGetter == nil {
					return value.Undefined(), nil
				}
				return callGetter(acc.Get, value.FromHeap(o.HeapKind(), o))
			}
			return cur.Slots[p.Slot], nil
		}
		if cur.Proto.IsNull() || cur.Proto.IsUndefined() {
			return value.Undefined(), nil
		}
		next, ok := cur.Proto.Heap().(*Object)
		if !ok {
			return value.Undefined(), nil
		}
		cur = next
		ic = nil // inline cache only applies to the receiver's own shape
	}
	return value.Undefined(), nil
}

// Set implements property write per spec §3.4: write an existing slot in
// place, or follow/create a shape transition and grow the slot vector.
// callSetter mirrors callGetter's role for accessor properties.
func (o *Object) Set(key string, v value.Value, flags shape.PropertyFlags, callSetter func(setter value.Value, this value.Value, val value.Value) error) error {
	if p, ok := o.Shape.Lookup(key); ok {
		if p.Flags.Accessor {
			acc := o.Accessors[p.Slot]
			if acc == nil || acc.Set.IsUndefined() {
				return nil // silently ignored, matching non-strict JS semantics
			}
			if callSetter == nil {
				return nil
			}
			return callSetter(acc.Set, value.FromHeap(o.HeapKind(), o), v)
		}
		if !p.Flags.Writable {
			return nil
		}
		o.Slots[p.Slot] = v
		return nil
	}
	newShape, slot := o.manager.AddProperty(o.Shape, key, flags)
	o.Shape = newShape
	if slot >= len(o.Slots) {
		grown := make([]value.Value, slot+1)
		copy(grown, o.Slots)
		o.Slots = grown
	}
	o.Slots[slot] = v
	return nil
}

// DefineAccessor installs a getter/setter pair at key, creating the
// property slot if needed.
func (o *Object) DefineAccessor(key string, get, set value.Value) {
	flags := shape.PropertyFlags{Exists: true, Enumerable: true, Accessor: true}
	p, ok := o.Shape.Lookup(key)
	if !ok {
		newShape, slot := o.manager.AddProperty(o.Shape, key, flags)
		o.Shape = newShape
		p = shape.Property{Key: key, Slot: slot, Flags: flags}
		if slot >= len(o.Slots) {
			grown := make([]value.Value, slot+1)
			copy(grown, o.Slots)
			o.Slots = grown
		}
	}
	if o.Accessors == nil {
		o.Accessors = make(map[int]*Accessor)
	}
	o.Accessors[p.Slot] = &Accessor{Get: get, Set: set}
}

// Delete removes key from this object. Dense-array deletion is handled
// separately in ArrayObject; for a generic object this promotes to a
// dictionary shape once churn crosses the manager's threshold, per spec
// §3.3 — approximated here by always promoting on delete, matching the
// "many delete/add cycles" trigger condition without tracking a precise
// churn counter per object.
func (o *Object) Delete(key string) {
	if _, ok := o.Shape.Lookup(key); !ok {
		return
	}
	props := ownPropertiesExcept(o.Shape, key)
	newShape := o.manager.PromoteToDictionary(o.manager.EmptyShape())
	newSlots := make([]value.Value, 0, len(props))
	for _, p := range props {
		var slot int
		newShape, slot = o.manager.AddProperty(newShape, p.Key, p.Flags)
		_ = slot
		newSlots = append(newSlots, o.getRaw(p))
	}
	o.Shape = newShape
	o.Slots = newSlots
}

func (o *Object) getRaw(p shape.Property) value.Value {
	if p.Slot < len(o.Slots) {
		return o.Slots[p.Slot]
	}
	return value.Undefined()
}

func ownPropertiesExcept(s *shape.Shape, exclude string) []shape.Property {
	var rev []shape.Property
	for cur := s; cur != nil && cur.PropertyCount() > 0; cur = cur.Parent() {
		rev = append(rev, cur.OwnProperty())
	}
	var out []shape.Property
	for i := len(rev) - 1; i >= 0; i-- {
		if rev[i].Key != exclude {
			out = append(out, rev[i])
		}
	}
	return out
}

// Trace invokes visit for every Value this object holds a reference
// through: the prototype link, every occupied slot, and both sides of any
// accessor pair. The GC heap calls this during root/object scanning (spec
// §4.5 "scan to-space" / mark phase) to discover further reachable objects.
func (o *Object) Trace(visit func(*value.Value)) {
	visit(&o.Proto)
	for i := range o.Slots {
		visit(&o.Slots[i])
	}
	for _, acc := range o.Accessors {
		visit(&acc.Get)
		visit(&acc.Set)
	}
}

var errNotCallable = jserr.NewRuntimeError(jserr.TypeError, "value is not callable")

// ErrNotCallable is returned by callers that attempt to invoke a
// non-function Value as this object's getter/setter.
func ErrNotCallable() error { return errNotCallable }
