package vm

import (
	"fmt"

	"jsvm/internal/jserr"
	"jsvm/internal/object"
	"jsvm/internal/shape"
	"jsvm/internal/value"
)

// raiseTypeError builds a plain Go error describing a TypeError; it does
// not itself unwind anything — the dispatch loop converts it into a
// catchable thrown value via throwValue, and a failure during a top-level
// Call (before any frame exists to unwind through) surfaces it directly to
// the embedder instead.
func (vm *Vm) raiseTypeError(format string, args ...interface{}) error {
	return jserr.NewRuntimeError(jserr.TypeError, format, args...)
}

// newErrorValue materializes a Go error as a thrown JS value: a plain
// object carrying "name"/"message" properties, the same minimal shape a
// caught exception's catch-block binding observes (installBuiltins
// installs no Error constructor or class).
func (vm *Vm) newErrorValue(err error) value.Value {
	kind := jserr.TypeError
	msg := err.Error()
	if re, ok := err.(*jserr.RuntimeError); ok {
		kind = re.Kind
		msg = re.Msg
	}
	obj := object.New(vm.shapes, vm.objectProto, object.ClassGeneric)
	hidden := shape.PropertyFlags{Exists: true, Writable: true, Enumerable: false}
	obj.Set("name", value.String(kind.String()), hidden, nil)
	obj.Set("message", value.String(msg), hidden, nil)
	return vm.allocHeap(obj)
}

// describe renders v for an uncaught-exception report; heap kinds fall
// back to reading their own "message" property when present.
func (vm *Vm) describe(v value.Value) string {
	if obj, ok := asBaseObject(v); ok {
		if p, found := obj.OwnProperty("message", nil); found {
			return value.ToDisplayString(obj.Slots[p.Slot])
		}
	}
	return value.ToDisplayString(v)
}

// uncaughtError is returned by throwValue once it pops every frame down to
// floor with no handler claiming the exception.
func (vm *Vm) uncaughtError(exc value.Value) error {
	return fmt.Errorf("uncaught exception: %s", vm.describe(exc))
}
