package vm

import (
	"jsvm/internal/compiler"
	"jsvm/internal/value"
)

// Frame is one call's activation record: a Go-native stand-in for the
// original engine's (func, pc, offset) triple pushed onto the value
// stack (spec §4.4). Rather than faking a tagged-Value encoding of that
// triple, the VM keeps a typed []*Frame call stack and satisfies the
// spec's root-enumeration requirement itself via EnumerateRoots — Go's
// slices make the original's stack-encoding trick unnecessary as long as
// every rooted field here is visited during GC (see vm.go, gc.RootProvider
// Open Question in DESIGN.md).
type Frame struct {
	Def    *compiler.FunctionDef
	Callee value.Value
	This   value.Value

	// Env is this function's captured-closure-environment snapshot, one
	// *object.ClosureCell-wrapped Value per Def.ClosureVars entry. Nil for
	// a non-capturing function.
	Env []value.Value

	// Locals holds this frame's local-slot vector, sized to
	// max(Def.LocalCount, Def.ParamCount). A slot promoted to a
	// *object.ClosureCell by a Closure opcode is boxed in place; VLoad/
	// VStore transparently deref through it thereafter (see calls.go
	// readLocal/writeLocal).
	Locals []value.Value

	// OpBase is the shared operand stack's depth when this frame was
	// pushed: the constant truncation floor exception unwinding resets to,
	// safe at any PC within the function body because every statement the
	// compiler emits is stack-neutral (internal/compiler/statement.go).
	OpBase uint32
	PC     uint32

	// IsConstruct/NewInstance implement `new`'s return-value override
	// rule: if the constructor body doesn't explicitly return an object,
	// the freshly allocated instance is used instead (spec §4.3 "new").
	IsConstruct bool
	NewInstance value.Value

	// excFrom is the first ExceptionTable entry still worth trying in this
	// frame. A bare try/finally's exceptional path advances it past the
	// entry it just used once its finally block re-throws, so a second
	// throwValue call against the same frame doesn't loop on an entry that
	// already deferred to finally (see loop.go throwValue). A fresh catch
	// dispatch resets it to 0, since a catch body's own PC range never
	// overlaps an earlier entry's try range.
	excFrom int

	// pendingExc/pendingAt carry a deferred re-throw through a bare
	// try/finally's finally block: set when throwValue dispatches into
	// FinallyStartPC with no catch, checked at the top of the dispatch
	// loop once PC reaches FinallyEndPC (spec §4.4, "finally always runs
	// on exit; a pending exception resumes once it completes").
	pendingExc *value.Value
	pendingAt  uint32

	// Generator is non-nil when this frame is the (sole) activation of a
	// generator function's body, driven by generatorResume rather than the
	// ordinary FunctionCall path. Yield suspends by handing the frame back
	// to g.frame/g.stack instead of popping it into oblivion (spec §4.3
	// "Generators").
	Generator *GeneratorObject

	// Async is non-nil when this frame is the (sole) activation of an
	// async function's body. Await suspends it the same way Yield suspends
	// a Generator frame, parking it on ao.frame/ao.stack until the awaited
	// value's promise settles and a microtask resumes it (spec §4.4
	// "async/await").
	Async *AsyncObject
}

// enumerateRoots visits every Value this frame holds a live reference
// through.
func (f *Frame) enumerateRoots(visit func(*value.Value)) {
	visit(&f.Callee)
	visit(&f.This)
	for i := range f.Env {
		visit(&f.Env[i])
	}
	for i := range f.Locals {
		visit(&f.Locals[i])
	}
	visit(&f.NewInstance)
	if f.pendingExc != nil {
		visit(f.pendingExc)
	}
}
