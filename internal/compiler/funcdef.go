// Package compiler walks the AST the parser produces and emits bytecode
// into a FunctionDef, resolving names to local slots, closure-table
// entries, or global lookups (spec §4.3).
package compiler

import (
	"jsvm/internal/bytecode"
	"jsvm/internal/value"
)

// FunctionFlags tags what kind of callable a FunctionDef compiles to
// (spec §3.6).
type FunctionFlags uint8

const (
	FlagNone  FunctionFlags = 0
	FlagArrow FunctionFlags = 1 << (iota - 1)
	FlagAsync
	FlagGenerator
	FlagModule
)

func (f FunctionFlags) Has(bit FunctionFlags) bool { return f&bit != 0 }

// ClosureVarEntry is one row of a FunctionDef's ClosureVarTable: either a
// direct reference to a slot in the immediately enclosing function, or a
// pass-through reference to one of that function's own closure-var
// entries (spec §3.6, §4.3; never a two-hop reference straight through an
// intermediate ClosureVar cell — see DESIGN.md Open Question on multi-hop
// closures).
type ClosureVarEntry struct {
	FromParentSlot bool // true: Index is a local-slot index in the parent function
	Index          uint32
}

// FunctionDef is the compile-time, immutable artifact a function
// expression/declaration compiles to. It is const-pool resident (spec
// §3.6) and implements value.HeapObject so it can occupy a Value slot.
type FunctionDef struct {
	Name        string
	ParamCount  int
	LocalCount  int
	Chunk       *bytecode.Chunk
	ClosureVars []ClosureVarEntry
	Flags       FunctionFlags
}

func (f *FunctionDef) HeapKind() value.Kind { return value.KindFunctionDef }

// ModuleDef is a compiled module: its body runs as an ordinary
// zero-argument FunctionDef exactly once, and ExportVarTable maps an
// exported name to the local slot in Body holding its value (spec §3.6).
type ModuleDef struct {
	Name           string
	Body           *FunctionDef
	ExportVarTable map[string]uint32
}

func (m *ModuleDef) HeapKind() value.Kind { return value.KindModuleDef }
