package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
	"jsvm/internal/constpool"
	"jsvm/internal/jserr"
	"jsvm/internal/token"
	"jsvm/internal/value"
)

// Compiler walks an *ast.Program and emits one or more FunctionDefs,
// resolving every name reference to a local slot, a closure-table entry,
// or a global lookup (spec §4.3).
type Compiler struct {
	global *constpool.Global
	local  *constpool.Local
	cur    *funcState
	scope  *scope

	// exportTable is non-nil only while CompileModule is walking a
	// module's top level; `export` declarations write into it.
	exportTable map[string]uint32
}

// New returns a Compiler that interns literal constants into global and
// can intern runtime-only constants (produced by future Eval calls, not
// by this pass) into local.
func New(global *constpool.Global, local *constpool.Local) *Compiler {
	return &Compiler{global: global, local: local}
}

func pos(sp token.Span) jserr.Position {
	return jserr.Position{Line: sp.Line, Offset: sp.Start}
}

// CompileScript compiles a top-level, non-module program into a single
// zero-argument FunctionDef (the shape Eval/CallModule's embedder API
// invokes directly, spec §6.1).
func (c *Compiler) CompileScript(prog *ast.Program) (def *FunctionDef, err error) {
	return c.compileTop(prog, FlagNone)
}

// CompileModule compiles a module program into a ModuleDef; ExportVarTable
// is populated from top-level `export` declarations encountered during the
// walk (spec §3.6).
func (c *Compiler) CompileModule(prog *ast.Program) (*ModuleDef, error) {
	md := &ModuleDef{ExportVarTable: make(map[string]uint32)}
	c.exportTable = md.ExportVarTable
	def, err := c.compileTop(prog, FlagModule)
	c.exportTable = nil
	if err != nil {
		return nil, err
	}
	md.Body = def
	return md, nil
}

func (c *Compiler) compileTop(prog *ast.Program, flags FunctionFlags) (def *FunctionDef, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*jserr.CompileError); ok {
				retErr = ce
				return
			}
			panic(r)
		}
	}()

	def = &FunctionDef{Name: "<script>", Chunk: bytecode.New(), Flags: flags}
	c.cur = newFuncState(def, nil)
	c.scope = newScope(ScopeFunction, nil, c.cur)

	for _, stmt := range prog.Body {
		c.emitStatement(stmt)
	}
	c.cur.def.Chunk.EmitOpcode(bytecode.Undefined)
	c.cur.def.Chunk.EmitOpcode(bytecode.Return)
	if err := def.Chunk.Exception.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

func fail(sp token.Span, format string, args ...interface{}) {
	panic(jserr.NewCompileError(pos(sp), format, args...))
}

// ---- name resolution ----

type refKind int

const (
	refLocal refKind = iota
	refClosure
	refGlobal
)

type varRef struct {
	kind  refKind
	index uint32
	name  string
}

func (c *Compiler) resolveName(name string) varRef {
	for s := c.scope; s != nil; s = s.parent {
		info, ok := s.vars[name]
		if !ok {
			continue
		}
		if s.fn == c.cur {
			return varRef{kind: refLocal, index: info.Slot}
		}
		return varRef{kind: refClosure, index: c.captureChain(s.fn, info.Slot, name)}
	}
	return varRef{kind: refGlobal, name: name}
}

// captureChain materializes a ClosureVarTable entry in every function
// between c.cur and definingFn (exclusive of definingFn), each entry
// referencing only its immediate parent's slot or its immediate parent's
// already-materialized closure index — never skipping a level (DESIGN.md
// Open Question: multi-hop closure vars).
func (c *Compiler) captureChain(definingFn *funcState, slot uint32, name string) uint32 {
	definingFn.captured[slot] = true

	var chain []*funcState
	for f := c.cur; f != definingFn; f = f.parent {
		chain = append(chain, f)
	}

	// referenced is what the *next* hop's entry should point at: the
	// defining function's local slot for the hop immediately enclosing
	// definingFn, or the previous hop's own closure-table index otherwise.
	fromParentSlot := true
	referenced := slot
	var lastIdx uint32
	for i := len(chain) - 1; i >= 0; i-- {
		f := chain[i]
		if existing, ok := f.closureIdx[name]; ok {
			referenced = existing
			lastIdx = existing
			fromParentSlot = false
			continue
		}
		entryIdx := uint32(len(f.def.ClosureVars))
		f.def.ClosureVars = append(f.def.ClosureVars, ClosureVarEntry{FromParentSlot: fromParentSlot, Index: referenced})
		f.closureIdx[name] = entryIdx
		referenced = entryIdx
		lastIdx = entryIdx
		fromParentSlot = false
	}
	return lastIdx
}

func (c *Compiler) emitLoad(ref varRef, sp token.Span) {
	chunk := c.cur.def.Chunk
	switch ref.kind {
	case refLocal:
		chunk.EmitVarLoad(ref.index)
	case refClosure:
		chunk.EmitClosureLoad(ref.index)
	case refGlobal:
		chunk.EmitGlobalLoad(uint32(c.constString(ref.name)))
	}
}

func (c *Compiler) emitStore(ref varRef, sp token.Span) {
	chunk := c.cur.def.Chunk
	switch ref.kind {
	case refLocal:
		chunk.EmitVarStore(ref.index)
	case refClosure:
		chunk.EmitClosureStore(ref.index)
	case refGlobal:
		chunk.EmitGlobalStore(uint32(c.constString(ref.name)))
	}
}

// ---- constant helpers ----

func (c *Compiler) constString(s string) constpool.ConstIndex {
	return c.global.New(value.String(s))
}

func (c *Compiler) constInt(n int64) constpool.ConstIndex {
	return c.global.New(value.Int64(n))
}

func (c *Compiler) constFloat(f float64) constpool.ConstIndex {
	return c.global.New(value.Float64(f))
}

func (c *Compiler) constBool(b bool) constpool.ConstIndex {
	return c.global.New(value.Bool(b))
}
