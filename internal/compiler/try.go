package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

// emitTry emits the protected block, catch, and finally bodies and
// registers an ExceptionTableEntry spanning the protected region (spec
// §4.3: "try/catch/finally emits region markers kTryBegin/kTryEnd and
// registers a table entry").
func (c *Compiler) emitTry(s *ast.TryStatement) {
	chunk := c.chunk()
	entry := chunkExceptionEntry{}

	chunk.EmitOpcode(bytecode.TryBegin)
	tryStart := chunk.Pc()
	c.withScope(ScopeTry, "", func() {
		for _, st := range s.Block.Body {
			c.emitStatement(st)
		}
	})
	tryEnd := chunk.Pc()
	chunk.EmitOpcode(bytecode.TryEnd)

	// Skip over catch/finally on the normal (no-throw) path.
	skipPatch := chunk.EmitJump(bytecode.Goto)

	entry.TryStartPC, entry.TryEndPC = tryStart, tryEnd

	if s.Handler != nil {
		catchStart := chunk.Pc()
		var errSlot uint32
		c.withScope(ScopeCatch, "", func() {
			if s.Handler.Param != "" {
				info := c.scope.declare(s.Handler.Param, VarNone)
				errSlot = info.Slot
			} else {
				errSlot = c.scope.fn.allocSlot()
			}
			chunk.EmitVarStore(errSlot)
			for _, st := range s.Handler.Body.Body {
				c.emitStatement(st)
			}
		})
		entry.CatchStartPC, entry.CatchEndPC, entry.CatchErrVarIdx = catchStart, chunk.Pc(), errSlot
	}

	if s.Finally != nil {
		finallyStart := chunk.Pc()
		c.withScope(ScopeFinally, "", func() {
			for _, st := range s.Finally.Body {
				c.emitStatement(st)
			}
		})
		entry.FinallyStartPC, entry.FinallyEndPC = finallyStart, chunk.Pc()
	}

	chunk.PatchJump(skipPatch, chunk.Pc())
	if s.Finally != nil {
		// The normal-path fallthrough must also run finally once before
		// continuing (spec §4.4: finally always runs on exit unless a
		// deferred action overrides it). Re-emit it inline for the
		// no-throw path rather than jumping back into the handler range,
		// since the handler range is scoped to exception entry only.
		c.withScope(ScopeFinally, "", func() {
			for _, st := range s.Finally.Body {
				c.emitStatement(st)
			}
		})
	}

	chunk.Exception = append(chunk.Exception, bytecode.ExceptionTableEntry{
		TryStartPC:     entry.TryStartPC,
		TryEndPC:       entry.TryEndPC,
		CatchStartPC:   entry.CatchStartPC,
		CatchEndPC:     entry.CatchEndPC,
		CatchErrVarIdx: entry.CatchErrVarIdx,
		FinallyStartPC: entry.FinallyStartPC,
		FinallyEndPC:   entry.FinallyEndPC,
	})
}

type chunkExceptionEntry struct {
	TryStartPC, TryEndPC                 uint32
	CatchStartPC, CatchEndPC              uint32
	CatchErrVarIdx                        uint32
	FinallyStartPC, FinallyEndPC          uint32
}

// emitSwitch lowers to a chain of equality tests against the discriminant
// held in a hidden local, matching how a real engine's codegen avoids
// re-evaluating the discriminant per case.
func (c *Compiler) emitSwitch(s *ast.SwitchStatement) {
	c.withScope(ScopeBlock, "", func() {
		c.emitExpr(s.Discriminant)
		discSlot := c.scope.fn.allocSlot()
		c.chunk().EmitVarStore(discSlot)

		li := &loopInfo{} // switch only needs a break target, not a loop
		var bodyPatches []uint32
		defaultIdx := -1
		for i, cs := range s.Cases {
			if cs.Test == nil {
				defaultIdx = i
				continue
			}
			c.chunk().EmitVarLoad(discSlot)
			c.emitExpr(cs.Test)
			c.chunk().EmitOpcode(bytecode.StrictEq)
			notMatch := c.chunk().EmitJump(bytecode.IfEq)
			match := c.chunk().EmitJump(bytecode.Goto)
			c.chunk().PatchJump(notMatch, c.chunk().Pc())
			bodyPatches = append(bodyPatches, match)
		}
		// Fallback: no case matched. Jumps to the default body if there is
		// one, else straight past the switch (patched after the body loop
		// below determines the last case's end).
		bodyPatches = append(bodyPatches, c.chunk().EmitJump(bytecode.Goto))

		// Body: cases fall through to the next case's body (no implicit
		// break), as JS specifies. We re-walk in source order, patching
		// each case's matching jump to its body start; the default's
		// body-start patch (if no default, the final fallback) lands
		// after the last case, which is a correct empty-switch no-op.
		c.withLoopScope(ScopeBlock, li, func() {
			patchCursor := 0
			for i, cs := range s.Cases {
				if cs.Test != nil {
					c.chunk().PatchJump(bodyPatches[patchCursor], c.chunk().Pc())
					patchCursor++
				} else if i == defaultIdx {
					c.chunk().PatchJump(bodyPatches[len(bodyPatches)-1], c.chunk().Pc())
				}
				for _, st := range cs.Body {
					c.emitStatement(st)
				}
			}
			if defaultIdx < 0 {
				c.chunk().PatchJump(bodyPatches[len(bodyPatches)-1], c.chunk().Pc())
			}
		})
		c.patchLoopExits(li, c.chunk().Pc(), c.chunk().Pc())
	})
}

func (c *Compiler) emitFunctionDeclaration(s *ast.FunctionDeclaration) {
	info := c.scope.declare(s.Function.Name, VarNone)
	c.emitFunctionLiteral(s.Function)
	c.chunk().EmitVarStore(info.Slot)
}

// emitClassDeclaration compiles the constructor as an ordinary function,
// appends method assignments onto its prototype, and fields are
// prepended into the constructor body to run with `this` bound to the
// new instance (spec §4.3 "Class emission").
func (c *Compiler) emitClassDeclaration(s *ast.ClassDeclaration) {
	info := c.scope.declare(s.Class.Name, VarNone)

	var ctor *ast.FunctionExpression
	for i := range s.Class.Methods {
		if s.Class.Methods[i].Kind == ast.MethodConstructor {
			ctor = s.Class.Methods[i].Function
		}
	}
	if ctor == nil {
		ctor = &ast.FunctionExpression{Sp: s.Sp, Name: s.Class.Name}
	}

	fieldInits := make([]ast.Statement, 0, len(s.Class.Fields))
	for _, f := range s.Class.Fields {
		if f.Static || f.Value == nil {
			continue
		}
		fieldInits = append(fieldInits, &ast.ExpressionStatement{
			Sp: f.Value.Span(),
			Expr: &ast.AssignmentExpression{
				Sp: f.Value.Span(),
				Op: ast.AssignPlain,
				Target: &ast.MemberExpression{
					Sp: f.Value.Span(), Object: &ast.ThisExpression{Sp: f.Value.Span()},
					Property: f.Key, Computed: f.Computed,
				},
				Value: f.Value,
			},
		})
	}
	ctorWithFields := *ctor
	ctorWithFields.Body = append(append([]ast.Statement{}, fieldInits...), ctor.Body...)

	c.emitFunctionLiteral(&ctorWithFields)
	c.chunk().EmitVarStore(info.Slot)

	// The constructor gets a [[HomeObject]] too (its own prototype), so a
	// super.foo() call inside the constructor body resolves the same way
	// it does in any other method.
	c.chunk().EmitVarLoad(info.Slot)
	c.emitMethodHome(info.Slot, false)
	c.chunk().EmitOpcode(bytecode.SetHomeObject)
	c.chunk().EmitVarStore(info.Slot)

	if s.Class.Super != nil {
		// LinkSuperclass wires ctor.SuperClass (for bare super(...) calls)
		// and threads ctor.prototype's [[Prototype]] onto the superclass's
		// prototype (for inherited methods and super.foo lookups).
		c.chunk().EmitVarLoad(info.Slot)
		c.emitExpr(s.Class.Super)
		c.chunk().EmitOpcode(bytecode.LinkSuperclass)
	}

	for _, m := range s.Class.Methods {
		if m.Kind == ast.MethodConstructor {
			continue
		}
		// Stack discipline mirrors plain property assignment: value,
		// then target object, then key, then the store opcode (grounded
		// on src/codegener.cpp's kDotExp assignment case, which pushes
		// the right-hand value before the object and its constant key).
		c.emitFunctionLiteral(m.Function)
		c.emitMethodHome(info.Slot, m.Static)
		c.chunk().EmitOpcode(bytecode.SetHomeObject)
		c.chunk().EmitVarLoad(info.Slot)
		if !m.Static {
			c.emitWellKnownPropertyLoad("prototype")
		}
		if m.Computed {
			c.emitExpr(m.Key)
			c.chunk().EmitOpcode(bytecode.IndexedStore)
			continue
		}
		c.chunk().EmitConstLoad(uint32(c.constString(identifierName(m.Key))))
		c.chunk().EmitOpcode(bytecode.PropertyStore)
	}
}

// emitMethodHome pushes the value SetHomeObject records as a compiled
// method's [[HomeObject]]: the class constructor itself for a static
// member, or its prototype for an instance member (spec §4.2, super
// property resolution walks up from [[HomeObject]].[[Prototype]]).
func (c *Compiler) emitMethodHome(slot uint32, static bool) {
	c.chunk().EmitVarLoad(slot)
	if !static {
		c.emitWellKnownPropertyLoad("prototype")
	}
}

// identifierName extracts a plain property name from a non-computed key
// expression (an Identifier, or a StringLiteral for quoted method names).
func identifierName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name
	case *ast.StringLiteral:
		return k.Value
	default:
		return ""
	}
}

func (c *Compiler) emitExport(s *ast.ExportDeclaration) {
	switch {
	case s.Declaration != nil:
		c.emitStatement(s.Declaration)
		name := declaredName(s.Declaration)
		if name != "" && c.exportTable != nil {
			ref := c.resolveName(name)
			if ref.kind == refLocal {
				c.exportTable[name] = ref.index
			}
		}
	case s.Default != nil:
		c.emitExpr(s.Default)
		info := c.scope.declare("default", VarNone)
		c.chunk().EmitVarStore(info.Slot)
		if c.exportTable != nil {
			c.exportTable["default"] = info.Slot
		}
	default:
		for _, spec := range s.Specifiers {
			ref := c.resolveName(spec.Local)
			if ref.kind == refLocal && c.exportTable != nil {
				c.exportTable[spec.Exported] = ref.index
			}
		}
	}
}

func declaredName(stmt ast.Statement) string {
	switch s := stmt.(type) {
	case *ast.FunctionDeclaration:
		return s.Function.Name
	case *ast.ClassDeclaration:
		return s.Class.Name
	case *ast.VariableDeclaration:
		if len(s.Decls) == 1 {
			return s.Decls[0].Name
		}
	}
	return ""
}
