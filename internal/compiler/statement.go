package compiler

import (
	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
)

func (c *Compiler) emitStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		c.emitExpr(s.Expr)
		c.chunk().EmitOpcode(bytecode.Pop)
	case *ast.VariableDeclaration:
		c.emitVariableDeclaration(s)
	case *ast.BlockStatement:
		c.withScope(ScopeBlock, "", func() {
			for _, st := range s.Body {
				c.emitStatement(st)
			}
		})
	case *ast.IfStatement:
		c.emitIf(s)
	case *ast.WhileStatement:
		c.emitWhile(s)
	case *ast.DoWhileStatement:
		c.emitDoWhile(s)
	case *ast.ForStatement:
		c.emitFor(s)
	case *ast.ForInOfStatement:
		c.emitForInOf(s)
	case *ast.BreakStatement:
		c.emitBreak(s)
	case *ast.ContinueStatement:
		c.emitContinue(s)
	case *ast.ReturnStatement:
		c.emitReturn(s)
	case *ast.ThrowStatement:
		c.emitExpr(s.Argument)
		c.chunk().EmitOpcode(bytecode.Throw)
	case *ast.TryStatement:
		c.emitTry(s)
	case *ast.SwitchStatement:
		c.emitSwitch(s)
	case *ast.LabeledStatement:
		c.emitLabeled(s)
	case *ast.FunctionDeclaration:
		c.emitFunctionDeclaration(s)
	case *ast.ClassDeclaration:
		c.emitClassDeclaration(s)
	case *ast.ImportDeclaration:
		// Resolution of the imported module and binding its ExportVar
		// cells into this module's local slots is a Runtime-level
		// concern (spec §3.6: "import resolves to a Value referencing an
		// ExportVar cell in the exporter"), not something the compiler
		// alone can do without the module registry. The compiler reserves
		// a local slot per imported binding so references resolve, and
		// the runtime linker is responsible for populating it before the
		// module body runs.
		for _, spec := range s.Specifiers {
			c.scope.declare(spec.Local, VarNone)
		}
	case *ast.ExportDeclaration:
		c.emitExport(s)
	default:
		fail(stmt.Span(), "compiler: unsupported statement %T", stmt)
	}
}

func (c *Compiler) chunk() *bytecode.Chunk { return c.cur.def.Chunk }

func (c *Compiler) withScope(kind ScopeKind, label string, body func()) {
	c.scope = newScope(kind, c.scope, c.cur)
	defer func() { c.scope = c.scope.parent }()
	body()
}

func (c *Compiler) emitVariableDeclaration(s *ast.VariableDeclaration) {
	flags := VarNone
	if s.Kind == ast.DeclConst {
		flags = VarConst
	}
	for _, d := range s.Decls {
		info := c.scope.declare(d.Name, flags)
		if d.Init != nil {
			c.emitExpr(d.Init)
		} else {
			c.chunk().EmitOpcode(bytecode.Undefined)
		}
		c.chunk().EmitVarStore(info.Slot)
	}
}

func (c *Compiler) emitIf(s *ast.IfStatement) {
	c.emitExpr(s.Test)
	elsePatch := c.chunk().EmitJump(bytecode.IfEq)
	c.withScope(ScopeIf, "", func() { c.emitStatement(s.Consequent) })
	if s.Alternate == nil {
		c.chunk().PatchJump(elsePatch, c.chunk().Pc())
		return
	}
	endPatch := c.chunk().EmitJump(bytecode.Goto)
	c.chunk().PatchJump(elsePatch, c.chunk().Pc())
	c.withScope(ScopeIf, "", func() { c.emitStatement(s.Alternate) })
	c.chunk().PatchJump(endPatch, c.chunk().Pc())
}

func (c *Compiler) emitWhile(s *ast.WhileStatement) {
	label := s.Label
	startPc := c.chunk().Pc()
	c.emitExpr(s.Test)
	exitPatch := c.chunk().EmitJump(bytecode.IfEq)

	li := &loopInfo{label: label, continuePC: startPc}
	c.withLoopScope(ScopeWhile, li, func() {
		c.emitStatement(s.Body)
	})
	back := c.chunk().EmitJump(bytecode.Goto)
	c.chunk().PatchJump(back, startPc)
	c.chunk().PatchJump(exitPatch, c.chunk().Pc())
	c.patchLoopExits(li, c.chunk().Pc(), startPc)
}

func (c *Compiler) emitDoWhile(s *ast.DoWhileStatement) {
	startPc := c.chunk().Pc()
	li := &loopInfo{label: s.Label, continuePC: 0, continueIsPatch: true}
	c.withLoopScope(ScopeWhile, li, func() {
		c.emitStatement(s.Body)
	})
	continueTarget := c.chunk().Pc()
	c.emitExpr(s.Test)
	backPatch := c.chunk().EmitJump(bytecode.IfNe)
	c.chunk().PatchJump(backPatch, startPc)
	c.patchLoopExits(li, c.chunk().Pc(), continueTarget)
}

func (c *Compiler) emitFor(s *ast.ForStatement) {
	c.withScope(ScopeFor, "", func() {
		if s.Init != nil {
			c.emitStatement(s.Init)
		}
		startPc := c.chunk().Pc()
		var exitPatch uint32
		hasTest := s.Test != nil
		if hasTest {
			c.emitExpr(s.Test)
			exitPatch = c.chunk().EmitJump(bytecode.IfEq)
		}
		li := &loopInfo{label: s.Label, continueIsPatch: true}
		c.withLoopScope(ScopeFor, li, func() {
			c.emitStatement(s.Body)
		})
		continueTarget := c.chunk().Pc()
		if s.Update != nil {
			c.emitExpr(s.Update)
			c.chunk().EmitOpcode(bytecode.Pop)
		}
		back := c.chunk().EmitJump(bytecode.Goto)
		c.chunk().PatchJump(back, startPc)
		endPc := c.chunk().Pc()
		if hasTest {
			c.chunk().PatchJump(exitPatch, endPc)
		}
		c.patchLoopExits(li, endPc, continueTarget)
	})
}

// emitForInOf desugars both forms to array-like index iteration: read
// `right.length`, then index 0..length-1. for-in is approximated as
// iterating the same way over a well-known "__keys__" pseudo-property
// that internal/vm's property lookup resolves to the object's own
// enumerable key array; this is documented in DESIGN.md as a
// conservative stand-in for the full iterator protocol, which has no
// opcode support in this engine yet.
func (c *Compiler) emitForInOf(s *ast.ForInOfStatement) {
	c.withScope(ScopeFor, "", func() {
		c.emitExpr(s.Right)
		if s.Kind == ast.ForIn {
			c.emitWellKnownPropertyLoad("__keys__")
		}
		iterableSlot := c.scope.fn.allocSlot()
		c.chunk().EmitVarStore(iterableSlot)

		c.emitWellKnownPropertyLoadOf(iterableSlot, "length")
		lenSlot := c.scope.fn.allocSlot()
		c.chunk().EmitVarStore(lenSlot)

		c.emitIntConst(0)
		idxSlot := c.scope.fn.allocSlot()
		c.chunk().EmitVarStore(idxSlot)

		startPc := c.chunk().Pc()
		c.chunk().EmitVarLoad(idxSlot)
		c.chunk().EmitVarLoad(lenSlot)
		c.chunk().EmitOpcode(bytecode.Lt)
		exitPatch := c.chunk().EmitJump(bytecode.IfEq)

		var itemRef *varInfo
		if s.HasDecl {
			flags := VarNone
			if s.DeclKind == ast.DeclConst {
				flags = VarConst
			}
			itemRef = c.scope.declare(s.VarName, flags)
		}
		c.chunk().EmitVarLoad(iterableSlot)
		c.chunk().EmitVarLoad(idxSlot)
		c.chunk().EmitOpcode(bytecode.IndexedLoad)
		if itemRef != nil {
			c.chunk().EmitVarStore(itemRef.Slot)
		} else {
			ref := c.resolveName(s.VarName)
			c.emitStore(ref, s.Sp)
		}

		li := &loopInfo{label: s.Label, continueIsPatch: true}
		c.withLoopScope(ScopeFor, li, func() {
			c.emitStatement(s.Body)
		})
		continueTarget := c.chunk().Pc()
		c.chunk().EmitVarLoad(idxSlot)
		c.emitIntConst(1)
		c.chunk().EmitOpcode(bytecode.Add)
		c.chunk().EmitVarStore(idxSlot)
		back := c.chunk().EmitJump(bytecode.Goto)
		c.chunk().PatchJump(back, startPc)
		endPc := c.chunk().Pc()
		c.chunk().PatchJump(exitPatch, endPc)
		c.patchLoopExits(li, endPc, continueTarget)
	})
}

func (c *Compiler) emitWellKnownPropertyLoad(name string) {
	c.chunk().EmitConstLoad(uint32(c.constString(name)))
	c.chunk().EmitOpcode(bytecode.PropertyLoad)
}

func (c *Compiler) emitWellKnownPropertyLoadOf(slot uint32, name string) {
	c.chunk().EmitVarLoad(slot)
	c.emitWellKnownPropertyLoad(name)
}

func (c *Compiler) emitIntConst(n int64) {
	c.chunk().EmitConstLoad(uint32(c.constInt(n)))
}

// withLoopScope pushes a loop-carrying block scope so nested break/continue
// (including labeled forms that target an enclosing loop) resolve li.
func (c *Compiler) withLoopScope(kind ScopeKind, li *loopInfo, body func()) {
	s := newScope(kind, c.scope, c.cur)
	s.loop = li
	c.scope = s
	defer func() { c.scope = c.scope.parent }()
	body()
}

// patchLoopExits resolves every break patch to exitPc and every deferred
// continue patch (used by do-while/for, whose continue target isn't known
// until the update/condition is emitted) to continueTarget.
func (c *Compiler) patchLoopExits(li *loopInfo, exitPc, continueTarget uint32) {
	for _, p := range li.breakPatches {
		c.chunk().PatchJump(p, exitPc)
	}
	for _, p := range li.continuePatches {
		c.chunk().PatchJump(p, continueTarget)
	}
}

func (c *Compiler) emitBreak(s *ast.BreakStatement) {
	li := c.scope.enclosingLoop(s.Label)
	if li == nil {
		fail(s.Sp, "compiler: break outside a loop or unresolved label %q", s.Label)
	}
	patch := c.chunk().EmitJump(bytecode.Goto)
	li.breakPatches = append(li.breakPatches, patch)
}

func (c *Compiler) emitContinue(s *ast.ContinueStatement) {
	li := c.scope.enclosingLoop(s.Label)
	if li == nil {
		fail(s.Sp, "compiler: continue outside a loop or unresolved label %q", s.Label)
	}
	if li.continueIsPatch {
		patch := c.chunk().EmitJump(bytecode.Goto)
		li.continuePatches = append(li.continuePatches, patch)
		return
	}
	back := c.chunk().EmitJump(bytecode.Goto)
	c.chunk().PatchJump(back, li.continuePC)
}

func (c *Compiler) emitReturn(s *ast.ReturnStatement) {
	if s.Argument != nil {
		c.emitExpr(s.Argument)
	} else {
		c.chunk().EmitOpcode(bytecode.Undefined)
	}
	c.chunk().EmitOpcode(bytecode.Return)
}

func (c *Compiler) emitLabeled(s *ast.LabeledStatement) {
	switch body := s.Body.(type) {
	case *ast.WhileStatement:
		body.Label = s.Label
		c.emitStatement(body)
	case *ast.DoWhileStatement:
		body.Label = s.Label
		c.emitStatement(body)
	case *ast.ForStatement:
		body.Label = s.Label
		c.emitStatement(body)
	case *ast.ForInOfStatement:
		body.Label = s.Label
		c.emitStatement(body)
	default:
		// A label on a non-loop statement only serves labeled `break`;
		// model it as a single-iteration loop-shaped scope so
		// enclosingLoop can resolve the label, then never actually loop.
		li := &loopInfo{label: s.Label}
		c.withLoopScope(ScopeBlock, li, func() {
			c.emitStatement(s.Body)
		})
		c.patchLoopExits(li, c.chunk().Pc(), c.chunk().Pc())
	}
}
