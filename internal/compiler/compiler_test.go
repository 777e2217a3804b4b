package compiler

import (
	"strings"
	"testing"

	"jsvm/internal/ast"
	"jsvm/internal/bytecode"
	"jsvm/internal/constpool"
	"jsvm/internal/token"
	"jsvm/internal/value"
)

func sp() token.Span { return token.Span{} }

func newTestCompiler() *Compiler {
	return New(constpool.NewGlobal(), constpool.NewLocal())
}

func TestVariableDeclarationLoadStore(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.VariableDeclaration{Sp: sp(), Kind: ast.DeclLet, Decls: []ast.VariableDeclarator{
			{Name: "x", Init: &ast.IntegerLiteral{Sp: sp(), Value: 1}},
		}},
		&ast.ExpressionStatement{Sp: sp(), Expr: &ast.Identifier{Sp: sp(), Name: "x"}},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	lines := def.Chunk.DisassembleAll()
	if len(lines) == 0 {
		t.Fatal("expected non-empty disassembly")
	}
	storeIdx, loadIdx := -1, -1
	for i, l := range lines {
		if strings.Contains(l, "vstore_0") {
			storeIdx = i
		}
		if strings.Contains(l, "vload_0") {
			loadIdx = i
		}
	}
	if storeIdx == -1 {
		t.Errorf("expected a vstore_0 for x's declaration, got %v", lines)
	}
	if loadIdx == -1 {
		t.Errorf("expected a vload_0 for x's reference, got %v", lines)
	}
	if storeIdx != -1 && loadIdx != -1 && loadIdx <= storeIdx {
		t.Errorf("expected the load to follow the store, got %v", lines)
	}
	if def.LocalCount != 1 {
		t.Errorf("expected 1 local slot, got %d", def.LocalCount)
	}
}

func TestIfElseBranchingProducesValidJumps(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.IfStatement{
			Sp:   sp(),
			Test: &ast.Identifier{Sp: sp(), Name: "cond"},
			Consequent: &ast.ExpressionStatement{Sp: sp(), Expr: &ast.IntegerLiteral{Sp: sp(), Value: 1}},
			Alternate:  &ast.ExpressionStatement{Sp: sp(), Expr: &ast.IntegerLiteral{Sp: sp(), Value: 2}},
		},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	// A malformed jump target (e.g. out of [0, len(bytes)]) would panic
	// inside Disassemble via an out-of-bounds slice read; reaching here
	// without panicking demonstrates both branches were patched correctly.
	lines := def.Chunk.DisassembleAll()
	if len(lines) == 0 {
		t.Fatal("expected disassembled instructions")
	}
}

func TestWhileLoopBreakAndContinuePatchToLoopBounds(t *testing.T) {
	// while (cond) { if (skip) continue; if (stop) break; }
	body := &ast.BlockStatement{Sp: sp(), Body: []ast.Statement{
		&ast.IfStatement{
			Sp:         sp(),
			Test:       &ast.Identifier{Sp: sp(), Name: "skip"},
			Consequent: &ast.ContinueStatement{Sp: sp()},
		},
		&ast.IfStatement{
			Sp:         sp(),
			Test:       &ast.Identifier{Sp: sp(), Name: "stop"},
			Consequent: &ast.BreakStatement{Sp: sp()},
		},
	}}
	prog := &ast.Program{Body: []ast.Statement{
		&ast.WhileStatement{Sp: sp(), Test: &ast.Identifier{Sp: sp(), Name: "cond"}, Body: body},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(def.Chunk.DisassembleAll()) == 0 {
		t.Fatal("expected disassembled instructions")
	}
}

func TestTryCatchFinallyRegistersExceptionTableEntry(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.TryStatement{
			Sp: sp(),
			Block: &ast.BlockStatement{Sp: sp(), Body: []ast.Statement{
				&ast.ThrowStatement{Sp: sp(), Argument: &ast.StringLiteral{Sp: sp(), Value: "boom"}},
			}},
			Handler: &ast.CatchClause{
				Param: "e",
				Body: &ast.BlockStatement{Sp: sp(), Body: []ast.Statement{
					&ast.ExpressionStatement{Sp: sp(), Expr: &ast.Identifier{Sp: sp(), Name: "e"}},
				}},
			},
			Finally: &ast.BlockStatement{Sp: sp(), Body: []ast.Statement{
				&ast.ExpressionStatement{Sp: sp(), Expr: &ast.IntegerLiteral{Sp: sp(), Value: 0}},
			}},
		},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	if len(def.Chunk.Exception) != 1 {
		t.Fatalf("expected exactly one exception table entry, got %d", len(def.Chunk.Exception))
	}
	entry := def.Chunk.Exception[0]
	if !entry.HasCatch() {
		t.Error("expected entry to have a catch handler")
	}
	if !entry.HasFinally() {
		t.Error("expected entry to have a finally handler")
	}
	if entry.TryStartPC >= entry.TryEndPC {
		t.Errorf("expected a non-empty try range, got [%d, %d)", entry.TryStartPC, entry.TryEndPC)
	}
	if entry.CatchStartPC >= entry.CatchEndPC {
		t.Errorf("expected a non-empty catch range, got [%d, %d)", entry.CatchStartPC, entry.CatchEndPC)
	}
	if entry.FinallyStartPC >= entry.FinallyEndPC {
		t.Errorf("expected a non-empty finally range, got [%d, %d)", entry.FinallyStartPC, entry.FinallyEndPC)
	}
}

func TestFunctionDeclarationCompilesNestedFunctionDef(t *testing.T) {
	// function f() { return 1; }
	fn := &ast.FunctionExpression{
		Sp:   sp(),
		Name: "f",
		Body: []ast.Statement{
			&ast.ReturnStatement{Sp: sp(), Argument: &ast.IntegerLiteral{Sp: sp(), Value: 1}},
		},
	}
	prog := &ast.Program{Body: []ast.Statement{
		&ast.FunctionDeclaration{Sp: sp(), Function: fn},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	// The outer script stores the compiled closure/const into f's slot;
	// the opcode at pc 0 should be one of the narrowest-fit const-load
	// forms (f has no captures, so it must not be emitted as a Closure).
	switch def.Chunk.GetOpcode(0) {
	case bytecode.CLoad0, bytecode.CLoad1, bytecode.CLoad2, bytecode.CLoad3, bytecode.CLoad4, bytecode.CLoad5,
		bytecode.CLoad, bytecode.CLoadW, bytecode.CLoadD:
	default:
		t.Fatalf("expected a const-load opcode for the function literal, got %s", def.Chunk.GetOpcode(0))
	}
}

func TestClosureCapturesOuterLocalAcrossTwoLevels(t *testing.T) {
	// function outer() {
	//   let x = 1;
	//   function middle() {
	//     function inner() { return x; }
	//     return inner;
	//   }
	//   return middle;
	// }
	inner := &ast.FunctionExpression{
		Sp:   sp(),
		Name: "inner",
		Body: []ast.Statement{
			&ast.ReturnStatement{Sp: sp(), Argument: &ast.Identifier{Sp: sp(), Name: "x"}},
		},
	}
	middle := &ast.FunctionExpression{
		Sp:   sp(),
		Name: "middle",
		Body: []ast.Statement{
			&ast.FunctionDeclaration{Sp: sp(), Function: inner},
			&ast.ReturnStatement{Sp: sp(), Argument: &ast.Identifier{Sp: sp(), Name: "inner"}},
		},
	}
	outer := &ast.FunctionExpression{
		Sp:   sp(),
		Name: "outer",
		Body: []ast.Statement{
			&ast.VariableDeclaration{Sp: sp(), Kind: ast.DeclLet, Decls: []ast.VariableDeclarator{
				{Name: "x", Init: &ast.IntegerLiteral{Sp: sp(), Value: 1}},
			}},
			&ast.FunctionDeclaration{Sp: sp(), Function: middle},
			&ast.ReturnStatement{Sp: sp(), Argument: &ast.Identifier{Sp: sp(), Name: "middle"}},
		},
	}
	prog := &ast.Program{Body: []ast.Statement{
		&ast.FunctionDeclaration{Sp: sp(), Function: outer},
	}}

	global := constpool.NewGlobal()
	c := New(global, constpool.NewLocal())
	_, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	middleDef := findFunctionDefByName(t, global, "middle")
	innerDef := findFunctionDefByName(t, global, "inner")

	if len(middleDef.ClosureVars) != 1 {
		t.Fatalf("expected middle to materialize one closure-var hop, got %d", len(middleDef.ClosureVars))
	}
	if !middleDef.ClosureVars[0].FromParentSlot {
		t.Error("expected middle's closure-var entry to reference outer's local slot directly")
	}
	if len(innerDef.ClosureVars) != 1 {
		t.Fatalf("expected inner to materialize one closure-var hop, got %d", len(innerDef.ClosureVars))
	}
	if innerDef.ClosureVars[0].FromParentSlot {
		t.Error("expected inner's closure-var entry to reference middle's own closure index, not a slot directly")
	}
}

// findFunctionDefByName scans every FunctionDef constant in the global pool
// looking for one with the given Name, reading each slot back through
// constpool.Global.Get (emitFunctionLiteral interns every compiled
// FunctionDef into the global pool).
func findFunctionDefByName(t *testing.T, g *constpool.Global, name string) *FunctionDef {
	t.Helper()
	for i := 0; i < g.Size(); i++ {
		v := g.Get(constpool.ConstIndex(i))
		if v.Kind() != value.KindFunctionDef {
			continue
		}
		def := v.Heap().(*FunctionDef)
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("no FunctionDef named %q found in global pool", name)
	return nil
}

func TestClassDeclarationInstallsMethodsOnPrototype(t *testing.T) {
	method := &ast.FunctionExpression{
		Sp:   sp(),
		Name: "greet",
		Body: []ast.Statement{
			&ast.ReturnStatement{Sp: sp(), Argument: &ast.StringLiteral{Sp: sp(), Value: "hi"}},
		},
	}
	class := &ast.ClassExpression{
		Sp:   sp(),
		Name: "Greeter",
		Methods: []ast.ClassMethod{
			{Key: &ast.Identifier{Sp: sp(), Name: "greet"}, Kind: ast.MethodNormal, Function: method},
		},
	}
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ClassDeclaration{Sp: sp(), Class: class},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	found := false
	for _, l := range def.Chunk.DisassembleAll() {
		if strings.Contains(l, "propertystore") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a propertystore installing greet on Greeter.prototype, got %v", def.Chunk.DisassembleAll())
	}
}

func TestForOfDesugarsToIndexedIteration(t *testing.T) {
	prog := &ast.Program{Body: []ast.Statement{
		&ast.ForInOfStatement{
			Sp:      sp(),
			Kind:    ast.ForOf,
			HasDecl: true,
			VarName: "item",
			Right:   &ast.Identifier{Sp: sp(), Name: "items"},
			Body: &ast.ExpressionStatement{Sp: sp(), Expr: &ast.Identifier{Sp: sp(), Name: "item"}},
		},
	}}

	c := newTestCompiler()
	def, err := c.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	found := false
	for _, l := range def.Chunk.DisassembleAll() {
		if strings.Contains(l, "indexedload") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an indexedload for the desugared for-of element read, got %v", def.Chunk.DisassembleAll())
	}
}
