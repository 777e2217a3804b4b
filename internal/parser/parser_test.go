package parser

import (
	"testing"

	"jsvm/internal/ast"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(src)
	prog, err := p.ParseProgram(false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestParseVariableDeclaration(t *testing.T) {
	prog := parseProgram(t, "let x = 1 + 2;")
	if len(prog.Body) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Body))
	}
	decl, ok := prog.Body[0].(*ast.VariableDeclaration)
	if !ok {
		t.Fatalf("expected VariableDeclaration, got %T", prog.Body[0])
	}
	if decl.Kind != ast.DeclLet || len(decl.Decls) != 1 || decl.Decls[0].Name != "x" {
		t.Fatalf("unexpected decl: %+v", decl)
	}
	bin, ok := decl.Decls[0].Init.(*ast.BinaryExpression)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("expected x = 1 + 2, got %+v", decl.Decls[0].Init)
	}
}

func TestParseConstRequiresInitializer(t *testing.T) {
	p := New("const x;")
	if _, err := p.ParseProgram(false); err == nil {
		t.Fatal("expected error for const without initializer")
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parseProgram(t, "if (a) { b; } else { c; }")
	stmt, ok := prog.Body[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %T", prog.Body[0])
	}
	if stmt.Consequent == nil || stmt.Alternate == nil {
		t.Fatal("expected both branches parsed")
	}
}

func TestParseForClassic(t *testing.T) {
	prog := parseProgram(t, "for (let i = 0; i < 10; i = i + 1) { x; }")
	forStmt, ok := prog.Body[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected ForStatement, got %T", prog.Body[0])
	}
	if forStmt.Init == nil || forStmt.Test == nil || forStmt.Update == nil {
		t.Fatal("expected all three clauses present")
	}
}

func TestParseForOf(t *testing.T) {
	prog := parseProgram(t, "for (const item of items) { use(item); }")
	forOf, ok := prog.Body[0].(*ast.ForInOfStatement)
	if !ok {
		t.Fatalf("expected ForInOfStatement, got %T", prog.Body[0])
	}
	if forOf.Kind != ast.ForOf || forOf.VarName != "item" || !forOf.HasDecl {
		t.Fatalf("unexpected for-of: %+v", forOf)
	}
}

func TestParseForInExistingBinding(t *testing.T) {
	prog := parseProgram(t, "for (key in obj) { use(key); }")
	forIn, ok := prog.Body[0].(*ast.ForInOfStatement)
	if !ok {
		t.Fatalf("expected ForInOfStatement, got %T", prog.Body[0])
	}
	if forIn.Kind != ast.ForIn || forIn.HasDecl || forIn.VarName != "key" {
		t.Fatalf("unexpected for-in: %+v", forIn)
	}
}

func TestParseArrowFunctionExpressionBody(t *testing.T) {
	prog := parseProgram(t, "let f = (x, y) => x + y;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn, ok := decl.Decls[0].Init.(*ast.FunctionExpression)
	if !ok || !fn.IsArrow {
		t.Fatalf("expected arrow function, got %+v", decl.Decls[0].Init)
	}
	if len(fn.Params) != 2 || fn.ExprBody == nil {
		t.Fatalf("unexpected arrow params/body: %+v", fn)
	}
}

func TestParseArrowFunctionSingleBareParam(t *testing.T) {
	prog := parseProgram(t, "let f = x => x * 2;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn, ok := decl.Decls[0].Init.(*ast.FunctionExpression)
	if !ok || !fn.IsArrow || len(fn.Params) != 1 || fn.Params[0].Name != "x" {
		t.Fatalf("unexpected arrow: %+v", decl.Decls[0].Init)
	}
}

func TestParseParenthesizedExpressionNotArrow(t *testing.T) {
	prog := parseProgram(t, "let f = (x + 1);")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	if _, ok := decl.Decls[0].Init.(*ast.FunctionExpression); ok {
		t.Fatal("expected a grouped expression, not an arrow function")
	}
	if _, ok := decl.Decls[0].Init.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected BinaryExpression, got %T", decl.Decls[0].Init)
	}
}

func TestParseArrowWithBlockBody(t *testing.T) {
	prog := parseProgram(t, "let f = (x) => { return x; };")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	fn := decl.Decls[0].Init.(*ast.FunctionExpression)
	if fn.ExprBody != nil || len(fn.Body) != 1 {
		t.Fatalf("expected block body with one statement, got %+v", fn)
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	prog := parseProgram(t, "function add(a, b) { return a + b; }")
	decl, ok := prog.Body[0].(*ast.FunctionDeclaration)
	if !ok {
		t.Fatalf("expected FunctionDeclaration, got %T", prog.Body[0])
	}
	if decl.Function.Name != "add" || len(decl.Function.Params) != 2 {
		t.Fatalf("unexpected function: %+v", decl.Function)
	}
}

func TestParseClassWithMethodsAndFields(t *testing.T) {
	src := `class Point extends Base {
		x = 0;
		constructor(x, y) { this.x = x; }
		get sum() { return this.x; }
		static create() { return new Point(1, 2); }
	}`
	prog := parseProgram(t, src)
	decl, ok := prog.Body[0].(*ast.ClassDeclaration)
	if !ok {
		t.Fatalf("expected ClassDeclaration, got %T", prog.Body[0])
	}
	cls := decl.Class
	if cls.Name != "Point" || cls.Super == nil {
		t.Fatalf("unexpected class header: %+v", cls)
	}
	if len(cls.Fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(cls.Fields))
	}
	if len(cls.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(cls.Methods))
	}
	foundCtor, foundGetter, foundStatic := false, false, false
	for _, m := range cls.Methods {
		switch m.Kind {
		case ast.MethodConstructor:
			foundCtor = true
		case ast.MethodGetter:
			foundGetter = true
		}
		if m.Static {
			foundStatic = true
		}
	}
	if !foundCtor || !foundGetter || !foundStatic {
		t.Fatalf("missing expected method kinds: %+v", cls.Methods)
	}
}

func TestParseTryCatchFinally(t *testing.T) {
	prog := parseProgram(t, "try { a(); } catch (e) { b(e); } finally { c(); }")
	stmt, ok := prog.Body[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("expected TryStatement, got %T", prog.Body[0])
	}
	if stmt.Handler == nil || stmt.Handler.Param != "e" || stmt.Finally == nil {
		t.Fatalf("unexpected try statement: %+v", stmt)
	}
}

func TestParseSwitchStatement(t *testing.T) {
	src := `switch (x) {
		case 1: a(); break;
		case 2: b(); break;
		default: c();
	}`
	prog := parseProgram(t, src)
	stmt, ok := prog.Body[0].(*ast.SwitchStatement)
	if !ok {
		t.Fatalf("expected SwitchStatement, got %T", prog.Body[0])
	}
	if len(stmt.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(stmt.Cases))
	}
	if stmt.Cases[2].Test != nil {
		t.Fatal("expected default case to have a nil test")
	}
}

func TestParseTemplateLiteral(t *testing.T) {
	prog := parseProgram(t, "let s = `hello ${name} and ${other}!`;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	tl, ok := decl.Decls[0].Init.(*ast.TemplateLiteral)
	if !ok {
		t.Fatalf("expected TemplateLiteral, got %T", decl.Decls[0].Init)
	}
	if len(tl.Quasis) != 3 || len(tl.Expressions) != 2 {
		t.Fatalf("unexpected template shape: %+v", tl)
	}
}

func TestParseObjectLiteralShorthandAndMethods(t *testing.T) {
	prog := parseProgram(t, "let o = { x, y: 1, greet() { return 1; }, get z() { return 2; } };")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	obj, ok := decl.Decls[0].Init.(*ast.ObjectLiteral)
	if !ok {
		t.Fatalf("expected ObjectLiteral, got %T", decl.Decls[0].Init)
	}
	if len(obj.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(obj.Properties))
	}
	if obj.Properties[0].Kind != ast.PropInit {
		t.Fatalf("expected shorthand property to be PropInit, got %v", obj.Properties[0].Kind)
	}
	if obj.Properties[2].Kind != ast.PropMethod {
		t.Fatalf("expected method property, got %v", obj.Properties[2].Kind)
	}
	if obj.Properties[3].Kind != ast.PropGetter {
		t.Fatalf("expected getter property, got %v", obj.Properties[3].Kind)
	}
}

func TestParseArrayLiteralWithHolesAndSpread(t *testing.T) {
	prog := parseProgram(t, "let a = [1, , 3, ...rest];")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	arr, ok := decl.Decls[0].Init.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected ArrayLiteral, got %T", decl.Decls[0].Init)
	}
	if len(arr.Elements) != 4 {
		t.Fatalf("expected 4 elements, got %d", len(arr.Elements))
	}
	if arr.Elements[1] != nil {
		t.Fatal("expected elision hole at index 1")
	}
	if _, ok := arr.Elements[3].(*ast.SpreadElement); !ok {
		t.Fatalf("expected SpreadElement at index 3, got %T", arr.Elements[3])
	}
}

func TestParseOptionalChainingAndNullish(t *testing.T) {
	prog := parseProgram(t, "let v = a?.b?.c ?? fallback;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	logical, ok := decl.Decls[0].Init.(*ast.LogicalExpression)
	if !ok || logical.Op != ast.LogicalNullish {
		t.Fatalf("expected nullish coalescing, got %+v", decl.Decls[0].Init)
	}
	member, ok := logical.Left.(*ast.MemberExpression)
	if !ok || !member.Optional {
		t.Fatalf("expected optional member chain, got %+v", logical.Left)
	}
}

func TestParseNewExpressionDoesNotSwallowFollowingCall(t *testing.T) {
	prog := parseProgram(t, "let v = new Foo().bar();")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	call, ok := decl.Decls[0].Init.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression at top, got %T", decl.Decls[0].Init)
	}
	member, ok := call.Callee.(*ast.MemberExpression)
	if !ok {
		t.Fatalf("expected member callee, got %T", call.Callee)
	}
	if _, ok := member.Object.(*ast.NewExpression); !ok {
		t.Fatalf("expected new expression as member object, got %T", member.Object)
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	prog := parseProgram(t, "let v = 1 + 2 * 3;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	bin, ok := decl.Decls[0].Init.(*ast.BinaryExpression)
	if !ok || bin.Op != ast.BinAdd {
		t.Fatalf("expected top-level addition, got %+v", decl.Decls[0].Init)
	}
	rhs, ok := bin.Right.(*ast.BinaryExpression)
	if !ok || rhs.Op != ast.BinMul {
		t.Fatalf("expected multiplication nested on the right, got %+v", bin.Right)
	}
}

func TestParseExponentiationRightAssociative(t *testing.T) {
	prog := parseProgram(t, "let v = 2 ** 3 ** 2;")
	decl := prog.Body[0].(*ast.VariableDeclaration)
	bin, ok := decl.Decls[0].Init.(*ast.BinaryExpression)
	if !ok || bin.Op != ast.BinExp {
		t.Fatalf("expected exponent at top, got %+v", decl.Decls[0].Init)
	}
	if _, ok := bin.Right.(*ast.BinaryExpression); !ok {
		t.Fatalf("expected right-associative nesting, got %+v", bin.Right)
	}
	if _, ok := bin.Left.(*ast.IntegerLiteral); !ok {
		t.Fatalf("expected literal on the left, got %+v", bin.Left)
	}
}

func TestParseLabeledBreak(t *testing.T) {
	prog := parseProgram(t, "outer: while (true) { break outer; }")
	labeled, ok := prog.Body[0].(*ast.LabeledStatement)
	if !ok {
		t.Fatalf("expected LabeledStatement, got %T", prog.Body[0])
	}
	while, ok := labeled.Body.(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected WhileStatement body, got %T", labeled.Body)
	}
	block := while.Body.(*ast.BlockStatement)
	brk := block.Body[0].(*ast.BreakStatement)
	if brk.Label != "outer" {
		t.Fatalf("expected break label 'outer', got %q", brk.Label)
	}
}

func TestParseImportAndExport(t *testing.T) {
	prog, err := New(`import { a, b as c } from "mod"; export default a;`).ParseProgram(true)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	imp, ok := prog.Body[0].(*ast.ImportDeclaration)
	if !ok {
		t.Fatalf("expected ImportDeclaration, got %T", prog.Body[0])
	}
	if len(imp.Specifiers) != 2 || imp.Specifiers[1].Imported != "b" || imp.Specifiers[1].Local != "c" {
		t.Fatalf("unexpected import specifiers: %+v", imp.Specifiers)
	}
	exp, ok := prog.Body[1].(*ast.ExportDeclaration)
	if !ok {
		t.Fatalf("expected ExportDeclaration, got %T", prog.Body[1])
	}
	if exp.Default == nil {
		t.Fatal("expected default export expression")
	}
}
