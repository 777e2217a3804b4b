// Package parser implements the recursive-descent, precedence-climbing
// parser of spec §4.2: tokens to AST, with checkpoint/rewind-based
// arrow-function disambiguation.
package parser

import (
	"strconv"

	"jsvm/internal/ast"
	"jsvm/internal/jserr"
	"jsvm/internal/lexer"
	"jsvm/internal/token"
)

// Parser turns a token stream into an ast.Program.
type Parser struct {
	lex *lexer.Lexer
}

// New creates a Parser over src.
func New(src string) *Parser {
	return &Parser{lex: lexer.New(src)}
}

// ParseProgram parses a full source unit. isModule controls whether
// import/export declarations are accepted at the top level.
func (p *Parser) ParseProgram(isModule bool) (*ast.Program, error) {
	var body []ast.Statement
	for {
		tok, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.EOF {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return &ast.Program{Body: body, Module: isModule}, nil
}

func (p *Parser) pos() (jserr.Position, error) {
	tok, err := p.lex.Peek()
	if err != nil {
		return jserr.Position{}, err
	}
	return jserr.Position{Line: tok.Span.Line, Offset: tok.Span.Start}, nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	pos, _ := p.pos()
	return jserr.NewSyntaxError(pos, format, args...)
}

func (p *Parser) peek() (token.Token, error)  { return p.lex.Peek() }
func (p *Parser) peekN(n int) (token.Token, error) { return p.lex.PeekN(n) }
func (p *Parser) next() (token.Token, error)  { return p.lex.Next() }

func (p *Parser) at(k token.Kind) bool {
	tok, err := p.lex.Peek()
	return err == nil && tok.Kind == k
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	tok, err := p.next()
	if err != nil {
		return token.Token{}, err
	}
	if tok.Kind != k {
		return token.Token{}, p.errorf("expected %s, got %s", k, tok.Kind)
	}
	return tok, nil
}

// consumeSemicolon implements JS automatic-semicolon-insertion loosely: an
// explicit `;` is consumed if present, otherwise the statement simply ends.
// This engine does not track newline-before-token at the parser layer, so a
// missing semicolon is accepted before any following token, not only before
// `}`, EOF or a new line — a pragmatic relaxation, not full ASI.
func (p *Parser) consumeSemicolon() error {
	if p.at(token.Semicolon) {
		_, err := p.next()
		return err
	}
	return nil
}

// ---- Statements ----

func (p *Parser) parseStatement() (ast.Statement, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.Let, token.Const, token.Var:
		return p.parseVariableDeclaration()
	case token.Function:
		return p.parseFunctionDeclaration()
	case token.Async:
		if nt, _ := p.peekN(2); nt.Kind == token.Function {
			return p.parseFunctionDeclaration()
		}
	case token.Class:
		return p.parseClassDeclaration()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile("")
	case token.Do:
		return p.parseDoWhile("")
	case token.For:
		return p.parseFor("")
	case token.Break:
		return p.parseBreak()
	case token.Continue:
		return p.parseContinue()
	case token.Return:
		return p.parseReturn()
	case token.Throw:
		return p.parseThrow()
	case token.Try:
		return p.parseTry()
	case token.Switch:
		return p.parseSwitch()
	case token.Import:
		return p.parseImport()
	case token.Export:
		return p.parseExport()
	case token.Semicolon:
		sp := tok.Span
		p.next()
		return &ast.ExpressionStatement{Expr: &ast.UndefinedLiteral{Sp: sp}, Sp: sp}, nil
	case token.Ident:
		if nt, _ := p.peekN(2); nt.Kind == token.Colon {
			return p.parseLabeled()
		}
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	start, _ := p.expect(token.LBrace)
	var body []ast.Statement
	for !p.at(token.RBrace) {
		if p.at(token.EOF) {
			return nil, p.errorf("unterminated block")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.BlockStatement{Body: body, Sp: span(start, end)}, nil
}

func span(start, end token.Token) token.Span {
	return token.Span{Start: start.Span.Start, End: end.Span.End, Line: start.Span.Line}
}

func (p *Parser) parseVariableDeclaration() (*ast.VariableDeclaration, error) {
	tok, _ := p.next()
	var kind ast.DeclKind
	switch tok.Kind {
	case token.Let:
		kind = ast.DeclLet
	case token.Const:
		kind = ast.DeclConst
	default:
		kind = ast.DeclVar
	}
	var decls []ast.VariableDeclarator
	for {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		var init ast.Expression
		if p.at(token.Assign) {
			p.next()
			init, err = p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
		} else if kind == ast.DeclConst {
			return nil, p.errorf("missing initializer in const declaration")
		}
		decls = append(decls, ast.VariableDeclarator{Name: nameTok.Value, Init: init})
		if p.at(token.Comma) {
			p.next()
			continue
		}
		break
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.VariableDeclaration{Kind: kind, Decls: decls, Sp: tok.Span}, nil
}

func (p *Parser) parseFunctionDeclaration() (*ast.FunctionDeclaration, error) {
	start, _ := p.peek()
	fn, err := p.parseFunctionExpression(true)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDeclaration{Function: fn, Sp: start.Span}, nil
}

func (p *Parser) parseClassDeclaration() (*ast.ClassDeclaration, error) {
	start, _ := p.peek()
	cls, err := p.parseClassExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ClassDeclaration{Class: cls, Sp: start.Span}, nil
}

func (p *Parser) parseIf() (*ast.IfStatement, error) {
	start, _ := p.next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var alt ast.Statement
	if p.at(token.Else) {
		p.next()
		alt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStatement{Test: test, Consequent: cons, Alternate: alt, Sp: start.Span}, nil
}

func (p *Parser) parseWhile(label string) (*ast.WhileStatement, error) {
	start, _ := p.next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Test: test, Body: body, Label: label, Sp: start.Span}, nil
}

func (p *Parser) parseDoWhile(label string) (*ast.DoWhileStatement, error) {
	start, _ := p.next()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.While); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.DoWhileStatement{Test: test, Body: body, Label: label, Sp: start.Span}, nil
}

func (p *Parser) parseFor(label string) (ast.Statement, error) {
	start, _ := p.next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	// for (let/const/var x in/of expr) ...
	if p.at(token.Let) || p.at(token.Const) || p.at(token.Var) {
		kindTok, _ := p.next()
		var declKind ast.DeclKind
		switch kindTok.Kind {
		case token.Let:
			declKind = ast.DeclLet
		case token.Const:
			declKind = ast.DeclConst
		default:
			declKind = ast.DeclVar
		}
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		if p.at(token.In) {
			p.next()
			right, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.ForInOfStatement{Kind: ast.ForIn, HasDecl: true, DeclKind: declKind, VarName: nameTok.Value, Right: right, Body: body, Label: label, Sp: start.Span}, nil
		}
		if isOfIdent(p) {
			p.next()
			right, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			body, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			return &ast.ForInOfStatement{Kind: ast.ForOf, HasDecl: true, DeclKind: declKind, VarName: nameTok.Value, Right: right, Body: body, Label: label, Sp: start.Span}, nil
		}
		// Regular three-clause for with a declaration init.
		var init ast.Expression
		if p.at(token.Assign) {
			p.next()
			init, err = p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
		}
		decls := []ast.VariableDeclarator{{Name: nameTok.Value, Init: init}}
		for p.at(token.Comma) {
			p.next()
			nt, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			var di ast.Expression
			if p.at(token.Assign) {
				p.next()
				di, err = p.parseAssignmentExpression()
				if err != nil {
					return nil, err
				}
			}
			decls = append(decls, ast.VariableDeclarator{Name: nt.Value, Init: di})
		}
		initStmt := &ast.VariableDeclaration{Kind: declKind, Decls: decls, Sp: kindTok.Span}
		if _, err := p.expect(token.Semicolon); err != nil {
			return nil, err
		}
		return p.finishClassicFor(start, initStmt, label)
	}

	// for (;;) or for (expr; ...) or for (existingBinding in/of expr) ...
	var initStmt ast.Statement
	if !p.at(token.Semicolon) {
		var expr ast.Expression
		var err error
		if nt, _ := p.peekN(2); p.at(token.Ident) && nt.Kind == token.In {
			// Take the bare binding alone so `in` is not parsed as a
			// relational operator.
			identTok, _ := p.next()
			expr = &ast.Identifier{Name: identTok.Value, Sp: identTok.Span}
		} else if expr, err = p.parseExpression(); err != nil {
			return nil, err
		}
		if ident, ok := expr.(*ast.Identifier); ok {
			if p.at(token.In) {
				p.next()
				right, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RParen); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				return &ast.ForInOfStatement{Kind: ast.ForIn, VarName: ident.Name, Right: right, Body: body, Label: label, Sp: start.Span}, nil
			}
			if isOfIdent(p) {
				p.next()
				right, err := p.parseAssignmentExpression()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RParen); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				return &ast.ForInOfStatement{Kind: ast.ForOf, VarName: ident.Name, Right: right, Body: body, Label: label, Sp: start.Span}, nil
			}
		}
		initStmt = &ast.ExpressionStatement{Expr: expr, Sp: expr.Span()}
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	return p.finishClassicFor(start, initStmt, label)
}

// isOfIdent reports (without consuming) whether the current token is the
// contextual keyword `of` used in for-of loops; `of` lexes as a plain
// Ident since it is not in the reserved keyword table.
func isOfIdent(p *Parser) bool {
	tok, err := p.peek()
	return err == nil && tok.Kind == token.Ident && tok.Value == "of"
}

func (p *Parser) finishClassicFor(start token.Token, init ast.Statement, label string) (*ast.ForStatement, error) {
	var test ast.Expression
	var err error
	if !p.at(token.Semicolon) {
		test, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Semicolon); err != nil {
		return nil, err
	}
	var update ast.Expression
	if !p.at(token.RParen) {
		update, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ForStatement{Init: init, Test: test, Update: update, Body: body, Label: label, Sp: start.Span}, nil
}

func (p *Parser) parseBreak() (*ast.BreakStatement, error) {
	start, _ := p.next()
	label := ""
	if p.at(token.Ident) {
		tok, _ := p.next()
		label = tok.Value
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.BreakStatement{Label: label, Sp: start.Span}, nil
}

func (p *Parser) parseContinue() (*ast.ContinueStatement, error) {
	start, _ := p.next()
	label := ""
	if p.at(token.Ident) {
		tok, _ := p.next()
		label = tok.Value
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ContinueStatement{Label: label, Sp: start.Span}, nil
}

func (p *Parser) parseReturn() (*ast.ReturnStatement, error) {
	start, _ := p.next()
	var arg ast.Expression
	if !p.at(token.Semicolon) && !p.at(token.RBrace) && !p.at(token.EOF) {
		var err error
		arg, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Argument: arg, Sp: start.Span}, nil
}

func (p *Parser) parseThrow() (*ast.ThrowStatement, error) {
	start, _ := p.next()
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ThrowStatement{Argument: arg, Sp: start.Span}, nil
}

func (p *Parser) parseTry() (*ast.TryStatement, error) {
	start, _ := p.next()
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var handler *ast.CatchClause
	var finallyBlock *ast.BlockStatement
	if p.at(token.Catch) {
		p.next()
		param := ""
		if p.at(token.LParen) {
			p.next()
			nt, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			param = nt.Value
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		handler = &ast.CatchClause{Param: param, Body: body}
	}
	if p.at(token.Finally) {
		p.next()
		finallyBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	if handler == nil && finallyBlock == nil {
		return nil, p.errorf("missing catch or finally after try")
	}
	return &ast.TryStatement{Block: block, Handler: handler, Finally: finallyBlock, Sp: start.Span}, nil
}

func (p *Parser) parseSwitch() (*ast.SwitchStatement, error) {
	start, _ := p.next()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	disc, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	var cases []ast.SwitchCase
	for !p.at(token.RBrace) {
		var test ast.Expression
		if p.at(token.Case) {
			p.next()
			test, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		} else {
			if _, err := p.expect(token.Default); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		var body []ast.Statement
		for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) {
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}
			body = append(body, stmt)
		}
		cases = append(cases, ast.SwitchCase{Test: test, Body: body})
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return &ast.SwitchStatement{Discriminant: disc, Cases: cases, Sp: start.Span}, nil
}

func (p *Parser) parseLabeled() (ast.Statement, error) {
	nameTok, _ := p.next()
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	var body ast.Statement
	var err error
	switch {
	case p.at(token.For):
		body, err = p.parseFor(nameTok.Value)
	case p.at(token.While):
		body, err = p.parseWhile(nameTok.Value)
	case p.at(token.Do):
		body, err = p.parseDoWhile(nameTok.Value)
	default:
		body, err = p.parseStatement()
	}
	if err != nil {
		return nil, err
	}
	return &ast.LabeledStatement{Label: nameTok.Value, Body: body, Sp: nameTok.Span}, nil
}

func (p *Parser) parseImport() (*ast.ImportDeclaration, error) {
	start, _ := p.next()
	var specs []ast.ImportSpecifier
	if tok, _ := p.peek(); tok.Kind == token.Star {
		p.next()
		if _, err := p.expect(token.As); err != nil {
			return nil, err
		}
		local, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		specs = append(specs, ast.ImportSpecifier{Imported: "*", Local: local.Value})
	} else if p.at(token.LBrace) {
		p.next()
		for !p.at(token.RBrace) {
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			local := name.Value
			if p.at(token.As) {
				p.next()
				lt, err := p.expect(token.Ident)
				if err != nil {
					return nil, err
				}
				local = lt.Value
			}
			specs = append(specs, ast.ImportSpecifier{Imported: name.Value, Local: local})
			if p.at(token.Comma) {
				p.next()
			}
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return nil, err
		}
	} else if p.at(token.Ident) {
		def, _ := p.next()
		specs = append(specs, ast.ImportSpecifier{Imported: "default", Local: def.Value})
	}
	if _, err := p.expect(token.From); err != nil {
		return nil, err
	}
	srcTok, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ImportDeclaration{Specifiers: specs, Source: srcTok.Value, Sp: start.Span}, nil
}

func (p *Parser) parseExport() (*ast.ExportDeclaration, error) {
	start, _ := p.next()
	if p.at(token.Default) {
		p.next()
		expr, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return &ast.ExportDeclaration{Default: expr, Sp: start.Span}, nil
	}
	if p.at(token.LBrace) {
		p.next()
		var specs []ast.ExportSpecifier
		for !p.at(token.RBrace) {
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			exported := name.Value
			if p.at(token.As) {
				p.next()
				et, err := p.expect(token.Ident)
				if err != nil {
					return nil, err
				}
				exported = et.Value
			}
			specs = append(specs, ast.ExportSpecifier{Local: name.Value, Exported: exported})
			if p.at(token.Comma) {
				p.next()
			}
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return nil, err
		}
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		return &ast.ExportDeclaration{Specifiers: specs, Sp: start.Span}, nil
	}
	decl, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.ExportDeclaration{Declaration: decl, Sp: start.Span}, nil
}

func (p *Parser) parseExpressionStatement() (*ast.ExpressionStatement, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemicolon(); err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Expr: expr, Sp: expr.Span()}, nil
}

// ---- Expressions (precedence climbing, spec §4.2) ----

func (p *Parser) parseExpression() (ast.Expression, error) {
	first, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Comma) {
		return first, nil
	}
	exprs := []ast.Expression{first}
	for p.at(token.Comma) {
		p.next()
		next, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, next)
	}
	return &ast.SequenceExpression{Expressions: exprs, Sp: first.Span()}, nil
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.Assign: ast.AssignPlain, token.PlusAssign: ast.AssignAdd, token.MinusAssign: ast.AssignSub,
	token.StarAssign: ast.AssignMul, token.SlashAssign: ast.AssignDiv, token.PercentAssign: ast.AssignMod,
	token.StarStarAssign: ast.AssignExp, token.ShlAssign: ast.AssignShl, token.ShrAssign: ast.AssignShr,
	token.UShrAssign: ast.AssignUShr, token.AndAssign: ast.AssignBitAnd, token.OrAssign: ast.AssignBitOr,
	token.XorAssign: ast.AssignBitXor, token.AndAndAssign: ast.AssignLogicalAnd, token.OrOrAssign: ast.AssignLogicalOr,
	token.QuestionQuestionAssign: ast.AssignNullish,
}

func (p *Parser) parseAssignmentExpression() (ast.Expression, error) {
	if arrow, ok, err := p.tryParseArrowFunction(); err != nil {
		return nil, err
	} else if ok {
		return arrow, nil
	}

	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if op, ok := assignOps[tok.Kind]; ok {
		p.next()
		value, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		return &ast.AssignmentExpression{Op: op, Target: left, Value: value, Sp: left.Span()}, nil
	}
	return left, nil
}

// tryParseArrowFunction implements spec §4.2's checkpointed arrow-function
// disambiguation: when a `(` or a bare identifier could start either an
// arrow parameter list or a grouped/primary expression, attempt the arrow
// parse and rewind on failure.
func (p *Parser) tryParseArrowFunction() (ast.Expression, bool, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, false, err
	}
	isAsync := false
	checkpoint := p.lex.Checkpoint()
	if tok.Kind == token.Async {
		nt, _ := p.peekN(2)
		if nt.Kind == token.LParen || nt.Kind == token.Ident {
			p.next()
			isAsync = true
			tok, err = p.peek()
			if err != nil {
				return nil, false, err
			}
		}
	}

	if tok.Kind == token.Ident {
		nt, _ := p.peekN(2)
		if nt.Kind == token.Arrow {
			nameTok, _ := p.next()
			p.next() // =>
			return p.finishArrowBody([]ast.Param{{Name: nameTok.Value}}, isAsync, nameTok.Span)
		}
		if !isAsync {
			return nil, false, nil
		}
		p.lex.Rewind(checkpoint)
		return nil, false, nil
	}

	if tok.Kind != token.LParen {
		if isAsync {
			p.lex.Rewind(checkpoint)
		}
		return nil, false, nil
	}

	params, ok := p.tryParseParamList()
	if !ok || !p.at(token.Arrow) {
		p.lex.Rewind(checkpoint)
		return nil, false, nil
	}
	p.next() // =>
	return p.finishArrowBody(params, isAsync, tok.Span)
}

// tryParseParamList attempts to parse `( paramList )`; returns ok=false on
// any parse failure so the caller can rewind and reparse as a parenthesized
// expression instead.
func (p *Parser) tryParseParamList() (params []ast.Param, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	must := func(k token.Kind) token.Token {
		t, err := p.expect(k)
		if err != nil {
			panic(err)
		}
		return t
	}
	must(token.LParen)
	for !p.at(token.RParen) {
		rest := false
		if p.at(token.Ellipsis) {
			p.next()
			rest = true
		}
		nameTok := must(token.Ident)
		param := ast.Param{Name: nameTok.Value, Rest: rest}
		if p.at(token.Assign) {
			p.next()
			def, err := p.parseAssignmentExpression()
			if err != nil {
				panic(err)
			}
			param.Default = def
		}
		params = append(params, param)
		if p.at(token.Comma) {
			p.next()
			continue
		}
		break
	}
	must(token.RParen)
	return params, true
}

func (p *Parser) finishArrowBody(params []ast.Param, isAsync bool, sp token.Span) (ast.Expression, bool, error) {
	fn := &ast.FunctionExpression{Params: params, IsArrow: true, IsAsync: isAsync, Sp: sp}
	if p.at(token.LBrace) {
		block, err := p.parseBlock()
		if err != nil {
			return nil, false, err
		}
		fn.Body = block.Body
	} else {
		expr, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, false, err
		}
		fn.ExprBody = expr
	}
	return fn, true, nil
}

func (p *Parser) parseConditional() (ast.Expression, error) {
	test, err := p.parseNullish()
	if err != nil {
		return nil, err
	}
	if !p.at(token.Question) {
		return test, nil
	}
	p.next()
	cons, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	alt, err := p.parseAssignmentExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt, Sp: test.Span()}, nil
}

func (p *Parser) parseNullish() (ast.Expression, error) {
	left, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.QuestionQuestion) {
		p.next()
		right, err := p.parseLogicalOr()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Op: ast.LogicalNullish, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseLogicalOr() (ast.Expression, error) {
	left, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OrOr) {
		p.next()
		right, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Op: ast.LogicalOr, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseLogicalAnd() (ast.Expression, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.AndAnd) {
		p.next()
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		left = &ast.LogicalExpression{Op: ast.LogicalAnd, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseBitOr() (ast.Expression, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.Pipe) {
		p.next()
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: ast.BinBitOr, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseBitXor() (ast.Expression, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.Caret) {
		p.next()
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: ast.BinBitXor, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (ast.Expression, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.Amp) {
		p.next()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: ast.BinBitAnd, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

var equalityOps = map[token.Kind]ast.BinaryOp{
	token.Eq: ast.BinEq, token.NotEq: ast.BinNotEq, token.StrictEq: ast.BinStrictEq, token.StrictNotEq: ast.BinStrictNotEq,
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for {
		tok, _ := p.peek()
		op, ok := equalityOps[tok.Kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, Sp: left.Span()}
	}
}

var relationalOps = map[token.Kind]ast.BinaryOp{
	token.Lt: ast.BinLt, token.Le: ast.BinLe, token.Gt: ast.BinGt, token.Ge: ast.BinGe,
	token.In: ast.BinIn, token.Instanceof: ast.BinInstanceof,
}

func (p *Parser) parseRelational() (ast.Expression, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		tok, _ := p.peek()
		op, ok := relationalOps[tok.Kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, Sp: left.Span()}
	}
}

var shiftOps = map[token.Kind]ast.BinaryOp{token.Shl: ast.BinShl, token.Shr: ast.BinShr, token.UShr: ast.BinUShr}

func (p *Parser) parseShift() (ast.Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		tok, _ := p.peek()
		op, ok := shiftOps[tok.Kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, Sp: left.Span()}
	}
}

func (p *Parser) parseAdditive() (ast.Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		tok, _ := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		op := ast.BinAdd
		if tok.Kind == token.Minus {
			op = ast.BinSub
		}
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	left, err := p.parseExponent()
	if err != nil {
		return nil, err
	}
	for p.at(token.Star) || p.at(token.Slash) || p.at(token.Percent) {
		tok, _ := p.next()
		right, err := p.parseExponent()
		if err != nil {
			return nil, err
		}
		var op ast.BinaryOp
		switch tok.Kind {
		case token.Star:
			op = ast.BinMul
		case token.Slash:
			op = ast.BinDiv
		default:
			op = ast.BinMod
		}
		left = &ast.BinaryExpression{Op: op, Left: left, Right: right, Sp: left.Span()}
	}
	return left, nil
}

func (p *Parser) parseExponent() (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(token.StarStar) {
		p.next()
		right, err := p.parseExponent() // right-associative
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpression{Op: ast.BinExp, Left: left, Right: right, Sp: left.Span()}, nil
	}
	return left, nil
}

var unaryOps = map[token.Kind]ast.UnaryOp{
	token.Bang: ast.UnaryNot, token.Tilde: ast.UnaryBitNot, token.Plus: ast.UnaryPlus, token.Minus: ast.UnaryMinus,
	token.Typeof: ast.UnaryTypeof, token.Void: ast.UnaryVoid, token.Delete: ast.UnaryDelete, token.Await: ast.UnaryAwait,
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if op, ok := unaryOps[tok.Kind]; ok {
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.Kind == token.Await {
			return &ast.AwaitExpression{Argument: arg, Sp: tok.Span}, nil
		}
		return &ast.UnaryExpression{Op: op, Argument: arg, Sp: tok.Span}, nil
	}
	if tok.Kind == token.Yield {
		return p.parseYield()
	}
	if tok.Kind == token.Inc || tok.Kind == token.Dec {
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UpdateExpression{Op: tok.Kind, Prefix: true, Argument: arg, Sp: tok.Span}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parseYield() (ast.Expression, error) {
	start, _ := p.next()
	delegate := false
	if p.at(token.Star) {
		p.next()
		delegate = true
	}
	var arg ast.Expression
	if !p.at(token.Semicolon) && !p.at(token.RParen) && !p.at(token.RBrace) && !p.at(token.RBracket) &&
		!p.at(token.Comma) && !p.at(token.Colon) && !p.at(token.EOF) {
		var err error
		arg, err = p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
	}
	return &ast.YieldExpression{Argument: arg, Delegate: delegate, Sp: start.Span}, nil
}

func (p *Parser) parsePostfix() (ast.Expression, error) {
	expr, err := p.parseCallOrMember()
	if err != nil {
		return nil, err
	}
	if p.at(token.Inc) || p.at(token.Dec) {
		tok, _ := p.next()
		return &ast.UpdateExpression{Op: tok.Kind, Prefix: false, Argument: expr, Sp: expr.Span()}, nil
	}
	return expr, nil
}

func (p *Parser) parseCallOrMember() (ast.Expression, error) {
	var expr ast.Expression
	var err error
	if p.at(token.New) {
		expr, err = p.parseNew()
	} else {
		expr, err = p.parsePrimary()
	}
	if err != nil {
		return nil, err
	}
	for {
		tok, perr := p.peek()
		if perr != nil {
			return nil, perr
		}
		switch tok.Kind {
		case token.Dot:
			p.next()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: nameTok.Value, Sp: nameTok.Span}, Sp: expr.Span()}
		case token.QuestionDot:
			p.next()
			if p.at(token.LParen) {
				args, err := p.parseArguments()
				if err != nil {
					return nil, err
				}
				expr = &ast.CallExpression{Callee: expr, Args: args, Optional: true, Sp: expr.Span()}
				continue
			}
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: nameTok.Value, Sp: nameTok.Span}, Optional: true, Sp: expr.Span()}
		case token.LBracket:
			p.next()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: idx, Computed: true, Sp: expr.Span()}
		case token.LParen:
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpression{Callee: expr, Args: args, Sp: expr.Span()}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseArguments() ([]ast.Argument, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.Argument
	for !p.at(token.RParen) {
		spread := false
		if p.at(token.Ellipsis) {
			p.next()
			spread = true
		}
		v, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, ast.Argument{Value: v, Spread: spread})
		if p.at(token.Comma) {
			p.next()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parseNew() (ast.Expression, error) {
	start, _ := p.next()
	callee, err := p.parseCallOrMemberNoCall()
	if err != nil {
		return nil, err
	}
	var args []ast.Argument
	if p.at(token.LParen) {
		args, err = p.parseArguments()
		if err != nil {
			return nil, err
		}
	}
	return &ast.NewExpression{Callee: callee, Args: args, Sp: start.Span}, nil
}

// parseCallOrMemberNoCall parses the callee of a `new` expression: member
// access binds tighter than the implicit call, but `new` must not itself
// swallow a `(...)` as a call on its callee.
func (p *Parser) parseCallOrMemberNoCall() (ast.Expression, error) {
	var expr ast.Expression
	var err error
	if p.at(token.New) {
		expr, err = p.parseNew()
	} else {
		expr, err = p.parsePrimary()
	}
	if err != nil {
		return nil, err
	}
	for {
		tok, _ := p.peek()
		switch tok.Kind {
		case token.Dot:
			p.next()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: &ast.Identifier{Name: nameTok.Value, Sp: nameTok.Span}, Sp: expr.Span()}
		case token.LBracket:
			p.next()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			expr = &ast.MemberExpression{Object: expr, Property: idx, Computed: true, Sp: expr.Span()}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case token.Integer:
		p.next()
		n, perr := strconv.ParseInt(trimRadixPrefix(tok.Value), radixOf(tok.Value), 64)
		if perr != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Value)
		}
		return &ast.IntegerLiteral{Value: n, Sp: tok.Span}, nil
	case token.Float:
		p.next()
		f, perr := strconv.ParseFloat(tok.Value, 64)
		if perr != nil {
			return nil, p.errorf("invalid float literal %q", tok.Value)
		}
		return &ast.FloatLiteral{Value: f, Sp: tok.Span}, nil
	case token.BigInt:
		p.next()
		return &ast.BigIntLiteral{Raw: tok.Value, Sp: tok.Span}, nil
	case token.String:
		p.next()
		return &ast.StringLiteral{Value: tok.Value, Sp: tok.Span}, nil
	case token.True, token.False:
		p.next()
		return &ast.BooleanLiteral{Value: tok.Kind == token.True, Sp: tok.Span}, nil
	case token.Null:
		p.next()
		return &ast.NullLiteral{Sp: tok.Span}, nil
	case token.Undefined:
		p.next()
		return &ast.UndefinedLiteral{Sp: tok.Span}, nil
	case token.This:
		p.next()
		return &ast.ThisExpression{Sp: tok.Span}, nil
	case token.Super:
		p.next()
		return &ast.SuperExpression{Sp: tok.Span}, nil
	case token.Regex:
		p.next()
		return &ast.RegexLiteral{Pattern: tok.Value, Flags: tok.Flags, Sp: tok.Span}, nil
	case token.Ident:
		p.next()
		return &ast.Identifier{Name: tok.Value, Sp: tok.Span}, nil
	case token.LParen:
		p.next()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LBrace:
		return p.parseObjectLiteral()
	case token.Backtick:
		return p.parseTemplateLiteral()
	case token.Function:
		return p.parseFunctionExpression(false)
	case token.Async:
		nt, _ := p.peekN(2)
		if nt.Kind == token.Function {
			return p.parseFunctionExpression(false)
		}
	case token.Class:
		return p.parseClassExpression()
	case token.Import:
		p.next()
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		src, err := p.parseAssignmentExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return &ast.ImportCallExpression{Source: src, Sp: tok.Span}, nil
	}
	return nil, p.errorf("unexpected token %s in expression", tok.Kind)
}

func trimRadixPrefix(s string) string {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X' || s[1] == 'b' || s[1] == 'B' || s[1] == 'o' || s[1] == 'O') {
		return s[2:]
	}
	return s
}

func radixOf(s string) int {
	if len(s) > 1 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			return 16
		case 'b', 'B':
			return 2
		case 'o', 'O':
			return 8
		}
	}
	return 10
}

func (p *Parser) parseArrayLiteral() (*ast.ArrayLiteral, error) {
	start, _ := p.next()
	var elems []ast.Expression
	for !p.at(token.RBracket) {
		if p.at(token.Comma) {
			p.next()
			elems = append(elems, nil) // elision
			continue
		}
		if p.at(token.Ellipsis) {
			sp, _ := p.next()
			arg, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, &ast.SpreadElement{Argument: arg, Sp: sp.Span})
		} else {
			v, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		if p.at(token.Comma) {
			p.next()
		}
	}
	end, err := p.expect(token.RBracket)
	if err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Elements: elems, Sp: span(start, end)}, nil
}

func (p *Parser) parseObjectLiteral() (*ast.ObjectLiteral, error) {
	start, _ := p.next()
	var props []ast.ObjectProperty
	for !p.at(token.RBrace) {
		if p.at(token.Ellipsis) {
			p.next()
			arg, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			props = append(props, ast.ObjectProperty{Value: arg, Kind: ast.PropSpread})
			if p.at(token.Comma) {
				p.next()
			}
			continue
		}
		prop, err := p.parseObjectProperty()
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
		if p.at(token.Comma) {
			p.next()
		}
	}
	end, err := p.expect(token.RBrace)
	if err != nil {
		return nil, err
	}
	return &ast.ObjectLiteral{Properties: props, Sp: span(start, end)}, nil
}

func (p *Parser) parseObjectProperty() (ast.ObjectProperty, error) {
	isGetter, isSetter := false, false
	if (p.at(token.Get) || p.at(token.Set)) {
		nt, _ := p.peekN(2)
		if nt.Kind != token.Colon && nt.Kind != token.LParen && nt.Kind != token.Comma && nt.Kind != token.RBrace {
			tok, _ := p.next()
			isGetter = tok.Kind == token.Get
			isSetter = tok.Kind == token.Set
		}
	}

	computed := false
	var key ast.Expression
	if p.at(token.LBracket) {
		p.next()
		computed = true
		k, err := p.parseAssignmentExpression()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		key = k
		if _, err := p.expect(token.RBracket); err != nil {
			return ast.ObjectProperty{}, err
		}
	} else {
		tok, err := p.next()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		key = &ast.Identifier{Name: tok.Value, Sp: tok.Span}
	}

	if isGetter || isSetter {
		fn, err := p.parseFunctionTail(false, false)
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		kind := ast.PropGetter
		if isSetter {
			kind = ast.PropSetter
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: fn, Kind: kind}, nil
	}

	if p.at(token.LParen) {
		fn, err := p.parseFunctionTail(false, false)
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: fn, Kind: ast.PropMethod}, nil
	}

	if p.at(token.Colon) {
		p.next()
		v, err := p.parseAssignmentExpression()
		if err != nil {
			return ast.ObjectProperty{}, err
		}
		return ast.ObjectProperty{Key: key, Computed: computed, Value: v, Kind: ast.PropInit}, nil
	}

	// Shorthand `{ x }`.
	if ident, ok := key.(*ast.Identifier); ok {
		return ast.ObjectProperty{Key: key, Value: &ast.Identifier{Name: ident.Name, Sp: ident.Sp}, Kind: ast.PropInit}, nil
	}
	return ast.ObjectProperty{}, p.errorf("invalid object property")
}

func (p *Parser) parseTemplateLiteral() (*ast.TemplateLiteral, error) {
	start, err := p.expect(token.Backtick)
	if err != nil {
		return nil, err
	}
	tl := &ast.TemplateLiteral{Sp: start.Span}
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case token.TemplateTail, token.TemplateString:
			tl.Quasis = append(tl.Quasis, tok.Value)
			return tl, nil
		case token.TemplateHead, token.TemplateMid:
			tl.Quasis = append(tl.Quasis, tok.Value)
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			tl.Expressions = append(tl.Expressions, expr)
		default:
			return nil, p.errorf("unexpected token %s in template literal", tok.Kind)
		}
	}
}

func (p *Parser) parseFunctionExpression(isDeclaration bool) (*ast.FunctionExpression, error) {
	start, _ := p.peek()
	isAsync := false
	if p.at(token.Async) {
		p.next()
		isAsync = true
	}
	if _, err := p.expect(token.Function); err != nil {
		return nil, err
	}
	isGen := false
	if p.at(token.Star) {
		p.next()
		isGen = true
	}
	name := ""
	if p.at(token.Ident) {
		nt, _ := p.next()
		name = nt.Value
	} else if isDeclaration {
		return nil, p.errorf("function declaration requires a name")
	}
	fn, err := p.parseFunctionTail(isAsync, isGen)
	if err != nil {
		return nil, err
	}
	fn.Name = name
	fn.Sp = start.Span
	return fn, nil
}

func (p *Parser) parseFunctionTail(isAsync, isGen bool) (*ast.FunctionExpression, error) {
	params, ok := p.tryParseParamList()
	if !ok {
		return nil, p.errorf("invalid parameter list")
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionExpression{Params: params, Body: block.Body, IsAsync: isAsync, IsGen: isGen, Sp: block.Sp}, nil
}

func (p *Parser) parseClassExpression() (*ast.ClassExpression, error) {
	start, _ := p.next() // `class`
	name := ""
	if p.at(token.Ident) {
		nt, _ := p.next()
		name = nt.Value
	}
	var super ast.Expression
	if p.at(token.Extends) {
		p.next()
		s, err := p.parseCallOrMember()
		if err != nil {
			return nil, err
		}
		super = s
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	cls := &ast.ClassExpression{Name: name, Super: super, Sp: start.Span}
	for !p.at(token.RBrace) {
		if p.at(token.Semicolon) {
			p.next()
			continue
		}
		isStatic := false
		if p.at(token.Static) {
			nt, _ := p.peekN(2)
			if nt.Kind != token.LParen {
				p.next()
				isStatic = true
			}
		}
		isAsync := false
		if p.at(token.Async) {
			nt, _ := p.peekN(2)
			if nt.Kind != token.LParen {
				p.next()
				isAsync = true
			}
		}
		isGen := false
		if p.at(token.Star) {
			p.next()
			isGen = true
		}
		accessorKind := ast.MethodNormal
		if (p.at(token.Get) || p.at(token.Set)) && !isAsync && !isGen {
			nt, _ := p.peekN(2)
			if nt.Kind != token.LParen && nt.Kind != token.Assign && nt.Kind != token.Semicolon {
				tok, _ := p.next()
				if tok.Kind == token.Get {
					accessorKind = ast.MethodGetter
				} else {
					accessorKind = ast.MethodSetter
				}
			}
		}
		computed := false
		var key ast.Expression
		if p.at(token.LBracket) {
			p.next()
			computed = true
			k, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			key = k
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
		} else {
			tok, err := p.next()
			if err != nil {
				return nil, err
			}
			key = &ast.Identifier{Name: tok.Value, Sp: tok.Span}
		}

		if p.at(token.LParen) {
			fn, err := p.parseFunctionTail(isAsync, isGen)
			if err != nil {
				return nil, err
			}
			kind := accessorKind
			if ident, ok := key.(*ast.Identifier); ok && ident.Name == "constructor" && kind == ast.MethodNormal && !isStatic {
				kind = ast.MethodConstructor
			}
			cls.Methods = append(cls.Methods, ast.ClassMethod{Key: key, Computed: computed, Static: isStatic, Kind: kind, IsAsync: isAsync, IsGen: isGen, Function: fn})
			continue
		}

		var fieldVal ast.Expression
		if p.at(token.Assign) {
			p.next()
			v, err := p.parseAssignmentExpression()
			if err != nil {
				return nil, err
			}
			fieldVal = v
		}
		if err := p.consumeSemicolon(); err != nil {
			return nil, err
		}
		cls.Fields = append(cls.Fields, ast.ClassField{Key: key, Computed: computed, Static: isStatic, Value: fieldVal})
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return cls, nil
}
