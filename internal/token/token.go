// Package token defines the closed set of lexical token kinds the lexer
// produces and the parser consumes.
package token

// Kind identifies the lexical category of a Token. The set is closed: every
// kind the lexer can ever emit is listed here.
type Kind int

const (
	EOF Kind = iota
	Illegal

	// Literals
	Ident
	Integer
	Float
	BigInt
	String
	TemplateString // whole text of a template with no ${ } substitution, up to the closing backtick
	Regex
	True
	False
	Null
	Undefined

	// Keywords
	Let
	Const
	Var
	Function
	Class
	Extends
	Super
	This
	New
	Async
	Await
	Yield
	If
	Else
	While
	Do
	For
	Break
	Continue
	Return
	Throw
	Try
	Catch
	Finally
	Import
	Export
	From
	As
	Default
	Typeof
	Instanceof
	In
	Void
	Delete
	Switch
	Case
	Static
	Get
	Set

	// Punctuation
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Dot
	Ellipsis
	Comma
	Semicolon
	Colon
	Question
	QuestionDot
	QuestionQuestion
	Arrow
	Backtick
	TemplateHead  // ` ... ${
	TemplateMid   // } ... ${
	TemplateTail  // } ... `

	// Operators
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	StarStarAssign
	ShlAssign
	ShrAssign
	UShrAssign
	AndAssign
	OrAssign
	XorAssign
	AndAndAssign
	OrOrAssign
	QuestionQuestionAssign

	Plus
	Minus
	Star
	Slash
	Percent
	StarStar

	Eq
	NotEq
	StrictEq
	StrictNotEq
	Lt
	Le
	Gt
	Ge

	Shl
	Shr
	UShr

	Amp
	Pipe
	Caret
	Tilde

	AndAnd
	OrOr
	Bang

	Inc
	Dec
)

var names = map[Kind]string{
	EOF: "EOF", Illegal: "ILLEGAL",
	Ident: "IDENT", Integer: "INTEGER", Float: "FLOAT", BigInt: "BIGINT",
	String: "STRING", TemplateString: "TEMPLATE_STRING", Regex: "REGEX",
	True: "true", False: "false", Null: "null", Undefined: "undefined",
	Let: "let", Const: "const", Var: "var", Function: "function", Class: "class",
	Extends: "extends", Super: "super", This: "this", New: "new",
	Async: "async", Await: "await", Yield: "yield",
	If: "if", Else: "else", While: "while", Do: "do", For: "for",
	Break: "break", Continue: "continue", Return: "return",
	Throw: "throw", Try: "try", Catch: "catch", Finally: "finally",
	Import: "import", Export: "export", From: "from", As: "as", Default: "default",
	Typeof: "typeof", Instanceof: "instanceof", In: "in", Void: "void", Delete: "delete",
	Switch: "switch", Case: "case", Static: "static", Get: "get", Set: "set",
	LBrace: "{", RBrace: "}", LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	Dot: ".", Ellipsis: "...", Comma: ",", Semicolon: ";", Colon: ":",
	Question: "?", QuestionDot: "?.", QuestionQuestion: "??", Arrow: "=>",
	Backtick: "`", TemplateHead: "TEMPLATE_HEAD", TemplateMid: "TEMPLATE_MID", TemplateTail: "TEMPLATE_TAIL",
	Assign: "=", PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=",
	PercentAssign: "%=", StarStarAssign: "**=", ShlAssign: "<<=", ShrAssign: ">>=",
	UShrAssign: ">>>=", AndAssign: "&=", OrAssign: "|=", XorAssign: "^=",
	AndAndAssign: "&&=", OrOrAssign: "||=", QuestionQuestionAssign: "??=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", StarStar: "**",
	Eq: "==", NotEq: "!=", StrictEq: "===", StrictNotEq: "!==",
	Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	Shl: "<<", Shr: ">>", UShr: ">>>",
	Amp: "&", Pipe: "|", Caret: "^", Tilde: "~",
	AndAnd: "&&", OrOr: "||", Bang: "!",
	Inc: "++", Dec: "--",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Keywords maps a reserved identifier spelling to its Kind.
var Keywords = map[string]Kind{
	"let": Let, "const": Const, "var": Var, "function": Function, "class": Class,
	"extends": Extends, "super": Super, "this": This, "new": New,
	"async": Async, "await": Await, "yield": Yield,
	"if": If, "else": Else, "while": While, "do": Do, "for": For,
	"break": Break, "continue": Continue, "return": Return,
	"throw": Throw, "try": Try, "catch": Catch, "finally": Finally,
	"import": Import, "export": Export, "from": From, "as": As, "default": Default,
	"typeof": Typeof, "instanceof": Instanceof, "in": In, "void": Void, "delete": Delete,
	"switch": Switch, "case": Case, "static": Static, "get": Get, "set": Set,
	"true": True, "false": False, "null": Null, "undefined": Undefined,
}

// Span is the [Start, End) byte-offset range of a token in its source, plus
// the 1-based line the token starts on.
type Span struct {
	Start int
	End   int
	Line  int
}

// Token is a single lexical unit with its source span and literal value.
type Token struct {
	Kind  Kind
	Value string // raw spelling, or decoded literal content for strings
	Span  Span
	Flags string // regex flags, template interpolation markers, etc.
}
