package lexer

import (
	"testing"

	"jsvm/internal/token"
)

func collect(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexBasicTokens(t *testing.T) {
	toks := collect(t, "let x = 1 + 2;")
	want := []token.Kind{token.Let, token.Ident, token.Assign, token.Integer, token.Plus, token.Integer, token.Semicolon, token.EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("len mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestLexNumericLiterals(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
		val  string
	}{
		{"123", token.Integer, "123"},
		{"1_000", token.Integer, "1000"},
		{"3.14", token.Float, "3.14"},
		{"0x1F", token.Integer, "0x1F"},
		{"0b101", token.Integer, "0b101"},
		{"0o17", token.Integer, "0o17"},
		{"10n", token.BigInt, "10"},
		{"1e10", token.Float, "1e10"},
	}
	for _, c := range cases {
		toks := collect(t, c.src)
		if toks[0].Kind != c.kind {
			t.Errorf("%q: got kind %s want %s", c.src, toks[0].Kind, c.kind)
		}
		if toks[0].Value != c.val {
			t.Errorf("%q: got value %q want %q", c.src, toks[0].Value, c.val)
		}
	}
}

func TestLexStringEscapes(t *testing.T) {
	toks := collect(t, `"a\nb\u{1F600}A"`)
	if toks[0].Kind != token.String {
		t.Fatalf("expected string token, got %s", toks[0].Kind)
	}
	want := "a\nb\U0001F600A"
	if toks[0].Value != want {
		t.Fatalf("got %q want %q", toks[0].Value, want)
	}
}

func TestLexTemplateLiteral(t *testing.T) {
	toks := collect(t, "`a${x}b`")
	want := []token.Kind{token.Backtick, token.TemplateHead, token.Ident, token.TemplateTail, token.EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("len mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestLexNestedTemplateBraces(t *testing.T) {
	// ${ {a:1}.a } — the object literal's braces must not be confused with
	// the interpolation's closing brace.
	toks := collect(t, "`${ {a:1}.a }`")
	got := kinds(toks)
	wantContains := []token.Kind{token.TemplateHead, token.LBrace, token.Ident, token.Colon, token.Integer, token.RBrace, token.Dot, token.Ident, token.TemplateTail}
	// +2: the opening Backtick and the trailing EOF.
	if len(got) != len(wantContains)+2 {
		t.Fatalf("unexpected token count: %v", got)
	}
}

func TestLexRegexVsDivision(t *testing.T) {
	toks := collect(t, "a / b")
	if toks[1].Kind != token.Slash {
		t.Fatalf("expected division, got %s", toks[1].Kind)
	}
	toks = collect(t, "f(/abc/g)")
	var sawRegex bool
	for _, tk := range toks {
		if tk.Kind == token.Regex {
			sawRegex = true
			if tk.Value != "abc" || tk.Flags != "g" {
				t.Fatalf("regex body/flags mismatch: %q %q", tk.Value, tk.Flags)
			}
		}
	}
	if !sawRegex {
		t.Fatalf("expected a regex token in %v", kinds(toks))
	}
}

func TestLexComments(t *testing.T) {
	toks := collect(t, "// line\nlet /* block\nnested /* ok too */ comment */ x = 1;")
	got := kinds(toks)
	want := []token.Kind{token.Let, token.Ident, token.Assign, token.Integer, token.Semicolon, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCheckpointRewind(t *testing.T) {
	l := New("(a, b) => a + b")
	cp := l.Checkpoint()
	first, _ := l.Next()
	if first.Kind != token.LParen {
		t.Fatalf("expected (, got %s", first.Kind)
	}
	second, _ := l.Next()
	if second.Kind != token.Ident {
		t.Fatalf("expected ident, got %s", second.Kind)
	}
	l.Rewind(cp)
	replay, _ := l.Next()
	if replay.Kind != token.LParen {
		t.Fatalf("rewind failed: got %s", replay.Kind)
	}
}

func TestRoundTripLexing(t *testing.T) {
	// Property 1 (spec §8): concatenating token spellings (with a
	// separating space) and re-lexing yields the same token-kind sequence.
	src := "let x = 1; function f(y) { return x + y; }"
	toks := collect(t, src)
	var rebuilt string
	for _, tk := range toks {
		if tk.Kind == token.EOF {
			continue
		}
		spelling := tk.Value
		if spelling == "" {
			spelling = tk.Kind.String()
		}
		rebuilt += spelling + " "
	}
	reToks := collect(t, rebuilt)
	if len(reToks) != len(toks) {
		t.Fatalf("re-lex length mismatch: %d vs %d", len(reToks), len(toks))
	}
	for i := range toks {
		if toks[i].Kind != reToks[i].Kind {
			t.Fatalf("token %d kind mismatch: %s vs %s", i, toks[i].Kind, reToks[i].Kind)
		}
	}
}
