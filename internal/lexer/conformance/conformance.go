// Package conformance cross-checks the hand-written lexer/parser against an
// independent JavaScript grammar (tree-sitter) over a small snippet corpus.
// This is an oracle for catching gross divergence during development, not
// part of the production compile/eval path — grounded on the teacher's
// TreeSitterParser (internal/world/ast_treesitter.go in theRebelliousNerd-codenerd),
// which uses the same library the same way: parse with tree-sitter, walk
// the resulting tree, compare against the engine's own understanding.
package conformance

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"jsvm/internal/lexer"
	"jsvm/internal/token"
)

// Oracle wraps a tree-sitter JavaScript parser used only by tests/tools that
// want a second opinion on tokenization shape.
type Oracle struct {
	parser *sitter.Parser
}

// NewOracle constructs a tree-sitter-backed JavaScript parser.
func NewOracle() *Oracle {
	p := sitter.NewParser()
	p.SetLanguage(javascript.GetLanguage())
	return &Oracle{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (o *Oracle) Close() {
	o.parser.Close()
}

// LeafCount parses src with tree-sitter and counts leaf (token-like) nodes,
// for comparison against the hand-written lexer's token count.
func (o *Oracle) LeafCount(ctx context.Context, src []byte) (int, error) {
	tree, err := o.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return 0, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()
	count := 0
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if int(n.ChildCount()) == 0 {
			count++
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return count, nil
}

// CountOwnTokens lexes src with the engine's own lexer and counts
// non-trivial, non-EOF tokens.
func CountOwnTokens(src string) (int, error) {
	l := lexer.New(src)
	count := 0
	for {
		tok, err := l.Next()
		if err != nil {
			return 0, err
		}
		if tok.Kind == token.EOF {
			break
		}
		count++
	}
	return count, nil
}

// Diverges reports whether the engine's own token count and tree-sitter's
// leaf count differ by more than the given tolerance — a coarse smoke
// signal, not an exact equivalence (the two tokenizers don't split source
// identically, e.g. template literal handling).
func Diverges(ctx context.Context, o *Oracle, src string, tolerance int) (bool, error) {
	own, err := CountOwnTokens(src)
	if err != nil {
		return false, err
	}
	oracle, err := o.LeafCount(ctx, []byte(src))
	if err != nil {
		return false, err
	}
	diff := own - oracle
	if diff < 0 {
		diff = -diff
	}
	return diff > tolerance, nil
}
