package conformance

import (
	"context"
	"testing"
)

func TestOracleAgreesRoughlyOnSimpleProgram(t *testing.T) {
	o := NewOracle()
	defer o.Close()

	diverges, err := Diverges(context.Background(), o, "let x = 1 + 2; function f(a, b) { return a + b; }", 6)
	if err != nil {
		t.Fatalf("conformance check failed: %v", err)
	}
	if diverges {
		t.Fatalf("own lexer diverges from tree-sitter JS grammar beyond tolerance")
	}
}
