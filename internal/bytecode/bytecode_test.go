package bytecode

import (
	"testing"

	"jsvm/internal/token"
)

func TestEmitConstLoadChoosesNarrowestForm(t *testing.T) {
	c := New()
	c.EmitConstLoad(3)
	c.EmitConstLoad(200)
	c.EmitConstLoad(40000)

	pc := uint32(0)
	if op := c.GetOpcode(pc); op != CLoad3 {
		t.Fatalf("expected cload_3 for index 3, got %s", op)
	}
	pc++

	if op := c.GetOpcode(pc); op != CLoad {
		t.Fatalf("expected cload for index 200, got %s", op)
	}
	pc++
	if got := c.GetU8(pc); got != 200 {
		t.Fatalf("expected operand 200, got %d", got)
	}
	pc++

	if op := c.GetOpcode(pc); op != CLoadW {
		t.Fatalf("expected cload_w for index 40000, got %s", op)
	}
	pc++
	if got := c.GetU16(pc); got != 40000 {
		t.Fatalf("expected operand 40000, got %d", got)
	}
}

func TestEmitVarLoadStoreFoldsSmallIndices(t *testing.T) {
	c := New()
	c.EmitVarLoad(2)
	c.EmitVarStore(10)

	if op := c.GetOpcode(0); op != VLoad2 {
		t.Fatalf("expected vload_2, got %s", op)
	}
	if op := c.GetOpcode(1); op != VStore {
		t.Fatalf("expected vstore fallback, got %s", op)
	}
	if got := c.GetU8(2); got != 10 {
		t.Fatalf("expected operand 10, got %d", got)
	}
}

func TestJumpEmitAndPatchRoundTrips(t *testing.T) {
	c := New()
	operandPc := c.EmitJump(IfEq)
	c.EmitOpcode(Pop) // filler so the jump lands past at least one instruction
	target := c.Pc()
	c.EmitOpcode(Undefined)
	c.PatchJump(operandPc, target)

	if got := c.JumpTarget(operandPc - 1); got != target {
		t.Fatalf("expected jump target %d, got %d", target, got)
	}
}

func TestPatchJumpRejectsOutOfRangeOffset(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range jump offset")
		}
	}()
	c := New()
	operandPc := c.EmitJump(Goto)
	c.PatchJump(operandPc, operandPc+70000)
}

func TestDisassembleRendersOperands(t *testing.T) {
	c := New()
	c.EmitConstLoad(0)
	c.EmitOpcode(Add)
	c.EmitOpcode(Return)

	lines := c.DisassembleAll()
	if len(lines) != 3 {
		t.Fatalf("expected 3 disassembled lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "0000\tcload_0" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
}

func TestExceptionTableFindsInnermostCoveringRegion(t *testing.T) {
	table := ExceptionTable{
		{TryStartPC: 0, TryEndPC: 100, CatchStartPC: 100, CatchEndPC: 110, CatchErrVarIdx: 0},
		{TryStartPC: 10, TryEndPC: 20, FinallyStartPC: 20, FinallyEndPC: 30},
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("expected valid table, got %v", err)
	}
	entry, ok := table.FindHandler(15)
	if !ok {
		t.Fatal("expected a handler to cover pc 15")
	}
	if entry.FinallyStartPC != 20 {
		t.Fatalf("expected the inner finally entry to be found first, got %+v", entry)
	}

	if _, ok := table.FindHandler(200); ok {
		t.Fatal("expected no handler to cover pc 200")
	}
}

func TestExceptionTableValidateRejectsHandlerlessEntry(t *testing.T) {
	table := ExceptionTable{{TryStartPC: 0, TryEndPC: 10}}
	if err := table.Validate(); err == nil {
		t.Fatal("expected validation error for an entry with neither catch nor finally")
	}
}

func TestExceptionTableValidateRejectsEmptyTryRange(t *testing.T) {
	table := ExceptionTable{{TryStartPC: 10, TryEndPC: 10, CatchStartPC: 10, CatchEndPC: 20}}
	if err := table.Validate(); err == nil {
		t.Fatal("expected validation error for an empty try range")
	}
}

func TestDebugTableSpanAtAndVarNameAt(t *testing.T) {
	dt := DebugTable{
		Spans: []DebugTableEntry{
			{StartPC: 0, EndPC: 5, Span: token.Span{Start: 0, End: 3, Line: 1}},
			{StartPC: 5, EndPC: 8, Span: token.Span{Start: 3, End: 9, Line: 2}},
		},
		Vars: []LocalVarDebugEntry{
			{Name: "x", SlotIndex: 0, StartPC: 0, EndPC: 8},
		},
	}

	span, ok := dt.SpanAt(6)
	if !ok || span.Line != 2 {
		t.Fatalf("expected line 2 at pc 6, got %+v ok=%v", span, ok)
	}

	if _, ok := dt.SpanAt(100); ok {
		t.Fatal("expected no span to cover pc 100")
	}

	name, ok := dt.VarNameAt(0, 3)
	if !ok || name != "x" {
		t.Fatalf("expected local slot 0 named x at pc 3, got %q ok=%v", name, ok)
	}

	if _, ok := dt.VarNameAt(1, 3); ok {
		t.Fatal("expected no var name for an unbound slot")
	}
}
