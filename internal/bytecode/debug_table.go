package bytecode

import "jsvm/internal/token"

// DebugTableEntry maps one PC range to the source span that produced it,
// for stack-trace assembly (spec §7) and disassembly tooling.
type DebugTableEntry struct {
	StartPC uint32
	EndPC   uint32
	Span    token.Span
}

func (e DebugTableEntry) Covers(pc uint32) bool {
	return pc >= e.StartPC && pc < e.EndPC
}

// LocalVarDebugEntry records the name a local slot is bound to over a PC
// range, for naming locals in a debugger or REPL inspector. Optional: a
// function compiled without debug info simply has none of these.
type LocalVarDebugEntry struct {
	Name      string
	SlotIndex uint32
	StartPC   uint32
	EndPC     uint32
}

// DebugTable is a function's optional PC-to-source mapping plus local
// variable name ranges.
type DebugTable struct {
	Spans []DebugTableEntry
	Vars  []LocalVarDebugEntry
}

// SpanAt returns the source span covering pc, or ok=false if the function
// was compiled without debug info (or pc falls outside any entry).
func (t DebugTable) SpanAt(pc uint32) (span token.Span, ok bool) {
	for _, e := range t.Spans {
		if e.Covers(pc) {
			return e.Span, true
		}
	}
	return token.Span{}, false
}

// VarNameAt returns the name bound to slot at pc, or ok=false if no debug
// entry covers it.
func (t DebugTable) VarNameAt(slot uint32, pc uint32) (name string, ok bool) {
	for _, v := range t.Vars {
		if v.SlotIndex == slot && pc >= v.StartPC && pc < v.EndPC {
			return v.Name, true
		}
	}
	return "", false
}
