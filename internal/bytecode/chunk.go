package bytecode

import "fmt"

// Chunk is a growable instruction stream plus the exception and debug
// tables attached to a single compiled function (spec §3.6 FunctionDef,
// §3.7 bytecode format). It mirrors the original engine's ByteCode class:
// a flat byte buffer addressed by PC, with Emit* writers and Get* readers.
type Chunk struct {
	bytes     []byte
	Exception ExceptionTable
	Debug     DebugTable
}

// New returns an empty chunk.
func New() *Chunk {
	return &Chunk{}
}

// FromBytes rebuilds a Chunk from a previously emitted instruction stream
// plus its exception and debug tables, for a cache (internal/snapshot)
// restoring a compiled function without recompiling it. The returned
// Chunk is read-only in practice: nothing stops further Emit* calls, but
// nothing in this engine issues them against a restored Chunk.
func FromBytes(b []byte, exc ExceptionTable, dbg DebugTable) *Chunk {
	return &Chunk{bytes: append([]byte(nil), b...), Exception: exc, Debug: dbg}
}

// Pc returns the current write position, i.e. the PC the next emitted
// instruction will occupy.
func (c *Chunk) Pc() uint32 { return uint32(len(c.bytes)) }

// Bytes returns the raw instruction stream.
func (c *Chunk) Bytes() []byte { return c.bytes }

// EmitOpcode appends a single opcode byte and returns its PC.
func (c *Chunk) EmitOpcode(op Opcode) uint32 {
	pc := c.Pc()
	c.bytes = append(c.bytes, byte(op))
	return pc
}

func (c *Chunk) EmitU8(v uint8) { c.bytes = append(c.bytes, v) }

func (c *Chunk) EmitI8(v int8) { c.bytes = append(c.bytes, byte(v)) }

func (c *Chunk) EmitU16(v uint16) {
	c.bytes = append(c.bytes, byte(v), byte(v>>8))
}

func (c *Chunk) EmitI16(v int16) { c.EmitU16(uint16(v)) }

func (c *Chunk) EmitU32(v uint32) {
	c.bytes = append(c.bytes, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (c *Chunk) EmitI32(v int32) { c.EmitU32(uint32(v)) }

// EmitConstLoad picks the narrowest CLoad* form for idx: the six folded
// zero-operand forms for 0..5, then CLoad/CLoadW/CLoadD as idx widens.
func (c *Chunk) EmitConstLoad(idx uint32) {
	switch {
	case idx <= 5:
		c.EmitOpcode(CLoad0 + Opcode(idx))
	case idx <= 0xff:
		c.EmitOpcode(CLoad)
		c.EmitU8(uint8(idx))
	case idx <= 0xffff:
		c.EmitOpcode(CLoadW)
		c.EmitU16(uint16(idx))
	default:
		c.EmitOpcode(CLoadD)
		c.EmitU32(idx)
	}
}

// EmitClosure emits a FunctionDef load that additionally allocates a
// FunctionObject with a captured ClosureEnv snapshot — the load opcode a
// capturing function expression rewrites to in place of a plain const
// load (spec §4.3, "Closures").
func (c *Chunk) EmitClosure(funcDefConstIdx uint32) {
	c.EmitOpcode(Closure)
	c.EmitU16(uint16(funcDefConstIdx))
}

// EmitVarLoad picks the narrowest VLoad* form for a local-slot index.
func (c *Chunk) EmitVarLoad(idx uint32) {
	if idx <= 3 {
		c.EmitOpcode(VLoad0 + Opcode(idx))
		return
	}
	c.EmitOpcode(VLoad)
	c.EmitU8(uint8(idx))
}

// EmitVarStore picks the narrowest VStore* form for a local-slot index.
func (c *Chunk) EmitVarStore(idx uint32) {
	if idx <= 3 {
		c.EmitOpcode(VStore0 + Opcode(idx))
		return
	}
	c.EmitOpcode(VStore)
	c.EmitU8(uint8(idx))
}

// EmitClosureLoad/EmitClosureStore address a ClosureEnv cell by its index
// in the current function's ClosureVarTable.
func (c *Chunk) EmitClosureLoad(idx uint32) {
	c.EmitOpcode(ClosureLoad)
	c.EmitU8(uint8(idx))
}

func (c *Chunk) EmitClosureStore(idx uint32) {
	c.EmitOpcode(ClosureStore)
	c.EmitU8(uint8(idx))
}

// EmitGlobalLoad/EmitGlobalStore address a global binding by its name's
// const-pool index.
func (c *Chunk) EmitGlobalLoad(nameConstIdx uint32) {
	c.EmitOpcode(GlobalLoad)
	c.EmitU16(uint16(nameConstIdx))
}

func (c *Chunk) EmitGlobalStore(nameConstIdx uint32) {
	c.EmitOpcode(GlobalStore)
	c.EmitU16(uint16(nameConstIdx))
}

// EmitJump emits a jump opcode with a placeholder 16-bit offset and
// returns the PC of the offset field, for a later PatchJump call once the
// target is known.
func (c *Chunk) EmitJump(op Opcode) uint32 {
	c.EmitOpcode(op)
	operandPc := c.Pc()
	c.EmitI16(0)
	return operandPc
}

// PatchJump rewrites the signed 16-bit offset at operandPc (as returned by
// EmitJump) so the jump lands at targetPc. The offset is relative to the
// PC immediately following the offset field, matching how the VM's
// dispatch loop advances pc before applying it.
func (c *Chunk) PatchJump(operandPc, targetPc uint32) {
	offset := int64(targetPc) - int64(operandPc+2)
	if offset < -32768 || offset > 32767 {
		panic(fmt.Sprintf("bytecode: jump offset %d out of signed 16-bit range", offset))
	}
	c.bytes[operandPc] = byte(uint16(offset))
	c.bytes[operandPc+1] = byte(uint16(offset) >> 8)
}

// GetOpcode reads the opcode at pc.
func (c *Chunk) GetOpcode(pc uint32) Opcode { return Opcode(c.bytes[pc]) }

func (c *Chunk) GetU8(pc uint32) uint8 { return c.bytes[pc] }

func (c *Chunk) GetI8(pc uint32) int8 { return int8(c.bytes[pc]) }

func (c *Chunk) GetU16(pc uint32) uint16 {
	return uint16(c.bytes[pc]) | uint16(c.bytes[pc+1])<<8
}

func (c *Chunk) GetI16(pc uint32) int16 { return int16(c.GetU16(pc)) }

func (c *Chunk) GetU32(pc uint32) uint32 {
	return uint32(c.bytes[pc]) | uint32(c.bytes[pc+1])<<8 |
		uint32(c.bytes[pc+2])<<16 | uint32(c.bytes[pc+3])<<24
}

// JumpTarget returns the resolved absolute PC a jump instruction at pc
// (pointing at its opcode byte) branches to.
func (c *Chunk) JumpTarget(pc uint32) uint32 {
	operandPc := pc + 1
	return uint32(int64(operandPc+2) + int64(c.GetI16(operandPc)))
}

// Disassemble renders the instruction at pc in "PC\tmnemonic\toperand"
// form and returns the PC of the following instruction.
func (c *Chunk) Disassemble(pc uint32) (string, uint32) {
	op := c.GetOpcode(pc)
	next := pc + 1
	line := fmt.Sprintf("%04d\t%s", pc, op.Name())
	switch {
	case op.IsJump():
		line += fmt.Sprintf("\t%d", c.JumpTarget(pc))
		next += 2
	case op.ImmWidth() == 1:
		line += fmt.Sprintf("\t%d", c.GetU8(next))
		next++
	case op.ImmWidth() == 2:
		line += fmt.Sprintf("\t%d", c.GetU16(next))
		next += 2
	case op.ImmWidth() == 4:
		line += fmt.Sprintf("\t%d", c.GetU32(next))
		next += 4
	}
	return line, next
}

// DisassembleAll renders every instruction in the chunk, one per line.
func (c *Chunk) DisassembleAll() []string {
	var lines []string
	for pc := uint32(0); pc < c.Pc(); {
		var line string
		line, pc = c.Disassemble(pc)
		lines = append(lines, line)
	}
	return lines
}
