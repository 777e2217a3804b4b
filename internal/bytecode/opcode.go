// Package bytecode defines the instruction set, variable-width encoding,
// exception table, and debug table that internal/compiler emits into and
// internal/vm dispatches over (spec §3.7, §4.4, §6.2).
package bytecode

// Opcode is the one-byte instruction tag. Values are assigned in the same
// grouping the original engine uses (const loads, var loads/stores,
// property access, arithmetic, comparison, control flow, calls, exception
// flow, suspension, stack shaping) but renumbered densely from zero since
// this encoding has no binary-compatibility obligation to the original.
type Opcode uint8

const (
	// Constant loads: small indices (0..5) fold the index into the opcode
	// itself; wider indices fall back to an explicit 1/2/4-byte operand.
	CLoad0 Opcode = iota
	CLoad1
	CLoad2
	CLoad3
	CLoad4
	CLoad5
	CLoad  // u8 operand
	CLoadW // u16 operand
	CLoadD // u32 operand

	// Local-slot loads/stores: same small-index/fallback shape as CLoad.
	VLoad0
	VLoad1
	VLoad2
	VLoad3
	VLoad // u8 operand
	VStore0
	VStore1
	VStore2
	VStore3
	VStore // u8 operand

	// Named property access. The property name is itself a const-pool
	// index, emitted as a preceding CLoad* by the compiler; these opcodes
	// only carry the receiver/value stack shuffle.
	PropertyLoad
	PropertyStore
	PropertyCall // pops receiver, looks up method, pushes callable bound to receiver

	// Computed ("[]") property access.
	IndexedLoad
	IndexedStore

	// Arithmetic.
	Add
	Sub
	Mul
	Div
	Mod
	Neg
	Shl
	Shr
	UShr
	BitAnd
	BitOr
	BitXor
	BitNot

	// Comparison. Eq/Ne are loose (==); StrictEq/StrictNe are (===).
	Eq
	Ne
	StrictEq
	StrictNe
	Lt
	Le
	Gt
	Ge

	// Logical negation; Goto/IfEq below cover &&/||/?? via short-circuit
	// jumps emitted by the compiler rather than a dedicated opcode.
	Not

	// Control flow. Each carries a signed 16-bit PC-relative offset.
	// IfEq pops a value and jumps if it is falsy (mirrors the original
	// engine's "jump if top-of-stack == 0"); IfNe jumps if truthy.
	// IfNullish jumps if the popped value is undefined or null, for `??`
	// (distinct from falsy: 0/""/false must not trigger it). Goto is
	// unconditional.
	IfEq
	IfNe
	IfNullish
	Goto

	// Calls, construction, closures.
	FunctionCall // u8 operand: argument count
	Construct    // u8 operand: argument count
	Return
	Closure // u16 operand: function-def const-pool index

	// this/super.
	GetThis
	GetOuterThis
	GetSuper
	GetSuperCtor  // pushes the current function's FunctionObject.SuperClass
	SuperCall     // u8 operand: argument count; calls GetSuperCtor's result with this=GetThis
	BindThis      // pops a bare callee, pushes a BoundFunction{Target:callee, This:GetThis()}
	SetHomeObject // pops homeObject, pops fn; sets fn.(*FunctionObject).HomeObject, re-pushes fn
	LinkSuperclass // pops superclass, pops ctor; links ctor/ctor.prototype onto superclass/superclass.prototype (spec §4.2)

	// ClosureEnv cell access (u8 index into the current function's
	// ClosureVarTable) and global-object property access (const-pool name
	// index, always a u16 operand). Spec §4.3
	// names "closure-table entry" and "global lookup" as the two
	// cross-function name-resolution outcomes without detailing their
	// opcodes; these round the representative table out the same way
	// PropertyLoad/PropertyStore round out named property access.
	ClosureLoad
	ClosureStore
	GlobalLoad
	GlobalStore

	// Exception flow. TryBegin/TryEnd bracket a protected region whose
	// handler ranges live in the function's ExceptionTable, not inline;
	// these opcodes only mark the boundary for the compiler's table
	// builder and are no-ops at dispatch time.
	TryBegin
	TryEnd
	Throw
	FinallyReturn // carries a deferred return value through a finally block
	FinallyGoto   // signed 16-bit relative jump offset, like Goto, carried through finally

	// Suspension.
	Yield
	Await

	// Stack shaping.
	Swap
	Dump // duplicate top-of-stack
	Pop
	Undefined // push the undefined value

	opcodeCount
)

// info describes one opcode's disassembly mnemonic and immediate-operand
// width in bytes (0, 1, 2, or 4; jump targets below are a special signed
// 2-byte case called out via IsJump).
type info struct {
	name      string
	immWidth  int
	isJump    bool
}

var table = [opcodeCount]info{
	CLoad0:        {"cload_0", 0, false},
	CLoad1:        {"cload_1", 0, false},
	CLoad2:        {"cload_2", 0, false},
	CLoad3:        {"cload_3", 0, false},
	CLoad4:        {"cload_4", 0, false},
	CLoad5:        {"cload_5", 0, false},
	CLoad:         {"cload", 1, false},
	CLoadW:        {"cload_w", 2, false},
	CLoadD:        {"cload_d", 4, false},
	VLoad0:        {"vload_0", 0, false},
	VLoad1:        {"vload_1", 0, false},
	VLoad2:        {"vload_2", 0, false},
	VLoad3:        {"vload_3", 0, false},
	VLoad:         {"vload", 1, false},
	VStore0:       {"vstore_0", 0, false},
	VStore1:       {"vstore_1", 0, false},
	VStore2:       {"vstore_2", 0, false},
	VStore3:       {"vstore_3", 0, false},
	VStore:        {"vstore", 1, false},
	PropertyLoad:  {"propertyload", 0, false},
	PropertyStore: {"propertystore", 0, false},
	PropertyCall:  {"propertycall", 0, false},
	IndexedLoad:   {"indexedload", 0, false},
	IndexedStore:  {"indexedstore", 0, false},
	Add:           {"add", 0, false},
	Sub:           {"sub", 0, false},
	Mul:           {"mul", 0, false},
	Div:           {"div", 0, false},
	Mod:           {"mod", 0, false},
	Neg:           {"neg", 0, false},
	Shl:           {"shl", 0, false},
	Shr:           {"shr", 0, false},
	UShr:          {"ushr", 0, false},
	BitAnd:        {"bitand", 0, false},
	BitOr:         {"bitor", 0, false},
	BitXor:        {"bitxor", 0, false},
	BitNot:        {"bitnot", 0, false},
	Eq:            {"eq", 0, false},
	Ne:            {"ne", 0, false},
	StrictEq:      {"stricteq", 0, false},
	StrictNe:      {"strictne", 0, false},
	Lt:            {"lt", 0, false},
	Le:            {"le", 0, false},
	Gt:            {"gt", 0, false},
	Ge:            {"ge", 0, false},
	Not:           {"not", 0, false},
	IfEq:          {"ifeq", 2, true},
	IfNe:          {"ifne", 2, true},
	IfNullish:     {"ifnullish", 2, true},
	Goto:          {"goto", 2, true},
	FunctionCall:  {"functioncall", 1, false},
	Construct:     {"new", 1, false},
	Return:        {"return", 0, false},
	Closure:       {"closure", 2, false},
	GetThis:        {"getthis", 0, false},
	GetOuterThis:   {"getouterthis", 0, false},
	GetSuper:       {"getsuper", 0, false},
	GetSuperCtor:   {"getsuperctor", 0, false},
	SuperCall:      {"supercall", 1, false},
	BindThis:       {"bindthis", 0, false},
	SetHomeObject:  {"sethomeobject", 0, false},
	LinkSuperclass: {"linksuperclass", 0, false},
	ClosureLoad:   {"closureload", 1, false},
	ClosureStore:  {"closurestore", 1, false},
	GlobalLoad:    {"globalload", 2, false},
	GlobalStore:   {"globalstore", 2, false},
	TryBegin:      {"trybegin", 0, false},
	TryEnd:        {"tryend", 0, false},
	Throw:         {"throw", 0, false},
	FinallyReturn: {"finallyreturn", 0, false},
	FinallyGoto:   {"finallygoto", 2, true},
	Yield:         {"yield", 0, false},
	Await:         {"await", 0, false},
	Swap:          {"swap", 0, false},
	Dump:          {"dump", 0, false},
	Pop:           {"pop", 0, false},
	Undefined:     {"undefined", 0, false},
}

// Name returns op's disassembly mnemonic.
func (op Opcode) Name() string {
	if int(op) >= len(table) {
		return "unknown"
	}
	return table[op].name
}

// ImmWidth returns the number of immediate-operand bytes following op in
// the instruction stream.
func (op Opcode) ImmWidth() int { return table[op].immWidth }

// IsJump reports whether op's immediate is a signed 16-bit PC-relative
// offset rather than a plain index/count.
func (op Opcode) IsJump() bool { return table[op].isJump }

func (op Opcode) String() string { return op.Name() }
