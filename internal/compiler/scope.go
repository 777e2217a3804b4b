package compiler

// ScopeKind tags what kind of lexical region a Scope represents (spec
// §4.3's scope-kind list).
type ScopeKind int

const (
	ScopeFunction ScopeKind = iota
	ScopeArrowFunction
	ScopeBlock
	ScopeIf
	ScopeWhile
	ScopeFor
	ScopeTry
	ScopeCatch
	ScopeFinally
	ScopeTryFinally
	ScopeCatchFinally
)

// VarFlags annotates a declared binding.
type VarFlags uint8

const (
	VarNone  VarFlags = 0
	VarConst VarFlags = 1
)

// varInfo is what a name resolves to inside the function that declares it.
type varInfo struct {
	Slot  uint32
	Flags VarFlags
}

// funcState is the per-FunctionDef compilation state: its local-slot
// allocator, its parent in the static nesting chain (nil for the
// outermost/module function), and the closure-table entries it has
// already materialized for names captured from enclosing functions.
type funcState struct {
	def        *FunctionDef
	parent     *funcState
	nextSlot   uint32
	closureIdx map[string]uint32 // name -> index already materialized in def.ClosureVars
	captured   map[uint32]bool   // local slots promoted to a ClosureVar cell because an inner function closes over them
}

func newFuncState(def *FunctionDef, parent *funcState) *funcState {
	return &funcState{
		def:        def,
		parent:     parent,
		closureIdx: make(map[string]uint32),
		captured:   make(map[uint32]bool),
	}
}

func (f *funcState) allocSlot() uint32 {
	slot := f.nextSlot
	f.nextSlot++
	if int(f.nextSlot) > f.def.LocalCount {
		f.def.LocalCount = int(f.nextSlot)
	}
	return slot
}

// loopInfo tracks the patch points a loop's break/continue statements
// need, and the PC `continue` should jump to (spec §4.3's JumpManager:
// "while/for use a loop-start PC and a break/continue patch list").
type loopInfo struct {
	label           string
	continuePC      uint32
	continueIsPatch bool   // true when continue jumps to a not-yet-known PC (patched like break)
	breakPatches    []uint32
	continuePatches []uint32
}

// scope is one lexical region: a block, a loop/if/try body, or a whole
// function. Scopes nest within a single funcState for ordinary blocks;
// crossing into a nested function pushes a scope whose fn differs from
// its parent's.
type scope struct {
	kind   ScopeKind
	parent *scope
	fn     *funcState
	vars   map[string]*varInfo
	loop   *loopInfo // non-nil for loop scopes, switch bodies and labeled blocks (see withLoopScope)
}

func newScope(kind ScopeKind, parent *scope, fn *funcState) *scope {
	return &scope{kind: kind, parent: parent, fn: fn, vars: make(map[string]*varInfo)}
}

// declare allocates a fresh local slot for name in this function and
// records it in the current scope.
func (s *scope) declare(name string, flags VarFlags) *varInfo {
	info := &varInfo{Slot: s.fn.allocSlot(), Flags: flags}
	s.vars[name] = info
	return info
}

// enclosingLoop walks outward (within the current function only — a loop
// in an enclosing function is not a valid break/continue target) looking
// for a loop scope, optionally matching a label.
func (s *scope) enclosingLoop(label string) *loopInfo {
	for cur := s; cur != nil && cur.fn == s.fn; cur = cur.parent {
		if cur.loop == nil {
			continue
		}
		if label == "" || cur.loop.label == label {
			return cur.loop
		}
	}
	return nil
}
