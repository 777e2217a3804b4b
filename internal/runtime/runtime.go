// Package runtime implements the embedder API of spec §6.1: a Runtime
// owning the data shared by every script world it hosts, and a Context
// per logical script world driving its own VM, GC, and microtask queue
// (spec §3.0, §5 "Scheduling model").
//
// The split mirrors the teacher's internal/mangle.Engine — a
// config-constructed wrapper guarding its mutable state behind a mutex —
// generalized into two cooperating types instead of one, since spec §5
// draws a hard line between what's runtime-wide (immutable after init,
// shared across contexts) and what's per-context (exclusive to one
// goroutine at a time).
package runtime

import (
	"sync"

	"jsvm/internal/ast"
	"jsvm/internal/compiler"
	"jsvm/internal/config"
	"jsvm/internal/constpool"
	"jsvm/internal/enginelog"
	"jsvm/internal/gc"
	"jsvm/internal/jserr"
	"jsvm/internal/microtask"
	"jsvm/internal/parser"
	"jsvm/internal/shape"
	"jsvm/internal/value"
	"jsvm/internal/vm"

	"github.com/google/uuid"
)

// Runtime owns the data spec §5's "shared-resource policy" calls
// runtime-wide: the global const pool and the shape manager's trie root,
// logically immutable after initialization and safe to share across
// Contexts running on distinct threads. It carries no mutable execution
// state of its own — that all lives in Context.
type Runtime struct {
	ID uuid.UUID

	cfg    *config.EngineConfig
	global *constpool.Global
	shapes *shape.Manager
	log    enginelog.Logger
}

// New builds a Runtime from cfg, interning the well-known global
// constants and standing up one shape trie root that every Context
// hosted by this Runtime will share (spec §4.6 invariant: two objects
// with the same property-insertion history converge on the same shape
// node only if they share a Manager).
func New(cfg *config.EngineConfig, log enginelog.Logger) *Runtime {
	if cfg == nil {
		cfg = config.DefaultEngineConfig()
	}
	if log == nil {
		log = enginelog.Noop
	}
	return &Runtime{
		ID:     uuid.New(),
		cfg:    cfg,
		global: constpool.NewGlobal(),
		shapes: shape.NewManagerWithThreshold(cfg.Shape.DictionaryThreshold),
		log:    log,
	}
}

// Config returns the EngineConfig this Runtime was built from.
func (r *Runtime) Config() *config.EngineConfig { return r.cfg }

// NewContext starts a fresh execution context sharing this Runtime's
// global pool and shape root, with its own local pool, GC manager, VM,
// and microtask queue (spec §3.0).
func (r *Runtime) NewContext() *Context {
	return r.NewContextWithLocal(constpool.NewLocal())
}

// NewContextWithLocal is NewContext with the local pool supplied rather
// than freshly allocated, for a caller restoring a previously compiled
// FunctionDef (such as an internal/snapshot Snapshot's Entry) alongside
// the exact local pool it was compiled against —
// a restored FunctionDef's EmitConstLoad indices are only meaningful
// against that same pool.
func (r *Runtime) NewContextWithLocal(local *constpool.Local) *Context {
	mgr := gc.NewManagerWithConfig(r.cfg.ToGCConfig())
	machine := vm.New(mgr, r.shapes, r.global, local)
	queue := microtask.New()
	mgr.AddRoot(queue)
	machine.SetJobs(queue)

	return &Context{
		ID:       uuid.New(),
		runtime:  r,
		local:    local,
		gc:       mgr,
		vm:       machine,
		jobs:     queue,
		modules:  make(map[*compiler.ModuleDef]value.Value),
		log:      r.log,
		batchMax: r.cfg.Microtask.BatchSize,
	}
}

// Context is one execution context (spec §3.0, §5): its own VM, GC heap,
// microtask queue, and local const pool, single-threaded and never
// shared between goroutines. Compiled ModuleDefs are cached so re-
// entrant CallModule calls on the same module return the cached result
// instead of re-running top-level side effects (spec §5 "A module is
// evaluated at most once per context").
type Context struct {
	ID uuid.UUID

	runtime *Runtime
	local   *constpool.Local
	gc      *gc.Manager
	vm      *vm.Vm
	jobs    *microtask.Queue
	log     enginelog.Logger

	batchMax int

	mu      sync.Mutex
	modules map[*compiler.ModuleDef]value.Value
}

// Runtime returns the shared Runtime this Context was created from.
func (c *Context) Runtime() *Runtime { return c.runtime }

// Globals returns the context's global object, the receiver `this`
// resolves to at top level and the fallback for undeclared-variable
// writes (spec §4.3).
func (c *Context) Globals() value.Value {
	return value.FromHeap(c.vm.Globals().HeapKind(), c.vm.Globals())
}

// Jobs exposes the microtask queue so a host builtin (e.g. a Promise
// reaction) can enqueue work without the Context API growing a method
// per scheduling primitive.
func (c *Context) Jobs() *microtask.Queue { return c.jobs }

// LocalPool exposes this context's local const pool, for a caller
// (internal/snapshot's Put) that needs to persist the exact pool a
// compiled FunctionDef's EmitConstLoad indices resolve against.
func (c *Context) LocalPool() *constpool.Local { return c.local }

// compileSource parses source as a module or a script, surfacing lex/parse
// errors as *jserr.SyntaxError (spec §6.1: "Fails with SyntaxError on
// parse/compile errors"); compiling the result is left to each caller.
func (c *Context) compileSource(isModule bool, source string) (*ast.Program, error) {
	p := parser.New(source)
	prog, err := p.ParseProgram(isModule)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// CompileModule parses and compiles source as a module, returning a
// Value wrapping the resulting *compiler.ModuleDef (spec §6.1).
func (c *Context) CompileModule(name, source string) (value.Value, error) {
	prog, err := c.compileSource(true, source)
	if err != nil {
		c.log.Debug("CompileModule(%s): parse error: %v", name, err)
		return value.Undefined(), err
	}
	comp := compiler.New(c.runtime.global, c.local)
	md, err := comp.CompileModule(prog)
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromHeap(value.KindModuleDef, md), nil
}

// CallModule runs a module's top-level function once; a second call
// with the same underlying ModuleDef returns the cached result without
// re-running top-level statements (spec §5, §6.1).
func (c *Context) CallModule(modValue value.Value) (value.Value, error) {
	md, ok := modValue.Heap().(*compiler.ModuleDef)
	if !ok {
		return value.Undefined(), jserr.NewRuntimeError(jserr.TypeError, "CallModule: not a module value")
	}

	c.mu.Lock()
	if cached, ok := c.modules[md]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	result, err := c.vm.Run(md.Body, value.Undefined())
	if err != nil {
		return value.Undefined(), err
	}

	c.mu.Lock()
	c.modules[md] = result
	c.mu.Unlock()
	return result, nil
}

// CompileScript parses and compiles source as a script (not a module),
// returning a Value wrapping the resulting *compiler.FunctionDef without
// running it — the non-executing half of Eval, for a caller (e.g.
// `cmd/jsvm dump-bytecode`) that wants the compiled artifact itself
// rather than its result.
func (c *Context) CompileScript(name, source string) (value.Value, error) {
	prog, err := c.compileSource(false, source)
	if err != nil {
		c.log.Debug("CompileScript(%s): parse error: %v", name, err)
		return value.Undefined(), err
	}
	comp := compiler.New(c.runtime.global, c.local)
	def, err := comp.CompileScript(prog)
	if err != nil {
		return value.Undefined(), err
	}
	return value.FromHeap(value.KindFunctionDef, def), nil
}

// Eval is CompileModule/CompileScript + call in one step, the convenience
// entrypoint spec §6.1 describes for embedders that just want to run a
// script and get its result.
func (c *Context) Eval(name, source string) (value.Value, error) {
	prog, err := c.compileSource(false, source)
	if err != nil {
		c.log.Debug("Eval(%s): parse error: %v", name, err)
		return value.Undefined(), err
	}
	comp := compiler.New(c.runtime.global, c.local)
	def, err := comp.CompileScript(prog)
	if err != nil {
		return value.Undefined(), err
	}
	return c.vm.Run(def, value.Undefined())
}

// RunScript runs a compiled script Value — the result of CompileScript, or
// of internal/snapshot restoring a cached one — against this context's VM.
// Unlike CallModule, a script's result isn't cached: re-running it re-runs
// its top-level statements (spec draws the once-only rule around modules
// specifically, not scripts).
func (c *Context) RunScript(scriptValue value.Value) (value.Value, error) {
	def, ok := scriptValue.Heap().(*compiler.FunctionDef)
	if !ok {
		return value.Undefined(), jserr.NewRuntimeError(jserr.TypeError, "RunScript: not a compiled script value")
	}
	return c.vm.Run(def, value.Undefined())
}

// CallFunction invokes a callable Value with the given receiver and
// argument list (spec §6.1).
func (c *Context) CallFunction(callee, this value.Value, args []value.Value) (value.Value, error) {
	return c.vm.Call(callee, this, args)
}

// ExecuteMicrotasks drains the queue, capped at this context's
// Microtask.BatchSize per call so a script that keeps re-enqueuing work
// can't starve the embedder forever (spec §6.1 describes an unbounded
// drain; the cap is a production embedder's defense on top of that,
// internal/config's knob). The embedder calls ExecuteMicrotasks again to
// make progress on whatever didn't fit in one call's budget. The first
// job error observed is returned once the call's batch completes (spec
// §7: "the drain continues with remaining tasks after reporting").
func (c *Context) ExecuteMicrotasks() error {
	_, err := c.jobs.DrainBatch(c.batchMax)
	return err
}

// FindConstOrInsertToLocal interns v into this context's local const
// pool, for native code that materializes a constant at runtime
// (spec §6.1).
func (c *Context) FindConstOrInsertToLocal(v value.Value) constpool.ConstIndex {
	return c.local.FindOrInsert(v)
}

// GetConstValue resolves an index previously returned by
// FindConstOrInsertToLocal or produced by compilation.
func (c *Context) GetConstValue(idx constpool.ConstIndex) value.Value {
	return c.local.Get(idx)
}

// ReferenceConstValue adds a second owner to an already-interned local
// constant (spec §6.1).
func (c *Context) ReferenceConstValue(idx constpool.ConstIndex) {
	c.local.Reference(idx)
}

// DereferenceConstValue releases this context's ownership of a local
// constant, allowing its slot to be reclaimed once no owner remains.
func (c *Context) DereferenceConstValue(idx constpool.ConstIndex) {
	c.local.Dereference(idx)
}

// PushHandleScope opens a new handle-scope region (spec §6.1, §4.5).
func (c *Context) PushHandleScope() *gc.HandleScope {
	return c.gc.OpenScope()
}

// PopHandleScope closes scope, releasing every handle allocated in it.
func (c *Context) PopHandleScope(scope *gc.HandleScope) {
	scope.Close()
}

// GC exposes the context's GC manager for an embedder that wants to force
// a collection or inspect heap stats between Eval calls.
func (c *Context) GC() *gc.Manager { return c.gc }
