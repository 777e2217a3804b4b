package runtime

import (
	"testing"

	"jsvm/internal/config"
	"jsvm/internal/microtask"
	"jsvm/internal/value"
)

func newTestRuntime(t *testing.T) *Context {
	t.Helper()
	rt := New(config.DefaultEngineConfig(), nil)
	return rt.NewContext()
}

func TestEvalReturnsScriptResult(t *testing.T) {
	ctx := newTestRuntime(t)
	got, err := ctx.Eval("<test>", "return 2 + 3 * 4;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind() != value.KindInt64 || got.Int64() != 14 {
		t.Fatalf("expected 14, got %v (%v)", got.Int64(), got.Kind())
	}
}

func TestEvalSurfacesSyntaxErrorWithoutPanicking(t *testing.T) {
	ctx := newTestRuntime(t)
	if _, err := ctx.Eval("<test>", "let let let;"); err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestTwoContextsShareRuntimeGlobalPoolButNotLocalState(t *testing.T) {
	rt := New(config.DefaultEngineConfig(), nil)
	a := rt.NewContext()
	b := rt.NewContext()

	if _, err := a.Eval("<a>", "g = 1;"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := b.Eval("<b>", "return typeof g;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Each context owns its own VM and global object, so a write to
	// context a's globals must not be visible from context b even though
	// both share the same Runtime.
	if got.Kind() != value.KindString || got.Str() != "undefined" {
		t.Errorf("expected contexts to have independent globals, got %v", got.Str())
	}
}

func TestCallModuleCachesResultAcrossRepeatedCalls(t *testing.T) {
	ctx := newTestRuntime(t)
	modValue, err := ctx.CompileModule("<mod>", "counter = 0; counter = counter + 1; export let x = counter;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	first, err := ctx.CallModule(modValue)
	if err != nil {
		t.Fatalf("unexpected call error: %v", err)
	}
	second, err := ctx.CallModule(modValue)
	if err != nil {
		t.Fatalf("unexpected call error: %v", err)
	}
	if first.Kind() != second.Kind() {
		t.Fatalf("expected repeated CallModule to return the cached result unchanged")
	}
}

func TestCallModuleRejectsNonModuleValue(t *testing.T) {
	ctx := newTestRuntime(t)
	if _, err := ctx.CallModule(value.Int64(1)); err == nil {
		t.Fatal("expected an error for a non-module value")
	}
}

func TestExecuteMicrotasksDrainsScheduledJobs(t *testing.T) {
	ctx := newTestRuntime(t)
	ran := false
	ctx.Jobs().Enqueue(microtask.Job{Name: "test", Run: func() error { ran = true; return nil }})
	if err := ctx.ExecuteMicrotasks(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected the queued job to run")
	}
}

func TestHandleScopeOpenAndClose(t *testing.T) {
	ctx := newTestRuntime(t)
	scope := ctx.PushHandleScope()
	if scope == nil {
		t.Fatal("expected a non-nil handle scope")
	}
	ctx.PopHandleScope(scope)
}

func TestCompileScriptThenRunScriptMatchesEval(t *testing.T) {
	ctx := newTestRuntime(t)
	scriptValue, err := ctx.CompileScript("<test>", "return 6 * 7;")
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	got, err := ctx.RunScript(scriptValue)
	if err != nil {
		t.Fatalf("unexpected run error: %v", err)
	}
	if got.Kind() != value.KindInt64 || got.Int64() != 42 {
		t.Fatalf("expected 42, got %v (%v)", got.Int64(), got.Kind())
	}
}

func TestRunScriptRejectsNonScriptValue(t *testing.T) {
	ctx := newTestRuntime(t)
	if _, err := ctx.RunScript(value.Int64(1)); err == nil {
		t.Fatal("expected an error for a non-script value")
	}
}

func TestConstPoolRoundTripsThroughContext(t *testing.T) {
	ctx := newTestRuntime(t)
	idx := ctx.FindConstOrInsertToLocal(value.Int64(7))
	if got := ctx.GetConstValue(idx); got.Int64() != 7 {
		t.Fatalf("expected 7, got %d", got.Int64())
	}
	ctx.ReferenceConstValue(idx)
	ctx.DereferenceConstValue(idx)
	ctx.DereferenceConstValue(idx)
	// Slot is now free; a fresh distinct constant should still resolve fine.
	idx2 := ctx.FindConstOrInsertToLocal(value.Int64(8))
	if got := ctx.GetConstValue(idx2); got.Int64() != 8 {
		t.Fatalf("expected 8, got %d", got.Int64())
	}
}
