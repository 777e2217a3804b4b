package snapshot

import (
	"path/filepath"
	"testing"

	"jsvm/internal/compiler"
	"jsvm/internal/constpool"
	"jsvm/internal/parser"
)

func compileTestScript(t *testing.T, source string) (*compiler.FunctionDef, *constpool.Local) {
	t.Helper()
	p := parser.New(source)
	prog, err := p.ParseProgram(false)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	global := constpool.NewGlobal()
	local := constpool.NewLocal()
	comp := compiler.New(global, local)
	def, err := comp.CompileScript(prog)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	return def, local
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "cache.db"), nil)
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKeyOfIsStableAndContentAddressed(t *testing.T) {
	a := KeyOf("let x = 1;")
	b := KeyOf("let x = 1;")
	c := KeyOf("let x = 2;")
	if a != b {
		t.Error("expected identical source to hash identically")
	}
	if a == c {
		t.Error("expected differing source to hash differently")
	}
}

func TestGetMissesOnUncachedSource(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.Get("return 1;")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected a cache miss for source never Put")
	}
}

func TestPutThenGetRoundTripsBytecode(t *testing.T) {
	s := openTestStore(t)
	source := "return 2 + 3 * 4;"
	def, local := compileTestScript(t, source)

	if err := s.Put(source, "<test>", def, local); err != nil {
		t.Fatalf("unexpected error on Put: %v", err)
	}

	got, ok, err := s.Get(source)
	if err != nil {
		t.Fatalf("unexpected error on Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit after Put")
	}
	if got.Entry == nil {
		t.Fatal("expected a non-nil restored entry")
	}
	if string(got.Entry.Chunk.Bytes()) != string(def.Chunk.Bytes()) {
		t.Errorf("restored bytecode differs from the original")
	}
	if got.Pool.Size() != local.Size() {
		t.Errorf("expected restored pool size %d, got %d", local.Size(), got.Pool.Size())
	}
}

func TestPutOverwritesPriorSnapshotForSameSource(t *testing.T) {
	s := openTestStore(t)
	source := "return 1;"
	def, local := compileTestScript(t, source)

	if err := s.Put(source, "<first>", def, local); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Put(source, "<second>", def, local); err != nil {
		t.Fatalf("unexpected error on overwrite: %v", err)
	}

	// Overwrite must not leave two rows behind for the same hash; Get
	// still resolves to exactly one record either way.
	if _, ok, err := s.Get(source); err != nil || !ok {
		t.Fatalf("expected a single resolvable cache hit, ok=%v err=%v", ok, err)
	}
}

func TestInvalidateRemovesCachedSnapshot(t *testing.T) {
	s := openTestStore(t)
	source := "return true;"
	def, local := compileTestScript(t, source)

	if err := s.Put(source, "<test>", def, local); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Invalidate(source); err != nil {
		t.Fatalf("unexpected error invalidating: %v", err)
	}
	if _, ok, err := s.Get(source); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if ok {
		t.Error("expected a cache miss after Invalidate")
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}
