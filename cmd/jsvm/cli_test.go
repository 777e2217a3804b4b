package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"jsvm/internal/config"
	"jsvm/internal/enginelog"
)

func setupTestGlobals(t *testing.T) {
	t.Helper()
	cfg = config.DefaultEngineConfig()
	elog = enginelog.Noop
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("unexpected error creating pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	out, _ := io.ReadAll(r)
	return string(out)
}

func TestRunEvalPrintsResult(t *testing.T) {
	setupTestGlobals(t)
	out := captureStdout(t, func() {
		if err := runEval(&cobra.Command{}, []string{"2 + 3 * 4"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if strings.TrimSpace(out) != "14" {
		t.Errorf("expected output \"14\", got %q", out)
	}
}

func TestRunEvalReturnsSyntaxError(t *testing.T) {
	setupTestGlobals(t)
	if err := runEval(&cobra.Command{}, []string{"let let let;"}); err == nil {
		t.Fatal("expected a syntax error")
	}
}

func TestRunRunExecutesModuleFile(t *testing.T) {
	setupTestGlobals(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.js")
	if err := os.WriteFile(path, []byte("export let x = 1 + 2;"), 0644); err != nil {
		t.Fatalf("unexpected error writing test file: %v", err)
	}

	watchFlag = false
	out := captureStdout(t, func() {
		if err := runRun(&cobra.Command{}, []string{path}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if out == "" {
		t.Error("expected some output from running the module")
	}
}

func TestRunRunReportsMissingFile(t *testing.T) {
	setupTestGlobals(t)
	watchFlag = false
	if err := runRun(&cobra.Command{}, []string{filepath.Join(t.TempDir(), "missing.js")}); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestRunDumpBytecodeRoundTripsThroughCache(t *testing.T) {
	setupTestGlobals(t)
	cfg.Snapshot.Enabled = true
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "cache.db")
	dumpDisassembleAll = true

	dir := t.TempDir()
	path := filepath.Join(dir, "script.js")
	if err := os.WriteFile(path, []byte("return 1 + 2;"), 0644); err != nil {
		t.Fatalf("unexpected error writing test file: %v", err)
	}

	first := captureStdout(t, func() {
		if err := runDumpBytecode(&cobra.Command{}, []string{path}); err != nil {
			t.Fatalf("unexpected error on first dump: %v", err)
		}
	})
	second := captureStdout(t, func() {
		if err := runDumpBytecode(&cobra.Command{}, []string{path}); err != nil {
			t.Fatalf("unexpected error on cached dump: %v", err)
		}
	})
	if first == "" || second == "" {
		t.Fatal("expected non-empty disassembly output both times")
	}
	if first != second {
		t.Errorf("expected a cache hit to reproduce the same disassembly, got different output")
	}
}

func TestRunReplEchoesEachExpressionResult(t *testing.T) {
	setupTestGlobals(t)
	in := strings.NewReader("1 + 1\nlet bad ===\n")
	var out, errOut bytes.Buffer

	if err := runRepl(in, &out, &errOut); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "2") {
		t.Errorf("expected the REPL to print 2 for 1 + 1, got %q", out.String())
	}
	if errOut.Len() == 0 {
		t.Error("expected the malformed second line to report an error")
	}
}
