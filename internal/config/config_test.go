package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := DefaultEngineConfig()
	if cfg.GC.SemiSizeBytes != want.GC.SemiSizeBytes {
		t.Errorf("expected default semi size %d, got %d", want.GC.SemiSizeBytes, cfg.GC.SemiSizeBytes)
	}
	if cfg.Shape.DictionaryThreshold != want.Shape.DictionaryThreshold {
		t.Errorf("expected default dictionary threshold %d, got %d", want.Shape.DictionaryThreshold, cfg.Shape.DictionaryThreshold)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "engine.yaml")
	cfg := DefaultEngineConfig()
	cfg.GC.SemiSizeBytes = 2048
	cfg.Shape.DictionaryThreshold = 128
	cfg.Microtask.BatchSize = 7

	if err := cfg.Save(path); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded.GC.SemiSizeBytes != 2048 {
		t.Errorf("expected semi size 2048, got %d", loaded.GC.SemiSizeBytes)
	}
	if loaded.Shape.DictionaryThreshold != 128 {
		t.Errorf("expected dictionary threshold 128, got %d", loaded.Shape.DictionaryThreshold)
	}
	if loaded.Microtask.BatchSize != 7 {
		t.Errorf("expected microtask batch size 7, got %d", loaded.Microtask.BatchSize)
	}
}

func TestToGCConfigMapsFieldsThrough(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.GC.SemiSizeBytes = 99
	gcCfg := cfg.ToGCConfig()
	if gcCfg.SemiSize != 99 {
		t.Errorf("expected SemiSize 99, got %d", gcCfg.SemiSize)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("gc: [this is not a mapping"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
