// Package config loads the engine's tuning knobs the way the teacher's
// internal/config/config.go loads Config: a YAML-tagged struct, a
// Default*Config constructor, and a Load that falls back to defaults when
// no file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"jsvm/internal/gc"

	"gopkg.in/yaml.v3"
)

// GCConfig mirrors internal/gc.Config's tuning surface so it can be
// YAML-configured instead of hardcoded, per SPEC_FULL.md's ambient
// configuration section.
type GCConfig struct {
	SemiSizeBytes            uint32 `yaml:"semi_size_bytes"`
	OldInitialSizeBytes      uint32 `yaml:"old_initial_size_bytes"`
	LargeObjectThresholdBytes uint32 `yaml:"large_object_threshold_bytes"`
	GCThresholdPercent       int    `yaml:"gc_threshold_percent"`
	OldGCThresholdPercent    int    `yaml:"old_gc_threshold_percent"`
}

// ShapeConfig exposes the hidden-class trie's dictionary-promotion knob.
type ShapeConfig struct {
	DictionaryThreshold int `yaml:"dictionary_threshold"`
}

// MicrotaskConfig bounds how many jobs a single ExecuteMicrotasks call
// drains before yielding back to the embedder, so a pathological script
// that keeps re-enqueuing work can't starve the host loop forever.
type MicrotaskConfig struct {
	BatchSize int `yaml:"batch_size"`
}

// LoggingConfig mirrors the teacher's LoggingConfig shape (level/format/
// file), minus the per-category map this engine doesn't carry (see
// internal/enginelog).
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SnapshotConfig drives internal/snapshot's compiled-bytecode cache:
// Enabled switches the cache on, and Path is only used while Enabled is
// set; a disabled cache (the zero Enabled) is a valid configuration.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EngineConfig holds every tunable the engine reads at context-creation
// time (spec: "execution context owns a GC manager, a shape manager,
// ... — their tuning knobs are this struct's job, not a hardcoded
// constant).
type EngineConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	GC        GCConfig        `yaml:"gc"`
	Shape     ShapeConfig     `yaml:"shape"`
	Microtask MicrotaskConfig `yaml:"microtask"`
	Logging   LoggingConfig   `yaml:"logging"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
}

// DefaultEngineConfig returns the engine's out-of-the-box tuning, mirroring
// the teacher's DefaultConfig constructor pattern.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Name:    "jsvm",
		Version: "0.1.0",
		GC: GCConfig{
			SemiSizeBytes:             1 << 20,
			OldInitialSizeBytes:       4 << 20,
			LargeObjectThresholdBytes: 64 << 10,
			GCThresholdPercent:        80,
			OldGCThresholdPercent:     90,
		},
		Shape: ShapeConfig{
			DictionaryThreshold: 64,
		},
		Microtask: MicrotaskConfig{
			BatchSize: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "jsvm.log",
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    "jsvm-snapshots.db",
		},
	}
}

// Load loads an EngineConfig from a YAML file, falling back to defaults
// (and silently tolerating a missing file) exactly as the teacher's Load
// does for its own Config.
func Load(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ToGCConfig converts the YAML-facing GCConfig into the gc.Config shape
// internal/gc.NewManagerWithConfig expects, so a loaded EngineConfig can
// drive Manager construction directly.
func (c *EngineConfig) ToGCConfig() gc.Config {
	return gc.Config{
		SemiSize:              c.GC.SemiSizeBytes,
		OldInitialSize:        c.GC.OldInitialSizeBytes,
		LargeObjectThreshold:  c.GC.LargeObjectThresholdBytes,
		GCThresholdPercent:    c.GC.GCThresholdPercent,
		OldGCThresholdPercent: c.GC.OldGCThresholdPercent,
	}
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func (c *EngineConfig) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
