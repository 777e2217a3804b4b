package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"jsvm/internal/runtime"
	"jsvm/internal/snapshot"
	"jsvm/internal/value"
)

var (
	watchFlag     bool
	watchDebounce time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Compile and run a JavaScript module file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	path := args[0]
	rt := runtime.New(cfg, elog)

	store, err := openSnapshotStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	if err := runModuleFile(rt, store, path); err != nil {
		return err
	}
	if !watchFlag {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("run --watch: create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("run --watch: watch %s: %w", path, err)
	}

	elog.Info("watching %s for changes", path)
	var lastRun time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastRun) < watchDebounce {
				continue
			}
			lastRun = time.Now()
			if err := runModuleFile(rt, store, path); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			elog.Warn("watch error: %v", err)
		}
	}
}

// runModuleFile reads path, runs it as a module against a fresh Context,
// and prints the module body's completion value.
func runModuleFile(rt *runtime.Runtime, store *snapshot.Store, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("run: read %s: %w", path, err)
	}

	ctx := rt.NewContext()
	modValue, err := ctx.CompileModule(path, string(src))
	if err != nil {
		return fmt.Errorf("run: %s: %w", path, err)
	}
	result, err := ctx.CallModule(modValue)
	if err != nil {
		return fmt.Errorf("run: %s: %w", path, err)
	}
	if err := ctx.ExecuteMicrotasks(); err != nil {
		elog.Warn("run: microtask error: %v", err)
	}
	_ = store // module runs are never snapshot-cached (only scripts are, see dump-bytecode)
	fmt.Println(value.ToDisplayString(result))
	return nil
}

// openSnapshotStore opens the configured snapshot cache, or returns a nil
// Store (not an error) when the cache is disabled.
func openSnapshotStore() (*snapshot.Store, error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	store, err := snapshot.Open(cfg.Snapshot.Path, elog)
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}
	return store, nil
}
