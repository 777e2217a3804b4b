package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jsvm/internal/compiler"
	"jsvm/internal/runtime"
)

var dumpDisassembleAll bool

var dumpBytecodeCmd = &cobra.Command{
	Use:   "dump-bytecode <file>",
	Short: "Compile a script and print its disassembled bytecode",
	Args:  cobra.ExactArgs(1),
	RunE:  runDumpBytecode,
}

func runDumpBytecode(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dump-bytecode: read %s: %w", path, err)
	}
	source := string(src)

	store, err := openSnapshotStore()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	rt := runtime.New(cfg, elog)

	var def *compiler.FunctionDef
	if store != nil {
		snap, ok, err := store.Get(source)
		if err != nil {
			return fmt.Errorf("dump-bytecode: cache lookup: %w", err)
		}
		if ok {
			elog.Debug("dump-bytecode: cache hit for %s", path)
			def = snap.Entry
		}
	}

	if def == nil {
		ctx := rt.NewContext()
		scriptValue, err := ctx.CompileScript(path, source)
		if err != nil {
			return fmt.Errorf("dump-bytecode: %s: %w", path, err)
		}
		fd, ok := scriptValue.Heap().(*compiler.FunctionDef)
		if !ok {
			return fmt.Errorf("dump-bytecode: %s: compiled to a non-script value", path)
		}
		def = fd
		if store != nil {
			if err := store.Put(source, path, def, ctx.LocalPool()); err != nil {
				return fmt.Errorf("dump-bytecode: cache store: %w", err)
			}
		}
	}

	lines := def.Chunk.DisassembleAll()
	if !dumpDisassembleAll && len(lines) > 200 {
		lines = lines[:200]
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
