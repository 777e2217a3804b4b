// Command jsvm is the embedder driving internal/runtime from a terminal:
// it compiles and runs scripts the way any host application embedding
// the engine would, through the same Runtime/Context API spec §6.1
// describes. File layout mirrors the teacher's cmd/nerd: one main.go for
// the root command, global flags, and zap bootstrap, one cmd_*.go per
// subcommand.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"jsvm/internal/config"
	"jsvm/internal/enginelog"
)

var (
	verbose    bool
	configPath string
	cachePath  string
	noCache    bool

	logger *zap.Logger
	cfg    *config.EngineConfig
	elog   enginelog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jsvm",
	Short: "jsvm - a standalone JavaScript execution engine core",
	Long: `jsvm embeds internal/runtime's Runtime/Context engine API directly:
eval a one-liner, run a script file, drop into a REPL, or dump a
script's compiled bytecode.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		elog = newZapEngineLogger(logger)

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if cachePath != "" {
			cfg.Snapshot.Enabled = true
			cfg.Snapshot.Path = cachePath
		}
		if noCache {
			cfg.Snapshot.Enabled = false
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "jsvm.yaml", "Path to an EngineConfig YAML file")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "Enable the bytecode snapshot cache at this path")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable the bytecode snapshot cache even if configured")
	runCmd.Flags().BoolVar(&watchFlag, "watch", false, "Re-evaluate the module when the source file changes")
	runCmd.Flags().DurationVar(&watchDebounce, "watch-debounce", 100*time.Millisecond, "Minimum interval between re-evaluations while watching")
	dumpBytecodeCmd.Flags().BoolVar(&dumpDisassembleAll, "all", false, "Show every instruction, not just the first 200")

	rootCmd.AddCommand(evalCmd, runCmd, replCmd, dumpBytecodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
