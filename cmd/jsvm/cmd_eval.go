package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jsvm/internal/runtime"
	"jsvm/internal/value"
)

var evalCmd = &cobra.Command{
	Use:   "eval <source>",
	Short: "Evaluate a JavaScript expression or statement list and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func runEval(cmd *cobra.Command, args []string) error {
	rt := runtime.New(cfg, elog)
	ctx := rt.NewContext()

	result, err := ctx.Eval("<eval>", args[0])
	if err != nil {
		return err
	}
	if err := ctx.ExecuteMicrotasks(); err != nil {
		elog.Warn("eval: microtask error: %v", err)
	}
	fmt.Println(value.ToDisplayString(result))
	return nil
}
