package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jsvm/internal/runtime"
	"jsvm/internal/value"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive read-eval-print loop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(os.Stdin, os.Stdout, os.Stderr)
	},
}

// runRepl drives one Context through lines read from in, printing each
// result to out and each error to errOut — split out from replCmd's RunE
// so a test can feed it a strings.Reader instead of stdin.
func runRepl(in io.Reader, out, errOut io.Writer) error {
	rt := runtime.New(cfg, elog)
	ctx := rt.NewContext()

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			fmt.Fprint(out, "> ")
			continue
		}

		result, err := ctx.Eval("<repl>", line)
		if err != nil {
			fmt.Fprintln(errOut, err)
		} else {
			if err := ctx.ExecuteMicrotasks(); err != nil {
				fmt.Fprintf(errOut, "microtask error: %v\n", err)
			}
			fmt.Fprintln(out, value.ToDisplayString(result))
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
