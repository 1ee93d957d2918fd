package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/woxQAQ/wasmload/internal/bindings"
	"github.com/woxQAQ/wasmload/internal/wasm"
)

func newExportsCommand(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "exports [locator | -]",
		Short: "List the exported functions and memories of a module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			compiled, err := c.app.Loader().Compile(cmd.Context(), in)
			if err != nil {
				return err
			}

			printExports(cmd, compiled)
			return nil
		},
	}
}

var (
	kindColor = color.New(color.FgCyan) // Export kinds.
	sigColor  = color.New(color.Faint)  // Signatures.
)

func printExports(cmd *cobra.Command, compiled *wasm.CompiledModule) {
	out := cmd.OutOrStdout()

	m := bindings.GenerateManifest(compiled.Name, "", "", compiled)
	for _, exp := range m.Exports {
		fmt.Fprintf(out, "%s   %s %s\n",
			kindColor.Sprint("func"), exp.Name, sigColor.Sprint(bindings.Signature(exp.Params, exp.Results)))
	}

	mems := compiled.Module.ExportedMemories()
	names := make([]string, 0, len(mems))
	for name := range mems {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%s %s\n", kindColor.Sprint("memory"), name)
	}
}
