package main

import (
	"path"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/wasmload/internal/bindings"
)

func newManifestCommand(c *rootCommand) *cobra.Command {
	var (
		name    string
		version string
	)

	cmd := &cobra.Command{
		Use:   "manifest <locator | ->",
		Short: "Print a bindings.yaml describing a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			compiled, err := c.app.Loader().Compile(cmd.Context(), in)
			if err != nil {
				return err
			}

			wasmFile := "web_bg.wasm"
			if args[0] != "-" {
				wasmFile = path.Base(args[0])
			}

			m := bindings.GenerateManifest(name, version, wasmFile, compiled)
			out, err := m.Marshal()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "web", "package name")
	cmd.Flags().StringVar(&version, "version", "0.1.0", "package version")

	return cmd
}
