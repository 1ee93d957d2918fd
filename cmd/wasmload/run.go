package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand(c *rootCommand) *cobra.Command {
	var pkgName string

	cmd := &cobra.Command{
		Use:   "run [locator | -]",
		Short: "Instantiate a module and call its run export",
		Long: `Instantiate a module and call its zero-argument run export.

The module is read from an http(s) URL, a file:// URL or a path, from stdin
when the argument is "-", or from the configured default locator when no
argument is given. With --package the module of a discovered package runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := c.run(cmd, args, pkgName)
			if err != nil {
				return err
			}

			for _, r := range results {
				fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pkgName, "package", "p", "", "run the module of a discovered package")

	return cmd
}

func (c *rootCommand) run(cmd *cobra.Command, args []string, pkgName string) ([]uint64, error) {
	ctx := cmd.Context()

	if pkgName == "" {
		in, err := parseInput(args, cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		return c.app.Loader().Run(ctx, in)
	}

	if len(args) > 0 {
		return nil, errors.New("--package and a module argument are mutually exclusive")
	}

	manager, err := c.app.Packages(ctx)
	if err != nil {
		return nil, err
	}
	return manager.Run(ctx, pkgName)
}
