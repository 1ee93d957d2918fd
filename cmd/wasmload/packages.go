package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPackagesCommand(c *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "packages",
		Short: "List the packages found in the configured package paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := c.app.Packages(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tEXPORTS\tLOCATOR")
			for _, pkg := range manager.Registry().List() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
					pkg.Name(), pkg.Version(), len(pkg.Exports()), pkg.Manifest.Locator())
			}
			return w.Flush()
		},
	}
}
