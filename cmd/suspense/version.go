package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amp-labs/suspense/build"
)

func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of suspense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := build.Current()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(info)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "suspense version %s (%s)\n", info.Version, info.GoVersion)

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print full build information as JSON")

	return cmd
}
