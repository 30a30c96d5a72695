package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amp-labs/suspense/statemachine"
	"github.com/amp-labs/suspense/statemachine/visualizer"
)

func newDiagramCmd() *cobra.Command {
	var (
		direction string
		noActions bool
		raw       bool
		highlight []string
	)

	cmd := &cobra.Command{
		Use:   "diagram [file]",
		Short: "Print the Mermaid diagram of a definition",
		Long:  `Outputs a Mermaid state diagram for the embedded suspense definition, or for the YAML file given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := statemachine.LoadConfig(target(args))
			if err != nil {
				return err
			}

			opts := visualizer.DefaultOptions().
				WithDirection(direction).
				WithShowActions(!noActions).
				WithFenced(!raw).
				WithHighlightPath(highlight)

			out, err := visualizer.GenerateMermaidWithOptions(config, opts)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "TB", "diagram direction (TB, LR, BT, RL)")
	cmd.Flags().BoolVar(&noActions, "no-actions", false, "omit action names from edge labels")
	cmd.Flags().BoolVar(&raw, "raw", false, "omit the markdown code fence")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "states to highlight")

	return cmd
}
