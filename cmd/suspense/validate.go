package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amp-labs/suspense/statemachine/validator"
	"github.com/amp-labs/suspense/suspense"
)

var errInvalid = errors.New("definition is invalid")

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Check a definition for consistency",
		Long: `Lints the embedded suspense definition, or the YAML file given, and reports unreachable
states, unused events, naming problems and unknown actions. With --strict warnings fail too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := target(args)

			result, err := validator.ValidateFileWithOptions(path, strict, validator.WithActions(suspense.Actions().Names()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if _, err := fmt.Fprint(out, result.String()); err != nil {
				return err
			}

			if !result.Valid {
				return fmt.Errorf("%s: %w", path, errInvalid)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")

	return cmd
}

// target returns the file argument, or the embedded definition's name.
func target(args []string) string {
	if len(args) > 0 {
		return args[0]
	}

	return suspense.Name
}
