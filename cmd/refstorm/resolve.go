package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resolveCmd(root, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <identifier>",
		Short: "Resolve an identifier to its definition and references",
		Long:  "Prints the jump target for an identifier: the section definition first, then every reference, each with a preview of the target line.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(cmd, *root, *configPath)
			if err != nil {
				return err
			}

			result, err := svc.ResolveID(args[0])
			if err != nil {
				return err
			}

			for _, c := range result.Candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s:%d  %s\n", c.Kind, c.File, c.Line+1, c.Preview)
			}
			return nil
		},
	}

	return cmd
}
