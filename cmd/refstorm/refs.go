package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func refsCmd(root, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <identifier>",
		Short: "List every reference to a section identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(cmd, *root, *configPath)
			if err != nil {
				return err
			}

			id := args[0]
			refs := svc.References(id)
			if len(refs) == 0 {
				return fmt.Errorf("no references to %q", id)
			}
			for _, ref := range refs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d\n", ref.File, ref.Range.Line+1, ref.Range.StartCol+1)
			}
			return nil
		},
	}

	return cmd
}
