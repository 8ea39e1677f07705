package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func idsCmd(root, configPath *string) *cobra.Command {
	var withLocation bool

	cmd := &cobra.Command{
		Use:   "ids",
		Short: "List every section identifier defined in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(cmd, *root, *configPath)
			if err != nil {
				return err
			}

			for _, id := range svc.AllIDs() {
				if withLocation {
					loc, _ := svc.Definition(id)
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s:%d\n", id, loc.File, loc.Line+1)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&withLocation, "location", "l", false, "Include the defining file and line")

	return cmd
}
