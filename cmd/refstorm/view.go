package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/refstorm/internal/viewer"
)

func viewCmd(root, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "View a file with identifier references highlighted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(cmd, *root, *configPath)
			if err != nil {
				return err
			}

			v, err := viewer.New(svc, args[0])
			if err != nil {
				return err
			}
			return v.Run()
		},
	}

	return cmd
}
