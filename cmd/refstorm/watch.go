package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/refstorm/internal/refresh"
)

func watchCmd(root, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the workspace and keep the index fresh, logging refresh cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := loadService(cmd, *root, *configPath)
			if err != nil {
				return err
			}

			svc.OnRefreshEvent(func(e refresh.Event) {
				switch e.Type {
				case refresh.EventStarted:
					fmt.Fprintf(cmd.OutOrStdout(), "refresh %s started (%s)\n", e.CycleID, e.Reason)
				case refresh.EventCompleted:
					fmt.Fprintf(cmd.OutOrStdout(), "refresh %s completed: %d ids\n", e.CycleID, len(svc.AllIDs()))
				case refresh.EventFailed:
					fmt.Fprintf(cmd.ErrOrStderr(), "refresh %s failed: %v\n", e.CycleID, e.Err)
				}
			})

			if err := svc.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = svc.Stop(cmd.Context()) }()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s (%d ids indexed), ctrl-c to stop\n", *root, len(svc.AllIDs()))

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sig:
			case <-cmd.Context().Done():
			}
			return nil
		},
	}

	return cmd
}
