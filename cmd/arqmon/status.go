package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print how many job keys the store holds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.service.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "jobs_len: %s\n", st["jobs_len"])
			return nil
		},
	}
}
