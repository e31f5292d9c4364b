package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSheetsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List the workbook's sheet names",
		Long:  "Resolve credentials, fetch workbook metadata, and print the sheet names in tab order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := newSyncProvider()(ctx)
			if err != nil {
				return err
			}
			names, err := svc.ListSheetNames(ctx)
			if err != nil {
				return fmt.Errorf("list sheets: %w", err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Upstream call timeout")

	return cmd
}
