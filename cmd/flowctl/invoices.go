package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"flowdesk/internal/app"
)

func newInvoicesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Invoice maintenance jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "refresh-overdue",
		Short: "Mark invoices past their due date as overdue (all owners)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				total := 0
				for {
					n, err := a.Services.Invoices.RefreshOverdue(ctx)
					if err != nil {
						return err
					}
					total += n
					if n == 0 {
						break
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d invoice(s) marked overdue\n", total)
				return nil
			})
		},
	})
	return cmd
}
