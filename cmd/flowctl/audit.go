package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"flowdesk/internal/app"
	"flowdesk/internal/core/id"
)

func newAuditCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit trail",
	}

	var (
		owner      string
		entityType string
		entityID   string
		limit      int
		showDiff   bool
	)
	history := &cobra.Command{
		Use:     "history",
		Short:   "Print the audit history of one entity, newest first",
		Example: `  flowctl audit history --owner 0190f3c2-... --type sale --id 0190f3c9-...`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, err := id.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			docID, err := id.Parse(entityID)
			if err != nil {
				return fmt.Errorf("invalid entity id: %w", err)
			}

			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if a.Audit == nil {
					return errors.New("audit trail requires postgres storage")
				}
				entries, err := a.Audit.GetEntityHistory(ctx, ownerID, entityType, docID, limit)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tACTION\tSUBJECT\tCOMPRESSION")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						e.CreatedAt.UTC().Format(time.RFC3339), e.Action, e.Subject, e.CompressionAlgo)
					if showDiff {
						fmt.Fprintf(w, "\t%s\n", e.Changes)
					}
				}
				return w.Flush()
			})
		},
	}
	history.Flags().StringVar(&owner, "owner", "", "owner id")
	history.Flags().StringVar(&entityType, "type", "", "entity type: invoice, sale, product, customer")
	history.Flags().StringVar(&entityID, "id", "", "entity id")
	history.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	history.Flags().BoolVar(&showDiff, "changes", false, "print the recorded payloads")
	_ = history.MarkFlagRequired("owner")
	_ = history.MarkFlagRequired("type")
	_ = history.MarkFlagRequired("id")

	cmd.AddCommand(history)
	return cmd
}
