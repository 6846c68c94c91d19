package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"flowdesk/internal/app"
	"flowdesk/internal/core/id"
	"flowdesk/internal/core/numerator"
	"flowdesk/internal/domain/documents/invoice"
	"flowdesk/internal/domain/documents/sale"
)

var numberConfigs = map[string]numerator.Config{
	"invoice": invoice.NumberConfig,
	"sale":    sale.NumberConfig,
}

func newSequenceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Inspect and repair document numbering",
	}

	var (
		kind   string
		owner  string
		period string
		value  int64
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Set the last allocated number of a sequence",
		Long: `Set the counter of one numbering sequence. The next document of that
kind, owner and period gets value+1. Use after importing documents.`,
		Example: `  flowctl sequence set --kind invoice --owner 0190f3c2-... --period 2024 --value 120
  flowctl sequence set --kind sale --owner 0190f3c2-... --period 2024-03 --value 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ok := numberConfigs[kind]
			if !ok {
				return fmt.Errorf("unknown kind %q (invoice or sale)", kind)
			}
			ownerID, err := id.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid owner id: %w", err)
			}
			at, err := parsePeriod(period)
			if err != nil {
				return err
			}
			if value < 0 {
				return fmt.Errorf("value cannot be negative")
			}

			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Numerator.SetNextNumber(ctx, cfg, ownerID, at, value); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s sequence %s set to %d\n", kind, cfg.Key(ownerID, at), value)
				return nil
			})
		},
	}
	set.Flags().StringVar(&kind, "kind", "", "document kind: invoice or sale")
	set.Flags().StringVar(&owner, "owner", "", "owner id")
	set.Flags().StringVar(&period, "period", "", "period as YYYY or YYYY-MM (default: current)")
	set.Flags().Int64Var(&value, "value", 0, "last allocated number")
	_ = set.MarkFlagRequired("kind")
	_ = set.MarkFlagRequired("owner")

	cmd.AddCommand(set)
	return cmd
}

func parsePeriod(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{"2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid period %q (YYYY or YYYY-MM)", s)
}
