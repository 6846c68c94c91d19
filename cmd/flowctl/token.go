package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"flowdesk/internal/core/id"
	"flowdesk/internal/domain/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token utilities",
	}

	var (
		owner   string
		subject string
		ttl     time.Duration
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Sign a bearer token for an owner",
		Example: `  flowctl token mint --owner 0190f3c2-... --subject ops@shop.example
  flowctl token mint --new-owner --ttl 720h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			var ownerID id.ID
			if newOwner, _ := cmd.Flags().GetBool("new-owner"); newOwner {
				ownerID = id.New()
			} else {
				ownerID, err = id.Parse(owner)
				if err != nil {
					return fmt.Errorf("invalid owner id (or pass --new-owner): %w", err)
				}
			}

			jwtCfg := auth.JWTConfig{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				TokenTTL: cfg.Auth.TokenTTL,
			}
			if ttl > 0 {
				jwtCfg.TokenTTL = ttl
			}

			token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateToken(ownerID, subject)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "owner:   %s\n", ownerID)
			fmt.Fprintf(out, "expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "token:   %s\n", token)
			return nil
		},
	}
	mint.Flags().StringVar(&owner, "owner", "", "owner id")
	mint.Flags().Bool("new-owner", false, "generate a new owner id")
	mint.Flags().StringVar(&subject, "subject", "flowctl", "token subject")
	mint.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")

	cmd.AddCommand(mint)
	return cmd
}
