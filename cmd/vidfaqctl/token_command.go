package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/binyominzeev/vidfaq/internal/config"
	"github.com/binyominzeev/vidfaq/internal/middleware"
)

func newTokenCommand(load func() (*config.Config, error)) *cobra.Command {
	var (
		ownerID string
		email   string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}

			token, err := middleware.NewAuthenticator(cfg.Auth.JWTSecret).GenerateToken(ownerID, email, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner ID to embed in the token")
	cmd.Flags().StringVar(&email, "email", "", "Owner email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default auth.tokenTTL)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
