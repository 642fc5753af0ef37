package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "technovit/internal/jwt_token"
	"technovit/internal/platform/config"
	"technovit/internal/platform/logger"
	platformredis "technovit/internal/platform/redis"
	"technovit/internal/platform/revocation"
	userservice "technovit/internal/user/service"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue or revoke bearer tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newTokenIssueCommand())
	cmd.AddCommand(newTokenRevokeCommand())
	return cmd
}

func newTokenIssueCommand() *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Print a bearer token for an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Environment, cfg.LogLevel)
			st, err := openStores(cmd.Context(), cfg.Store, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.close(context.Background()) }()

			user, err := userservice.New(st.users).FindByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}
			token, err := jwttoken.NewJWTService(cfg.SecretKey, cfg.JWTIssuer).GenerateAccessToken(user.ID, user.Role, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to ACCESS_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTokenRevokeCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Add a token's jti to the shared revocation list",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled() {
				return fmt.Errorf("revocation needs REDIS_URL; in-memory revocations do not outlive the process")
			}
			claims, err := jwttoken.NewJWTService(cfg.SecretKey, cfg.JWTIssuer).ValidateToken(token)
			if err != nil {
				return err
			}
			client, err := platformredis.New(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			defer client.Close()

			ttl := time.Until(claims.ExpiresAt.Time)
			if err := revocation.NewRedisList(client.Client).RevokeToken(cmd.Context(), claims.ID, ttl); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %s until %s\n", claims.ID, claims.ExpiresAt.Time.Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token to revoke")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}
