package cli

import (
	"errors"
	"fmt"
	"time"

	sessionstore "github.com/dalemusser/cineshelf/internal/app/store/sessions"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTokenCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage auth tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(env), newTokenRevokeCmd(env))
	return cmd
}

func newTokenIssueCmd(env *Env) *cobra.Command {
	var (
		ttl    time.Duration
		create bool
	)
	cmd := &cobra.Command{
		Use:   "issue <username>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			ctx := cmd.Context()
			users := userstore.New(env.DB)

			var (
				u   models.User
				err error
			)
			if create {
				u, err = users.GetOrCreateByUsername(ctx, args[0])
			} else {
				u, err = users.GetByUsername(ctx, args[0])
			}
			if errors.Is(err, userstore.ErrNotFound) {
				return fmt.Errorf("user %q not found (pass --create to add it)", args[0])
			}
			if err != nil {
				return fmt.Errorf("load user: %w", err)
			}

			sess, err := sessionstore.New(env.DB).Create(ctx, u.ID, ttl, "cineshelfctl")
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			env.Log.Info("auth token issued", zap.String("username", u.Username), zap.Time("expires_at", sess.ExpiresAt))

			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"username":   u.Username,
					"token":      sess.Token,
					"expires_at": sess.ExpiresAt,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sess.Token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&create, "create", false, "Create the user if it does not exist")
	return cmd
}

func newTokenRevokeCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <token>",
		Short: "Revoke a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := sessionstore.New(env.DB).Revoke(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("revoke session: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("token not found")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "token revoked")
			return err
		},
	}
}
