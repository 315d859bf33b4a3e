package cli

import (
	"context"
	"errors"
	"fmt"

	auditstore "github.com/dalemusser/cineshelf/internal/app/store/audit"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/spf13/cobra"
)

func newUserCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(
		newAdminFlagCmd(env, "grant-admin", "Make a user a site admin", true),
		newAdminFlagCmd(env, "revoke-admin", "Remove a user's site admin flag", false),
	)
	return cmd
}

func newAdminFlagCmd(env *Env, use, short string, grant bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <username>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if err := setAdmin(cmd.Context(), env, username, grant); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"username": username, "is_admin": grant})
			}
			verb := "granted to"
			if !grant {
				verb = "revoked from"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "site admin %s %s\n", verb, username)
			return err
		},
	}
}

func setAdmin(ctx context.Context, env *Env, username string, grant bool) error {
	err := userstore.New(env.DB).SetAdmin(ctx, username, grant)
	if errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("user %q not found", username)
	}
	if err != nil {
		return fmt.Errorf("set admin flag: %w", err)
	}
	audit := auditlog.New(auditstore.New(env.DB), env.Log, auditlog.Config{Groups: "all"})
	audit.AdminFlagChanged(ctx, username, grant)
	return nil
}
