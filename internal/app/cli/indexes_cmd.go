package cli

import (
	"fmt"

	"github.com/dalemusser/cineshelf/internal/app/system/indexes"
	"github.com/dalemusser/cineshelf/internal/app/system/validators"
	"github.com/spf13/cobra"
)

func newIndexesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Manage database indexes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create or update every index and collection validator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := indexes.EnsureAll(cmd.Context(), env.DB, env.Log); err != nil {
				return fmt.Errorf("ensure indexes: %w", err)
			}
			if err := validators.EnsureAll(cmd.Context(), env.DB, env.Log); err != nil {
				return fmt.Errorf("ensure validators: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "indexes and validators ensured")
			return err
		},
	})
	return cmd
}
