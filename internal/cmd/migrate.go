package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move the live config onto categories",
	Long: `Tag agents with categories in the live oh-my-opencode config (explore
becomes quick when untagged) and record the migration date. The current
file is backed up first. Running it again is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		result, err := e.manager().Migrate()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if result.Skipped {
			fmt.Fprintf(out, "Nothing to migrate: %s\n", result.Reason)
			return nil
		}
		fmt.Fprintf(out, "Migrated to categories (%s)\n", result.Marker)
		if len(result.Tagged) > 0 {
			fmt.Fprintf(out, "Tagged: %s\n", strings.Join(result.Tagged, ", "))
		}
		if result.Backup != "" {
			fmt.Fprintf(out, "Backup: %s\n", result.Backup)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
