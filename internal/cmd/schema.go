package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/output"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage the cached upstream oh-my-opencode schema",
}

var schemaUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Download the latest schema release",
	Long: `Fetch the latest oh-my-opencode release tag and download its schema.
Within the TTL nothing is fetched unless --force is given. A download that
matches the cached hash only refreshes the check time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()
		if e.store == nil {
			return errors.New("schema cache requires the local store")
		}

		result, err := e.schemaClient().Update(cmd.Context(), force)
		if err != nil {
			metrics.RecordSchemaUpdate("failed")
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case result.Skipped:
			metrics.RecordSchemaUpdate("skipped")
			fmt.Fprintf(out, "Schema %s checked recently; use --force to check again\n", result.Record.Tag)
		case result.Updated:
			metrics.RecordSchemaUpdate("updated")
			fmt.Fprintf(out, "Downloaded schema %s\n", result.Record.Tag)
		default:
			metrics.RecordSchemaUpdate("unchanged")
			fmt.Fprintf(out, "Schema %s unchanged\n", result.Record.Tag)
		}
		logDebug("Schema update", zap.String("tag", result.Record.Tag), zap.String("sha256", result.Record.SHA256))
		return nil
	},
}

var schemaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		var record *upstream.Record
		if e.store != nil {
			record, err = e.schemaClient().Cached(cmd.Context())
			if err != nil && !errors.Is(err, upstream.ErrNoSchema) {
				return err
			}
		}
		return render(cmd, func(f output.Formatter) (string, error) { return f.FormatSchema(record) })
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.AddCommand(schemaUpdateCmd, schemaStatusCmd)

	schemaUpdateCmd.Flags().Bool("force", false, "ignore the TTL")
	addOutputFlags(schemaStatusCmd)
}
