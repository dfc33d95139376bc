package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/output"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the models opencode offers",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available models",
	Example: `  agentcfg models list --match '*/claude-*'
  agentcfg models list --provider openai --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patterns, _ := cmd.Flags().GetStringSlice("match")
		providers, _ := cmd.Flags().GetStringSlice("provider")

		snapshot, err := loadModels(cmd)
		if err != nil {
			return err
		}
		models, err := catalog.Filter(snapshot.Models, patterns, providers)
		if err != nil {
			return err
		}
		return render(cmd, func(f output.Formatter) (string, error) { return f.FormatModels(models) })
	},
}

var modelsProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers with at least one available model",
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := loadModels(cmd)
		if err != nil {
			return err
		}

		counts := make(map[string]int)
		for _, m := range snapshot.Models {
			counts[m.Provider()]++
		}
		out := cmd.OutOrStdout()
		for _, provider := range snapshot.Providers {
			fmt.Fprintf(out, "%s (%d)\n", provider, counts[provider])
		}
		return nil
	},
}

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend <agent>",
	Short: "Rank available models for an agent role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent := strings.TrimSpace(args[0])
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		refresh, _ := cmd.Flags().GetBool("refresh")
		snapshot, err := e.loadCatalog(cmd.Context(), refresh)
		metrics.RecordCatalogLoad(catalogSource(snapshot), err == nil)
		if err != nil {
			return err
		}
		_, cfg, err := e.readConfig()
		if err != nil {
			return err
		}

		scored := catalog.Recommend(snapshot.Models, agent, cfg.PreferredProviders, limit)
		return render(cmd, func(f output.Formatter) (string, error) { return f.FormatRecommendations(agent, scored) })
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd, modelsProvidersCmd, modelsRecommendCmd)

	modelsCmd.PersistentFlags().Bool("refresh", false, "ignore the cached model catalog")

	modelsListCmd.Flags().StringSlice("match", nil, "glob over provider/model ids (repeatable)")
	modelsListCmd.Flags().StringSlice("provider", nil, "only these providers (repeatable)")
	addOutputFlags(modelsListCmd)

	modelsRecommendCmd.Flags().Int("limit", 5, "number of models to show")
	addOutputFlags(modelsRecommendCmd)
}

func loadModels(cmd *cobra.Command) (*catalog.Snapshot, error) {
	e, err := loadEnv(cmd.Context(), true)
	if err != nil {
		return nil, err
	}
	defer e.Close()

	refresh, _ := cmd.Flags().GetBool("refresh")
	snapshot, err := e.loadCatalog(cmd.Context(), refresh)
	metrics.RecordCatalogLoad(catalogSource(snapshot), err == nil)
	return snapshot, err
}

func catalogSource(snapshot *catalog.Snapshot) string {
	if snapshot != nil && snapshot.FromCache {
		return "cache"
	}
	return "cli"
}
