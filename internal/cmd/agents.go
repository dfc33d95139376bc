package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "View and edit per-agent model assignments",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents configured in oh-my-opencode.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		_, cfg, err := e.readConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderAgents(cfg))
		return nil
	},
}

var agentsSetCmd = &cobra.Command{
	Use:   "set <agent> <provider/model>",
	Short: "Assign a model to an agent",
	Long: `Assign a model to an agent. The model must match one opencode offers
unless --no-check is given; the matched id is written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, model := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])
		variant, _ := cmd.Flags().GetString("variant")
		noCheck, _ := cmd.Flags().GetBool("no-check")

		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		if !noCheck {
			snapshot, err := e.loadCatalog(cmd.Context(), false)
			if err != nil {
				return err
			}
			match, ok := resolve.FuzzyMatch(snapshot.IDs(), model)
			if !ok {
				return fmt.Errorf("model %q is not available (see 'models list', or pass --no-check)", model)
			}
			model = match
		}

		return editConfig(cmd, e, func(doc *omo.Document) error {
			if err := doc.SetAgentModel(agent, model); err != nil {
				return err
			}
			if variant != "" {
				return doc.SetAgentVariant(agent, variant)
			}
			return nil
		}, fmt.Sprintf("%s -> %s", agent, model))
	},
}

var agentsCategoryCmd = &cobra.Command{
	Use:   "category <agent> <category>",
	Short: "Tag an agent with a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, category := strings.TrimSpace(args[0]), strings.TrimSpace(args[1])

		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()

		tables, _ := e.loadTables(cmd.Context())
		resolver := e.resolver(tables)
		return editConfig(cmd, e, func(doc *omo.Document) error {
			return resolver.ApplyCategory(doc, agent, category)
		}, fmt.Sprintf("%s -> category %s", agent, category))
	},
}

var agentsClearCmd = &cobra.Command{
	Use:   "clear <agent>",
	Short: "Remove an agent's overrides",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agent := strings.TrimSpace(args[0])

		e, err := loadEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		return editConfig(cmd, e, func(doc *omo.Document) error {
			return doc.ClearAgent(agent)
		}, agent+" cleared")
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd, agentsSetCmd, agentsCategoryCmd, agentsClearCmd)

	agentsSetCmd.Flags().String("variant", "", "variant to set alongside the model")
	agentsSetCmd.Flags().Bool("no-check", false, "skip checking the model against the catalog")
}

// editConfig applies edit to the live config and writes it back with a
// backup.
func editConfig(cmd *cobra.Command, e *env, edit func(*omo.Document) error, summary string) error {
	manager := e.manager()
	doc, err := manager.ReadMain()
	if err != nil {
		return err
	}
	if err := edit(doc); err != nil {
		return err
	}
	if _, err := doc.Config(); err != nil {
		return fmt.Errorf("edited config is invalid: %w", err)
	}

	backup, err := manager.WriteMain(doc)
	if err != nil {
		return err
	}
	logInfo("Config updated", zap.String("file", e.paths.ConfigFile), zap.String("backup", backup))
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", e.paths.ConfigFile, summary)
	return nil
}

func renderAgents(cfg *omo.Config) string {
	if cfg == nil || len(cfg.Agents) == 0 {
		return "No agents configured."
	}

	names := make([]string, 0, len(cfg.Agents))
	for name := range cfg.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Agent", "Model", "Variant", "Category", "Role"})
	for _, name := range names {
		agent := cfg.Agents[name]
		t.AppendRow(table.Row{name, dash(agent.Model), dash(agent.Variant), dash(agent.Category), omo.Describe(name)})
	}
	return t.Render()
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
