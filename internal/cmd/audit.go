package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentcfg/agentcfg/internal/omo"
	"github.com/agentcfg/agentcfg/internal/output"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare the live config against the stock defaults",
	Long: `Report agents and MCP servers that the stock oh-my-opencode defaults
define but the live config lacks, and entries the defaults do not know.
With --fix the missing entries are added from the defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")

		e, err := loadEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		_, cfg, err := e.readConfig()
		if err != nil {
			return err
		}
		issues := omo.Audit(cfg)

		if err := render(cmd, func(f output.Formatter) (string, error) { return f.FormatAudit(issues) }); err != nil {
			return err
		}
		if !fix || issues.Empty() {
			return nil
		}

		var added int
		err = editConfig(cmd, e, func(doc *omo.Document) error {
			n, err := doc.AddAllMissing(issues)
			added = n
			return err
		}, "added missing defaults")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d missing entries\n", added)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Bool("fix", false, "add missing agents and MCP servers from the defaults")
	addOutputFlags(auditCmd)
}
