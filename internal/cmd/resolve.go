package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/output"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [names...]",
	Short: "Resolve the model for agents and categories",
	Long: `Resolve the model each agent or category would run with, given the
models opencode currently offers and the oh-my-opencode config.

With no names (or --all) every agent and category in the requirement
tables is resolved. Exits non-zero when any name fails to resolve.`,
	Example: `  agentcfg resolve oracle librarian
  agentcfg resolve --all --output json
  agentcfg resolve sisyphus --ui-model anthropic/claude-sonnet-4-5`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().Bool("all", false, "resolve every agent and category")
	resolveCmd.Flags().String("ui-model", "", "model selected in the host UI (applies to primary agents)")
	resolveCmd.Flags().Bool("refresh", false, "ignore the cached model catalog")
	addOutputFlags(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	all, _ := cmd.Flags().GetBool("all")
	uiFlag, _ := cmd.Flags().GetString("ui-model")
	refresh, _ := cmd.Flags().GetBool("refresh")

	e, err := loadEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	snapshot, err := e.loadCatalog(ctx, refresh)
	if err != nil {
		return err
	}
	_, cfg, err := e.readConfig()
	if err != nil {
		return err
	}
	tables, tag := e.loadTables(ctx)
	resolver := e.resolver(tables)

	names := make([]string, 0, len(args))
	for _, arg := range args {
		if name := strings.TrimSpace(arg); name != "" {
			names = append(names, name)
		}
	}
	if all || len(names) == 0 {
		names = resolver.Names()
	}

	start := time.Now()
	reports, err := resolver.ResolveAll(ctx, snapshot.IDs(), cfg, names, resolve.BatchOptions{
		UIModel: e.uiModel(uiFlag),
		Workers: e.cfg.Workers,
	})
	if err != nil {
		return err
	}
	if len(reports) > 0 {
		each := time.Since(start) / time.Duration(len(reports))
		for _, r := range reports {
			metrics.RecordResolution(string(r.Kind), string(r.Provenance), each)
		}
	}
	logDebug("Resolved names", zap.Int("count", len(reports)), zap.String("schema_tag", tag))

	if err := render(cmd, func(f output.Formatter) (string, error) { return f.FormatReports(reports) }); err != nil {
		return err
	}

	if summary := output.Summarize(reports); summary.Invalid > 0 {
		return apperrors.New(apperrors.CodeResolutionFailed, fmt.Sprintf("%d of %d names failed to resolve", summary.Invalid, summary.Total))
	}
	return nil
}
