package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/agentcfg/agentcfg/internal/errors"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/resolve"
)

var validateCmd = &cobra.Command{
	Use:   "validate agent|category <name>",
	Short: "Check that an agent or category resolves to an available model",
	Long: `Validate one agent or category: its hard model requirement must be met
and some model must resolve. Exits non-zero when validation fails.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().Bool("refresh", false, "ignore the cached model catalog")
	validateCmd.Flags().Bool("json", false, "print the validation result as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind := resolve.Kind(strings.ToLower(strings.TrimSpace(args[0])))
	name := strings.TrimSpace(args[1])
	refresh, _ := cmd.Flags().GetBool("refresh")
	asJSON, _ := cmd.Flags().GetBool("json")

	e, err := loadEnv(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()

	tables, _ := e.loadTables(ctx)
	switch kind {
	case resolve.KindAgent:
		if _, ok := tables.Agent(name); !ok {
			return apperrors.NewNotFoundError("unknown agent " + strconv.Quote(name))
		}
	case resolve.KindCategory:
		if _, ok := tables.Category(name); !ok {
			return apperrors.NewNotFoundError("unknown category " + strconv.Quote(name))
		}
	default:
		return apperrors.NewInvalidInputError(`first argument must be "agent" or "category"`)
	}

	snapshot, err := e.loadCatalog(ctx, refresh)
	if err != nil {
		return err
	}
	_, cfg, err := e.readConfig()
	if err != nil {
		return err
	}

	resolver := e.resolver(tables)
	var validation resolve.Validation
	if kind == resolve.KindAgent {
		validation = resolver.ValidateAgent(name, snapshot.IDs(), cfg)
	} else {
		validation = resolver.ValidateCategory(name, snapshot.IDs(), cfg)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		raw, err := json.MarshalIndent(validation, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
	} else {
		fmt.Fprintln(out, describeValidation(kind, name, validation))
	}

	if !validation.Valid {
		metrics.RecordValidationFailure(string(kind), name)
		return apperrors.FromValidation(ctx, kind, name, validation)
	}
	return nil
}

func describeValidation(kind resolve.Kind, name string, v resolve.Validation) string {
	if !v.Valid {
		return fmt.Sprintf("✗ %s %s: %s", kind, name, v.Error)
	}
	line := fmt.Sprintf("✓ %s %s: %s", kind, name, v.Model)
	var notes []string
	if v.Variant != "" {
		notes = append(notes, "variant "+v.Variant)
	}
	if v.Provenance != "" {
		notes = append(notes, string(v.Provenance))
	}
	if len(notes) > 0 {
		line += " (" + strings.Join(notes, ", ") + ")"
	}
	return line
}
