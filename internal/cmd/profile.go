package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/profiles"
)

var profileCmd = &cobra.Command{
	Use:     "profile",
	Aliases: []string{"profiles"},
	Short:   "Manage saved oh-my-opencode configurations",
	Long: `Save, switch between and share named oh-my-opencode configurations.
Profiles live in the opencode configs directory. On first use the stock
defaults are saved as omo-default and an existing live config as user-config.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		names, err := manager.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No profiles found.")
			return nil
		}
		active, _ := manager.Active()

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"", "Name", "Description", "Modified"})
		for _, name := range names {
			marker := ""
			if name == active {
				marker = "*"
			}
			description, modified := "", ""
			if profile, err := manager.Load(name); err == nil {
				description = profile.Description
				modified = formatTimeAgo(profile.Modified)
			} else {
				description = "(unreadable: " + err.Error() + ")"
			}
			t.AppendRow(table.Row{marker, name, description, modified})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile and its agent assignments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		profile, err := manager.Load(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		doc, err := profile.Document()
		if err != nil {
			return err
		}
		cfg, err := doc.Config()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile: %s\n", profile.Name)
		if profile.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", profile.Description)
		}
		fmt.Fprintf(out, "Created: %s\n", profile.Created.Format("2006-01-02 15:04"))
		fmt.Fprintf(out, "Modified: %s\n\n", profile.Modified.Format("2006-01-02 15:04"))
		fmt.Fprintln(out, renderAgents(cfg))
		return nil
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the live config as a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		description, _ := cmd.Flags().GetString("description")

		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		doc, err := manager.ReadMain()
		if err != nil {
			return err
		}
		if _, err := manager.Save(name, description, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %s\n", name)
		return nil
	},
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile the live config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		backup, err := manager.Use(name)
		if err != nil {
			return err
		}
		logInfo("Profile activated", zap.String("profile", name), zap.String("backup", backup))
		fmt.Fprintf(cmd.OutOrStdout(), "Now using profile %s\n", name)
		if backup != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Previous config backed up to %s\n", backup)
		}
		return nil
	},
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		if err := manager.Rename(strings.TrimSpace(args[0]), strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		if active, _ := manager.Active(); active == name {
			return fmt.Errorf("profile %s is active; switch to another profile first", name)
		}
		if err := manager.Delete(name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", name)
		return nil
	},
}

var profileExportCmd = &cobra.Command{
	Use:   "export <name> <file>",
	Short: "Write a profile to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		if err := manager.Export(strings.TrimSpace(args[0]), args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], args[1])
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file> <name>",
	Short: "Save a file as a profile",
	Long:  "Save a file as a profile. The file may be an exported profile or a bare oh-my-opencode config.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		manager, err := profileManager(cmd)
		if err != nil {
			return err
		}
		profile, err := manager.Import(args[0], strings.TrimSpace(args[1]), description)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as %s\n", args[0], profile.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileSaveCmd, profileUseCmd,
		profileRenameCmd, profileDeleteCmd, profileExportCmd, profileImportCmd)

	profileSaveCmd.Flags().String("description", "", "profile description")
	profileImportCmd.Flags().String("description", "", "profile description (default from the file)")
}

// profileManager returns a manager after first-run profile setup.
func profileManager(cmd *cobra.Command) (*profiles.Manager, error) {
	e, err := loadEnv(cmd.Context(), false)
	if err != nil {
		return nil, err
	}
	manager := e.manager()
	migrated, err := manager.MigrateIfNeeded()
	if err != nil {
		return nil, err
	}
	if migrated {
		logInfo("Initialized profiles", zap.String("dir", e.paths.ConfigsDir))
	}
	return manager, nil
}
