package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the model catalog cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()
		if e.store == nil {
			return errors.New("local store unavailable")
		}

		entries, err := e.store.ListCatalogs(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog cache is empty.")
			return nil
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Command", "Models", "Fetched", "Status"})
		for _, entry := range entries {
			status := "fresh"
			if entry.Expired {
				status = "expired"
			}
			t.AppendRow(table.Row{entry.Key, entry.ModelCount, formatTimeAgo(entry.FetchedAt), status})
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		expiredOnly, _ := cmd.Flags().GetBool("expired")

		e, err := loadEnv(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer e.Close()
		if e.store == nil {
			return errors.New("local store unavailable")
		}

		removed, err := e.store.ClearCatalogs(cmd.Context(), expiredOnly)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached catalog(s)\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheClearCmd)

	cacheClearCmd.Flags().Bool("expired", false, "only remove expired entries")
}
