package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trackx",
		Short:         "Operate the trackx campaign views and repository metrics stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	root.AddCommand(schemaCmd())
	root.AddCommand(viewsCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(compactCmd())

	return root
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the databases and tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaInit(cmd)
		},
	})
	return cmd
}

func viewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "views",
		Short: "Ingest view events and compute hourly deltas",
	}
	cmd.AddCommand(viewsIngestCmd())
	cmd.AddCommand(viewsDeltasCmd())
	return cmd
}

func viewsIngestCmd() *cobra.Command {
	var (
		campaignID uint64
		file       string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Insert view events from a JSON array file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewsIngest(cmd, campaignID, file)
		},
	}

	cmd.Flags().Uint64Var(&campaignID, "campaign", 0, "campaign id")
	cmd.Flags().StringVar(&file, "file", "-", "JSON file with view events")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func viewsDeltasCmd() *cobra.Command {
	var (
		campaignID uint64
		date       string
	)

	cmd := &cobra.Command{
		Use:   "deltas",
		Short: "Print the positive hourly view increases of a campaign day as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewsDeltas(cmd, campaignID, date)
		},
	}

	cmd.Flags().Uint64Var(&campaignID, "campaign", 0, "campaign id")
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default: today, UTC)")
	_ = cmd.MarkFlagRequired("campaign")
	return cmd
}

func collectCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Scrape the GitHub stars leaderboard once and store it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "number of repositories, 1-100 (default: COLLECTOR_LIMIT)")
	return cmd
}

func compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Force deduplication of the repository metrics tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompact(cmd)
		},
	}
}
