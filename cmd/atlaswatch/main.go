package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/atlaswatch/atlaswatch/internal/logging"
)

var cfgFile string

func main() {
	logging.Init(slog.LevelInfo)

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "atlaswatch",
		Short: "Collect and analyze social-media chatter about Moroccan tourist destinations",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scrapeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(runCmd())

	return root
}

func scrapeCmd() *cobra.Command {
	var postsPerQuery int

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one full scrape pass and print the collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(postsPerQuery)
		},
	}

	cmd.Flags().IntVar(&postsPerQuery, "posts-per-query", 100, "max posts fetched per search query")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		port    int
		csvPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analytics HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, csvPath)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "serve a CSV dataset export instead of the store")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print collection statistics for the stored corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the analytics dataset as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "dataset.csv", "output CSV path")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with periodic scraping and the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
