package main

import (
	"fmt"
	"os"

	"github.com/cyberstreams/intelcore/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "intelcored",
		Short: "Intelcore daemon and CLI",
		Long:  "Intelcore daemon for running the intel API server, feed ingestion and summarization",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.SummarizeCmd())
	rootCmd.AddCommand(admin.SourcesCmd())
	rootCmd.AddCommand(admin.RunsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
