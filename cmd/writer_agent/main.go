// Package main provides the entry point for the long-form writer CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "writer_agent",
	Short: "Long-form document generation agent",
	Long:  "writer_agent plans, drafts, reviews and assembles long-form documents (essays, articles, papers) through a DAG of specialized section workers.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
