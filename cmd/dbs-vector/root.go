package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "dbs-vector",
	Short: "dbs-vector: Local Arrow-Native Codebase Search Engine",
	Long: `dbs-vector indexes Markdown/text corpora and SQL query logs into an
Arrow-native columnar vector store and serves hybrid (vector + full-text)
search over them via the CLI, an HTTP API, or an MCP stdio server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("dbs-vector version: %s\n", version)
			os.Exit(0)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config-file", "c", "config.yaml", "Path to config.yaml file.")
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show the version and exit.")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
