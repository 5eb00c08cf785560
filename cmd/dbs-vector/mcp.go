package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/dbs-vector/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Starts the MCP standard input/output (stdio) server for agent integrations.",
	RunE:  runMcp,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMcp(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	queryCache := newQueryCache(log)

	fmt.Fprintln(os.Stderr, "[MCP Startup] Initializing embedders and Arrow store connections...")
	reg, err := buildAllEngines(cfg, log, queryCache)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[MCP Startup] Failed to initialize search services: %s\n", err)
		return err
	}
	defer reg.Close()

	s := mcpserver.New(reg)
	return mcpserver.Serve(s)
}
