package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/dbs-vector/internal/api"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP search API server.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "127.0.0.1", "Host to bind the API server to.")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to bind the API server to.")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	queryCache := newQueryCache(log)

	fmt.Println("\n[Startup] Initializing embedders and Arrow store connections...")
	reg, err := buildAllEngines(cfg, log, queryCache)
	if err != nil {
		fmt.Printf("[Startup] Failed to initialize search services: %s\n", err)
		return err
	}
	defer reg.Close()
	fmt.Println("[Startup] API is ready to accept concurrent requests.")

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	fmt.Printf("Starting dbs-vector API server at http://%s...\n", addr)

	router := api.NewRouter(log, cfg, reg)
	return http.ListenAndServe(addr, router)
}
