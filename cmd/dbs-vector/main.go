// Command dbs-vector is the CLI entrypoint for the local Arrow-native
// hybrid search engine: ingest, search, serve, and mcp subcommands built
// on top of the same per-engine dependency tuple.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
