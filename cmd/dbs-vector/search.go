package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/search"
)

var (
	searchEngineName string
	searchSource     string
	searchLimit      int
	searchMinTime    float64
	searchMinTimeSet bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Searches the vector store using hybrid retrieval (Vector + Full-Text).",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchEngineName, "type", "t", "md", "The type of data to search (md, sql, etc).")
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "Filter results to a specific file or database.")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 5, "Maximum number of search results to return.")
	searchCmd.Flags().Float64Var(&searchMinTime, "min-time", 0, "(SQL Only) Minimum execution time in ms.")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	searchMinTimeSet = cmd.Flags().Changed("min-time")

	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if _, ok := cfg.Engines[searchEngineName]; !ok {
		fmt.Printf("Error: Unknown engine type '%s'. Available: %v\n", searchEngineName, cfg.EngineNames())
		os.Exit(1)
	}

	queryCache := newQueryCache(log)
	inst, err := buildEngine(cfg, log, queryCache, searchEngineName)
	if err != nil {
		return err
	}
	defer inst.Close()

	ctx := context.Background()
	opts := search.Options{Limit: searchLimit}
	if searchSource != "" {
		opts.SourceFilter = &searchSource
	}
	if searchMinTimeSet && searchEngineName == "sql" {
		opts.MinTime = &searchMinTime
	}

	if inst.Document != nil {
		results, err := inst.Document.Search(ctx, query, opts)
		if err != nil {
			return err
		}
		printDocumentResults(results)
		return nil
	}

	results, err := inst.SQL.Search(ctx, query, opts)
	if err != nil {
		return err
	}
	printSqlResults(results)
	return nil
}

func distanceLabel(d *float32) string {
	if d == nil {
		return "N/A (FTS Match)"
	}
	return fmt.Sprintf("%.4f", *d)
}

func printDocumentResults(results []core.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}
	color.New(color.FgCyan).Println("Top Results:")
	for _, res := range results {
		fmt.Printf("[Score/Dist: %s | Source: %s | Hash: %s]\n", distanceLabel(res.Distance), res.Chunk.Source, res.Chunk.ContentHash)
		snippet := strings.ReplaceAll(truncate(res.Chunk.Text, 100), "\n", " ")
		fmt.Printf("  --> %q...\n", snippet)
	}
}

func printSqlResults(results []core.SqlSearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}
	color.New(color.FgCyan).Println("Top Results:")
	for _, res := range results {
		fmt.Printf("[Score/Dist: %s | DB: %s | Calls: %d | Time: %gms]\n", distanceLabel(res.Distance), res.Chunk.Source, res.Chunk.Calls, res.Chunk.ExecutionTimeMs)
		snippet := strings.ReplaceAll(truncate(res.Chunk.RawQuery, 100), "\n", " ")
		fmt.Printf("  --> %q...\n", snippet)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
