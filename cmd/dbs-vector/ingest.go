package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	ingestEngineName string
	ingestRebuild    bool
	ingestForce      bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingests documents or SQL query logs into the Arrow-native vector store.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestEngineName, "type", "t", "md", "The type of data to ingest (md, sql, etc).")
	ingestCmd.Flags().BoolVarP(&ingestRebuild, "rebuild", "r", false, "Drop the existing vector store and recreate it from scratch.")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "Bypass confirmation prompt when rebuilding.")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, log, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if _, ok := cfg.Engines[ingestEngineName]; !ok {
		fmt.Printf("Error: Unknown engine type '%s'. Available: %v\n", ingestEngineName, cfg.EngineNames())
		os.Exit(1)
	}

	if ingestRebuild && !ingestForce {
		if !confirm(fmt.Sprintf("Are you sure you want to completely rebuild the '%s' vector store? This will erase all existing data.", ingestEngineName)) {
			fmt.Println("Aborted.")
			os.Exit(1)
		}
	}

	queryCache := newQueryCache(log)
	inst, err := buildEngine(cfg, log, queryCache, ingestEngineName)
	if err != nil {
		return err
	}
	defer inst.Close()

	ctx := context.Background()
	bar := progressbar.Default(-1, fmt.Sprintf("ingesting (%s)", ingestEngineName))

	stats, err := inst.IngestWithProgress(ctx, path, ingestRebuild, func(newChunks int) {
		_ = bar.Add(newChunks)
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	color.New(color.FgGreen).Printf("✓ Ingested %d new chunks (%d already present)\n", stats.NewChunks, stats.SkippedChunks)
	return nil
}

// confirm prompts y/N on stdin, mirroring typer.confirm(..., abort=True).
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
