// Package main exports persisted backtest results to CSV files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/config"
	"github.com/your-org/obi-backtest/internal/csvwriter"
	"github.com/your-org/obi-backtest/internal/datastore"
	"github.com/your-org/obi-backtest/pkg/logger"
)

func main() {
	// --- Argument Parsing ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	symbol := flag.String("symbol", "", "Symbol to export (defaults to the configured symbol)")
	limit := flag.Int("limit", 100, "Maximum number of rows per export")
	summariesOut := flag.String("summaries", "summaries.csv", "Output file for run summaries")
	performanceOut := flag.String("performance", "", "Optional output file for strategy-vs-benchmark rows")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
		}
	}()

	if !cfg.Database.Enabled {
		log.Fatal("database persistence is disabled in the configuration, nothing to export")
	}
	if *limit <= 0 {
		log.Fatal("limit must be positive", zap.Int("limit", *limit))
	}
	target := *symbol
	if target == "" {
		target = cfg.Symbol
	}

	// --- Database Connection ---
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	repo := datastore.NewTimescaleRepository(pool)

	// --- Run Summaries ---
	summaries, err := repo.FetchSummaries(ctx, target, *limit)
	if err != nil {
		log.Fatal("failed to fetch summaries", zap.Error(err))
	}
	if len(summaries) == 0 {
		log.Warn("no summaries recorded for symbol", zap.String("symbol", target))
	}
	if err := csvwriter.WriteSummaries(*summariesOut, summaries); err != nil {
		log.Fatal("failed to write summary CSV", zap.Error(err))
	}
	log.Info("exported summaries",
		zap.String("symbol", target),
		zap.String("path", *summariesOut),
		zap.Int("rows", len(summaries)),
	)

	// --- Strategy vs Benchmark (Optional) ---
	if *performanceOut != "" {
		rows, err := repo.FetchPerformanceVsBenchmark(ctx, target, *limit)
		if err != nil {
			log.Fatal("failed to fetch performance rows", zap.Error(err))
		}
		if err := csvwriter.WritePerformance(*performanceOut, rows); err != nil {
			log.Fatal("failed to write performance CSV", zap.Error(err))
		}
		log.Info("exported performance",
			zap.String("symbol", target),
			zap.String("path", *performanceOut),
			zap.Int("rows", len(rows)),
		)
	}
}
