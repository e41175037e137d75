// Package main is the entry point of the order book imbalance backtester.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/your-org/obi-backtest/internal/config"
	"github.com/your-org/obi-backtest/pkg/logger"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	tradeLogPath := flag.String("trade-log", "", "Optional CSV file that receives every resolved trade")
	httpAddr := flag.String("http", ":8080", "Listen address for the results API (live mode only)")
	once := flag.Bool("once", false, "Run a single pass and exit")
	quiet := flag.Bool("quiet", false, "Suppress the console trade and summary tables")
	flag.Parse()

	// A .env file is optional; deployments usually set DB_* directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := log.Sync(); err != nil {
			// The logger is being flushed, so print to stderr instead.
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
		}
	}()

	log.Info("backtester starting",
		zap.String("config", *configPath),
		zap.String("symbol", cfg.Symbol),
		zap.String("interval", cfg.Interval),
		zap.String("data_source", cfg.Data.Source),
		zap.Bool("once", *once),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newApp(ctx, cfg, appOptions{
		TradeLogPath: *tradeLogPath,
		HTTPAddr:     *httpAddr,
		Once:         *once,
		Quiet:        *quiet,
	}, log)
	if err != nil {
		log.Fatal("failed to assemble application", zap.Error(err))
	}

	// --- Graceful Shutdown Setup ---
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	select {
	case sig := <-sigs:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-done
	case err := <-done:
		if err != nil {
			log.Error("run exited with error", zap.Error(err))
		}
	}

	app.Close()
	log.Info("backtester shut down")
}
