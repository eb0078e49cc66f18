package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/privylex/privylex/internal/config"
	"github.com/privylex/privylex/internal/insight"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	outDir := os.Getenv("IEXEC_OUT")
	if outDir == "" {
		logger.Error("IEXEC_OUT not set")
		os.Exit(1)
	}
	inDir := os.Getenv("IEXEC_IN")
	if inDir == "" {
		inDir = "/iexec_in"
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	app := &insight.App{
		InputDir:  inDir,
		OutputDir: outDir,
		Analyzer: insight.NewAnalyzer(
			cfg.Insight.Provider,
			cfg.Insight.Model,
			cfg.Insight.OpenAIKey,
			cfg.Insight.AnthropicKey,
		),
		Logger: logger,
	}

	query := insight.QueryFromArgs(os.Args[1:])
	if err := app.Run(context.Background(), query); err != nil {
		logger.Error("task failed", "error", err)
		os.Exit(1)
	}
}
