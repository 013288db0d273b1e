// Command server runs the StepWise API.
//
// Configuration comes from defaults, an optional YAML file (-config), a .env
// file and the environment; see package config.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/stepwise/internal/config"
	"github.com/sakif/stepwise/internal/server"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file")
	dotEnv := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.Load(config.Options{File: *configFile, DotEnv: *dotEnv})
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
