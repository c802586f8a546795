package main

import (
	"log/slog"
	"os"

	"adoptify-web/internal/app"
	"adoptify-web/internal/logger"
)

func main() {
	// Replaced by the configured level once the config is loaded.
	slog.SetDefault(logger.New(os.Stdout, "info"))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
