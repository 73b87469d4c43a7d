package main

import (
	"log/slog"
	"os"

	"griefpulse/internal/app"
	"griefpulse/internal/config"
	"griefpulse/internal/services"
)

// Set via -ldflags at build time
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg, services.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	})
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
