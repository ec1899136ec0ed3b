package bootstrap

import (
	"log/slog"
	"os"

	"caseopener-rest-api/internal/config"
	"caseopener-rest-api/internal/logger"
)

// SetupLogger installs the process-wide slog logger described by cfg.
func SetupLogger(cfg *config.Config) *slog.Logger {
	l := logger.Setup(os.Stdout, logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		AddSource:   cfg.Log.AddSource,
	})
	l.Info("Logging initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return l
}
