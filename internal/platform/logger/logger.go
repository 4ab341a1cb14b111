package logger

import (
	"log/slog"
	"os"
)

// New returns the JSON slog logger services receive via their options.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
