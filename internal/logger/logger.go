package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// L is the shared application logger. Init must be called once at
// startup; packages derive component loggers with L.With(...).
var L *slog.Logger = slog.Default()

// Init configures the global JSON logger at the given level.
func Init(levelStr string) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	L = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(L)
	L.Info("logger initialized", "level", level.String())
}

// For returns a component-scoped logger.
func For(component string) *slog.Logger {
	return L.With("component", component)
}
