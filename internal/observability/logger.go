package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger. Dev gets debug level;
// everything else stays at info so log volume tracks traffic, not chatter.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	base := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	// Lines logged inside a span carry its trace/span ids.
	return slog.New(NewTraceHandler(base))
}
